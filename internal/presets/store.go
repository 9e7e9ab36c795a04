package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/services"
	"github.com/sharkye1/Szhimatar2/internal/textutil"
)

// Preset is one saved FFmpeg argument profile.
type Preset struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Args        []string `json:"args,omitempty"`
	VideoCodec  string   `json:"video_codec,omitempty"`
	AudioCodec  string   `json:"audio_codec,omitempty"`
}

// CommandArgs returns the FFmpeg argument block this preset contributes to
// a render. An explicit args list wins over the codec shorthand fields.
func (p Preset) CommandArgs() []string {
	if len(p.Args) > 0 {
		return append([]string(nil), p.Args...)
	}
	var args []string
	if codec := strings.TrimSpace(p.VideoCodec); codec != "" {
		args = append(args, "-c:v", codec)
	}
	if codec := strings.TrimSpace(p.AudioCodec); codec != "" {
		args = append(args, "-c:a", codec)
	}
	return args
}

// Store manages one JSON file per preset under a single directory. The
// directory is created lazily on first save.
type Store struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "presets")
	return &Store{dir: strings.TrimSpace(dir), logger: logger}
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// fileStem normalizes a preset name into its on-disk stem. Save and lookup
// both pass through here so a name resolves to the same file either way.
func fileStem(name string) (string, error) {
	stem := textutil.SanitizeFileName(name)
	if stem == "" {
		return "", services.Wrap(services.ErrValidation, "presets", "name", "preset name required", nil)
	}
	return stem, nil
}

func (s *Store) path(stem string) string {
	return filepath.Join(s.dir, stem+".json")
}

// List returns the stored preset names, sorted. A missing directory is an
// empty store, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, "presets", "list", "read presets directory", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads one preset by name.
func (s *Store) Load(name string) (Preset, error) {
	stem, err := fileStem(name)
	if err != nil {
		return Preset{}, err
	}

	data, err := os.ReadFile(s.path(stem))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Preset{}, services.Wrap(services.ErrNotFound, "presets", "load", fmt.Sprintf("preset %q not found", name), nil)
		}
		return Preset{}, services.Wrap(services.ErrConfiguration, "presets", "load", fmt.Sprintf("read preset %q", name), err)
	}

	var preset Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return Preset{}, services.Wrap(services.ErrValidation, "presets", "load", fmt.Sprintf("preset %q is not valid JSON", name), err)
	}
	if strings.TrimSpace(preset.Name) == "" {
		preset.Name = stem
	}
	return preset, nil
}

// Save validates and persists a preset, replacing any existing file of the
// same name. The write goes through a temp file so readers never observe a
// partial preset.
func (s *Store) Save(preset Preset) error {
	stem, err := fileStem(preset.Name)
	if err != nil {
		return err
	}
	preset.Name = strings.TrimSpace(preset.Name)

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, "presets", "save", fmt.Sprintf("encode preset %q", preset.Name), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "presets", "save", "create presets directory", err)
	}
	target := s.path(stem)
	tmpPath := target + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "presets", "save", "write preset file", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrConfiguration, "presets", "save", "replace preset file", err)
	}

	s.logger.Debug("preset saved",
		logging.String("preset", preset.Name),
		logging.String("path", target),
	)
	return nil
}

// Delete removes a preset by name.
func (s *Store) Delete(name string) error {
	stem, err := fileStem(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(stem)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "presets", "delete", fmt.Sprintf("preset %q not found", name), nil)
		}
		return services.Wrap(services.ErrConfiguration, "presets", "delete", fmt.Sprintf("delete preset %q", name), err)
	}

	s.logger.Debug("preset deleted", logging.String("preset", name))
	return nil
}

// ArgsFor resolves a preset name to its FFmpeg argument block. This is the
// lookup the render manager performs when a start request names a preset.
func (s *Store) ArgsFor(name string) ([]string, error) {
	preset, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return preset.CommandArgs(), nil
}
