package deps

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Discovery reports the outcome of a staged binary search.
type Discovery struct {
	Found   bool
	Path    string
	Version string
	Stage   string
}

// Search stages, in the order they run.
const (
	StagePath     = "path"
	StageBeside   = "beside"
	StageStandard = "standard"
	StageDeep     = "deep"
)

// DiscoverOptions tunes the staged search. The zero value runs only the
// fast stages.
type DiscoverOptions struct {
	// Deep enables the depth-limited filesystem walk after the fast
	// stages come up empty.
	Deep bool
	// Roots overrides the deep-walk start points. Defaults to the
	// platform root.
	Roots []string
	// MaxDepth bounds the deep walk below each root. Defaults to 10.
	MaxDepth int
	// Progress, when set, is called every 100 visited entries during
	// the deep walk.
	Progress func(visited int)
}

// Discover locates a tool by name: PATH first, then next to the running
// executable, then the platform's usual install directories, then (when
// enabled) a bounded walk of the filesystem. A candidate only counts
// once it answers -version.
func Discover(ctx context.Context, name string, opts DiscoverOptions) Discovery {
	exe := exeName(name)

	if resolved, err := exec.LookPath(name); err == nil {
		if d, ok := verify(ctx, resolved, StagePath); ok {
			return d
		}
	}
	if candidate, ok := besideExecutable(exe); ok {
		if d, ok := verify(ctx, candidate, StageBeside); ok {
			return d
		}
	}
	for _, dir := range standardDirs() {
		candidate := filepath.Join(dir, exe)
		info, err := os.Stat(candidate)
		if err != nil || !isExecutable(info) {
			continue
		}
		if d, ok := verify(ctx, candidate, StageStandard); ok {
			return d
		}
	}
	if opts.Deep {
		if d, ok := deepSearch(ctx, exe, opts); ok {
			return d
		}
	}
	return Discovery{}
}

// verify confirms a candidate actually runs before reporting it found.
func verify(ctx context.Context, path, stage string) (Discovery, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	version, err := Version(ctx, abs)
	if err != nil {
		return Discovery{}, false
	}
	return Discovery{Found: true, Path: abs, Version: version, Stage: stage}, true
}

func exeName(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

func besideExecutable(exe string) (string, bool) {
	self, err := os.Executable()
	if err != nil {
		return "", false
	}
	candidate := filepath.Join(filepath.Dir(self), exe)
	info, err := os.Stat(candidate)
	if err != nil || !isExecutable(info) {
		return "", false
	}
	return candidate, true
}

func standardDirs() []string {
	home, _ := os.UserHomeDir()
	if runtime.GOOS == "windows" {
		dirs := []string{
			`C:\ffmpeg\bin`,
			`C:\ffmpeg`,
			`C:\Program Files\ffmpeg\bin`,
			`C:\Program Files\ffmpeg`,
			`C:\Program Files (x86)\ffmpeg\bin`,
			`C:\Program Files (x86)\ffmpeg`,
		}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Downloads"), filepath.Join(home, "Desktop"))
		}
		return dirs
	}
	dirs := []string{"/usr/local/bin", "/usr/bin", "/opt/homebrew/bin"}
	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, "Downloads"),
			filepath.Join(home, "Desktop"),
			filepath.Join(home, "ffmpeg"),
		)
	}
	return dirs
}

func defaultRoots() []string {
	if runtime.GOOS == "windows" {
		return []string{`C:\`}
	}
	return []string{"/"}
}

// skipDir filters directories out of the deep walk. Virtual filesystems
// would stall it; the Windows names mirror the dirs excluded since the
// first release.
func skipDir(path string) bool {
	lower := strings.ToLower(path)
	if runtime.GOOS == "windows" {
		return strings.Contains(lower, `windows\winsxs`) ||
			strings.Contains(lower, `windows\system32`) ||
			strings.Contains(lower, "$recycle.bin") ||
			strings.Contains(lower, "system volume information")
	}
	switch lower {
	case "/proc", "/sys", "/dev", "/run":
		return true
	}
	return false
}

func deepSearch(ctx context.Context, exe string, opts DiscoverOptions) (Discovery, bool) {
	roots := opts.Roots
	if len(roots) == 0 {
		roots = defaultRoots()
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}

	visited := 0
	var found Discovery
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped, not fatal
			}
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if entry.IsDir() {
				if path != root && (skipDir(path) || walkDepth(root, path) >= maxDepth) {
					return fs.SkipDir
				}
				return nil
			}
			visited++
			if opts.Progress != nil && visited%100 == 0 {
				opts.Progress(visited)
			}
			if entry.Name() != exe {
				return nil
			}
			if d, ok := verify(ctx, path, StageDeep); ok {
				found = d
				return fs.SkipAll
			}
			return nil
		})
		if found.Found {
			break
		}
	}
	return found, found.Found
}

func walkDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
