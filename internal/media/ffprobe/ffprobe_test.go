package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sharkye1/Szhimatar2/internal/services"
	"github.com/sharkye1/Szhimatar2/internal/testsupport"
)

const probePayload = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 6, "sample_rate": "48000", "tags": {"language": "eng"}},
    {"index": 2, "codec_name": "subrip", "codec_type": "subtitle", "tags": {"language": "ger", "title": "Forced"}}
  ],
  "format": {
    "filename": "in.mkv",
    "nb_streams": 3,
    "duration": "4521.337000",
    "size": "1073741824",
    "bit_rate": "1900000",
    "format_name": "matroska,webm"
  }
}`

func writeProbeStub(t *testing.T, payload string) (binary, argsFile string) {
	t.Helper()
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args.txt")
	body := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$@\" > %s\ncat <<'JSON'\n%s\nJSON\n", argsFile, payload)
	return testsupport.WriteExecutable(t, filepath.Join(dir, "ffprobe"), body), argsFile
}

func TestProbeDecodesStreamsAndFormat(t *testing.T) {
	binary, argsFile := writeProbeStub(t, probePayload)
	client := NewClient(binary, nil)

	result, err := client.Probe(context.Background(), "/media/in.mkv")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args file: %v", err)
	}
	got := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	want := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", "/media/in.mkv"}
	if len(got) != len(want) {
		t.Fatalf("ffprobe argv = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ffprobe argv[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 || result.SubtitleStreamCount() != 1 {
		t.Fatalf("stream counts = %d/%d/%d, want 1/1/1",
			result.VideoStreamCount(), result.AudioStreamCount(), result.SubtitleStreamCount())
	}
	if result.Streams[0].Width != 1920 || result.Streams[0].Height != 1080 {
		t.Fatalf("video dimensions = %dx%d", result.Streams[0].Width, result.Streams[0].Height)
	}
	if result.Streams[1].Tags.Language != "eng" {
		t.Fatalf("audio language = %q, want eng", result.Streams[1].Tags.Language)
	}
	if result.Streams[2].Tags.Title != "Forced" {
		t.Fatalf("subtitle title = %q, want Forced", result.Streams[2].Tags.Title)
	}
	if result.DurationSeconds() != 4521.337 {
		t.Fatalf("duration = %v, want 4521.337", result.DurationSeconds())
	}
	if result.SizeBytes() != 1073741824 || result.BitRate() != 1900000 {
		t.Fatalf("size/bitrate = %d/%d", result.SizeBytes(), result.BitRate())
	}
	if len(result.RawJSON()) == 0 {
		t.Fatal("expected raw JSON payload to be retained")
	}
}

func TestClientDurationSeconds(t *testing.T) {
	binary, _ := writeProbeStub(t, probePayload)
	client := NewClient(binary, nil)

	seconds, err := client.DurationSeconds(context.Background(), "/media/in.mkv")
	if err != nil {
		t.Fatalf("DurationSeconds: %v", err)
	}
	if seconds != 4521.337 {
		t.Fatalf("duration = %v, want 4521.337", seconds)
	}
}

func TestProbeFailureCarriesToolOutput(t *testing.T) {
	dir := t.TempDir()
	binary := testsupport.WriteExecutable(t, filepath.Join(dir, "ffprobe"),
		"#!/bin/sh\necho 'in.mkv: No such file or directory' >&2\nexit 1\n")
	client := NewClient(binary, nil)

	_, err := client.Probe(context.Background(), "/media/in.mkv")
	if err == nil {
		t.Fatal("expected probe failure")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want ErrExternalTool marker", err)
	}
	if !strings.Contains(err.Error(), "No such file or directory") {
		t.Fatalf("error %q does not carry tool output", err)
	}
}

func TestProbeRejectsEmptyPath(t *testing.T) {
	client := NewClient("ffprobe", nil)
	_, err := client.Probe(context.Background(), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation marker", err)
	}
}

func TestProbeRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	binary := testsupport.WriteExecutable(t, filepath.Join(dir, "ffprobe"), "#!/bin/sh\necho 'not json'\n")
	client := NewClient(binary, nil)

	_, err := client.Probe(context.Background(), "/media/in.mkv")
	if err == nil {
		t.Fatal("expected parse failure")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want ErrExternalTool marker", err)
	}
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0 for malformed value, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}
