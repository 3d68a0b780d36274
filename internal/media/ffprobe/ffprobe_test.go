package ffprobe_test

import (
	"encoding/json"
	"testing"

	"yoink/internal/media/ffprobe"
)

func TestResultHelpers(t *testing.T) {
	payload := `{
		"streams": [
			{"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720},
			{"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2}
		],
		"format": {"filename": "output.mp4", "nb_streams": 2, "duration": "212.400000", "size": "10485760", "format_name": "mov,mp4,m4a"}
	}`

	var result ffprobe.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !result.HasAudio() || !result.HasVideo() {
		t.Error("stream detection failed")
	}
	if w, h := result.Dimensions(); w != 1280 || h != 720 {
		t.Errorf("Dimensions = %dx%d", w, h)
	}
	if got := result.DurationSeconds(); got < 212.3 || got > 212.5 {
		t.Errorf("DurationSeconds = %f", got)
	}
	if got := result.SizeBytes(); got != 10485760 {
		t.Errorf("SizeBytes = %d", got)
	}
}

func TestAudioOnlyResult(t *testing.T) {
	payload := `{
		"streams": [{"index": 0, "codec_name": "mp3", "codec_type": "audio", "channels": 2}],
		"format": {"duration": "10.0", "size": ""}
	}`

	var result ffprobe.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatal(err)
	}
	if result.HasVideo() {
		t.Error("audio file should have no video stream")
	}
	if w, h := result.Dimensions(); w != 0 || h != 0 {
		t.Errorf("Dimensions = %dx%d, want zeros", w, h)
	}
	if result.SizeBytes() != 0 {
		t.Error("empty size should be zero")
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := ffprobe.Inspect(t.Context(), "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
