package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kurlez/doctalk/internal/services"
	"github.com/kurlez/doctalk/internal/voice"
)

func testConverter(t *testing.T, synth *fakeSynth, media *fakeMedia) *Converter {
	t.Helper()
	return &Converter{
		Synth:           synth,
		Media:           media,
		Catalog:         voice.Default(),
		Provider:        "openai",
		Policy:          fastPolicy(3),
		InterChunkDelay: 0,
		MaxChunkChars:   50,
		MaxPartDuration: 3600,
		WorkDir:         t.TempDir(),
		OutputDir:       t.TempDir(),
	}
}

func TestConvertHappyPath(t *testing.T) {
	synth := &fakeSynth{}
	media := &fakeMedia{}
	c := testConverter(t, synth, media)

	raw := "First sentence of the story. Second sentence arrives here. And a third one closes it."
	result, err := c.Convert(context.Background(), "My Book", raw, "xiaoyi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Report.TotalChunks < 2 {
		t.Fatalf("TotalChunks = %d, want the text split into multiple chunks", result.Report.TotalChunks)
	}
	if result.Report.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Report.Failed)
	}
	if result.Report.Synthesized != result.Report.TotalChunks {
		t.Errorf("Synthesized = %d, want %d", result.Report.Synthesized, result.Report.TotalChunks)
	}

	if len(result.Parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(result.Parts))
	}
	wantPath := filepath.Join(c.OutputDir, "My Book.mp3")
	if result.Parts[0].Path != wantPath {
		t.Errorf("output path = %s, want %s", result.Parts[0].Path, wantPath)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestConvertRecoversFromTransientErrors(t *testing.T) {
	transient := &services.SynthError{Provider: "Fake TTS", StatusCode: 429, RateLimit: true, Message: "throttled"}
	// Every chunk fails once then succeeds.
	synth := &fakeSynth{script: []error{transient, nil, transient, nil}}
	media := &fakeMedia{}
	c := testConverter(t, synth, media)

	raw := "A short first sentence sits right here for the test. A short second sentence sits right here too."
	result, err := c.Convert(context.Background(), "Flaky", raw, "xiaoyi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Report.Failed != 0 {
		t.Errorf("Failed = %d, want 0 after retries", result.Report.Failed)
	}
	if result.Report.TotalAttempts <= result.Report.TotalChunks {
		t.Errorf("TotalAttempts = %d, want more than %d (retries happened)", result.Report.TotalAttempts, result.Report.TotalChunks)
	}
}

func TestConvertPartialFailureStillProducesAudio(t *testing.T) {
	transient := &services.SynthError{Provider: "Fake TTS", StatusCode: 500, Message: "boom"}
	// Chunk 0 succeeds; chunk 1 fails all three attempts.
	synth := &fakeSynth{script: []error{nil, transient, transient, transient}}
	media := &fakeMedia{}
	c := testConverter(t, synth, media)

	raw := "A short first sentence sits right here for the test. A short second sentence sits right here too."
	result, err := c.Convert(context.Background(), "Partial", raw, "xiaoyi")
	if err != nil {
		t.Fatalf("partial failure must not fail the conversion: %v", err)
	}
	if result.Report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Report.Failed)
	}
	if len(result.Report.FailedIndices) != 1 || result.Report.FailedIndices[0] != 1 {
		t.Errorf("FailedIndices = %v, want [1]", result.Report.FailedIndices)
	}
	if len(result.Parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(result.Parts))
	}
}

func TestConvertAllChunksFail(t *testing.T) {
	transient := &services.SynthError{Provider: "Fake TTS", StatusCode: 500, Message: "boom"}
	synth := &fakeSynth{script: []error{transient, transient, transient}}
	media := &fakeMedia{}
	c := testConverter(t, synth, media)
	c.Policy = fastPolicy(3)

	_, err := c.Convert(context.Background(), "Doomed", "One lonely sentence.", "xiaoyi")
	if !errors.Is(err, ErrNoAudioProduced) {
		t.Fatalf("err = %v, want ErrNoAudioProduced", err)
	}

	// No output artifact may survive a total failure.
	entries, _ := os.ReadDir(c.OutputDir)
	if len(entries) != 0 {
		t.Errorf("output directory not empty after total failure: %v", entries)
	}
}

func TestConvertUnknownVoice(t *testing.T) {
	c := testConverter(t, &fakeSynth{}, &fakeMedia{})

	_, err := c.Convert(context.Background(), "Book", "Some text.", "no-such-voice")
	if !errors.Is(err, voice.ErrUnknownVoice) {
		t.Fatalf("err = %v, want ErrUnknownVoice", err)
	}
}

func TestConvertLongTrackSplitsAndRetags(t *testing.T) {
	synth := &fakeSynth{}
	media := &fakeMedia{}
	c := testConverter(t, synth, media)
	c.MaxPartDuration = 3600

	outputPath := filepath.Join(c.OutputDir, "Epic.mp3")
	media.durations = map[string]float64{outputPath: 3700}

	result, err := c.Convert(context.Background(), "Epic", "One lonely sentence.", "xiaoyi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(result.Parts))
	}
	if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
		t.Error("unsplit track should be deleted after splitting")
	}
}

func TestConvertFile(t *testing.T) {
	synth := &fakeSynth{}
	media := &fakeMedia{}
	c := testConverter(t, synth, media)

	docPath := filepath.Join(t.TempDir(), "guide.md")
	content := "# Title\n\nFirst paragraph sentence. Another one follows.\n"
	if err := os.WriteFile(docPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing document: %v", err)
	}

	result, err := c.ConvertFile(context.Background(), docPath, "xiaoyi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantPath := filepath.Join(c.OutputDir, "guide.mp3")
	if result.Parts[0].Path != wantPath {
		t.Errorf("output path = %s, want title taken from the file name", result.Parts[0].Path)
	}
}

func TestConvertFileUnsupportedFormat(t *testing.T) {
	c := testConverter(t, &fakeSynth{}, &fakeMedia{})

	docPath := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(docPath, []byte("not a document"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	if _, err := c.ConvertFile(context.Background(), docPath, "xiaoyi"); err == nil {
		t.Fatal("expected an unsupported-format error")
	}
}

func TestConvertEmitsEventsWithoutBlocking(t *testing.T) {
	synth := &fakeSynth{}
	media := &fakeMedia{}
	c := testConverter(t, synth, media)

	// Unbuffered channel with no reader: every send must be dropped, not
	// block the conversion.
	events := make(chan Event)
	c.Events = events

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.Convert(context.Background(), "Quiet", "One lonely sentence.", "xiaoyi"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("conversion blocked on the events channel")
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{"a/b\\c:d", "a_b_c_d"},
		{"trailing dots...", "trailing dots"},
		{"  spaced  ", "spaced"},
		{"", "untitled"},
		{" . ", "untitled"},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
