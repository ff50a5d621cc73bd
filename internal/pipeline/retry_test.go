package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kurlez/doctalk/internal/services"
	"github.com/kurlez/doctalk/internal/text"
)

// fakeSynth scripts one error per call; a nil entry means success. Calls
// past the end of the script succeed.
type fakeSynth struct {
	script []error
	calls  int
	audio  []byte
	format string
}

func (f *fakeSynth) Synthesize(ctx context.Context, content, voiceID string) (*services.SpeechResult, error) {
	f.calls++
	if f.calls <= len(f.script) {
		if err := f.script[f.calls-1]; err != nil {
			return nil, err
		}
	}
	audio := f.audio
	if audio == nil {
		audio = []byte("AUDIO:" + content)
	}
	return &services.SpeechResult{Audio: audio, Format: f.Format()}, nil
}

func (f *fakeSynth) Name() string { return "Fake TTS" }

func (f *fakeSynth) Format() string {
	if f.format != "" {
		return f.format
	}
	return "mp3"
}

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, InitialDelay: time.Millisecond, Multiplier: 2}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, InitialDelay: time.Second, Multiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 0},
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSynthesizeChunkFirstAttemptSucceeds(t *testing.T) {
	synth := &fakeSynth{}
	r := &Retrier{Synth: synth, Policy: fastPolicy(3)}
	dest := filepath.Join(t.TempDir(), "chunk_0000.mp3")

	outcome := r.SynthesizeChunk(context.Background(), text.Chunk{Index: 0, Content: "hello"}, "v1", dest)

	if !outcome.OK() {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if outcome.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", outcome.Attempts)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != "AUDIO:hello" {
		t.Errorf("audio = %q, want %q", data, "AUDIO:hello")
	}
}

func TestSynthesizeChunkRetriesTransientErrors(t *testing.T) {
	transient := &services.SynthError{Provider: "Fake TTS", StatusCode: 500, Message: "server error"}
	synth := &fakeSynth{script: []error{transient, transient, nil}}
	r := &Retrier{Synth: synth, Policy: fastPolicy(3)}
	dest := filepath.Join(t.TempDir(), "chunk_0001.mp3")

	outcome := r.SynthesizeChunk(context.Background(), text.Chunk{Index: 1, Content: "x"}, "v1", dest)

	if !outcome.OK() {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if outcome.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", outcome.Attempts)
	}
}

func TestSynthesizeChunkExhaustsRetryBudget(t *testing.T) {
	transient := &services.SynthError{Provider: "Fake TTS", StatusCode: 429, RateLimit: true, Message: "slow down"}
	synth := &fakeSynth{script: []error{transient, transient, transient}}
	r := &Retrier{Synth: synth, Policy: fastPolicy(3)}
	dest := filepath.Join(t.TempDir(), "chunk_0002.mp3")

	outcome := r.SynthesizeChunk(context.Background(), text.Chunk{Index: 2, Content: "x"}, "v1", dest)

	if outcome.OK() {
		t.Fatal("expected failure after exhausting attempts")
	}
	if outcome.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", outcome.Attempts)
	}
	if synth.calls != 3 {
		t.Errorf("synth called %d times, want 3", synth.calls)
	}
	var synthErr *services.SynthError
	if !errors.As(outcome.Err, &synthErr) {
		t.Errorf("Err = %v, want the last SynthError", outcome.Err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("partial audio file left behind at %s", dest)
	}
}

func TestSynthesizeChunkInvalidVoiceFailsFast(t *testing.T) {
	synth := &fakeSynth{script: []error{fmt.Errorf("%w: no such voice", services.ErrInvalidVoice)}}
	r := &Retrier{Synth: synth, Policy: fastPolicy(5)}
	dest := filepath.Join(t.TempDir(), "chunk_0000.mp3")

	outcome := r.SynthesizeChunk(context.Background(), text.Chunk{Index: 0, Content: "x"}, "bogus", dest)

	if outcome.OK() {
		t.Fatal("expected failure")
	}
	if outcome.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (no retry on invalid voice)", outcome.Attempts)
	}
	if !errors.Is(outcome.Err, services.ErrInvalidVoice) {
		t.Errorf("Err = %v, want ErrInvalidVoice", outcome.Err)
	}
}

func TestSynthesizeChunkCancelledDuringBackoff(t *testing.T) {
	transient := &services.SynthError{Provider: "Fake TTS", StatusCode: 503, Message: "unavailable"}
	synth := &fakeSynth{script: []error{transient, transient}}
	r := &Retrier{Synth: synth, Policy: RetryPolicy{MaxAttempts: 3, InitialDelay: time.Minute, Multiplier: 2}}
	dest := filepath.Join(t.TempDir(), "chunk_0000.mp3")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	outcome := r.SynthesizeChunk(ctx, text.Chunk{Index: 0, Content: "x"}, "v1", dest)

	if !errors.Is(outcome.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", outcome.Err)
	}
}

func TestRetrierCustomRateLimitClassifier(t *testing.T) {
	sentinel := errors.New("quota")
	synth := &fakeSynth{script: []error{sentinel, nil}}
	var sawRateLimit bool
	r := &Retrier{
		Synth:  synth,
		Policy: fastPolicy(3),
		RateLimited: func(err error) bool {
			limited := errors.Is(err, sentinel)
			if limited {
				sawRateLimit = true
			}
			return limited
		},
	}
	dest := filepath.Join(t.TempDir(), "chunk_0000.mp3")

	outcome := r.SynthesizeChunk(context.Background(), text.Chunk{Index: 0, Content: "x"}, "v1", dest)

	if !outcome.OK() {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if !sawRateLimit {
		t.Error("custom classifier was not consulted")
	}
}

func TestDefaultRateLimited(t *testing.T) {
	limited := &services.SynthError{Provider: "p", StatusCode: 429, RateLimit: true, Message: "m"}
	wrapped := fmt.Errorf("synthesis failed: %w", limited)
	if !defaultRateLimited(wrapped) {
		t.Error("wrapped 429 should classify as rate limited")
	}

	plain := &services.SynthError{Provider: "p", StatusCode: 500, Message: "m"}
	if defaultRateLimited(plain) {
		t.Error("500 should not classify as rate limited")
	}
	if defaultRateLimited(errors.New("opaque")) {
		t.Error("opaque error should not classify as rate limited")
	}
}
