package services

import (
	"context"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Synthesizer — common interface for text-to-speech providers
// Azure, OpenAI, and Gemini all implement this interface so the pipeline
// can use whichever is configured without knowing the underlying provider.
// Each call is a single attempt: retry policy lives in the pipeline, never
// in an adapter.
// ---------------------------------------------------------------------------

// SpeechResult is the common response type from any synthesis provider.
type SpeechResult struct {
	Audio  []byte
	Format string // "mp3" or "wav"
}

// Synthesizer is the interface that any speech provider must implement.
type Synthesizer interface {
	// Synthesize converts one chunk of text to audio using the given
	// provider-specific voice ID. Single attempt, no internal retry.
	Synthesize(ctx context.Context, text, voiceID string) (*SpeechResult, error)

	// Name is the human-readable engine label, used in logs and track tags.
	Name() string

	// Format is the container format of the audio this provider returns.
	Format() string
}

// Non-retryable caller errors. The pipeline fails immediately on these
// instead of burning retry attempts.
var (
	ErrInvalidVoice = errors.New("invalid voice")
	ErrInvalidInput = errors.New("invalid synthesis input")
)

// SynthError is a classified service failure. RateLimit marks responses
// that indicate the provider is throttling us (HTTP 429, and 401 — some
// services surface exhausted quotas as auth failures); both kinds are
// retryable, the flag only changes how the failure is reported.
type SynthError struct {
	Provider   string
	StatusCode int // 0 for network-level failures
	RateLimit  bool
	Message    string
}

func (e *SynthError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s synthesis failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s synthesis failed: %s", e.Provider, e.Message)
}

// RateLimited reports whether the failure looks like service throttling.
func (e *SynthError) RateLimited() bool {
	return e.RateLimit
}

// classifyStatus builds a SynthError from an HTTP-style status code.
func classifyStatus(provider string, status int, message string) *SynthError {
	return &SynthError{
		Provider:   provider,
		StatusCode: status,
		RateLimit:  status == 401 || status == 429,
		Message:    message,
	}
}
