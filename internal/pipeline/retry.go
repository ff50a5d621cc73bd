// Package pipeline implements the resilient chunked synthesis pipeline:
// per-chunk retried synthesis, sequential orchestration across chunks,
// lossless track assembly, and duration-bounded re-splitting.
package pipeline

import (
	"context"
	"errors"
	"log"
	"math"
	"os"
	"time"

	"github.com/kurlez/doctalk/internal/services"
	"github.com/kurlez/doctalk/internal/text"
)

// RetryPolicy configures per-chunk synthesis retries. Not mutated at
// runtime.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// Delay returns the backoff before the given attempt (1-based). Attempt 1
// has no delay; attempt n waits InitialDelay × Multiplier^(n−2).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-2)))
}

// Outcome is the per-chunk synthesis result. Exactly one Outcome exists
// per submitted chunk; a failed chunk carries Err and no Path.
type Outcome struct {
	Index    int
	Path     string // audio file location; empty on failure
	Attempts int
	Err      error
}

// OK reports whether the chunk synthesized successfully.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Retrier drives one synthesis adapter call per chunk with bounded
// exponential backoff. Retryable errors never escape as errors — they are
// absorbed into the returned Outcome.
type Retrier struct {
	Synth  services.Synthesizer
	Policy RetryPolicy

	// RateLimited classifies an error as service throttling, which only
	// changes how the failure is logged. Nil uses the adapters'
	// RateLimited() capability.
	RateLimited func(error) bool
}

// SynthesizeChunk attempts synthesis of one chunk up to Policy.MaxAttempts
// times, writing successful audio to destPath. Any partial file from a
// failed attempt is removed before the next attempt and before returning.
func (r *Retrier) SynthesizeChunk(ctx context.Context, chunk text.Chunk, voiceID, destPath string) Outcome {
	var lastErr error

	for attempt := 1; attempt <= r.Policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.Policy.Delay(attempt)
			log.Printf("[Synth] Chunk %d: retrying in %v (attempt %d/%d)", chunk.Index, delay, attempt, r.Policy.MaxAttempts)

			select {
			case <-ctx.Done():
				return Outcome{Index: chunk.Index, Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		result, err := r.Synth.Synthesize(ctx, chunk.Content, voiceID)
		if err == nil {
			if writeErr := os.WriteFile(destPath, result.Audio, 0644); writeErr != nil {
				os.Remove(destPath) // drop the partial file
				lastErr = writeErr
				log.Printf("[Synth] Chunk %d attempt %d: failed to write audio: %v", chunk.Index, attempt, writeErr)
				continue
			}
			return Outcome{Index: chunk.Index, Path: destPath, Attempts: attempt}
		}

		os.Remove(destPath)
		lastErr = err

		if isNonRetryable(err) {
			return Outcome{Index: chunk.Index, Attempts: attempt, Err: err}
		}

		if r.rateLimited(err) {
			log.Printf("[Synth] Chunk %d attempt %d/%d hit the service rate limit: %v", chunk.Index, attempt, r.Policy.MaxAttempts, err)
		} else {
			log.Printf("[Synth] Chunk %d attempt %d/%d failed: %v", chunk.Index, attempt, r.Policy.MaxAttempts, err)
		}
	}

	return Outcome{Index: chunk.Index, Attempts: r.Policy.MaxAttempts, Err: lastErr}
}

func (r *Retrier) rateLimited(err error) bool {
	if r.RateLimited != nil {
		return r.RateLimited(err)
	}
	return defaultRateLimited(err)
}

// defaultRateLimited checks the RateLimited() capability the service
// error types implement.
func defaultRateLimited(err error) bool {
	var limited interface{ RateLimited() bool }
	return errors.As(err, &limited) && limited.RateLimited()
}

// isNonRetryable identifies caller errors and cancellation, which fail
// immediately instead of consuming the retry budget.
func isNonRetryable(err error) bool {
	return errors.Is(err, services.ErrInvalidVoice) ||
		errors.Is(err, services.ErrInvalidInput) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
