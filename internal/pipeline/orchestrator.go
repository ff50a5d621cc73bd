package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/kurlez/doctalk/internal/storage"
	"github.com/kurlez/doctalk/internal/text"
)

// ErrNoAudioProduced means every chunk of a document failed synthesis.
// Partial failure is not an error: as long as one chunk succeeded the run
// returns its full outcome list for assembly.
var ErrNoAudioProduced = errors.New("no audio produced")

// Orchestrator fans a chunk sequence out to the Retrier, strictly in
// index order, one in-flight call at a time. The sequencing and the
// inter-chunk delay are deliberate throttling of the remote service, not
// a missing optimization.
type Orchestrator struct {
	Retrier         *Retrier
	InterChunkDelay time.Duration

	// OnProgress receives per-chunk events. Optional; must not block.
	OnProgress func(Event)
}

// Run synthesizes every chunk and collects one Outcome per chunk, in
// order. A chunk's failure does not abort the run. Cancellation is
// honored between chunks and inside every delay; on cancellation the
// outcomes collected so far are returned together with the context error.
func (o *Orchestrator) Run(ctx context.Context, chunks []text.Chunk, voiceID string, ws *storage.Workspace) ([]Outcome, error) {
	ext := o.Retrier.Synth.Format()
	outcomes := make([]Outcome, 0, len(chunks))

	for i, chunk := range chunks {
		// Inter-chunk throttle — skipped before the first chunk, and
		// irrelevant for single-chunk documents.
		if i > 0 && o.InterChunkDelay > 0 {
			select {
			case <-ctx.Done():
				return outcomes, ctx.Err()
			case <-time.After(o.InterChunkDelay):
			}
		}

		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		o.emit(Event{Stage: StageSynthesizing, ChunkIndex: chunk.Index, TotalChunks: len(chunks)})

		outcome := o.Retrier.SynthesizeChunk(ctx, chunk, voiceID, ws.ChunkPath(chunk.Index, ext))
		outcomes = append(outcomes, outcome)

		if outcome.Err != nil {
			if ctx.Err() != nil {
				return outcomes, ctx.Err()
			}
			log.Printf("[Pipeline] Chunk %d/%d failed after %d attempts, continuing: %v",
				chunk.Index+1, len(chunks), outcome.Attempts, outcome.Err)
		} else {
			log.Printf("[Pipeline] Chunk %d/%d synthesized (attempts=%d)", chunk.Index+1, len(chunks), outcome.Attempts)
		}

		o.emit(Event{Stage: StageChunkDone, ChunkIndex: chunk.Index, TotalChunks: len(chunks), Attempt: outcome.Attempts, Err: outcome.Err})
	}

	for _, outcome := range outcomes {
		if outcome.OK() {
			return outcomes, nil
		}
	}
	return outcomes, ErrNoAudioProduced
}

func (o *Orchestrator) emit(ev Event) {
	if o.OnProgress != nil {
		o.OnProgress(ev)
	}
}
