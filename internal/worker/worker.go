package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kurlez/doctalk/internal/db"
	"github.com/kurlez/doctalk/internal/metrics"
	"github.com/kurlez/doctalk/internal/models"
	"github.com/kurlez/doctalk/internal/pipeline"
	"github.com/kurlez/doctalk/internal/queue"
	"github.com/kurlez/doctalk/internal/storage"
	"golang.org/x/sync/errgroup"
)

type Worker struct {
	db           *db.DB
	queue        *queue.Queue
	archive      *storage.Storage // nil when remote archival is disabled
	converter    *pipeline.Converter
	metrics      *metrics.Metrics
	defaultVoice string
}

func New(
	database *db.DB,
	q *queue.Queue,
	archive *storage.Storage,
	converter *pipeline.Converter,
	m *metrics.Metrics,
	defaultVoice string,
) *Worker {
	return &Worker{
		db:           database,
		queue:        q,
		archive:      archive,
		converter:    converter,
		metrics:      m,
		defaultVoice: defaultVoice,
	}
}

// Start begins processing conversion jobs
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueConvertDocument, w.handleConvertDocument)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (type: %s, document: %s)", job.ID, job.Type, job.DocumentID)

			// Update job status to running
			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			// Handle the job
			if err := handler(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				log.Printf("Job %s completed successfully", job.ID)
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded)
			}
		}
	}
}

// handleConvertDocument runs the full synthesis pipeline for one document
// and persists the resulting tracks.
func (w *Worker) handleConvertDocument(ctx context.Context, job *queue.Job) error {
	started := time.Now()

	if err := w.db.UpdateDocumentStatus(ctx, job.DocumentID, models.DocumentStatusProcessing); err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	doc, err := w.db.GetDocument(ctx, job.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	voiceName := doc.Voice
	if voiceName == "" {
		voiceName = w.defaultVoice
	}

	result, err := w.converter.Convert(ctx, doc.Title, doc.SourceText, voiceName)
	if err != nil {
		w.db.UpdateDocumentError(ctx, job.DocumentID, err.Error())
		w.metrics.RecordDocument(ctx, string(models.DocumentStatusFailed))
		if errors.Is(err, pipeline.ErrNoAudioProduced) {
			return fmt.Errorf("conversion produced no audio: %w", err)
		}
		return fmt.Errorf("conversion failed: %w", err)
	}

	tracks, err := w.persistTracks(ctx, doc.ID, result.Parts)
	if err != nil {
		w.db.UpdateDocumentError(ctx, job.DocumentID, err.Error())
		w.metrics.RecordDocument(ctx, string(models.DocumentStatusFailed))
		return err
	}

	if w.archive != nil {
		w.archiveTracks(ctx, doc.ID, tracks)
	}

	status := models.DocumentStatusCompleted
	if result.Report.Failed > 0 {
		status = models.DocumentStatusPartial
		log.Printf("Document %s completed with %d/%d chunks missing", doc.ID, result.Report.Failed, result.Report.TotalChunks)
	}

	report := models.JSONB{
		"total_chunks":   result.Report.TotalChunks,
		"synthesized":    result.Report.Synthesized,
		"failed":         result.Report.Failed,
		"total_attempts": result.Report.TotalAttempts,
	}
	if len(result.Report.FailedIndices) > 0 {
		report["failed_indices"] = result.Report.FailedIndices
	}

	if err := w.db.SetDocumentReport(ctx, job.DocumentID, status, report); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}

	w.metrics.RecordDocument(ctx, string(status))
	w.metrics.RecordSynthesisDuration(ctx, time.Since(started).Seconds())

	return nil
}

func (w *Worker) persistTracks(ctx context.Context, documentID uuid.UUID, parts []pipeline.Part) ([]*models.Track, error) {
	tracks := make([]*models.Track, 0, len(parts))
	for _, part := range parts {
		var byteSize int64
		if info, err := os.Stat(part.Path); err == nil {
			byteSize = info.Size()
		}

		track := &models.Track{
			ID:              uuid.New(),
			DocumentID:      documentID,
			PartIndex:       part.Index,
			FileName:        filepath.Base(part.Path),
			LocalPath:       part.Path,
			DurationSeconds: part.Duration,
			ByteSize:        byteSize,
		}
		if err := w.db.CreateTrack(ctx, track); err != nil {
			return nil, fmt.Errorf("failed to store track %d: %w", part.Index, err)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// archiveTracks uploads finished tracks to remote storage. Archival is
// best-effort: the local file remains the source of truth, so an upload
// failure only logs.
func (w *Worker) archiveTracks(ctx context.Context, documentID uuid.UUID, tracks []*models.Track) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	for _, track := range tracks {
		track := track
		g.Go(func() error {
			storagePath := w.archive.TrackStoragePath(documentID, track.FileName)
			if err := w.archive.UploadFile(gctx, storagePath, track.LocalPath, "audio/mpeg"); err != nil {
				log.Printf("[Archive] Warning: failed to upload %s: %v", track.FileName, err)
				return nil
			}
			if err := w.db.SetTrackStoragePath(gctx, track.ID, storagePath); err != nil {
				log.Printf("[Archive] Warning: failed to record storage path for %s: %v", track.FileName, err)
			}
			return nil
		})
	}

	g.Wait()
}
