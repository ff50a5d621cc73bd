package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kurlez/doctalk/internal/config"
	"github.com/kurlez/doctalk/internal/markup"
	"github.com/kurlez/doctalk/internal/metrics"
	"github.com/kurlez/doctalk/internal/services"
	"github.com/kurlez/doctalk/internal/storage"
	"github.com/kurlez/doctalk/internal/text"
	"github.com/kurlez/doctalk/internal/voice"
)

// Report is the per-chunk status surface for one conversion. A document
// with Failed > 0 still produced playable audio; FailedIndices tells the
// caller which portions were lost.
type Report struct {
	TotalChunks   int   `json:"total_chunks"`
	Synthesized   int   `json:"synthesized"`
	Failed        int   `json:"failed"`
	FailedIndices []int `json:"failed_indices,omitempty"`
	TotalAttempts int   `json:"total_attempts"`
}

// Result is the output of one document conversion.
type Result struct {
	Parts  []Part
	Report Report
}

// Converter composes the full document pipeline: normalize → chunk →
// retried synthesis → lossless assembly → tagging → duration splitting.
// One Converter serves any number of documents; each Convert call gets
// its own workspace, so instances are safe for concurrent use.
type Converter struct {
	Synth   services.Synthesizer
	Media   MediaTool
	Catalog *voice.Catalog

	// Provider is the catalog key for voice-ID lookup ("azure", "openai",
	// "gemini").
	Provider string

	Policy          RetryPolicy
	InterChunkDelay time.Duration
	MaxChunkChars   int
	MaxPartDuration float64
	WorkDir         string
	OutputDir       string

	// Metrics is optional; the CLI runs without it.
	Metrics *metrics.Metrics

	// Events receives progress notifications. Optional; sends never block.
	Events chan<- Event
}

// New builds a Converter from configuration.
func New(cfg *config.Config, synth services.Synthesizer, media MediaTool, catalog *voice.Catalog, m *metrics.Metrics) *Converter {
	return &Converter{
		Synth:    synth,
		Media:    media,
		Catalog:  catalog,
		Provider: cfg.TTSProvider,
		Policy: RetryPolicy{
			MaxAttempts:  cfg.SynthMaxAttempts,
			InitialDelay: time.Duration(cfg.SynthInitialDelayMs) * time.Millisecond,
			Multiplier:   cfg.SynthBackoffMultiplier,
		},
		InterChunkDelay: time.Duration(cfg.InterChunkDelayMs) * time.Millisecond,
		MaxChunkChars:   cfg.MaxChunkChars,
		MaxPartDuration: cfg.MaxPartDurationSec,
		WorkDir:         cfg.WorkDir,
		OutputDir:       cfg.OutputDir,
		Metrics:         m,
	}
}

// Convert turns one document's raw text into tagged, duration-bounded
// audio files under OutputDir. Partial synthesis failure still yields a
// playable result; only a document with zero usable audio fails, and then
// no output artifact is left behind.
func (c *Converter) Convert(ctx context.Context, title, rawText, voiceName string) (*Result, error) {
	v, err := c.Catalog.Resolve(voiceName)
	if err != nil {
		return nil, err
	}
	voiceID, err := v.IDFor(c.Provider)
	if err != nil {
		return nil, err
	}

	normalized := text.NormalizeForSpeech(rawText)
	chunks, err := text.Split(normalized, c.MaxChunkChars)
	if err != nil {
		return nil, err
	}

	log.Printf("[Pipeline] %q: %d chunks (voice=%s, provider=%s)", title, len(chunks), voiceName, c.Provider)
	c.emit(Event{Title: title, Stage: StageChunked, TotalChunks: len(chunks)})

	safeTitle := SanitizeTitle(title)

	ws, err := storage.NewWorkspace(c.WorkDir, safeTitle)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	orchestrator := &Orchestrator{
		Retrier:         &Retrier{Synth: c.Synth, Policy: c.Policy},
		InterChunkDelay: c.InterChunkDelay,
		OnProgress: func(ev Event) {
			ev.Title = title
			c.emit(ev)
		},
	}

	outcomes, err := orchestrator.Run(ctx, chunks, voiceID, ws)
	report := buildReport(outcomes)
	c.recordChunks(ctx, outcomes)
	if err != nil {
		c.emit(Event{Title: title, Stage: StageFailed, Err: err})
		return nil, err
	}

	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(c.OutputDir, safeTitle+"."+c.Synth.Format())

	c.emit(Event{Title: title, Stage: StageAssembling, TotalChunks: len(chunks)})

	track, err := Assemble(ctx, c.Media, outcomes, ws.Path("concat_list.txt"), outputPath)
	if err != nil {
		// A partially written output file is worthless — remove it so a
		// failed conversion leaves nothing behind.
		os.Remove(outputPath)
		c.emit(Event{Title: title, Stage: StageFailed, Err: err})
		return nil, err
	}

	artist := fmt.Sprintf("%s - %s", c.Synth.Name(), voiceName)
	if err := services.WriteTags(track.Path, title, artist, services.TagAlbum); err != nil {
		log.Printf("[Pipeline] Warning: failed to tag %s: %v", track.Path, err)
	}

	c.emit(Event{Title: title, Stage: StageSplitting})

	parts := Split(ctx, c.Media, track, c.MaxPartDuration, safeTitle, c.OutputDir)
	if len(parts) > 1 {
		for _, part := range parts {
			partTitle := fmt.Sprintf("%s (Part %d)", title, part.Index)
			if err := services.WriteTags(part.Path, partTitle, artist, services.TagAlbum); err != nil {
				log.Printf("[Pipeline] Warning: failed to tag %s: %v", part.Path, err)
			}
		}
	}

	c.Metrics.RecordParts(ctx, len(parts))
	c.emit(Event{Title: title, Stage: StageDone})

	log.Printf("[Pipeline] %q done: %d/%d chunks synthesized, %d part(s)", title, report.Synthesized, report.TotalChunks, len(parts))

	return &Result{Parts: parts, Report: report}, nil
}

// ConvertFile reads a local document, extracts its text by detected
// format, and converts it. The output title is the file's base name.
func (c *Converter) ConvertFile(ctx context.Context, path, voiceName string) (*Result, error) {
	format, err := markup.DetectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	c.emit(Event{Title: title, Stage: StageExtracting})

	raw, err := markup.ExtractText(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	return c.Convert(ctx, title, raw, voiceName)
}

func (c *Converter) emit(ev Event) {
	if c.Events == nil {
		return
	}
	select {
	case c.Events <- ev:
	default:
		// Consumer fell behind; progress is advisory, never worth stalling
		// synthesis for.
	}
}

func (c *Converter) recordChunks(ctx context.Context, outcomes []Outcome) {
	for _, outcome := range outcomes {
		if outcome.OK() {
			c.Metrics.RecordChunk(ctx, "success")
		} else {
			c.Metrics.RecordChunk(ctx, "failure")
		}
		if outcome.Attempts > 1 {
			c.Metrics.RecordRetries(ctx, outcome.Attempts-1)
		}
	}
}

func buildReport(outcomes []Outcome) Report {
	report := Report{TotalChunks: len(outcomes)}
	for _, outcome := range outcomes {
		report.TotalAttempts += outcome.Attempts
		if outcome.OK() {
			report.Synthesized++
		} else {
			report.Failed++
			report.FailedIndices = append(report.FailedIndices, outcome.Index)
		}
	}
	return report
}

// SanitizeTitle makes a document title safe to use as a file name.
func SanitizeTitle(title string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_",
	)
	clean := strings.TrimSpace(replacer.Replace(title))
	clean = strings.Trim(clean, ".")
	if clean == "" {
		clean = "untitled"
	}
	return clean
}
