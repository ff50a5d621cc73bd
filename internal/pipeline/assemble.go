package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

// ErrAssembly marks a failure of the lossless concatenation step. The
// chunks synthesized fine; joining them did not.
var ErrAssembly = errors.New("track assembly failed")

// MediaTool is the boundary to the external merge/split tool. All
// operations are lossless stream copies.
type MediaTool interface {
	ConcatenateAudio(ctx context.Context, inputs []string, listPath, output string) error
	ExtractSegment(ctx context.Context, input, output string, startSec, lengthSec float64) error
	AudioDuration(ctx context.Context, path string) (float64, error)
}

// Track is one continuous assembled audio file.
type Track struct {
	Path     string
	Duration float64 // seconds
}

// Assemble concatenates the successful outcomes, in chunk-index order,
// into a single track at outputPath. Failed chunks are skipped silently —
// no placeholder audio is inserted. All per-chunk audio files are removed
// after assembly, success or failure alike, as is the concat manifest.
//
// Zero successes returns ErrNoAudioProduced. A single success becomes the
// track directly, with no concatenation step. A concatenation failure
// surfaces as ErrAssembly; deciding whether to keep a partial output file
// is the caller's call.
func Assemble(ctx context.Context, media MediaTool, outcomes []Outcome, listPath, outputPath string) (*Track, error) {
	var inputs []string
	for _, outcome := range outcomes {
		if outcome.OK() {
			inputs = append(inputs, outcome.Path)
		}
	}

	// Chunk audio is consumed here; nothing downstream may reference it.
	defer func() {
		for _, path := range inputs {
			if path != outputPath {
				os.Remove(path)
			}
		}
	}()

	switch len(inputs) {
	case 0:
		return nil, ErrNoAudioProduced

	case 1:
		// The single chunk's audio is the track — moved, not re-encoded.
		if err := moveFile(inputs[0], outputPath); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAssembly, err)
		}

	default:
		log.Printf("[Pipeline] Assembling %d chunks into %s", len(inputs), outputPath)
		if err := media.ConcatenateAudio(ctx, inputs, listPath, outputPath); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAssembly, err)
		}
	}

	duration, err := media.AudioDuration(ctx, outputPath)
	if err != nil {
		// The audio is already on disk; a failed probe degrades the track
		// to unknown duration instead of discarding it.
		log.Printf("[Pipeline] Warning: could not probe duration of %s: %v", outputPath, err)
		duration = 0
	}

	return &Track{Path: outputPath, Duration: duration}, nil
}

// moveFile renames src to dst, copying when the rename crosses devices.
// The bytes are never altered.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}

	return os.Remove(src)
}
