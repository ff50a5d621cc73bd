package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// FFmpegService
// Boundary to the external merge/split tool. Every operation is stream
// copy (-c copy) — the pipeline never re-encodes audio.
// ---------------------------------------------------------------------------

type FFmpegService struct{}

func NewFFmpegService() *FFmpegService {
	return &FFmpegService{}
}

// ConcatenateAudio losslessly joins the input files, in order, into output.
// The concat demuxer manifest is written to listPath (a caller-scoped temp
// location, never the working directory) and removed on every path.
func (s *FFmpegService) ConcatenateAudio(ctx context.Context, inputs []string, listPath, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no audio files to concatenate")
	}

	var manifest strings.Builder
	for _, path := range inputs {
		// FFmpeg concat format; single quotes in paths are escaped as '\''
		fmt.Fprintf(&manifest, "file '%s'\n", strings.ReplaceAll(path, "'", `'\''`))
	}

	if err := os.WriteFile(listPath, []byte(manifest.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}
	defer os.Remove(listPath)

	log.Printf("[FFmpeg] Concatenating %d audio files into %s", len(inputs), output)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy", // Copy without re-encoding
		"-y",
		output,
	}

	return runFFmpeg(ctx, "concatenate", args)
}

// ExtractSegment copies the time range [startSec, startSec+lengthSec) of
// input into an independently playable output file, without re-encoding.
func (s *FFmpegService) ExtractSegment(ctx context.Context, input, output string, startSec, lengthSec float64) error {
	log.Printf("[FFmpeg] Extracting segment start=%.1fs length=%.1fs from %s", startSec, lengthSec, input)

	args := []string{
		"-ss", formatSeconds(startSec),
		"-i", input,
		"-t", formatSeconds(lengthSec),
		"-c", "copy",
		"-y",
		output,
	}

	return runFFmpeg(ctx, "extract segment", args)
}

// AudioDuration returns the duration of an audio file in seconds.
func (s *FFmpegService) AudioDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return durationSec, nil
}

// runFFmpeg executes ffmpeg with stderr captured, so failures surface the
// tool's own diagnostic instead of just an exit code.
func runFFmpeg(ctx context.Context, operation string, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w: %s", operation, err, stderrTail(stderr.String()))
	}
	return nil
}

// stderrTail keeps the last few lines of ffmpeg output — the useful part
// of its diagnostics comes at the end.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, " | ")
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
