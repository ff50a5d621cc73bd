package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
)

// Part is one finished, independently playable output file. PartIndex is
// 1-based.
type Part struct {
	Index    int
	Path     string
	Duration float64
}

// Split partitions a track that exceeds maxDuration into sequential,
// duration-bounded parts named "{title} - Part {n}{ext}" under outputDir,
// cut at exact time offsets without re-encoding. A track at or under the
// ceiling passes through untouched as a single part.
//
// After a fully successful split the original track file is deleted. On
// any failure the created part files are removed and the original track
// is returned unsplit — better to deliver one long file than none.
func Split(ctx context.Context, media MediaTool, track *Track, maxDuration float64, title, outputDir string) []Part {
	whole := []Part{{Index: 1, Path: track.Path, Duration: track.Duration}}

	if maxDuration <= 0 || track.Duration <= maxDuration {
		return whole
	}

	ext := filepath.Ext(track.Path)
	numParts := int(math.Floor(track.Duration/maxDuration)) + 1

	log.Printf("[Pipeline] Track runs %.0fs (ceiling %.0fs), splitting into %d parts", track.Duration, maxDuration, numParts)

	var parts []Part
	for i := 0; i < numParts; i++ {
		start := float64(i) * maxDuration
		length := math.Min(maxDuration, track.Duration-start)
		if length <= 0 {
			// Exact-multiple durations leave a zero-length tail boundary;
			// an empty file is not playable, so it is skipped.
			break
		}

		partPath := filepath.Join(outputDir, fmt.Sprintf("%s - Part %d%s", title, i+1, ext))

		if err := media.ExtractSegment(ctx, track.Path, partPath, start, length); err != nil {
			log.Printf("[Pipeline] Split failed at part %d, keeping unsplit track: %v", i+1, err)
			for _, p := range parts {
				os.Remove(p.Path)
			}
			os.Remove(partPath)
			return whole
		}

		duration, err := media.AudioDuration(ctx, partPath)
		if err != nil {
			duration = length
		}

		parts = append(parts, Part{Index: i + 1, Path: partPath, Duration: duration})
	}

	os.Remove(track.Path)
	return parts
}
