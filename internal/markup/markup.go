// Package markup extracts plain text from the document formats the
// pipeline accepts. Extraction returns raw text; speech normalization is
// applied once, later, by the pipeline itself.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
)

// Format identifies a supported input document format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatEPUB     Format = "epub"
	FormatText     Format = "text"
)

// ErrUnsupportedFormat means a file extension or format name is not one
// the pipeline can read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// DetectFormat maps a filename to its document format by extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".epub":
		return FormatEPUB, nil
	case ".txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// ParseFormat validates a format name as supplied by an API caller.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatMarkdown, FormatEPUB, FormatText:
		return Format(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ExtractText converts a document of the given format into plain text.
func ExtractText(format Format, data []byte) (string, error) {
	switch format {
	case FormatMarkdown:
		return extractMarkdown(data)
	case FormatEPUB:
		return extractEPUB(data)
	case FormatText:
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// extractMarkdown renders Markdown to HTML and strips the HTML down to
// text, so reference links, HTML blocks, and nested structures all reduce
// the same way.
func extractMarkdown(data []byte) (string, error) {
	var html bytes.Buffer
	if err := goldmark.Convert(data, &html); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return htmlToText(html.Bytes())
}
