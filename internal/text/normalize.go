// Package text prepares document text for speech synthesis: normalization
// of markup residue and punctuation, then sentence-aligned chunking.
package text

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[A-Za-z0-9$-_@.&+!*(),%]+`)

// markdownPatterns strip formatting markers that survive HTML extraction or
// arrive in plain-text submissions. Images are removed before links so an
// image's alt text is not kept as if it were a link label.
var markdownPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`#{1,6}\s*`), ""},                  // headers
	{regexp.MustCompile(`\*\*?(.*?)\*\*?`), "$1"},          // bold and italic (*)
	{regexp.MustCompile(`__?(.*?)__?`), "$1"},              // bold and italic (_)
	{regexp.MustCompile("`[^`]*`"), ""},                    // inline code
	{regexp.MustCompile(`(?m)^\s*[-+*]\s+`), ""},           // unordered list markers
	{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), ""},           // ordered list markers
	{regexp.MustCompile(`!\[.*?\]\(.*?\)`), ""},            // images
	{regexp.MustCompile(`\[(.*?)\]\(.*?\)`), "$1"},         // links
	{regexp.MustCompile(`(?m)^>\s*(.*)$`), "$1"},           // blockquotes
	{regexp.MustCompile(`~{1,2}(.*?)~{1,2}`), "$1"},        // strikethrough
	{regexp.MustCompile(`(?m)^\s*[-=]{3,}\s*$`), ""},       // horizontal rules
	{regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!])"), "$1"}, // escaped characters
}

var (
	newlineRuns    = regexp.MustCompile(`[\r\n]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)

	latinThenCJK = regexp.MustCompile(`([A-Za-z])([\x{4e00}-\x{9fff}])`)
	cjkThenLatin = regexp.MustCompile(`([\x{4e00}-\x{9fff}])([A-Za-z])`)

	punctuationRuns = regexp.MustCompile(`[，。！？：；]+`)
)

// fullWidthPunct maps ASCII punctuation to full-width equivalents so the
// synthesis voice phrases mixed text naturally. The ASCII period is left
// alone — it doubles as a decimal point.
var fullWidthPunct = strings.NewReplacer(
	":", "：",
	";", "；",
	",", "，",
	"!", "！",
	"?", "？",
	"(", "（",
	")", "）",
	"[", "【",
	"]", "】",
	"{", "（",
	"}", "）",
)

// NormalizeForSpeech converts raw extracted text into the form the chunker
// and the synthesis voices expect: no markup markers, no URLs read aloud,
// collapsed whitespace, paragraph breaks turned into sentence breaks,
// full-width punctuation, and punctuation runs collapsed to a single mark
// with sentence terminators winning over pause marks.
func NormalizeForSpeech(text string) string {
	text = urlPattern.ReplaceAllString(text, "网址")

	for _, p := range markdownPatterns {
		text = p.re.ReplaceAllString(text, p.repl)
	}
	text = strings.ReplaceAll(text, "|", "，") // table separators

	// Paragraph and line breaks become sentence breaks before the general
	// whitespace collapse erases them.
	text = newlineRuns.ReplaceAllString(text, "。")
	text = whitespaceRuns.ReplaceAllString(text, " ")

	// Breathing room between scripts
	text = latinThenCJK.ReplaceAllString(text, "$1 $2")
	text = cjkThenLatin.ReplaceAllString(text, "$1 $2")

	text = fullWidthPunct.Replace(text)

	text = punctuationRuns.ReplaceAllStringFunc(text, collapsePunctuationRun)

	return strings.TrimSpace(text)
}

// collapsePunctuationRun reduces a run of full-width punctuation to one
// mark. A sentence terminator anywhere in the run takes priority, so a
// terminator never degrades into a pause mark.
func collapsePunctuationRun(run string) string {
	var last rune
	for _, r := range run {
		switch r {
		case '。', '！', '？':
			return string(r)
		}
		last = r
	}
	return string(last)
}
