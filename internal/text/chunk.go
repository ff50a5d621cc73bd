package text

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrEmptyInput means the input text was empty or whitespace-only.
	ErrEmptyInput = errors.New("input text is empty")

	// ErrNoSynthesizableContent means the text contained no letters or
	// digits to speak — punctuation-only documents land here.
	ErrNoSynthesizableContent = errors.New("no synthesizable content")
)

// Chunk is one bounded-length, sentence-aligned unit of text submitted to
// the synthesis service as a single call. Index is the sole ordering key
// used downstream.
type Chunk struct {
	Index   int
	Content string
}

// sentence terminators, full-width and ASCII. A terminator belongs to the
// sentence it ends.
const terminators = "。！？!?."

// Split partitions text into chunks of fewer than maxLen runes, breaking
// only at sentence boundaries. Consecutive sentences are accumulated
// greedily; a single sentence longer than maxLen is emitted whole as its
// own oversized chunk rather than truncated. Chunks that contain no letter
// or digit are dropped from the result.
//
// Split is a pure function: the same text and maxLen always produce the
// same chunks, and concatenating the retained chunks in index order
// reproduces every retained sentence exactly once, in original order.
func Split(text string, maxLen int) ([]Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	sentences := splitSentences(text)

	var contents []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range sentences {
		sentenceLen := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+sentenceLen >= maxLen {
			contents = append(contents, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}
	if current.Len() > 0 {
		contents = append(contents, current.String())
	}

	chunks := make([]Chunk, 0, len(contents))
	for _, content := range contents {
		if !hasSpokenContent(content) {
			continue
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Content: content})
	}

	if len(chunks) == 0 {
		return nil, ErrNoSynthesizableContent
	}

	return chunks, nil
}

// splitSentences cuts text after each sentence terminator. A trailing
// fragment without a terminator is kept as a sentence of its own, and text
// with no terminators at all comes back as one sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i, r := range text {
		if strings.ContainsRune(terminators, r) {
			end := i + utf8.RuneLen(r)
			sentences = append(sentences, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

// hasSpokenContent reports whether s contains at least one letter or digit
// (CJK ideographs count as letters).
func hasSpokenContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
