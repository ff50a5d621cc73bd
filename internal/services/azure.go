package services

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Azure Speech Service
// Uses the Azure Cognitive Services Speech REST API to convert text into
// narration audio. The catalog's zh-CN neural voices map onto this service
// directly.
// ---------------------------------------------------------------------------

const (
	azureOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	azureUserAgent    = "doctalk"
)

// AzureSpeech handles text-to-speech via the Azure Speech REST API.
type AzureSpeech struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// Ensure AzureSpeech implements Synthesizer at compile time.
var _ Synthesizer = (*AzureSpeech)(nil)

// NewAzureSpeech creates an Azure Speech synthesizer for the given region.
func NewAzureSpeech(apiKey, region string) *AzureSpeech {
	return &AzureSpeech{
		apiKey:   apiKey,
		endpoint: fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		client:   &http.Client{Timeout: 90 * time.Second},
	}
}

func (s *AzureSpeech) Name() string   { return "Azure Speech" }
func (s *AzureSpeech) Format() string { return "mp3" }

// Synthesize converts text to speech using Azure. Implements Synthesizer.
func (s *AzureSpeech) Synthesize(ctx context.Context, text, voiceID string) (*SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if voiceID == "" {
		return nil, fmt.Errorf("%w: empty voice ID", ErrInvalidVoice)
	}

	body := buildSSML(text, voiceID)

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure request: %w", err)
	}

	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
	req.Header.Set("X-Microsoft-OutputFormat", azureOutputFormat)
	req.Header.Set("User-Agent", azureUserAgent)

	log.Printf("[Azure] Synthesizing speech (voiceID=%s, textLen=%d)", voiceID, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SynthError{Provider: "azure", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		message := string(respBody)

		// Azure answers 400 with a voice diagnostic when the voice name is
		// not recognized — that is a caller error, not a service fault.
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "voice") {
			return nil, fmt.Errorf("%w: %s", ErrInvalidVoice, voiceID)
		}

		return nil, classifyStatus("azure", resp.StatusCode, message)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthError{Provider: "azure", Message: fmt.Sprintf("failed to read audio response: %v", err)}
	}
	if len(audio) == 0 {
		return nil, &SynthError{Provider: "azure", StatusCode: resp.StatusCode, Message: "empty audio response"}
	}

	log.Printf("[Azure] Speech synthesized (%d bytes)", len(audio))

	return &SpeechResult{Audio: audio, Format: "mp3"}, nil
}

// buildSSML wraps a text chunk in the SSML envelope Azure expects.
func buildSSML(text, voiceID string) string {
	var escaped bytes.Buffer
	xml.EscapeText(&escaped, []byte(text)) // never fails writing to a buffer

	return fmt.Sprintf(
		"<speak version='1.0' xml:lang='zh-CN'><voice name='%s'>%s</voice></speak>",
		voiceID, escaped.String(),
	)
}
