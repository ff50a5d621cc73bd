package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// OpenAI Text-to-Speech Service
// Uses the speech endpoint (model tts-1) through the go-openai client.
// ---------------------------------------------------------------------------

// OpenAITTS handles text-to-speech via the OpenAI API.
type OpenAITTS struct {
	client *openai.Client
}

var _ Synthesizer = (*OpenAITTS)(nil)

func NewOpenAITTS(apiKey string) *OpenAITTS {
	return &OpenAITTS{
		client: openai.NewClient(apiKey),
	}
}

func (s *OpenAITTS) Name() string   { return "OpenAI TTS" }
func (s *OpenAITTS) Format() string { return "mp3" }

// Synthesize converts text to speech using OpenAI. Implements Synthesizer.
func (s *OpenAITTS) Synthesize(ctx context.Context, text, voiceID string) (*SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if voiceID == "" {
		return nil, fmt.Errorf("%w: empty voice ID", ErrInvalidVoice)
	}

	log.Printf("[OpenAI] Synthesizing speech (voice=%s, textLen=%d)", voiceID, len(text))

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, classifyOpenAIError(err, voiceID)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &SynthError{Provider: "openai", Message: fmt.Sprintf("failed to read audio response: %v", err)}
	}
	if len(audio) == 0 {
		return nil, &SynthError{Provider: "openai", Message: "empty audio response"}
	}

	log.Printf("[OpenAI] Speech synthesized (%d bytes)", len(audio))

	return &SpeechResult{Audio: audio, Format: "mp3"}, nil
}

func classifyOpenAIError(err error, voiceID string) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 400 && strings.Contains(strings.ToLower(apiErr.Message), "voice") {
			return fmt.Errorf("%w: %s", ErrInvalidVoice, voiceID)
		}
		return classifyStatus("openai", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return &SynthError{Provider: "openai", Message: err.Error()}
}
