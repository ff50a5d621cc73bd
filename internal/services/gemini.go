package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini Text-to-Speech Service
// Uses the Google Gen AI SDK's native audio modality. Gemini returns raw
// 24 kHz mono 16-bit PCM, which this adapter wraps in a WAV container so
// downstream tooling can treat it like any other audio file.
// ---------------------------------------------------------------------------

const (
	geminiTTSModel   = "gemini-2.5-flash-preview-tts"
	geminiSampleRate = 24000
)

// GeminiTTS handles text-to-speech via Gemini's audio response modality.
type GeminiTTS struct {
	apiKey string
	model  string
}

var _ Synthesizer = (*GeminiTTS)(nil)

// NewGeminiTTS creates a Gemini synthesizer. model is optional; empty
// string uses the current preview TTS model.
func NewGeminiTTS(apiKey, model string) *GeminiTTS {
	if model == "" {
		model = geminiTTSModel
	}
	return &GeminiTTS{apiKey: apiKey, model: model}
}

func (s *GeminiTTS) Name() string   { return "Gemini TTS" }
func (s *GeminiTTS) Format() string { return "wav" }

// Synthesize converts text to speech using Gemini. Implements Synthesizer.
func (s *GeminiTTS) Synthesize(ctx context.Context, text, voiceID string) (*SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if voiceID == "" {
		return nil, fmt.Errorf("%w: empty voice ID", ErrInvalidVoice)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceID},
			},
		},
	}

	log.Printf("[Gemini] Synthesizing speech (model=%s, voice=%s, textLen=%d)", s.model, voiceID, len(text))

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(text), config)
	if err != nil {
		return nil, classifyGeminiError(err, voiceID)
	}

	pcm, err := extractGeminiAudio(resp)
	if err != nil {
		return nil, &SynthError{Provider: "gemini", Message: err.Error()}
	}

	log.Printf("[Gemini] Speech synthesized (%d PCM bytes)", len(pcm))

	return &SpeechResult{Audio: wavFromPCM(pcm, geminiSampleRate, 1, 16), Format: "wav"}, nil
}

func extractGeminiAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("no audio data in response")
}

func classifyGeminiError(err error, voiceID string) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Message), "voice") {
			return fmt.Errorf("%w: %s", ErrInvalidVoice, voiceID)
		}
		return classifyStatus("gemini", apiErr.Code, apiErr.Message)
	}
	return &SynthError{Provider: "gemini", Message: err.Error()}
}

// wavFromPCM prepends a canonical 44-byte RIFF/WAVE header to raw PCM
// samples.
func wavFromPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := make([]byte, 0, 44+len(pcm))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(pcm)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16) // PCM fmt chunk size
	buf = binary.LittleEndian.AppendUint16(buf, 1)  // PCM format
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(byteRate))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(bitsPerSample))
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(pcm)))
	buf = append(buf, pcm...)
	return buf
}
