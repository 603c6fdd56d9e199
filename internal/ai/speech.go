package ai

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// Speech synthesizes podcast audio from a narration script.
type Speech struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

func NewSpeech(apiKey, model, voice string) (*Speech, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("speech API key not set")
	}
	m := openai.SpeechModel(model)
	if model == "" {
		m = openai.TTSModel1
	}
	v := openai.SpeechVoice(voice)
	if voice == "" {
		v = openai.VoiceAlloy
	}
	return &Speech{
		client: openai.NewClient(apiKey),
		model:  m,
		voice:  v,
	}, nil
}

// Synthesize returns MP3 bytes for the given script.
func (s *Speech) Synthesize(ctx context.Context, script string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          script,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("synthesize: read audio: %w", err)
	}
	return audio, nil
}
