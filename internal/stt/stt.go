// Package stt transcribes recorded WAV files through Groq's whisper
// endpoint.
package stt

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"murph/internal/gen"
)

const defaultModel = "whisper-large-v3"

type Transcriber struct {
	api   openai.Client
	model string
}

func New(apiKey string, httpClient *http.Client) *Transcriber {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(gen.DefaultBaseURL),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Transcriber{
		api:   openai.NewClient(opts...),
		model: defaultModel,
	}
}

// Transcribe uploads the WAV file and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	resp, err := t.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(t.model),
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
