// Package tts turns reply text into speech through the ElevenLabs API and
// plays the returned mp3 on the default output device.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const (
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	endpoint = "https://api.elevenlabs.io/v1/text-to-speech/%s"
)

type Speaker struct {
	apiKey  string
	voiceID string
	http    *http.Client
}

func New(apiKey, voiceID string, httpClient *http.Client) *Speaker {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Speaker{apiKey: apiKey, voiceID: voiceID, http: httpClient}
}

type request struct {
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Speak synthesizes text and blocks until playback finishes. Empty text is
// a no-op.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	audio, err := s.synthesize(ctx, text)
	if err != nil {
		return err
	}
	return play(audio)
}

func (s *Speaker) synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(request{
		Text:          text,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.5},
	})
	if err != nil {
		return nil, fmt.Errorf("encode tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(endpoint, s.voiceID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, msg)
	}

	return io.ReadAll(resp.Body)
}

func play(data []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan bool)
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		done <- true
	})))
	<-done

	return nil
}
