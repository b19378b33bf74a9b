// Package config resolves Murph's runtime configuration from environment
// variables, optionally seeded from an env file. Required credentials are
// a fatal startup error when absent, never a default empty string.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	GroqAPIKey         string
	PorcupineAccessKey string
	ElevenLabsAPIKey   string

	VoiceID     string // optional; tts falls back to its default voice
	Model       string // optional; gen falls back to its default model
	DBPath      string
	KeywordPath string // optional custom .ppn; built-in keyword otherwise
	ChimePath   string // optional activation chime mp3
}

// Load reads the env file (best effort; real environment wins) and
// validates required credentials.
func Load(envFile string) (*Config, error) {
	godotenv.Load(envFile)

	cfg := &Config{
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		PorcupineAccessKey: os.Getenv("ACCESS_KEY"),
		ElevenLabsAPIKey:   os.Getenv("ELEVENLABS_API_KEY"),
		VoiceID:            os.Getenv("ELEVENLABS_VOICE_ID"),
		Model:              os.Getenv("MURPH_MODEL"),
		DBPath:             os.Getenv("MURPH_DB"),
		KeywordPath:        os.Getenv("PORCUPINE_KEYWORD"),
		ChimePath:          os.Getenv("MURPH_CHIME"),
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "database/memory.db"
	}

	required := []struct {
		name  string
		value string
	}{
		{"GROQ_API_KEY", cfg.GroqAPIKey},
		{"ACCESS_KEY", cfg.PorcupineAccessKey},
		{"ELEVENLABS_API_KEY", cfg.ElevenLabsAPIKey},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%s is not set", r.name)
		}
	}

	return cfg, nil
}
