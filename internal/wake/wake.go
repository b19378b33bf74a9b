// Package wake spots the activation phrase in the microphone stream using
// the Porcupine engine.
package wake

import (
	"fmt"

	porcupine "github.com/Picovoice/porcupine/binding/go/v3"
)

type Detector struct {
	engine porcupine.Porcupine
}

// New initializes Porcupine with a custom keyword file, or the built-in
// "porcupine" keyword when keywordPath is empty.
func New(accessKey, keywordPath string) (*Detector, error) {
	engine := porcupine.Porcupine{AccessKey: accessKey}
	if keywordPath != "" {
		engine.KeywordPaths = []string{keywordPath}
	} else {
		engine.BuiltInKeywords = []porcupine.BuiltInKeyword{porcupine.PORCUPINE}
	}
	if err := engine.Init(); err != nil {
		return nil, fmt.Errorf("init porcupine: %w", err)
	}
	return &Detector{engine: engine}, nil
}

// FrameLength is the exact number of samples Detect expects per call.
func (d *Detector) FrameLength() int { return porcupine.FrameLength }

// SampleRate is the PCM rate the engine was built for (16 kHz).
func (d *Detector) SampleRate() int { return porcupine.SampleRate }

// Detect reports whether the frame completes the wake phrase.
func (d *Detector) Detect(frame []int16) (bool, error) {
	idx, err := d.engine.Process(frame)
	if err != nil {
		return false, fmt.Errorf("process frame: %w", err)
	}
	return idx >= 0, nil
}

func (d *Detector) Close() error {
	return d.engine.Delete()
}
