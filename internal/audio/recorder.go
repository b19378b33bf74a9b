// Package audio captures microphone input through portaudio and encodes
// it for transcription.
package audio

import (
	"time"

	"github.com/gordonklaus/portaudio"
)

const SampleRate = 16000

type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record captures mono 16 kHz PCM for the given duration.
func (r *Recorder) Record(d time.Duration) ([]int16, error) {
	const frameSize = 512

	buf := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	frames := int(d.Seconds() * SampleRate / frameSize)
	out := make([]int16, 0, frames*frameSize)

	for i := 0; i < frames; i++ {
		if err := stream.Read(); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}

	return out, nil
}

// Frames feeds fixed-size frames to fn until fn returns false or the
// stream fails. The frame slice passed to fn is reused between calls.
func (r *Recorder) Frames(frameLen int, fn func(frame []int16) bool) error {
	buf := make([]int16, frameLen)
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for {
		if err := stream.Read(); err != nil {
			return err
		}
		if !fn(buf) {
			return nil
		}
	}
}
