// Package notify plays the short activation chime heard after the wake
// word fires.
package notify

import (
	"fmt"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Chime plays the mp3 at path and blocks until it finishes. A missing or
// broken chime file is not fatal to a turn; callers log and move on.
func Chime(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode chime: %w", err)
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
