package store

import "time"

// RetryPolicy bounds how the store reacts to transient write contention.
// Sleep is injectable so tests can run against a fake clock.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       func(time.Duration)
}

// DefaultRetryPolicy matches the busy-retry behavior the assistant ships
// with: five attempts, 100 ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Delay:       100 * time.Millisecond,
		Sleep:       time.Sleep,
	}
}

func (p RetryPolicy) sleep() {
	if p.Sleep != nil {
		p.Sleep(p.Delay)
	} else {
		time.Sleep(p.Delay)
	}
}
