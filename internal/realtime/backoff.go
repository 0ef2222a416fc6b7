package realtime

import "time"

// Backoff yields exponentially growing reconnect delays up to a fixed number of attempts.
// The zero value produces no delays.
type Backoff struct {
	Base        time.Duration
	MaxAttempts int

	attempt int
}

// Next returns the delay for the next attempt, or false once MaxAttempts delays have
// been handed out.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.attempt >= b.MaxAttempts {
		return 0, false
	}
	b.attempt++
	return b.Base * time.Duration(int64(1)<<(b.attempt-1)), true
}

// Attempts is the number of delays handed out since the last Reset
func (b *Backoff) Attempts() int {
	return b.attempt
}

// Reset restarts the sequence at Base
func (b *Backoff) Reset() {
	b.attempt = 0
}
