package ingest

import "time"

// Backoff computes the exponential rate-limit sleep schedule: attempt n
// (1-indexed) sleeps Base * 2^(n-1), capped at Max. Reset after any
// successful commit.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	attempt int
}

// Next returns the sleep for the next attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	n := b.attempt
	b.attempt++

	// Decide against the cap before shifting: Base<<n overflows int64 long
	// before the attempt counter does, and a wrapped negative duration would
	// turn the sleep into a hot loop.
	if n >= 63 || b.Base >= b.Max>>uint(n) {
		return b.Max
	}
	return b.Base * time.Duration(1<<uint(n))
}

// Reset returns the schedule to the first attempt.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of sleeps taken since the last reset.
func (b *Backoff) Attempt() int {
	return b.attempt
}
