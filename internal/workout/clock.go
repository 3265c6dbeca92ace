package workout

import "time"

// sessionClock accumulates elapsed workout time across pause segments.
// Elapsed time is always recomputed from a captured reference plus
// wall-clock delta, never incremented per tick, so tick jitter cannot
// accumulate drift.
type sessionClock struct {
	Accumulated  time.Duration `json:"accumulated"`
	runningSince time.Time
}

func (c *sessionClock) start(now time.Time) {
	c.runningSince = now
}

// halt freezes the clock, folding the current segment into Accumulated.
func (c *sessionClock) halt(now time.Time) {
	if !c.runningSince.IsZero() {
		c.Accumulated += now.Sub(c.runningSince)
		c.runningSince = time.Time{}
	}
}

func (c *sessionClock) resume(now time.Time) {
	if c.runningSince.IsZero() {
		c.runningSince = now
	}
}

func (c *sessionClock) elapsed(now time.Time) time.Duration {
	if c.runningSince.IsZero() {
		return c.Accumulated
	}
	return c.Accumulated + now.Sub(c.runningSince)
}

// restTimer tracks the countdown for whichever resting phase is
// current. The deadline is fixed when the rest starts; remaining time
// is derived from it on every query.
type restTimer struct {
	deadline time.Time
	captured time.Duration // remaining at pause time
	paused   bool
	armed    bool
}

func (t *restTimer) arm(now time.Time, d time.Duration) {
	t.deadline = now.Add(d)
	t.armed = true
	t.paused = false
}

func (t *restTimer) disarm() {
	*t = restTimer{}
}

func (t *restTimer) pause(now time.Time) {
	if t.armed && !t.paused {
		t.captured = t.remaining(now)
		t.paused = true
	}
}

func (t *restTimer) resume(now time.Time) {
	if t.armed && t.paused {
		t.deadline = now.Add(t.captured)
		t.paused = false
	}
}

func (t *restTimer) remaining(now time.Time) time.Duration {
	if !t.armed {
		return 0
	}
	if t.paused {
		return t.captured
	}
	if rem := t.deadline.Sub(now); rem > 0 {
		return rem
	}
	return 0
}

func (t *restTimer) expired(now time.Time) bool {
	return t.armed && !t.paused && !now.Before(t.deadline)
}
