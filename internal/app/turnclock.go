package app

import "time"

// TurnClock forces automatic actions when a session has been waiting on the
// same decision for longer than the turn duration. It is driven by the
// transport's tick and is not safe for concurrent use.
type TurnClock struct {
	duration time.Duration
	version  int64
	since    time.Time
}

// NewTurnClock returns a clock for duration. A zero duration never fires.
func NewTurnClock(duration time.Duration) *TurnClock {
	return &TurnClock{duration: duration}
}

// Deadline returns when the current decision times out, or the zero time when
// the clock is disabled or has not observed the session yet.
func (c *TurnClock) Deadline() time.Time {
	if c.duration <= 0 || c.since.IsZero() {
		return time.Time{}
	}
	return c.since.Add(c.duration)
}

// Tick observes s at now. When the pending decision has timed out it applies
// the automatic actions and returns their events.
func (c *TurnClock) Tick(s *Session, now time.Time) ([]Event, error) {
	if c.duration <= 0 || s == nil {
		return nil, nil
	}
	if c.Observe(s, now) {
		return nil, nil
	}
	if now.Sub(c.since) < c.duration {
		return nil, nil
	}
	events, err := s.ForceTimeout()
	c.version = s.Version()
	c.since = now
	return events, err
}

// Observe restarts the clock at now if s has moved on since the last
// observation and reports whether it did.
func (c *TurnClock) Observe(s *Session, now time.Time) bool {
	if s == nil {
		return false
	}
	if v := s.Version(); v != c.version || c.since.IsZero() {
		c.version = v
		c.since = now
		return true
	}
	return false
}
