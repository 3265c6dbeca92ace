package workout

import (
	"errors"
	"sync"

	"github.com/claude/repflow/internal/models"
)

// ErrSessionActive is returned when a second session is started while
// one is still live.
var ErrSessionActive = errors.New("workout: a session is already active")

// Owner hands out at most one live session at a time. It replaces any
// ambient session singleton: every caller that wants a session goes
// through an Owner it explicitly holds, so independent owners (for
// example, under test) never share state.
type Owner struct {
	mu     sync.Mutex
	active *Session
}

// Begin creates and returns a new session for the template. It fails
// with ErrSessionActive while a previous session has not completed;
// callers must end or finish that session first, never overwrite it.
func (o *Owner) Begin(template models.Template, opts ...Option) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil && !o.active.Completed() {
		return nil, ErrSessionActive
	}
	s, err := NewSession(template, opts...)
	if err != nil {
		return nil, err
	}
	o.active = s
	return s, nil
}

// Adopt installs an existing session (for example, one restored from a
// crash snapshot) as the live session.
func (o *Owner) Adopt(s *Session) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil && !o.active.Completed() {
		return ErrSessionActive
	}
	o.active = s
	return nil
}

// Active returns the current live session, or nil.
func (o *Owner) Active() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil || o.active.Completed() {
		return nil
	}
	return o.active
}
