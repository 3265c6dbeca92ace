package workout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

// persistedSession is the crash-recovery serialization of a live
// session. The clock is stored as its accumulated duration only; a
// restored session always comes back paused, so fresh time references
// are taken when the user resumes.
type persistedSession struct {
	ID            uuid.UUID          `json:"id"`
	UserID        int                `json:"user_id"`
	Template      models.Template    `json:"template"`
	Data          models.SessionData `json:"data"`
	Phase         Phase              `json:"phase"`
	Skipped       []int              `json:"skipped,omitempty"`
	WorkingWeight []float64          `json:"working_weight"`
	WorkingReps   []int              `json:"working_reps"`
	Accumulated   time.Duration      `json:"accumulated"`
	RestRemaining time.Duration      `json:"rest_remaining,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	SavedAt       time.Time          `json:"saved_at"`
}

// MarshalState serializes the session for crash recovery.
func (s *Session) MarshalState() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := persistedSession{
		ID:            s.id,
		UserID:        s.userID,
		Template:      s.template,
		Data:          s.copyDataLocked(),
		Phase:         s.phase,
		WorkingWeight: append([]float64(nil), s.workingWeight...),
		WorkingReps:   append([]int(nil), s.workingReps...),
		Accumulated:   s.clk.elapsed(now),
		RestRemaining: s.rest.remaining(now),
		StartedAt:     s.startedAt,
		SavedAt:       now,
	}
	for i := range s.template.Exercises {
		if s.skipped[i] {
			p.Skipped = append(p.Skipped, i)
		}
	}
	return json.Marshal(p)
}

// RestoreSession rebuilds a session from MarshalState output. The
// restored session is paused (unless it was idle or complete) so the
// caller decides when its clock starts running again.
func RestoreSession(data []byte, opts ...Option) (*Session, error) {
	var p persistedSession
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding session state: %w", err)
	}

	s, err := NewSession(p.Template, opts...)
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	s.mu.Lock()
	s.id = p.ID
	if p.UserID != 0 {
		s.userID = p.UserID
	}
	if len(p.Data.Exercises) == len(s.data.Exercises) {
		s.data = p.Data
	}
	if len(p.WorkingWeight) == len(s.workingWeight) {
		s.workingWeight = p.WorkingWeight
	}
	if len(p.WorkingReps) == len(s.workingReps) {
		s.workingReps = p.WorkingReps
	}
	for _, i := range p.Skipped {
		if i >= 0 && i < len(s.template.Exercises) {
			s.skipped[i] = true
		}
	}
	s.startedAt = p.StartedAt
	s.clk = sessionClock{Accumulated: p.Accumulated}

	phase := p.Phase
	switch phase.Kind {
	case PhaseIdle, PhaseComplete:
		// Nothing to wrap; complete snapshots should not normally be
		// saved but restoring one is harmless.
	case PhasePaused:
		// Already paused; keep the wrapped phase as-is.
	default:
		prev := phase
		phase = Phase{Kind: PhasePaused, Prev: &prev}
	}
	s.phase = phase

	if inner := phase.Unwrap(); inner.IsRest() {
		// A countdown that had already run out restores as expired, so
		// the first tick after resuming advances out of the rest phase.
		rem := max(p.RestRemaining, 0)
		s.rest = restTimer{armed: true, paused: true, captured: rem}
	}
	s.mu.Unlock()
	return s, nil
}
