package workout

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/claude/repflow/internal/events"
	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotStarted      = errors.New("workout: session not started")
	ErrAlreadyStarted  = errors.New("workout: session already started")
	ErrSessionComplete = errors.New("workout: session already complete")
	ErrSessionPaused   = errors.New("workout: session is paused")
	ErrWrongPhase      = errors.New("workout: operation not valid in current phase")
	ErrBadExercise     = errors.New("workout: exercise index out of range")
)

// SetMeasurement carries optional overrides for a completed set. Nil
// fields fall back to the current working values (strength) or the
// template targets (cardio/timed).
type SetMeasurement struct {
	Reps     *int
	Weight   *float64
	Distance *float64
	TimeSec  *int
}

// Result is the frozen output of a finished session, available in
// memory for persistence retries without recomputation.
type Result struct {
	SessionID    uuid.UUID
	UserID       int
	TemplateID   uuid.UUID
	TemplateName string
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	EndedEarly   bool
	Data         models.SessionData
}

// Record converts the result into the persistence shape.
func (r *Result) Record() models.SessionRecord {
	completed := r.CompletedAt
	return models.SessionRecord{
		ID:           r.SessionID,
		UserID:       r.UserID,
		TemplateID:   r.TemplateID,
		TemplateName: r.TemplateName,
		StartedAt:    r.StartedAt,
		CompletedAt:  &completed,
		DurationSec:  int(r.Duration / time.Second),
		EndedEarly:   r.EndedEarly,
		Exercises:    r.Data.Exercises,
	}
}

// Snapshot is the observable state published to listeners after every
// mutation and clock tick.
type Snapshot struct {
	Phase         Phase
	Elapsed       time.Duration
	RestRemaining time.Duration
	Exercise      int
	Set           int
	WorkingWeight float64
	WorkingReps   int
	Completed     bool
}

type runSignal int

const (
	sigPause runSignal = iota
	sigResume
	sigStop
)

// Session is one live workout: the phase state machine, the set
// accumulator, and the clock, owned together and discarded on
// completion. All methods are safe for use from a single owner plus
// the Run loop; a mutex guards against tick/action interleaving.
type Session struct {
	mu sync.Mutex

	id       uuid.UUID
	userID   int
	template models.Template

	phase   Phase
	data    models.SessionData
	skipped map[int]bool

	workingWeight []float64
	workingReps   []int

	clk       sessionClock
	rest      restTimer
	startedAt time.Time

	effects Effects
	now     func() time.Time

	notifier *events.CallbackEvent[Snapshot]
	signals  chan runSignal

	result *Result
}

// Option configures a Session.
type Option func(*Session)

// WithEffects injects the platform side-effects sink.
func WithEffects(e Effects) Option {
	return func(s *Session) {
		if e != nil {
			s.effects = e
		}
	}
}

// WithNow overrides the time source, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUserID sets the owning user.
func WithUserID(id int) Option {
	return func(s *Session) { s.userID = id }
}

// NewSession validates the template and builds an idle session with
// one empty accumulator shell per exercise. Working weight and reps
// start at the template defaults.
func NewSession(template models.Template, opts ...Option) (*Session, error) {
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	s := &Session{
		id:       uuid.New(),
		template: template,
		phase:    Phase{Kind: PhaseIdle},
		skipped:  make(map[int]bool),
		effects:  NopEffects{},
		now:      time.Now,
		notifier: events.NewCallbackEvent[Snapshot](true),
		signals:  make(chan runSignal, 4),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.data.Exercises = make([]models.CompletedExercise, len(template.Exercises))
	s.workingWeight = make([]float64, len(template.Exercises))
	s.workingReps = make([]int, len(template.Exercises))
	for i, def := range template.Exercises {
		s.data.Exercises[i] = models.NewShell(def)
		s.workingWeight[i] = def.Weight
		s.workingReps[i] = def.RepsPerSet
	}
	return s, nil
}

// ID returns the session's identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Template returns the template the session was built from.
func (s *Session) Template() models.Template { return s.template }

// Subscribe registers a snapshot listener and returns its
// deregistration function. The latest snapshot is replayed on
// registration.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	return s.notifier.Listen(fn)
}

// Start moves idle -> active(0,0) and acquires the no-sleep lock.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.phase.Kind != PhaseIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	now := s.now()
	s.startedAt = now
	s.clk.start(now)
	s.phase = nextPhase(s.phase, evStart, s.progress())

	// Platform capability errors are a silent no-op.
	_ = s.effects.AcquireWakeLock()

	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// CompleteSet records a main set for the current exercise and advances
// the phase: more sets -> resting, a pending failure set ->
// resting_for_failure, more exercises -> resting_between_exercises,
// otherwise complete. A zero rest time passes straight through the
// resting phase.
func (s *Session) CompleteSet(m SetMeasurement) error {
	s.mu.Lock()
	cur := s.phase
	if cur.Kind != PhaseActive {
		s.mu.Unlock()
		return s.phaseErr(cur, PhaseActive)
	}

	e := cur.Exercise
	now := s.now()
	s.data.Exercises[e].MainSets = append(s.data.Exercises[e].MainSets, s.buildSet(e, m, now))

	s.applyTransition(evSetDone, now)
	s.effects.SetCompleted()

	snap := s.snapshotLocked(now)
	done := s.phase.Terminal()
	if done {
		s.finalizeLocked(now, false)
	}
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// EnterFailureInput moves failure_set -> failure_input, where the
// caller collects the achieved rep count.
func (s *Session) EnterFailureInput() error {
	s.mu.Lock()
	if s.phase.Kind != PhaseFailureSet {
		s.mu.Unlock()
		return s.phaseErr(s.phase, PhaseFailureSet)
	}
	now := s.now()
	s.applyTransition(evFailureInput, now)
	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// CompleteFailureSet records the to-failure set and advances past the
// exercise. It never re-enters the main-set logic.
func (s *Session) CompleteFailureSet(reps int) error {
	s.mu.Lock()
	cur := s.phase
	if cur.Kind != PhaseFailureSet && cur.Kind != PhaseFailureInput {
		s.mu.Unlock()
		return s.phaseErr(cur, PhaseFailureSet)
	}
	if reps < 0 {
		reps = 0
	}

	e := cur.Exercise
	now := s.now()
	weight := s.workingWeight[e]
	set := models.CompletedSet{Reps: &reps, CompletedAt: now}
	if s.template.Exercises[e].Type != models.ExerciseCardio {
		set.Weight = &weight
	}
	s.data.Exercises[e].FailureSet = &set

	s.applyTransition(evFailureDone, now)
	s.effects.SetCompleted()

	snap := s.snapshotLocked(now)
	if s.phase.Terminal() {
		s.finalizeLocked(now, false)
	}
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// SkipRest forces any resting phase straight to its target, zeroing
// the countdown.
func (s *Session) SkipRest() error {
	s.mu.Lock()
	if !s.phase.IsRest() {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	now := s.now()
	s.applyTransition(evRestDone, now)
	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// BeginSet moves ready -> active, committing the reviewed working
// values for the upcoming set.
func (s *Session) BeginSet() error {
	s.mu.Lock()
	if s.phase.Kind != PhaseReady {
		s.mu.Unlock()
		return s.phaseErr(s.phase, PhaseReady)
	}
	now := s.now()
	s.applyTransition(evBeginSet, now)
	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// TogglePause wraps the current phase in paused, or restores the
// wrapped phase unmodified. No clock time elapses and no ticks are
// delivered while paused; resuming re-arms the rest deadline from the
// captured remaining time.
func (s *Session) TogglePause() error {
	s.mu.Lock()
	now := s.now()
	switch s.phase.Kind {
	case PhaseIdle:
		s.mu.Unlock()
		return ErrNotStarted
	case PhaseComplete:
		s.mu.Unlock()
		return ErrSessionComplete
	case PhasePaused:
		s.phase = nextPhase(s.phase, evResume, s.progress())
		s.clk.resume(now)
		s.rest.resume(now)
		s.signal(sigResume)
	default:
		s.phase = nextPhase(s.phase, evPause, s.progress())
		s.clk.halt(now)
		s.rest.pause(now)
		s.signal(sigPause)
	}
	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// SkipExercise defers an exercise. Skipping the exercise the phase is
// currently engaged with advances to the next unfinished one; once all
// non-skipped exercises finish while skipped ones remain, the phase
// reaches skipped_exercises_prompt.
func (s *Session) SkipExercise(idx int) error {
	s.mu.Lock()
	if idx < 0 || idx >= len(s.template.Exercises) {
		s.mu.Unlock()
		return ErrBadExercise
	}
	cur := s.phase
	switch cur.Kind {
	case PhaseIdle:
		s.mu.Unlock()
		return ErrNotStarted
	case PhaseComplete:
		s.mu.Unlock()
		return ErrSessionComplete
	case PhasePaused:
		s.mu.Unlock()
		return ErrSessionPaused
	}
	if s.exerciseDoneLocked(idx) {
		s.mu.Unlock()
		return fmt.Errorf("workout: exercise %d already finished", idx)
	}

	s.skipped[idx] = true
	now := s.now()
	if cur.Exercise == idx && cur.Kind != PhaseSkippedPrompt {
		s.applyTransition(evSkipCurrent, now)
	}
	snap := s.snapshotLocked(now)
	if s.phase.Terminal() {
		s.finalizeLocked(now, false)
	}
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// ReturnToSkipped resumes a deferred exercise from the prompt. The
// session enters ready so working values can be reviewed before the
// set begins.
func (s *Session) ReturnToSkipped(idx int) error {
	s.mu.Lock()
	if s.phase.Kind != PhaseSkippedPrompt {
		s.mu.Unlock()
		return s.phaseErr(s.phase, PhaseSkippedPrompt)
	}
	if idx < 0 || idx >= len(s.template.Exercises) || !s.skipped[idx] {
		s.mu.Unlock()
		return ErrBadExercise
	}
	delete(s.skipped, idx)
	now := s.now()
	pr := s.progress()
	pr.returnTo = idx
	s.phase = nextPhase(s.phase, evReturnTo, pr)
	s.rest.disarm()
	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// AdjustWeight shifts the uncommitted working weight for the current
// exercise, clamped at zero. Valid while active or ready.
func (s *Session) AdjustWeight(delta float64) error {
	return s.adjustWorking(func(e int) {
		s.workingWeight[e] += delta
		if s.workingWeight[e] < 0 {
			s.workingWeight[e] = 0
		}
	})
}

// AdjustReps shifts the uncommitted working rep target for the current
// exercise, clamped at zero. Valid while active or ready.
func (s *Session) AdjustReps(delta int) error {
	return s.adjustWorking(func(e int) {
		s.workingReps[e] += delta
		if s.workingReps[e] < 0 {
			s.workingReps[e] = 0
		}
	})
}

func (s *Session) adjustWorking(apply func(e int)) error {
	s.mu.Lock()
	cur := s.phase
	if cur.Kind != PhaseActive && cur.Kind != PhaseReady {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	apply(cur.Exercise)
	now := s.now()
	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return nil
}

// SetExerciseNotes attaches free-text notes to an exercise. Notes ride
// along in the final session data; the advisor and aggregator ignore
// them.
func (s *Session) SetExerciseNotes(idx int, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.data.Exercises) {
		return ErrBadExercise
	}
	s.data.Exercises[idx].Notes = notes
	return nil
}

// Tick processes one clock tick: while a resting phase is current and
// its deadline has passed, it fires the same transition as SkipRest.
// Ticks are no-ops while paused. Returns true once the session is
// complete.
func (s *Session) Tick() bool {
	s.mu.Lock()
	now := s.now()
	if s.phase.Kind == PhasePaused || s.phase.Terminal() {
		done := s.phase.Terminal()
		s.mu.Unlock()
		return done
	}
	if s.phase.IsRest() && s.rest.expired(now) {
		s.applyTransition(evRestDone, now)
		s.effects.RestCompleted()
	}
	snap := s.snapshotLocked(now)
	done := s.phase.Terminal()
	if done {
		s.finalizeLocked(now, false)
	}
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return done
}

// End finishes the session early. Already-recorded sets are kept as
// valid partial output; clock and wake-lock resources are released.
// Calling End after completion returns the existing result.
func (s *Session) End() *Result {
	s.mu.Lock()
	if s.result != nil {
		r := s.result
		s.mu.Unlock()
		return r
	}
	now := s.now()
	ended := s.phase.Kind != PhaseIdle
	s.phase = nextPhase(s.phase, evFinish, s.progress())
	s.finalizeLocked(now, ended)
	snap := s.snapshotLocked(now)
	r := s.result
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return r
}

// Finish dismisses the skipped-exercises prompt, completing the
// session with the skipped exercises left unperformed.
func (s *Session) Finish() (*Result, error) {
	s.mu.Lock()
	if s.phase.Kind != PhaseSkippedPrompt {
		s.mu.Unlock()
		return nil, s.phaseErr(s.phase, PhaseSkippedPrompt)
	}
	now := s.now()
	s.phase = nextPhase(s.phase, evFinish, s.progress())
	s.finalizeLocked(now, false)
	snap := s.snapshotLocked(now)
	r := s.result
	s.mu.Unlock()
	s.notifier.Notify(snap)
	return r, nil
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Elapsed returns the monotonic session time, frozen while paused.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clk.elapsed(s.now())
}

// RestRemaining returns the live countdown for the current resting
// phase, or zero.
func (s *Session) RestRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rest.remaining(s.now())
}

// Working returns the uncommitted working weight and reps for the
// exercise the phase is engaged with.
func (s *Session) Working() (weight float64, reps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.phase.Unwrap().Exercise
	if e < 0 || e >= len(s.workingWeight) {
		return 0, 0
	}
	return s.workingWeight[e], s.workingReps[e]
}

// Data returns a copy of the accumulator as recorded so far.
func (s *Session) Data() models.SessionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyDataLocked()
}

// Result returns the frozen output once the session has finished.
func (s *Session) Result() (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != nil
}

// Completed reports whether the session has reached its terminal
// phase.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase.Terminal()
}

// --- internals (mu held) ---

func (s *Session) progress() progress {
	setsDone := make([]int, len(s.data.Exercises))
	failDone := make([]bool, len(s.data.Exercises))
	for i := range s.data.Exercises {
		setsDone[i] = len(s.data.Exercises[i].MainSets)
		failDone[i] = s.data.Exercises[i].FailureSet != nil
	}
	return progress{
		exercises: s.template.Exercises,
		setsDone:  setsDone,
		failDone:  failDone,
		skipped:   s.skipped,
	}
}

func (s *Session) exerciseDoneLocked(i int) bool {
	pr := s.progress()
	return pr.exerciseDone(i)
}

// applyTransition runs the pure transition function and keeps the rest
// timer in step with the resulting phase.
func (s *Session) applyTransition(ev phaseEvent, now time.Time) {
	s.phase = nextPhase(s.phase, ev, s.progress())
	if s.phase.IsRest() {
		s.rest.arm(now, time.Duration(s.phase.RestSecs)*time.Second)
	} else {
		s.rest.disarm()
	}
}

func (s *Session) buildSet(e int, m SetMeasurement, now time.Time) models.CompletedSet {
	def := s.template.Exercises[e]
	set := models.CompletedSet{CompletedAt: now}

	switch def.Type {
	case models.ExerciseStrength:
		reps := s.workingReps[e]
		if m.Reps != nil {
			reps = *m.Reps
		}
		weight := s.workingWeight[e]
		if m.Weight != nil {
			weight = *m.Weight
		}
		set.Reps = &reps
		set.Weight = &weight
	case models.ExerciseCardio:
		distance := def.Distance
		if m.Distance != nil {
			distance = *m.Distance
		}
		if distance > 0 {
			set.Distance = &distance
		}
		secs := def.TargetTimeSec
		if m.TimeSec != nil {
			secs = *m.TimeSec
		}
		if secs > 0 {
			set.TimeSec = &secs
		}
	case models.ExerciseTimed:
		secs := def.TargetTimeSec
		if m.TimeSec != nil {
			secs = *m.TimeSec
		}
		set.TimeSec = &secs
		if w := s.workingWeight[e]; w > 0 {
			weight := w
			set.Weight = &weight
		}
	}
	return set
}

func (s *Session) finalizeLocked(now time.Time, endedEarly bool) {
	if s.result != nil {
		return
	}
	s.clk.halt(now)
	s.rest.disarm()
	s.phase = Phase{Kind: PhaseComplete}
	s.result = &Result{
		SessionID:    s.id,
		UserID:       s.userID,
		TemplateID:   s.template.ID,
		TemplateName: s.template.Name,
		StartedAt:    s.startedAt,
		CompletedAt:  now,
		Duration:     s.clk.elapsed(now),
		EndedEarly:   endedEarly,
		Data:         s.copyDataLocked(),
	}
	s.effects.WorkoutCompleted()
	s.effects.ReleaseWakeLock()
	s.signal(sigStop)
}

func (s *Session) copyDataLocked() models.SessionData {
	out := models.SessionData{Exercises: make([]models.CompletedExercise, len(s.data.Exercises))}
	copy(out.Exercises, s.data.Exercises)
	for i := range out.Exercises {
		sets := make([]models.CompletedSet, len(s.data.Exercises[i].MainSets))
		copy(sets, s.data.Exercises[i].MainSets)
		out.Exercises[i].MainSets = sets
		if fs := s.data.Exercises[i].FailureSet; fs != nil {
			f := *fs
			out.Exercises[i].FailureSet = &f
		}
	}
	return out
}

func (s *Session) snapshotLocked(now time.Time) Snapshot {
	inner := s.phase.Unwrap()
	snap := Snapshot{
		Phase:         s.phase,
		Elapsed:       s.clk.elapsed(now),
		RestRemaining: s.rest.remaining(now),
		Exercise:      inner.Exercise,
		Set:           inner.Set,
		Completed:     s.phase.Terminal(),
	}
	if inner.Exercise >= 0 && inner.Exercise < len(s.workingWeight) {
		snap.WorkingWeight = s.workingWeight[inner.Exercise]
		snap.WorkingReps = s.workingReps[inner.Exercise]
	}
	return snap
}

func (s *Session) signal(sig runSignal) {
	select {
	case s.signals <- sig:
	default:
	}
}

func (s *Session) phaseErr(got Phase, want PhaseKind) error {
	switch got.Kind {
	case PhaseIdle:
		return ErrNotStarted
	case PhaseComplete:
		return ErrSessionComplete
	case PhasePaused:
		return ErrSessionPaused
	}
	return fmt.Errorf("%w: in %s, need %s", ErrWrongPhase, got.Kind, want)
}
