package workout

// Effects is the session's outlet for platform side effects: haptic
// pulses on transitions and the no-sleep lock held for the duration of
// a workout. Implementations must be best-effort and non-blocking; the
// engine ignores every failure. The zero default is NopEffects.
type Effects interface {
	// SetCompleted fires a short pulse after a set is recorded.
	SetCompleted()
	// RestCompleted fires a distinct pattern when a rest countdown ends.
	RestCompleted()
	// WorkoutCompleted fires a longer pattern when the session finishes.
	WorkoutCompleted()
	// AcquireWakeLock requests a platform no-sleep lock. Unsupported
	// platforms return an error, which the engine discards.
	AcquireWakeLock() error
	// ReleaseWakeLock releases the lock. Safe to call when never held.
	ReleaseWakeLock()
}

// NopEffects is the default Effects implementation: every call is a
// silent no-op.
type NopEffects struct{}

func (NopEffects) SetCompleted()          {}
func (NopEffects) RestCompleted()         {}
func (NopEffects) WorkoutCompleted()      {}
func (NopEffects) AcquireWakeLock() error { return nil }
func (NopEffects) ReleaseWakeLock()       {}
