package workout

import (
	"context"
	"time"
)

// tickInterval is the clock resolution for live countdowns.
const tickInterval = time.Second

// Run drives the session clock until the session completes or ctx is
// cancelled. Exactly one Run loop should be live per session. Pausing
// halts tick delivery entirely (the ticker is stopped, not merely
// ignored); resuming re-arms it against fresh time references.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case sig := <-s.signals:
			switch sig {
			case sigPause:
				ticker.Stop()
			case sigResume:
				ticker.Reset(tickInterval)
			case sigStop:
				return
			}

		case <-ticker.C:
			if s.Tick() {
				return
			}
		}
	}
}
