package models

import (
	"time"

	"github.com/google/uuid"
)

// CompletedSet is one performed set. Only the fields relevant to the
// exercise type are populated.
type CompletedSet struct {
	Reps        *int       `json:"reps,omitempty"`
	Weight      *float64   `json:"weight,omitempty"`
	Distance    *float64   `json:"distance,omitempty"`
	TimeSec     *int       `json:"time_sec,omitempty"`
	CompletedAt time.Time  `json:"completed_at"`
}

// CompletedExercise is the per-exercise log built during a session.
// MainSets holds the sets counted toward TargetSets; FailureSet holds
// the extra to-failure set, when one was performed.
type CompletedExercise struct {
	Name           string         `json:"name"`
	Type           ExerciseType   `json:"type"`
	TargetSets     int            `json:"target_sets"`
	TargetReps     int            `json:"target_reps,omitempty"`
	TargetWeight   float64        `json:"target_weight,omitempty"`
	TargetDistance float64        `json:"target_distance,omitempty"`
	DistanceUnit   string         `json:"distance_unit,omitempty"`
	TargetTimeSec  int            `json:"target_time_sec,omitempty"`
	RestTimeSec    int            `json:"rest_time_sec"`
	ToFailure      bool           `json:"to_failure,omitempty"`
	MainSets       []CompletedSet `json:"main_sets"`
	FailureSet     *CompletedSet  `json:"failure_set,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

// SessionData is the full accumulator for one session: one slot per
// template exercise, index-aligned with the template.
type SessionData struct {
	Exercises []CompletedExercise `json:"exercises"`
}

// SessionRecord is a persisted (or about-to-be-persisted) session.
type SessionRecord struct {
	ID           uuid.UUID           `json:"id"`
	UserID       int                 `json:"user_id"`
	TemplateID   uuid.UUID           `json:"template_id"`
	TemplateName string              `json:"template_name"`
	StartedAt    time.Time           `json:"started_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	DurationSec  int                 `json:"duration_sec"`
	EndedEarly   bool                `json:"ended_early"`
	Exercises    []CompletedExercise `json:"exercises"`
}

// PastExercise is one historical occurrence of an exercise, as returned
// by history queries (newest first). Used by the overload advisor.
type PastExercise struct {
	SessionID uuid.UUID         `json:"session_id"`
	Date      time.Time         `json:"date"`
	Exercise  CompletedExercise `json:"exercise"`
}

// NewShell builds an empty CompletedExercise for a template slot,
// copying the targets so the log is self-describing even if the
// template later changes.
func NewShell(def ExerciseDefinition) CompletedExercise {
	return CompletedExercise{
		Name:           def.Name,
		Type:           def.Type,
		TargetSets:     def.Sets,
		TargetReps:     def.RepsPerSet,
		TargetWeight:   def.Weight,
		TargetDistance: def.Distance,
		DistanceUnit:   def.DistanceUnit,
		TargetTimeSec:  def.TargetTimeSec,
		RestTimeSec:    def.RestTimeSec,
		ToFailure:      def.ToFailure,
	}
}
