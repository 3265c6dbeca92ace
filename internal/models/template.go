package models

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ExerciseType classifies how an exercise is performed and measured.
type ExerciseType string

const (
	ExerciseStrength ExerciseType = "strength"
	ExerciseCardio   ExerciseType = "cardio"
	ExerciseTimed    ExerciseType = "timed"
)

// ExerciseDefinition is one exercise slot in a workout template.
// Which target fields are meaningful depends on Type: strength uses
// RepsPerSet/Weight, cardio uses Distance/DistanceUnit/TargetTimeSec,
// timed uses TargetTimeSec/Weight.
type ExerciseDefinition struct {
	Name          string       `json:"name" yaml:"name"`
	Type          ExerciseType `json:"type" yaml:"type"`
	Sets          int          `json:"sets" yaml:"sets"`
	RepsPerSet    int          `json:"reps_per_set,omitempty" yaml:"reps_per_set"`
	Weight        float64      `json:"weight,omitempty" yaml:"weight"`
	Distance      float64      `json:"distance,omitempty" yaml:"distance"`
	DistanceUnit  string       `json:"distance_unit,omitempty" yaml:"distance_unit"`
	TargetTimeSec int          `json:"target_time_sec,omitempty" yaml:"target_time_sec"`
	RestTimeSec   int          `json:"rest_time_sec" yaml:"rest_time_sec"`
	ToFailure     bool         `json:"to_failure,omitempty" yaml:"to_failure"`
	Notes         string       `json:"notes,omitempty" yaml:"notes"`
}

// Template is an ordered list of exercise definitions. Templates are
// read-only inputs to the session engine; advisor adjustments always
// produce a modified copy.
type Template struct {
	ID        uuid.UUID            `json:"id" yaml:"id"`
	UserID    int                  `json:"user_id,omitempty" yaml:"-"`
	Name      string               `json:"name" yaml:"name"`
	Exercises []ExerciseDefinition `json:"exercises" yaml:"exercises"`
	CreatedAt time.Time            `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt time.Time            `json:"updated_at,omitempty" yaml:"-"`
}

// Validate checks the template is usable by the session engine.
// Rejected templates never reach the active phase.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if len(t.Exercises) == 0 {
		return fmt.Errorf("template has no exercises")
	}
	for i, ex := range t.Exercises {
		if ex.Name == "" {
			return fmt.Errorf("exercise %d: name is required", i)
		}
		switch ex.Type {
		case ExerciseStrength, ExerciseCardio, ExerciseTimed:
		default:
			return fmt.Errorf("exercise %q: unknown type %q", ex.Name, ex.Type)
		}
		if ex.Sets < 1 {
			return fmt.Errorf("exercise %q: sets must be at least 1", ex.Name)
		}
		if ex.RestTimeSec < 0 {
			return fmt.Errorf("exercise %q: rest time cannot be negative", ex.Name)
		}
		switch ex.Type {
		case ExerciseStrength:
			if ex.RepsPerSet < 1 {
				return fmt.Errorf("exercise %q: reps_per_set must be at least 1", ex.Name)
			}
		case ExerciseCardio:
			if ex.Distance <= 0 && ex.TargetTimeSec <= 0 {
				return fmt.Errorf("exercise %q: cardio needs a distance or target time", ex.Name)
			}
		case ExerciseTimed:
			if ex.TargetTimeSec <= 0 {
				return fmt.Errorf("exercise %q: timed needs a target time", ex.Name)
			}
		}
	}
	return nil
}

// LoadTemplateFile reads a template from a YAML file.
func LoadTemplateFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}
	t := &Template{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing template file: %w", err)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("template validation: %w", err)
	}
	return t, nil
}
