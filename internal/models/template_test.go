package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validTemplate() Template {
	return Template{
		Name: "Push Day",
		Exercises: []ExerciseDefinition{
			{Name: "Bench Press", Type: ExerciseStrength, Sets: 3, RepsPerSet: 8, Weight: 60, RestTimeSec: 90},
			{Name: "Run", Type: ExerciseCardio, Sets: 1, Distance: 5, DistanceUnit: "km"},
			{Name: "Plank", Type: ExerciseTimed, Sets: 2, TargetTimeSec: 60, RestTimeSec: 30},
		},
	}
}

// TestValidateAccepts verifies a well-formed template passes.
func TestValidateAccepts(t *testing.T) {
	tmpl := validTemplate()
	if err := tmpl.Validate(); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

// TestValidateRejections covers the rejection cases one by one.
func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Template)
		wantSub string
	}{
		{"missing name", func(tm *Template) { tm.Name = "" }, "name is required"},
		{"no exercises", func(tm *Template) { tm.Exercises = nil }, "no exercises"},
		{"unnamed exercise", func(tm *Template) { tm.Exercises[0].Name = "" }, "name is required"},
		{"unknown type", func(tm *Template) { tm.Exercises[0].Type = "yoga" }, "unknown type"},
		{"zero sets", func(tm *Template) { tm.Exercises[0].Sets = 0 }, "at least 1"},
		{"negative rest", func(tm *Template) { tm.Exercises[0].RestTimeSec = -5 }, "negative"},
		{"strength without reps", func(tm *Template) { tm.Exercises[0].RepsPerSet = 0 }, "reps_per_set"},
		{"cardio without target", func(tm *Template) { tm.Exercises[1].Distance = 0 }, "distance or target time"},
		{"timed without target", func(tm *Template) { tm.Exercises[2].TargetTimeSec = 0 }, "target time"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tmpl := validTemplate()
			tc.mutate(&tmpl)
			err := tmpl.Validate()
			if err == nil {
				t.Fatal("Validate accepted an invalid template")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error = %q, want it to mention %q", err, tc.wantSub)
			}
		})
	}
}

// TestLoadTemplateFile verifies YAML templates parse, validate, and
// get an ID assigned when missing.
func TestLoadTemplateFile(t *testing.T) {
	yaml := `
name: Pull Day
exercises:
  - name: Deadlift
    type: strength
    sets: 3
    reps_per_set: 5
    weight: 140
    rest_time_sec: 180
    to_failure: true
  - name: Chin Up
    type: strength
    sets: 3
    reps_per_set: 8
    rest_time_sec: 120
`
	path := filepath.Join(t.TempDir(), "pull.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := LoadTemplateFile(path)
	if err != nil {
		t.Fatalf("LoadTemplateFile: %v", err)
	}
	if tmpl.Name != "Pull Day" {
		t.Errorf("name = %q, want %q", tmpl.Name, "Pull Day")
	}
	if len(tmpl.Exercises) != 2 {
		t.Fatalf("exercises = %d, want 2", len(tmpl.Exercises))
	}
	if !tmpl.Exercises[0].ToFailure {
		t.Error("to_failure not parsed")
	}
	if tmpl.Exercises[0].Weight != 140 {
		t.Errorf("weight = %g, want 140", tmpl.Exercises[0].Weight)
	}
	if tmpl.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("missing ID was not assigned")
	}
}

// TestLoadTemplateFileInvalid verifies invalid files are rejected.
func TestLoadTemplateFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("name: Broken\nexercises: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplateFile(path); err == nil {
		t.Error("LoadTemplateFile accepted a template with no exercises")
	}

	if _, err := LoadTemplateFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadTemplateFile accepted a missing file")
	}
}
