package workout

import (
	"testing"
	"time"

	"github.com/claude/repflow/internal/models"
)

func intp(n int) *int          { return &n }
func floatp(f float64) *float64 { return &f }

func strengthExercise(name string, sets ...models.CompletedSet) models.CompletedExercise {
	return models.CompletedExercise{Name: name, Type: models.ExerciseStrength, MainSets: sets}
}

// TestSummarizeStrengthVolume verifies tonnage is reps x weight summed
// over main and failure sets.
func TestSummarizeStrengthVolume(t *testing.T) {
	ex := strengthExercise("Deadlift",
		models.CompletedSet{Reps: intp(5), Weight: floatp(140)},
		models.CompletedSet{Reps: intp(5), Weight: floatp(140)},
	)
	ex.FailureSet = &models.CompletedSet{Reps: intp(8), Weight: floatp(100)}

	sum := Summarize(models.SessionData{Exercises: []models.CompletedExercise{ex}})
	if sum.WeightVolume != 5*140+5*140+8*100 {
		t.Errorf("WeightVolume = %g, want 2200", sum.WeightVolume)
	}
	if sum.TotalSets != 3 {
		t.Errorf("TotalSets = %d, want 3", sum.TotalSets)
	}
	if sum.TotalReps != 18 {
		t.Errorf("TotalReps = %d, want 18", sum.TotalReps)
	}
}

// TestSummarizeAdditive verifies volume over a concatenation of
// exercise lists equals the sum of the parts.
func TestSummarizeAdditive(t *testing.T) {
	a := []models.CompletedExercise{strengthExercise("Squat",
		models.CompletedSet{Reps: intp(5), Weight: floatp(100)},
	)}
	b := []models.CompletedExercise{strengthExercise("Bench Press",
		models.CompletedSet{Reps: intp(8), Weight: floatp(60)},
		models.CompletedSet{Reps: intp(7), Weight: floatp(60)},
	)}

	sumA := Summarize(models.SessionData{Exercises: a})
	sumB := Summarize(models.SessionData{Exercises: b})
	both := Summarize(models.SessionData{Exercises: append(append([]models.CompletedExercise{}, a...), b...)})

	if both.WeightVolume != sumA.WeightVolume+sumB.WeightVolume {
		t.Errorf("combined volume = %g, want %g", both.WeightVolume, sumA.WeightVolume+sumB.WeightVolume)
	}
	if both.TotalSets != sumA.TotalSets+sumB.TotalSets {
		t.Errorf("combined sets = %d, want %d", both.TotalSets, sumA.TotalSets+sumB.TotalSets)
	}
}

// TestVolumeLabelMajority verifies the headline label follows the
// strict majority of exercise types, with ties falling to strength.
func TestVolumeLabelMajority(t *testing.T) {
	run := models.CompletedExercise{
		Name: "Run", Type: models.ExerciseCardio, DistanceUnit: "km",
		MainSets: []models.CompletedSet{{Distance: floatp(5.2)}},
	}
	plank := models.CompletedExercise{
		Name: "Plank", Type: models.ExerciseTimed,
		MainSets: []models.CompletedSet{{TimeSec: intp(90)}},
	}
	squat := strengthExercise("Squat", models.CompletedSet{Reps: intp(5), Weight: floatp(100)})

	tests := []struct {
		name      string
		exercises []models.CompletedExercise
		want      string
	}{
		{"cardio majority", []models.CompletedExercise{run, run, squat}, "10.4 km"},
		{"timed majority", []models.CompletedExercise{plank, plank, squat}, "03:00 total"},
		{"strength majority", []models.CompletedExercise{squat, squat, run}, "0.5k kg"},
		{"tie goes to strength", []models.CompletedExercise{squat, run}, "0.5k kg"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sum := Summarize(models.SessionData{Exercises: tc.exercises})
			if sum.Label != tc.want {
				t.Errorf("label = %q, want %q", sum.Label, tc.want)
			}
		})
	}
}

// TestVolumeLabelDefaultUnit verifies cardio distance falls back to km
// when no unit was recorded.
func TestVolumeLabelDefaultUnit(t *testing.T) {
	run := models.CompletedExercise{
		Name: "Run", Type: models.ExerciseCardio,
		MainSets: []models.CompletedSet{{Distance: floatp(3)}},
	}
	sum := Summarize(models.SessionData{Exercises: []models.CompletedExercise{run}})
	if sum.Label != "3.0 km" {
		t.Errorf("label = %q, want \"3.0 km\"", sum.Label)
	}
}

// TestEstimateDuration verifies the heuristic arithmetic per exercise
// type.
func TestEstimateDuration(t *testing.T) {
	tmpl := models.Template{
		Name: "Mixed",
		Exercises: []models.ExerciseDefinition{
			// 3 sets x 30s + 2 rests x 60s = 210s
			{Name: "Squat", Type: models.ExerciseStrength, Sets: 3, RepsPerSet: 5, RestTimeSec: 60},
			// adds a failure rest + set: 60 + 30 = 90s on top of 2x30 + 1x60
			{Name: "Curl", Type: models.ExerciseStrength, Sets: 2, RepsPerSet: 10, RestTimeSec: 60, ToFailure: true},
			// cardio is its target time: 600s
			{Name: "Row", Type: models.ExerciseCardio, Sets: 1, TargetTimeSec: 600},
			// 2 sets x 60s + 1 rest x 30s = 150s
			{Name: "Plank", Type: models.ExerciseTimed, Sets: 2, TargetTimeSec: 60, RestTimeSec: 30},
		},
	}
	want := time.Duration(210+120+90+600+150) * time.Second
	if got := EstimateDuration(tmpl); got != want {
		t.Errorf("EstimateDuration = %s, want %s", got, want)
	}
}

// TestHistoricalAverageDuration verifies only fully completed sessions
// contribute to the average.
func TestHistoricalAverageDuration(t *testing.T) {
	tmpl := models.Template{
		Name: "Push Day",
		Exercises: []models.ExerciseDefinition{
			{Name: "Bench Press", Type: models.ExerciseStrength, Sets: 2, RepsPerSet: 8},
		},
	}
	completed := time.Now()
	full := func(durationSec int) models.SessionRecord {
		return models.SessionRecord{
			CompletedAt: &completed,
			DurationSec: durationSec,
			Exercises: []models.CompletedExercise{{
				Name: "Bench Press", Type: models.ExerciseStrength,
				MainSets: []models.CompletedSet{{Reps: intp(8)}, {Reps: intp(8)}},
			}},
		}
	}
	partial := full(9999)
	partial.Exercises[0].MainSets = partial.Exercises[0].MainSets[:1]
	abandoned := full(9999)
	abandoned.CompletedAt = nil

	avg, ok := HistoricalAverageDuration(tmpl, []models.SessionRecord{full(600), full(800), partial, abandoned})
	if !ok {
		t.Fatal("no qualifying sessions found")
	}
	if avg != 700*time.Second {
		t.Errorf("average = %s, want 11m40s", avg)
	}

	if _, ok := HistoricalAverageDuration(tmpl, []models.SessionRecord{partial, abandoned}); ok {
		t.Error("average over only disqualified sessions should report false")
	}
}
