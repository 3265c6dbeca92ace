package advisor

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

// fakeHistory serves canned history per exercise name.
type fakeHistory struct {
	byExercise map[string][]models.PastExercise
	err        error
}

func (f *fakeHistory) RecentExerciseHistory(_ context.Context, _ int, exercise string, limit int) ([]models.PastExercise, error) {
	if f.err != nil {
		return nil, f.err
	}
	past := f.byExercise[exercise]
	if len(past) > limit {
		past = past[:limit]
	}
	return past, nil
}

// pastSession builds one historical occurrence with uniform main sets
// and an optional failure set (failureReps < 0 means none).
func pastSession(name string, daysAgo, sets, reps int, weight float64, failureReps int) models.PastExercise {
	ex := models.CompletedExercise{Name: name, Type: models.ExerciseStrength}
	for i := 0; i < sets; i++ {
		r := reps
		w := weight
		ex.MainSets = append(ex.MainSets, models.CompletedSet{Reps: &r, Weight: &w})
	}
	if failureReps >= 0 {
		fr := failureReps
		w := weight
		ex.FailureSet = &models.CompletedSet{Reps: &fr, Weight: &w}
	}
	return models.PastExercise{
		SessionID: uuid.New(),
		Date:      time.Now().AddDate(0, 0, -daysAgo),
		Exercise:  ex,
	}
}

func testAdvisor(h HistoryStore) *Advisor {
	return New(h, slog.Default())
}

// TestWeightIncrement verifies compound movements get the 2.5 step and
// isolation work gets 1.25, matched case-insensitively.
func TestWeightIncrement(t *testing.T) {
	tests := []struct {
		exercise string
		want     float64
	}{
		{"Barbell Squat", 2.5},
		{"Romanian Deadlift", 2.5},
		{"Incline Bench Press", 2.5},
		{"BARBELL ROW", 2.5},
		{"Weighted Dip", 2.5},
		{"Bicep Curl", 1.25},
		{"Lateral Raise", 1.25},
		{"Leg Extension", 1.25},
	}
	for _, tc := range tests {
		if got := WeightIncrement(tc.exercise); got != tc.want {
			t.Errorf("WeightIncrement(%q) = %g, want %g", tc.exercise, got, tc.want)
		}
	}
}

// TestFailureProtocolIncrease verifies Branch A: two straight sessions
// whose failure set reached target reps earn a weight increase, rounded
// to the movement's increment.
func TestFailureProtocolIncrease(t *testing.T) {
	h := &fakeHistory{byExercise: map[string][]models.PastExercise{
		"Barbell Squat": {
			pastSession("Barbell Squat", 2, 3, 8, 100, 9),
			pastSession("Barbell Squat", 9, 3, 8, 100, 8),
		},
	}}
	sug := testAdvisor(h).Suggest(context.Background(), Request{
		UserID: 1, Exercise: "Barbell Squat", CurrentWeight: 100, TargetReps: 8, TemplateFailure: true,
	})

	if !sug.ShouldIncrease {
		t.Fatalf("ShouldIncrease = false, reason %q", sug.Reason)
	}
	if sug.SuggestedWeight != 102.5 {
		t.Errorf("SuggestedWeight = %g, want 102.5", sug.SuggestedWeight)
	}
	if sug.Reason != "failure set hit target reps in the last two sessions" {
		t.Errorf("Reason = %q", sug.Reason)
	}
	if len(sug.PreviousSessions) != 2 {
		t.Errorf("PreviousSessions = %d, want 2", len(sug.PreviousSessions))
	}
}

// TestFailureProtocolHold verifies Branch A holds the weight when the
// most recent failure set fell short.
func TestFailureProtocolHold(t *testing.T) {
	h := &fakeHistory{byExercise: map[string][]models.PastExercise{
		"Barbell Squat": {
			pastSession("Barbell Squat", 2, 3, 8, 100, 6),
			pastSession("Barbell Squat", 9, 3, 8, 100, 9),
		},
	}}
	sug := testAdvisor(h).Suggest(context.Background(), Request{
		UserID: 1, Exercise: "Barbell Squat", CurrentWeight: 100, TargetReps: 8, TemplateFailure: true,
	})

	if sug.ShouldIncrease || sug.SuggestedWeight != 100 {
		t.Errorf("suggestion = %+v, want hold at 100", sug)
	}
	if sug.Reason != "keep pushing" {
		t.Errorf("Reason = %q, want \"keep pushing\"", sug.Reason)
	}
}

// TestFailureProtocolNeedsTwoSessions verifies Branch A is neutral with
// fewer than two sessions of history.
func TestFailureProtocolNeedsTwoSessions(t *testing.T) {
	h := &fakeHistory{byExercise: map[string][]models.PastExercise{
		"Barbell Squat": {pastSession("Barbell Squat", 2, 3, 8, 100, 10)},
	}}
	sug := testAdvisor(h).Suggest(context.Background(), Request{
		UserID: 1, Exercise: "Barbell Squat", CurrentWeight: 100, TargetReps: 8, TemplateFailure: true,
	})

	if sug.ShouldIncrease || sug.Reason != "not enough history" {
		t.Errorf("suggestion = %+v, want neutral \"not enough history\"", sug)
	}
}

// TestTestSetProtocolIncrease verifies Branch B: a test set exceeding
// target reps in the latest session earns an increase.
func TestTestSetProtocolIncrease(t *testing.T) {
	h := &fakeHistory{byExercise: map[string][]models.PastExercise{
		"Bicep Curl": {pastSession("Bicep Curl", 3, 3, 10, 12, 13)},
	}}
	sug := testAdvisor(h).Suggest(context.Background(), Request{
		UserID: 1, Exercise: "Bicep Curl", CurrentWeight: 12, TargetReps: 10,
	})

	if !sug.ShouldIncrease {
		t.Fatalf("ShouldIncrease = false, reason %q", sug.Reason)
	}
	if sug.SuggestedWeight != 13.75 {
		t.Errorf("SuggestedWeight = %g, want 13.75", sug.SuggestedWeight)
	}
}

// TestTestSetProtocolRetest verifies Branch B prompts a retest when the
// test set only matched (did not exceed) the target.
func TestTestSetProtocolRetest(t *testing.T) {
	h := &fakeHistory{byExercise: map[string][]models.PastExercise{
		"Bicep Curl": {pastSession("Bicep Curl", 3, 3, 10, 12, 10)},
	}}
	sug := testAdvisor(h).Suggest(context.Background(), Request{
		UserID: 1, Exercise: "Bicep Curl", CurrentWeight: 12, TargetReps: 10,
	})

	if sug.ShouldIncrease || !sug.ShouldAddTestSet {
		t.Errorf("suggestion = %+v, want ShouldAddTestSet", sug)
	}
}

// TestTestSetProtocolEarnsTestSet verifies Branch B: two straight
// sessions of full target reps, with no test set recorded, prompt one.
func TestTestSetProtocolEarnsTestSet(t *testing.T) {
	h := &fakeHistory{byExercise: map[string][]models.PastExercise{
		"Bicep Curl": {
			pastSession("Bicep Curl", 3, 3, 10, 12, -1),
			pastSession("Bicep Curl", 10, 3, 10, 12, -1),
		},
	}}
	sug := testAdvisor(h).Suggest(context.Background(), Request{
		UserID: 1, Exercise: "Bicep Curl", CurrentWeight: 12, TargetReps: 10,
	})

	if !sug.ShouldAddTestSet {
		t.Fatalf("ShouldAddTestSet = false, reason %q", sug.Reason)
	}
	if sug.ShouldIncrease {
		t.Error("ShouldIncrease should stay false for a test-set prompt")
	}
}

// TestTestSetProtocolMissedReps verifies Branch B holds when the last
// session missed target reps.
func TestTestSetProtocolMissedReps(t *testing.T) {
	h := &fakeHistory{byExercise: map[string][]models.PastExercise{
		"Bicep Curl": {
			pastSession("Bicep Curl", 3, 3, 8, 12, -1),
			pastSession("Bicep Curl", 10, 3, 10, 12, -1),
		},
	}}
	sug := testAdvisor(h).Suggest(context.Background(), Request{
		UserID: 1, Exercise: "Bicep Curl", CurrentWeight: 12, TargetReps: 10,
	})

	if sug.ShouldIncrease || sug.ShouldAddTestSet {
		t.Errorf("suggestion = %+v, want plain hold", sug)
	}
	if sug.Reason != "keep pushing" {
		t.Errorf("Reason = %q, want \"keep pushing\"", sug.Reason)
	}
}

// TestSuggestNeverFails verifies a history fetch error degrades to a
// neutral suggestion rather than an error.
func TestSuggestNeverFails(t *testing.T) {
	h := &fakeHistory{err: errors.New("connection refused")}
	sug := testAdvisor(h).Suggest(context.Background(), Request{
		UserID: 1, Exercise: "Barbell Squat", CurrentWeight: 100, TargetReps: 8,
	})

	if sug.ShouldIncrease || sug.ShouldAddTestSet {
		t.Errorf("suggestion = %+v, want fully neutral", sug)
	}
	if sug.SuggestedWeight != 100 {
		t.Errorf("SuggestedWeight = %g, want unchanged 100", sug.SuggestedWeight)
	}
	if sug.Reason != "unable to fetch history" {
		t.Errorf("Reason = %q", sug.Reason)
	}
}

// TestSuggestTemplateAlignment verifies per-exercise results stay
// index-aligned with the template and non-strength exercises get a
// neutral entry.
func TestSuggestTemplateAlignment(t *testing.T) {
	h := &fakeHistory{byExercise: map[string][]models.PastExercise{
		"Barbell Squat": {
			pastSession("Barbell Squat", 2, 3, 8, 100, 9),
			pastSession("Barbell Squat", 9, 3, 8, 100, 8),
		},
	}}
	tmpl := models.Template{
		Name: "Lower",
		Exercises: []models.ExerciseDefinition{
			{Name: "Run", Type: models.ExerciseCardio, Sets: 1, TargetTimeSec: 600},
			{Name: "Barbell Squat", Type: models.ExerciseStrength, Sets: 3, RepsPerSet: 8, Weight: 100, ToFailure: true},
		},
	}

	out := testAdvisor(h).SuggestTemplate(context.Background(), 1, tmpl)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Exercise != "Run" || out[0].ShouldIncrease {
		t.Errorf("cardio entry = %+v, want neutral", out[0])
	}
	if out[1].Exercise != "Barbell Squat" || !out[1].ShouldIncrease {
		t.Errorf("squat entry = %+v, want an increase", out[1])
	}
}

// TestApplyToTemplate verifies accepted increases produce a modified
// copy without touching the source template.
func TestApplyToTemplate(t *testing.T) {
	tmpl := models.Template{
		Name: "Lower",
		Exercises: []models.ExerciseDefinition{
			{Name: "Barbell Squat", Type: models.ExerciseStrength, Sets: 3, RepsPerSet: 8, Weight: 100},
			{Name: "Leg Extension", Type: models.ExerciseStrength, Sets: 3, RepsPerSet: 12, Weight: 40},
		},
	}
	suggestions := []Suggestion{
		{Exercise: "Barbell Squat", ShouldIncrease: true, SuggestedWeight: 102.5},
		{Exercise: "Leg Extension", ShouldIncrease: false, SuggestedWeight: 40},
	}

	out := ApplyToTemplate(tmpl, suggestions)
	if out.Exercises[0].Weight != 102.5 {
		t.Errorf("applied weight = %g, want 102.5", out.Exercises[0].Weight)
	}
	if out.Exercises[1].Weight != 40 {
		t.Errorf("untouched weight = %g, want 40", out.Exercises[1].Weight)
	}
	if tmpl.Exercises[0].Weight != 100 {
		t.Errorf("source template mutated: weight = %g", tmpl.Exercises[0].Weight)
	}
}

// TestRoundToIncrement verifies rounding lands on increment multiples.
func TestRoundToIncrement(t *testing.T) {
	tests := []struct {
		weight, inc, want float64
	}{
		{101.3, 2.5, 102.5},
		{101.2, 2.5, 100},
		{13.2, 1.25, 13.75},
		{50, 2.5, 50},
	}
	for _, tc := range tests {
		if got := roundToIncrement(tc.weight, tc.inc); got != tc.want {
			t.Errorf("roundToIncrement(%g, %g) = %g, want %g", tc.weight, tc.inc, got, tc.want)
		}
	}
}
