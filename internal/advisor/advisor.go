package advisor

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/claude/repflow/internal/models"
)

const (
	// fetchLimit bounds the historical sessions pulled per exercise.
	fetchLimit = 10
	// summaryLimit bounds the digests returned with a suggestion.
	summaryLimit = 5
)

// HistoryStore is the advisor's read-only view of past sessions.
// Implementations return completed sessions containing the named
// exercise (case-insensitive), newest first. *storage.DB satisfies it.
type HistoryStore interface {
	RecentExerciseHistory(ctx context.Context, userID int, exercise string, limit int) ([]models.PastExercise, error)
}

// SessionSummary is one historical session digest.
type SessionSummary struct {
	Date          time.Time `json:"date"`
	Weight        float64   `json:"weight"`
	Sets          int       `json:"sets"`
	AvgReps       float64   `json:"avg_reps"`
	AllTargetHit  bool      `json:"all_target_hit"`
	HasFailureSet bool      `json:"has_failure_set"`
	FailureReps   int       `json:"failure_reps"`
}

// Suggestion is the advisor's verdict for one exercise. It is advisory
// only; applying it to a template always produces a modified copy.
type Suggestion struct {
	Exercise         string           `json:"exercise"`
	CurrentWeight    float64          `json:"current_weight"`
	SuggestedWeight  float64          `json:"suggested_weight"`
	Reason           string           `json:"reason"`
	ShouldIncrease   bool             `json:"should_increase"`
	ShouldAddTestSet bool             `json:"should_add_test_set"`
	PreviousSessions []SessionSummary `json:"previous_sessions,omitempty"`
}

// Request identifies the exercise under consideration.
type Request struct {
	UserID        int
	Exercise      string
	CurrentWeight float64
	TargetReps    int
	// TemplateFailure is true when the template always appends a
	// failure set to this exercise (Branch A). When false, the advisor
	// runs the ad-hoc test-set protocol (Branch B).
	TemplateFailure bool
}

// Advisor inspects historical session data and recommends weight
// changes. It is read-only, stateless between calls, and never fails a
// workout: any fetch error degrades to a neutral suggestion.
type Advisor struct {
	history HistoryStore
	log     *slog.Logger
}

// New creates an Advisor over the given history source.
func New(history HistoryStore, log *slog.Logger) *Advisor {
	return &Advisor{history: history, log: log}
}

// Suggest evaluates one exercise. It never returns an error; history
// fetch failures produce a neutral "unable to fetch history"
// suggestion instead.
func (a *Advisor) Suggest(ctx context.Context, req Request) Suggestion {
	sug := Suggestion{
		Exercise:        req.Exercise,
		CurrentWeight:   req.CurrentWeight,
		SuggestedWeight: req.CurrentWeight,
	}

	past, err := a.history.RecentExerciseHistory(ctx, req.UserID, req.Exercise, fetchLimit)
	if err != nil {
		a.log.Warn("advisor history fetch failed", "exercise", req.Exercise, "error", err)
		sug.Reason = "unable to fetch history"
		return sug
	}

	history := make([]SessionSummary, 0, summaryLimit)
	for _, px := range past {
		history = append(history, summarize(px, req.TargetReps))
		if len(history) == summaryLimit {
			break
		}
	}
	sug.PreviousSessions = history

	inc := WeightIncrement(req.Exercise)
	if req.TemplateFailure {
		a.decideFailureProtocol(&sug, history, req, inc)
	} else {
		a.decideTestSetProtocol(&sug, history, req, inc)
	}
	return sug
}

// decideFailureProtocol is Branch A: the template always appends a
// failure set, so the last two failure sets are the diagnostic signal.
func (a *Advisor) decideFailureProtocol(sug *Suggestion, history []SessionSummary, req Request, inc float64) {
	if len(history) < 2 {
		sug.Reason = "not enough history"
		return
	}
	if history[0].HasFailureSet && history[0].FailureReps >= req.TargetReps &&
		history[1].HasFailureSet && history[1].FailureReps >= req.TargetReps {
		sug.ShouldIncrease = true
		sug.SuggestedWeight = roundToIncrement(req.CurrentWeight+inc, inc)
		sug.Reason = "failure set hit target reps in the last two sessions"
		return
	}
	sug.Reason = "keep pushing"
}

// decideTestSetProtocol is Branch B: no default failure set. A
// recorded failure set in the most recent session is an ad-hoc test
// set; otherwise two straight sessions of full target reps earn a
// test-set prompt.
func (a *Advisor) decideTestSetProtocol(sug *Suggestion, history []SessionSummary, req Request, inc float64) {
	if len(history) < 1 {
		sug.Reason = "not enough history"
		return
	}

	last := history[0]
	if last.HasFailureSet {
		if last.FailureReps > req.TargetReps {
			sug.ShouldIncrease = true
			sug.SuggestedWeight = roundToIncrement(req.CurrentWeight+inc, inc)
			sug.Reason = "test set exceeded target reps"
		} else {
			sug.ShouldAddTestSet = true
			sug.Reason = "test set fell short of target reps, retest"
		}
		return
	}

	if len(history) >= 2 && last.AllTargetHit && history[1].AllTargetHit {
		sug.ShouldAddTestSet = true
		sug.Reason = "target reps hit in the last two sessions, try a max-effort test set"
		return
	}
	sug.Reason = "keep pushing"
}

// SuggestTemplate evaluates every strength exercise of a template
// concurrently. The returned slice is index-aligned with the
// template's exercises; lookups are independent and order-independent.
func (a *Advisor) SuggestTemplate(ctx context.Context, userID int, t models.Template) []Suggestion {
	out := make([]Suggestion, len(t.Exercises))
	var wg sync.WaitGroup
	for i, ex := range t.Exercises {
		if ex.Type != models.ExerciseStrength {
			out[i] = Suggestion{
				Exercise:        ex.Name,
				CurrentWeight:   ex.Weight,
				SuggestedWeight: ex.Weight,
				Reason:          "no suggestion for " + string(ex.Type) + " exercises",
			}
			continue
		}
		wg.Add(1)
		go func(i int, ex models.ExerciseDefinition) {
			defer wg.Done()
			out[i] = a.Suggest(ctx, Request{
				UserID:          userID,
				Exercise:        ex.Name,
				CurrentWeight:   ex.Weight,
				TargetReps:      ex.RepsPerSet,
				TemplateFailure: ex.ToFailure,
			})
		}(i, ex)
	}
	wg.Wait()
	return out
}

// ApplyToTemplate returns a copy of the template with accepted weight
// increases applied. The source template is never mutated.
func ApplyToTemplate(t models.Template, suggestions []Suggestion) models.Template {
	out := t
	out.Exercises = append([]models.ExerciseDefinition(nil), t.Exercises...)
	for i := range out.Exercises {
		if i < len(suggestions) && suggestions[i].ShouldIncrease {
			out.Exercises[i].Weight = suggestions[i].SuggestedWeight
		}
	}
	return out
}

// summarize digests one historical occurrence of an exercise.
func summarize(px models.PastExercise, targetReps int) SessionSummary {
	ex := px.Exercise
	sum := SessionSummary{
		Date: px.Date,
		Sets: len(ex.MainSets),
	}

	allHit := len(ex.MainSets) > 0
	var totalReps int
	for _, set := range ex.MainSets {
		reps := 0
		if set.Reps != nil {
			reps = *set.Reps
		}
		totalReps += reps
		if reps < targetReps {
			allHit = false
		}
		if sum.Weight == 0 && set.Weight != nil {
			sum.Weight = *set.Weight
		}
	}
	if len(ex.MainSets) > 0 {
		sum.AvgReps = float64(totalReps) / float64(len(ex.MainSets))
	}
	sum.AllTargetHit = allHit

	if ex.FailureSet != nil {
		sum.HasFailureSet = true
		if ex.FailureSet.Reps != nil {
			sum.FailureReps = *ex.FailureSet.Reps
		}
	}
	return sum
}

// compoundMovements are matched as case-insensitive substrings of the
// exercise name to pick the larger plate increment.
var compoundMovements = []string{
	"squat", "deadlift", "bench press", "overhead press", "row",
	"pull up", "chin up", "dip", "hip thrust", "leg press",
}

// WeightIncrement returns 2.5 for compound movements and 1.25 for
// everything else.
func WeightIncrement(exercise string) float64 {
	name := strings.ToLower(exercise)
	for _, m := range compoundMovements {
		if strings.Contains(name, m) {
			return 2.5
		}
	}
	return 1.25
}

// roundToIncrement rounds to the nearest multiple of the increment.
func roundToIncrement(weight, inc float64) float64 {
	if inc <= 0 {
		return weight
	}
	return math.Round(weight/inc) * inc
}
