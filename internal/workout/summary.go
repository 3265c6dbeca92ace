package workout

import (
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
)

// Summary is the reduction of a finished session's accumulator into
// headline statistics.
type Summary struct {
	WeightVolume  float64 `json:"weight_volume"`
	TotalDistance float64 `json:"total_distance"`
	DistanceUnit  string  `json:"distance_unit,omitempty"`
	TotalTimeSec  int     `json:"total_time_sec"`
	TotalSets     int     `json:"total_sets"`
	TotalReps     int     `json:"total_reps"`
	Strength      int     `json:"strength_exercises"`
	Cardio        int     `json:"cardio_exercises"`
	Timed         int     `json:"timed_exercises"`
	Label         string  `json:"label"`
}

// Summarize reduces a session accumulator to summary statistics. It is
// a pure function: weight volume is additive over concatenation of
// exercise lists.
func Summarize(data models.SessionData) Summary {
	var sum Summary
	for _, ex := range data.Exercises {
		switch ex.Type {
		case models.ExerciseStrength:
			sum.Strength++
		case models.ExerciseCardio:
			sum.Cardio++
		case models.ExerciseTimed:
			sum.Timed++
		}

		sets := ex.MainSets
		if ex.FailureSet != nil {
			sets = append(sets[:len(sets):len(sets)], *ex.FailureSet)
		}
		for _, set := range sets {
			sum.TotalSets++
			if set.Reps != nil {
				sum.TotalReps += *set.Reps
			}
			if ex.Type == models.ExerciseStrength && set.Reps != nil && set.Weight != nil {
				sum.WeightVolume += float64(*set.Reps) * *set.Weight
			}
			if set.Distance != nil {
				sum.TotalDistance += *set.Distance
				if sum.DistanceUnit == "" && ex.DistanceUnit != "" {
					sum.DistanceUnit = ex.DistanceUnit
				}
			}
			if set.TimeSec != nil {
				sum.TotalTimeSec += *set.TimeSec
			}
		}
	}
	sum.Label = VolumeLabel(sum)
	return sum
}

// VolumeLabel picks the headline metric by strict majority of per-type
// exercise counts. Ties fall through to the strength label; that
// default ordering is a tested contract, not an inference.
func VolumeLabel(sum Summary) string {
	if sum.Cardio > sum.Strength && sum.Cardio > sum.Timed {
		unit := sum.DistanceUnit
		if unit == "" {
			unit = "km"
		}
		return fmt.Sprintf("%.1f %s", sum.TotalDistance, unit)
	}
	if sum.Timed > sum.Strength && sum.Timed > sum.Cardio {
		return fmt.Sprintf("%s total", formatMinSec(sum.TotalTimeSec))
	}
	return fmt.Sprintf("%.1fk kg", sum.WeightVolume/1000)
}

func formatMinSec(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Per-set pacing assumptions for the duration estimate.
const (
	estSetSeconds        = 30
	estFailureSetSeconds = 30
)

// EstimateDuration is the heuristic used when no matching history
// exists: strength counts sets plus the rests between them (and the
// failure set, when flagged), cardio counts its target time, timed
// counts its sets plus rests.
func EstimateDuration(t models.Template) time.Duration {
	var total int
	for _, ex := range t.Exercises {
		switch ex.Type {
		case models.ExerciseStrength:
			total += ex.Sets * estSetSeconds
			if ex.Sets > 1 {
				total += (ex.Sets - 1) * ex.RestTimeSec
			}
			if ex.ToFailure {
				total += ex.RestTimeSec + estFailureSetSeconds
			}
		case models.ExerciseCardio:
			total += ex.TargetTimeSec
		case models.ExerciseTimed:
			total += ex.Sets * ex.TargetTimeSec
			if ex.Sets > 1 {
				total += (ex.Sets - 1) * ex.RestTimeSec
			}
		}
	}
	return time.Duration(total) * time.Second
}

// HistoricalAverageDuration averages the recorded duration of past
// sessions of the same template that were fully completed: a
// completion timestamp and duration are present, the exercise count
// matches, every exercise reached its target main-set count, and every
// to-failure exercise recorded a failure set. Returns false when no
// session qualifies.
func HistoricalAverageDuration(t models.Template, past []models.SessionRecord) (time.Duration, bool) {
	var total, count int
	for _, rec := range past {
		if !fullyCompleted(t, rec) {
			continue
		}
		total += rec.DurationSec
		count++
	}
	if count == 0 {
		return 0, false
	}
	return time.Duration(total/count) * time.Second, true
}

func fullyCompleted(t models.Template, rec models.SessionRecord) bool {
	if rec.CompletedAt == nil || rec.DurationSec <= 0 {
		return false
	}
	if len(rec.Exercises) != len(t.Exercises) {
		return false
	}
	for i, ex := range rec.Exercises {
		if len(ex.MainSets) < t.Exercises[i].Sets {
			return false
		}
		if t.Exercises[i].ToFailure && ex.FailureSet == nil {
			return false
		}
	}
	return true
}
