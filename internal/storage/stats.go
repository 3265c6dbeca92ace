package storage

import (
	"context"
	"fmt"
	"time"
)

// VolumePeriod holds aggregated training volume for one time bucket.
type VolumePeriod struct {
	Period      string  `json:"period"`
	Sessions    int     `json:"sessions"`
	Sets        int     `json:"sets"`
	Reps        int     `json:"reps"`
	TonnageKg   float64 `json:"tonnage_kg"`
	FailureSets int     `json:"failure_sets"`
}

// GetVolumeSummary returns per-period training volume: session and set
// counts, total reps, and tonnage (Σ reps × weight, failure sets
// included).
func (db *DB) GetVolumeSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]VolumePeriod, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, s.started_at)::date AS period,
		        COUNT(DISTINCT s.id)::int AS sessions,
		        COUNT(st.*)::int AS sets,
		        COALESCE(SUM(st.reps), 0)::int AS reps,
		        COALESCE(SUM(st.weight * st.reps), 0) AS tonnage,
		        COUNT(st.*) FILTER (WHERE st.is_failure)::int AS failure_sets
		 FROM session_sets st
		 JOIN sessions s ON s.id = st.session_id
		 WHERE s.started_at >= $2 AND s.started_at < $3 AND s.user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying volume summary: %w", err)
	}
	defer rows.Close()

	var result []VolumePeriod
	for rows.Next() {
		var periodTime time.Time
		var vp VolumePeriod
		if err := rows.Scan(&periodTime, &vp.Sessions, &vp.Sets, &vp.Reps, &vp.TonnageKg, &vp.FailureSets); err != nil {
			return nil, fmt.Errorf("scanning volume summary: %w", err)
		}
		vp.Period = periodTime.Format("2006-01-02")
		result = append(result, vp)
	}
	return result, rows.Err()
}

// truncInterval maps a bucket name to a date_trunc field.
func truncInterval(bucket string) string {
	switch bucket {
	case "week", "weekly":
		return "week"
	case "month", "monthly":
		return "month"
	default:
		return "day"
	}
}
