package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertSession persists a finished session with its exercises and
// sets in one transaction. Returns true if inserted, false if the
// session ID already exists — retries after a reported save failure
// are safe and idempotent.
func (db *DB) InsertSession(ctx context.Context, rec models.SessionRecord) (bool, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, user_id, template_id, template_name, started_at, completed_at, duration_sec, ended_early)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT DO NOTHING`,
		rec.ID, rec.UserID, rec.TemplateID, rec.TemplateName,
		rec.StartedAt, rec.CompletedAt, rec.DurationSec, rec.EndedEarly)
	if err != nil {
		return false, fmt.Errorf("inserting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := insertSessionExercises(ctx, tx, rec); err != nil {
		return false, err
	}
	if err := insertSessionSets(ctx, tx, rec); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing session: %w", err)
	}
	return true, nil
}

func insertSessionExercises(ctx context.Context, tx pgx.Tx, rec models.SessionRecord) error {
	if len(rec.Exercises) == 0 {
		return nil
	}

	query := `INSERT INTO session_exercises (session_id, position, name, type, target_sets, target_reps,
		target_weight, target_distance, distance_unit, target_time_sec, rest_time_sec, to_failure, notes) VALUES `
	args := make([]any, 0, len(rec.Exercises)*13)
	valueStrings := make([]string, 0, len(rec.Exercises))

	for i, ex := range rec.Exercises {
		base := i * 13
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
			base+8, base+9, base+10, base+11, base+12, base+13,
		))
		args = append(args, rec.ID, i, ex.Name, ex.Type, ex.TargetSets, ex.TargetReps,
			ex.TargetWeight, ex.TargetDistance, ex.DistanceUnit, ex.TargetTimeSec,
			ex.RestTimeSec, ex.ToFailure, ex.Notes)
	}

	if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
		return fmt.Errorf("inserting session exercises: %w", err)
	}
	return nil
}

func insertSessionSets(ctx context.Context, tx pgx.Tx, rec models.SessionRecord) error {
	query := `INSERT INTO session_sets (session_id, exercise_position, set_number, is_failure,
		reps, weight, distance, time_sec, completed_at) VALUES `
	args := make([]any, 0, 64)
	valueStrings := make([]string, 0, 16)

	add := func(pos, num int, isFailure bool, set models.CompletedSet) {
		base := len(args)
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args, rec.ID, pos, num, isFailure,
			set.Reps, set.Weight, set.Distance, set.TimeSec, set.CompletedAt)
	}

	for pos, ex := range rec.Exercises {
		for num, set := range ex.MainSets {
			add(pos, num, false, set)
		}
		if ex.FailureSet != nil {
			add(pos, len(ex.MainSets), true, *ex.FailureSet)
		}
	}
	if len(valueStrings) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
		return fmt.Errorf("inserting session sets: %w", err)
	}
	return nil
}

// SessionSummaryRow is a session without its exercise detail, for list
// views.
type SessionSummaryRow struct {
	ID           uuid.UUID  `json:"id"`
	UserID       int        `json:"user_id"`
	TemplateID   uuid.UUID  `json:"template_id"`
	TemplateName string     `json:"template_name"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationSec  int        `json:"duration_sec"`
	EndedEarly   bool       `json:"ended_early"`
}

// QuerySessions retrieves session summaries in a time range, newest
// first.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time, userID int) ([]SessionSummaryRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, template_id, template_name, started_at, completed_at, duration_sec, ended_early
		 FROM sessions
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3
		 ORDER BY started_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []SessionSummaryRow
	for rows.Next() {
		var s SessionSummaryRow
		if err := rows.Scan(&s.ID, &s.UserID, &s.TemplateID, &s.TemplateName,
			&s.StartedAt, &s.CompletedAt, &s.DurationSec, &s.EndedEarly); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetSession retrieves a single session with all exercises and sets.
func (db *DB) GetSession(ctx context.Context, sessionID uuid.UUID, userID int) (*models.SessionRecord, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, template_id, template_name, started_at, completed_at, duration_sec, ended_early
		 FROM sessions
		 WHERE id = $1 AND user_id = $2`,
		sessionID, userID)

	var rec models.SessionRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.TemplateID, &rec.TemplateName,
		&rec.StartedAt, &rec.CompletedAt, &rec.DurationSec, &rec.EndedEarly); err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if err := db.loadExercises(ctx, []*models.SessionRecord{&rec}); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecentSessionsByTemplate retrieves the most recent completed
// sessions of a template, newest first, with full exercise detail.
func (db *DB) RecentSessionsByTemplate(ctx context.Context, userID int, templateID uuid.UUID, limit int) ([]models.SessionRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, template_id, template_name, started_at, completed_at, duration_sec, ended_early
		 FROM sessions
		 WHERE user_id = $1 AND template_id = $2 AND completed_at IS NOT NULL
		 ORDER BY started_at DESC
		 LIMIT $3`,
		userID, templateID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying template sessions: %w", err)
	}
	defer rows.Close()

	var recs []*models.SessionRecord
	for rows.Next() {
		rec := &models.SessionRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TemplateID, &rec.TemplateName,
			&rec.StartedAt, &rec.CompletedAt, &rec.DurationSec, &rec.EndedEarly); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.loadExercises(ctx, recs); err != nil {
		return nil, err
	}

	result := make([]models.SessionRecord, len(recs))
	for i, rec := range recs {
		result[i] = *rec
	}
	return result, nil
}

// historyKey addresses one exercise occurrence. A template may hold
// the same exercise at two positions in one session, so the session ID
// alone is not enough.
type historyKey struct {
	session  uuid.UUID
	position int
}

// indexHistory maps each occurrence key to its entry in result; keys
// runs parallel to result.
func indexHistory(result []models.PastExercise, keys []historyKey) map[historyKey]*models.PastExercise {
	byKey := make(map[historyKey]*models.PastExercise, len(result))
	for i := range result {
		byKey[keys[i]] = &result[i]
	}
	return byKey
}

// RecentExerciseHistory returns the most recent completed occurrences
// of an exercise across sessions, newest first. The name match is
// case-insensitive. Satisfies advisor.HistoryStore.
func (db *DB) RecentExerciseHistory(ctx context.Context, userID int, exercise string, limit int) ([]models.PastExercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT s.id, s.started_at, e.position, e.name, e.type, e.target_sets, e.target_reps,
		        e.target_weight, e.target_distance, e.distance_unit, e.target_time_sec,
		        e.rest_time_sec, e.to_failure, e.notes
		 FROM session_exercises e
		 JOIN sessions s ON s.id = e.session_id
		 WHERE s.user_id = $1 AND lower(e.name) = lower($2) AND s.completed_at IS NOT NULL
		 ORDER BY s.started_at DESC
		 LIMIT $3`,
		userID, exercise, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	var result []models.PastExercise
	var keys []historyKey
	for rows.Next() {
		var px models.PastExercise
		var pos int
		if err := rows.Scan(&px.SessionID, &px.Date, &pos, &px.Exercise.Name, &px.Exercise.Type,
			&px.Exercise.TargetSets, &px.Exercise.TargetReps, &px.Exercise.TargetWeight,
			&px.Exercise.TargetDistance, &px.Exercise.DistanceUnit, &px.Exercise.TargetTimeSec,
			&px.Exercise.RestTimeSec, &px.Exercise.ToFailure, &px.Exercise.Notes); err != nil {
			return nil, fmt.Errorf("scanning exercise history: %w", err)
		}
		keys = append(keys, historyKey{px.SessionID, pos})
		result = append(result, px)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(result))
	for _, px := range result {
		ids = append(ids, px.SessionID)
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT session_id, exercise_position, set_number, is_failure, reps, weight, distance, time_sec, completed_at
		 FROM session_sets
		 WHERE session_id = ANY($1)
		 ORDER BY session_id, exercise_position, set_number`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("querying history sets: %w", err)
	}
	defer setRows.Close()

	byKey := indexHistory(result, keys)

	for setRows.Next() {
		var sid uuid.UUID
		var pos, num int
		var isFailure bool
		var set models.CompletedSet
		if err := setRows.Scan(&sid, &pos, &num, &isFailure,
			&set.Reps, &set.Weight, &set.Distance, &set.TimeSec, &set.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning history set: %w", err)
		}
		px, ok := byKey[historyKey{sid, pos}]
		if !ok {
			continue
		}
		if isFailure {
			fs := set
			px.Exercise.FailureSet = &fs
		} else {
			px.Exercise.MainSets = append(px.Exercise.MainSets, set)
		}
	}
	return result, setRows.Err()
}

// loadExercises fills in exercises and sets for the given session
// records in two queries.
func (db *DB) loadExercises(ctx context.Context, recs []*models.SessionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(recs))
	byID := make(map[uuid.UUID]*models.SessionRecord, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
		byID[rec.ID] = rec
	}

	exRows, err := db.Pool.Query(ctx,
		`SELECT session_id, position, name, type, target_sets, target_reps, target_weight,
		        target_distance, distance_unit, target_time_sec, rest_time_sec, to_failure, notes
		 FROM session_exercises
		 WHERE session_id = ANY($1)
		 ORDER BY session_id, position`,
		ids)
	if err != nil {
		return fmt.Errorf("querying session exercises: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var sid uuid.UUID
		var pos int
		var ex models.CompletedExercise
		if err := exRows.Scan(&sid, &pos, &ex.Name, &ex.Type, &ex.TargetSets, &ex.TargetReps,
			&ex.TargetWeight, &ex.TargetDistance, &ex.DistanceUnit, &ex.TargetTimeSec,
			&ex.RestTimeSec, &ex.ToFailure, &ex.Notes); err != nil {
			return fmt.Errorf("scanning session exercise: %w", err)
		}
		if rec, ok := byID[sid]; ok {
			rec.Exercises = append(rec.Exercises, ex)
		}
	}
	if err := exRows.Err(); err != nil {
		return err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT session_id, exercise_position, set_number, is_failure, reps, weight, distance, time_sec, completed_at
		 FROM session_sets
		 WHERE session_id = ANY($1)
		 ORDER BY session_id, exercise_position, set_number`,
		ids)
	if err != nil {
		return fmt.Errorf("querying session sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var sid uuid.UUID
		var pos, num int
		var isFailure bool
		var set models.CompletedSet
		if err := setRows.Scan(&sid, &pos, &num, &isFailure,
			&set.Reps, &set.Weight, &set.Distance, &set.TimeSec, &set.CompletedAt); err != nil {
			return fmt.Errorf("scanning session set: %w", err)
		}
		rec, ok := byID[sid]
		if !ok || pos >= len(rec.Exercises) {
			continue
		}
		if isFailure {
			fs := set
			rec.Exercises[pos].FailureSet = &fs
		} else {
			rec.Exercises[pos].MainSets = append(rec.Exercises[pos].MainSets, set)
		}
	}
	return setRows.Err()
}
