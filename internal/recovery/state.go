package recovery

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// StateDB persists in-flight session snapshots so a crashed or killed
// process can offer to resume the workout on restart.
type StateDB struct {
	db *sql.DB
}

// PendingSession is one recoverable snapshot row.
type PendingSession struct {
	SessionID    uuid.UUID
	TemplateName string
	SavedAt      time.Time
	State        []byte
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS live_sessions (
		session_id    TEXT PRIMARY KEY,
		template_name TEXT NOT NULL,
		saved_at      TIMESTAMP NOT NULL,
		state         BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// SaveSnapshot upserts the serialized state of a live session.
func (s *StateDB) SaveSnapshot(sessionID uuid.UUID, templateName string, state []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO live_sessions (session_id, template_name, saved_at, state) VALUES (?, ?, ?, ?)`,
		sessionID.String(), templateName, time.Now().UTC(), state,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot for one session, or sql.ErrNoRows.
func (s *StateDB) Load(sessionID uuid.UUID) (*PendingSession, error) {
	row := s.db.QueryRow(
		`SELECT session_id, template_name, saved_at, state FROM live_sessions WHERE session_id = ?`,
		sessionID.String(),
	)
	return scanPending(row)
}

// LoadAll returns every recoverable snapshot, newest first.
func (s *StateDB) LoadAll() ([]PendingSession, error) {
	rows, err := s.db.Query(
		`SELECT session_id, template_name, saved_at, state FROM live_sessions ORDER BY saved_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var pending []PendingSession
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *p)
	}
	return pending, rows.Err()
}

// Delete removes a snapshot once the session has been saved upstream.
func (s *StateDB) Delete(sessionID uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM live_sessions WHERE session_id = ?`, sessionID.String())
	return err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPending(row rowScanner) (*PendingSession, error) {
	var p PendingSession
	var idStr string
	if err := row.Scan(&idStr, &p.TemplateName, &p.SavedAt, &p.State); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt session_id %q: %w", idStr, err)
	}
	p.SessionID = id
	return &p, nil
}
