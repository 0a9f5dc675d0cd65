/*
Package storage keeps exported recording sessions in a local SQLite
database so they survive between recorder invocations.

The database lives at .recorder/sessions.db by default and uses
modernc.org/sqlite, a pure Go driver.
*/
package storage

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/state"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

// DefaultFile is the archive file name inside the state directory.
const DefaultFile = "sessions.db"

// timeLayout sorts lexically, unlike time.RFC3339Nano.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Archive persists session snapshots.
type Archive interface {
	// Init opens the database and runs migrations.
	Init() error

	// Save stores a snapshot, replacing any earlier copy of the session.
	Save(snap actions.Snapshot) error

	// Load returns the stored snapshot of a session.
	Load(sessionID string) (actions.Snapshot, error)

	// List summarizes stored sessions, most recently saved first.
	List() ([]Summary, error)

	// Delete removes a session and reports whether it existed.
	Delete(sessionID string) (bool, error)

	Close() error
}

// Summary describes a stored session without its actions.
type Summary struct {
	SessionID   string    `json:"sessionId"`
	URL         string    `json:"url,omitempty"`
	ActionCount int       `json:"actionCount"`
	StartTime   int64     `json:"startTime"`
	SavedAt     time.Time `json:"savedAt"`
}

// SQLiteArchive implements Archive on SQLite.
type SQLiteArchive struct {
	db       *sql.DB
	dbPath   string
	mu       sync.Mutex
	initOnce sync.Once
	now      func() time.Time
	logger   *logrus.Entry
}

// DefaultPath returns .recorder/sessions.db under dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, state.Dir, DefaultFile)
}

// NewSQLiteArchive creates an archive backed by the database at dbPath.
// Nothing is opened until Init.
func NewSQLiteArchive(dbPath string) *SQLiteArchive {
	return &SQLiteArchive{
		dbPath: dbPath,
		now:    time.Now,
		logger: logging.NewLogger("storage"),
	}
}

// Path returns the database file path.
func (s *SQLiteArchive) Path() string { return s.dbPath }

// Init creates the database directory, opens the database and applies
// pending migrations. It is safe to call more than once.
func (s *SQLiteArchive) Init() error {
	var initErr error
	s.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
			initErr = errors.StorageFailed("create database directory", err)
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = errors.StorageFailed("open database", err)
			return
		}
		// single writer keeps SQLite from returning SQLITE_BUSY
		db.SetMaxOpenConns(1)

		if err := db.Ping(); err != nil {
			db.Close()
			initErr = errors.StorageFailed("ping database", err)
			return
		}
		s.db = db

		if err := s.runMigrations(); err != nil {
			db.Close()
			s.db = nil
			initErr = errors.StorageFailed("run migrations", err)
			return
		}
		s.logger.WithField("path", s.dbPath).Debug("Session archive ready")
	})
	if initErr == nil && s.db == nil {
		return errors.StorageFailed("open database", errors.New(errors.ErrCodeInternal, "archive is closed"))
	}
	return initErr
}

// Save stores snap in one transaction.
func (s *SQLiteArchive) Save(snap actions.Snapshot) error {
	id := snap.Metadata.SessionID
	if id == "" {
		return errors.InvalidInput("snapshot has no session id").WithDetail("field", "sessionId")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return errNotOpen("save")
	}

	meta, err := json.Marshal(snap.Metadata)
	if err != nil {
		return errors.StorageFailed("encode metadata", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.StorageFailed("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM actions WHERE session_id = ?`, id); err != nil {
		return errors.StorageFailed("delete actions", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO sessions (session_id, url, start_time, last_action_time, action_count, saved_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			url = excluded.url,
			start_time = excluded.start_time,
			last_action_time = excluded.last_action_time,
			action_count = excluded.action_count,
			saved_at = excluded.saved_at,
			metadata = excluded.metadata
	`, id, snap.Metadata.URL, snap.Metadata.StartTime, snap.Metadata.LastActionTime,
		len(snap.Actions), s.now().UTC().Format(timeLayout), string(meta)); err != nil {
		return errors.StorageFailed("save session", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO actions (session_id, sequence, type, timestamp, page_url, payload, viewport, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.StorageFailed("prepare action insert", err)
	}
	defer stmt.Close()

	for i, a := range snap.Actions {
		seq := a.Sequence
		if seq == 0 {
			seq = i + 1
		}
		payload, err := json.Marshal(a.Payload)
		if err != nil {
			return errors.StorageFailed("encode payload", err)
		}
		if _, err := stmt.Exec(id, seq, string(a.Type), a.Timestamp, a.PageURL,
			string(payload), nullJSON(a.Viewport), nullJSON(a.Metadata)); err != nil {
			return errors.StorageFailed("save action", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.StorageFailed("commit", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session": id,
		"actions": len(snap.Actions),
	}).Debug("Saved session")
	return nil
}

// Load reads a session back. An unknown id is an invalid-input error.
func (s *SQLiteArchive) Load(sessionID string) (actions.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return actions.Snapshot{}, errNotOpen("load")
	}

	var meta, savedAt string
	err := s.db.QueryRow(`SELECT metadata, saved_at FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&meta, &savedAt)
	if err == sql.ErrNoRows {
		return actions.Snapshot{}, errors.InvalidInput("unknown session '" + sessionID + "'").
			WithDetail("sessionId", sessionID)
	}
	if err != nil {
		return actions.Snapshot{}, errors.StorageFailed("load session", err)
	}

	snap := actions.Snapshot{}
	if err := json.Unmarshal([]byte(meta), &snap.Metadata); err != nil {
		return actions.Snapshot{}, errors.StorageFailed("decode metadata", err)
	}
	snap.Metadata.SessionID = sessionID
	snap.ExportedAt = parseTime(savedAt)

	rows, err := s.db.Query(`
		SELECT sequence, type, timestamp, page_url, payload, viewport, metadata
		FROM actions WHERE session_id = ? ORDER BY sequence
	`, sessionID)
	if err != nil {
		return actions.Snapshot{}, errors.StorageFailed("load actions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a                  actions.Action
			typ, payload       string
			viewport, metadata sql.NullString
		)
		if err := rows.Scan(&a.Sequence, &typ, &a.Timestamp, &a.PageURL, &payload, &viewport, &metadata); err != nil {
			return actions.Snapshot{}, errors.StorageFailed("scan action", err)
		}
		a.Type = actions.Type(typ)
		a.SessionID = sessionID
		if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
			return actions.Snapshot{}, errors.StorageFailed("decode payload", err)
		}
		if viewport.Valid {
			a.Viewport = &actions.Viewport{}
			if err := json.Unmarshal([]byte(viewport.String), a.Viewport); err != nil {
				return actions.Snapshot{}, errors.StorageFailed("decode viewport", err)
			}
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
				return actions.Snapshot{}, errors.StorageFailed("decode action metadata", err)
			}
		}
		snap.Actions = append(snap.Actions, a)
	}
	if err := rows.Err(); err != nil {
		return actions.Snapshot{}, errors.StorageFailed("load actions", err)
	}
	snap.Count = len(snap.Actions)
	return snap, nil
}

// List returns stored sessions, most recently saved first.
func (s *SQLiteArchive) List() ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errNotOpen("list")
	}

	rows, err := s.db.Query(`
		SELECT session_id, url, action_count, start_time, saved_at
		FROM sessions ORDER BY saved_at DESC, session_id
	`)
	if err != nil {
		return nil, errors.StorageFailed("list sessions", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var savedAt string
		if err := rows.Scan(&sum.SessionID, &sum.URL, &sum.ActionCount, &sum.StartTime, &savedAt); err != nil {
			return nil, errors.StorageFailed("scan session", err)
		}
		sum.SavedAt = parseTime(savedAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageFailed("list sessions", err)
	}
	return out, nil
}

// Delete removes a session and its actions.
func (s *SQLiteArchive) Delete(sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return false, errNotOpen("delete")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, errors.StorageFailed("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM actions WHERE session_id = ?`, sessionID); err != nil {
		return false, errors.StorageFailed("delete actions", err)
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, errors.StorageFailed("delete session", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return false, errors.StorageFailed("commit", err)
	}
	return n > 0, nil
}

// Close closes the database. Later calls fail until a new archive is made.
func (s *SQLiteArchive) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.StorageFailed("close database", err)
	}
	s.db = nil
	return nil
}

func errNotOpen(op string) error {
	return errors.StorageFailed(op, errors.New(errors.ErrCodeInternal, "archive is not open"))
}

// nullJSON encodes v, storing NULL for nil maps and pointers.
func nullJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case *actions.Viewport:
		if t == nil {
			return nil
		}
	case map[string]interface{}:
		if t == nil {
			return nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
