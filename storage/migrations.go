package storage

import (
	"fmt"
)

// migration is one numbered schema step.
type migration struct {
	version int
	name    string
	up      func() error
}

func (s *SQLiteArchive) migrations() []migration {
	return []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "action_type_index", up: s.migration002ActionTypeIndex},
	}
}

// runMigrations applies every migration newer than the recorded version.
func (s *SQLiteArchive) runMigrations() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	for _, m := range s.migrations() {
		if version >= m.version {
			continue
		}
		s.logger.WithField("version", m.version).Debugf("Running migration %s", m.name)
		if err := m.up(); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// schemaVersion returns the highest applied migration, 0 for a new database.
func (s *SQLiteArchive) schemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *SQLiteArchive) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			url TEXT NOT NULL DEFAULT '',
			start_time INTEGER NOT NULL DEFAULT 0,
			last_action_time INTEGER NOT NULL DEFAULT 0,
			action_count INTEGER NOT NULL DEFAULT 0,
			saved_at TEXT NOT NULL,
			metadata TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS actions (
			session_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			page_url TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			viewport TEXT,
			metadata TEXT,
			PRIMARY KEY (session_id, sequence)
		)
	`); err != nil {
		return fmt.Errorf("failed to create actions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sessions_saved_at
		ON sessions(saved_at DESC)
	`); err != nil {
		return fmt.Errorf("failed to create sessions saved_at index: %w", err)
	}
	return nil
}

func (s *SQLiteArchive) migration002ActionTypeIndex() error {
	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_actions_type
		ON actions(session_id, type)
	`); err != nil {
		return fmt.Errorf("failed to create actions type index: %w", err)
	}
	return nil
}
