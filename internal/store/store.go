package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store journals LLM exchanges to SQLite. Application state is not
// persisted here; this is a debugging aid.
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS llm_exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL, -- unix millis
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		mode TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT,
		error TEXT,
		duration_ms INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_llm_exchanges_timestamp ON llm_exchanges(timestamp);
	CREATE INDEX IF NOT EXISTS idx_llm_exchanges_mode ON llm_exchanges(mode);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveExchange appends an exchange to the journal
func (s *Store) SaveExchange(ctx context.Context, e LLMExchange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_exchanges (timestamp, provider, model, mode, prompt, response, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Timestamp.UnixMilli(), e.Provider, e.Model, e.Mode, e.Prompt, e.Response, e.Error, e.Duration.Milliseconds())

	return err
}

// RecentExchanges returns up to limit exchanges, newest first. An empty mode
// matches every mode.
func (s *Store) RecentExchanges(ctx context.Context, mode string, limit int) ([]LLMExchange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, provider, model, mode, prompt,
			COALESCE(response, ''), COALESCE(error, ''), COALESCE(duration_ms, 0)
		FROM llm_exchanges
		WHERE ? = '' OR mode = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, mode, mode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []LLMExchange
	for rows.Next() {
		var e LLMExchange
		var tsMS, durationMS int64

		err := rows.Scan(
			&e.ID, &tsMS, &e.Provider, &e.Model, &e.Mode, &e.Prompt,
			&e.Response, &e.Error, &durationMS,
		)
		if err != nil {
			return nil, err
		}

		e.Timestamp = time.UnixMilli(tsMS)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}

// CountFailures returns how many exchanges since the given time ended in an error
func (s *Store) CountFailures(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM llm_exchanges WHERE error != '' AND timestamp >= ?
	`, since.UnixMilli()).Scan(&n)
	return n, err
}
