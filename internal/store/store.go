// Package store persists console sessions to sqlite: the ordered cells of
// each session and the submitted input history. The console reloads
// history from here across runs, and nbook export reads a recorded
// session back out.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"nbook/internal/cells"
	"nbook/internal/logging"
)

// Store is a sqlite-backed session store. Safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	log *zap.Logger
}

// Open creates or opens the database at path, creating parent directories
// and applying the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &Store{db: db, log: logging.Get(logging.CategoryStore)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Debug("store opened", zap.String("path", path))
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS session_cells (
	session_id  TEXT    NOT NULL,
	position    INTEGER NOT NULL,
	cell_id     TEXT    NOT NULL,
	cell_type   TEXT    NOT NULL,
	source      TEXT    NOT NULL,
	origin_file TEXT    NOT NULL DEFAULT '',
	origin_line INTEGER NOT NULL DEFAULT 0,
	state       TEXT    NOT NULL,
	version     TEXT    NOT NULL DEFAULT '',
	outputs     TEXT    NOT NULL DEFAULT '[]',
	PRIMARY KEY (session_id, position)
);
CREATE TABLE IF NOT EXISTS input_history (
	session_id TEXT NOT NULL,
	entry      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_session ON input_history(session_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateSession registers a session id. Idempotent.
func (s *Store) CreateSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)",
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", id, err)
	}
	return nil
}

// LatestSessionID returns the most recently created session id, or "" when
// the store is empty.
func (s *Store) LatestSessionID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRow(
		"SELECT id FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT 1",
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest session: %w", err)
	}
	return id, nil
}

// AppendCell stores a cell at the given position within a session.
// Re-appending the same position overwrites, which is how State and
// Outputs updates land after execution settles.
func (s *Store) AppendCell(sessionID string, position int, c *cells.Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outputs, err := json.Marshal(c.Outputs)
	if err != nil {
		return fmt.Errorf("failed to encode outputs for cell %s: %w", c.ID, err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO session_cells
		 (session_id, position, cell_id, cell_type, source, origin_file, origin_line, state, version, outputs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, position, c.ID, string(c.Type), c.Source.String(),
		c.File, c.Line, string(c.State), c.Version, string(outputs),
	)
	if err != nil {
		return fmt.Errorf("failed to store cell %s: %w", c.ID, err)
	}
	s.log.Debug("cell stored",
		zap.String("session", sessionID),
		zap.Int("position", position),
		zap.String("type", string(c.Type)))
	return nil
}

// Cells loads a session's cells in position order.
func (s *Store) Cells(sessionID string) ([]*cells.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT cell_id, cell_type, source, origin_file, origin_line, state, version, outputs
		 FROM session_cells
		 WHERE session_id = ?
		 ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cells for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []*cells.Cell
	for rows.Next() {
		var (
			c          cells.Cell
			cellType   string
			source     string
			state      string
			outputsRaw string
		)
		if err := rows.Scan(&c.ID, &cellType, &source, &c.File, &c.Line, &state, &c.Version, &outputsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan cell row: %w", err)
		}
		c.Type = cells.CellType(cellType)
		c.State = cells.State(state)
		c.Source = cells.SourceFromString(source)
		if err := json.Unmarshal([]byte(outputsRaw), &c.Outputs); err != nil {
			return nil, fmt.Errorf("failed to decode outputs for cell %s: %w", c.ID, err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// AppendHistory records a submitted input line for a session.
func (s *Store) AppendHistory(sessionID, entry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO input_history (session_id, entry, created_at) VALUES (?, ?, ?)",
		sessionID, entry, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store history entry: %w", err)
	}
	return nil
}

// History returns up to limit most recent entries for a session,
// oldest-first, ready to replay into a history navigator.
func (s *Store) History(sessionID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.db.Query(
		`SELECT entry FROM (
			SELECT rowid, entry FROM input_history
			WHERE session_id = ?
			ORDER BY rowid DESC
			LIMIT ?
		 ) ORDER BY rowid ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []string
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
