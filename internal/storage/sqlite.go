// Package storage provides SQLite-based persistence for finished snake sessions.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/netsnake/internal/session"
)

// Store manages the SQLite database connection for session results.
type Store struct {
	db *sql.DB
}

// SessionResult is one finished session.
type SessionResult struct {
	ID          int64
	SessionID   string
	Width       int
	Height      int
	Mode        string // "standard" or "timed"
	World       string // "open" or "obstacles"
	TimeLimit   int    // seconds, 0 in standard mode
	Fruits      int
	Length      int
	ElapsedSecs int
	EndReason   string // "self", "wall", "time up", "quit", "disconnect", ...
	Ticks       int64
	CreatedAt   time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL UNIQUE,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			mode TEXT NOT NULL,
			world TEXT NOT NULL,
			time_limit_secs INTEGER NOT NULL DEFAULT 0,
			fruits INTEGER NOT NULL DEFAULT 0,
			length INTEGER NOT NULL DEFAULT 1,
			elapsed_secs INTEGER NOT NULL DEFAULT 0,
			end_reason TEXT NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_session_results_mode ON session_results(mode);
		CREATE INDEX IF NOT EXISTS idx_session_results_top ON session_results(mode, fruits DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSessionResult records a finished session.
// Returns the ID of the inserted record.
func (s *Store) SaveSessionResult(r SessionResult) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO session_results
		 (session_id, width, height, mode, world, time_limit_secs, fruits, length, elapsed_secs, end_reason, ticks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID,
		r.Width,
		r.Height,
		r.Mode,
		r.World,
		r.TimeLimit,
		r.Fruits,
		r.Length,
		r.ElapsedSecs,
		r.EndReason,
		r.Ticks,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save session result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

const resultColumns = `id, session_id, width, height, mode, world, time_limit_secs,
		fruits, length, elapsed_secs, end_reason, ticks, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (SessionResult, error) {
	var r SessionResult
	var createdAt any
	err := row.Scan(
		&r.ID,
		&r.SessionID,
		&r.Width,
		&r.Height,
		&r.Mode,
		&r.World,
		&r.TimeLimit,
		&r.Fruits,
		&r.Length,
		&r.ElapsedSecs,
		&r.EndReason,
		&r.Ticks,
		&createdAt,
	)
	if err != nil {
		return r, err
	}
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// parseTime handles both time.Time and the SQLite text timestamp.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func (s *Store) queryResults(query string, args ...any) ([]SessionResult, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query results: %w", err)
	}
	defer rows.Close()

	var results []SessionResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

// TopResults retrieves the best N sessions, most fruits first and shorter
// play time breaking ties. An empty mode matches every mode.
func (s *Store) TopResults(mode string, limit int) ([]SessionResult, error) {
	if limit <= 0 {
		limit = 10
	}

	return s.queryResults(
		`SELECT `+resultColumns+`
		 FROM session_results
		 WHERE ? = '' OR mode = ?
		 ORDER BY fruits DESC, elapsed_secs ASC, id ASC
		 LIMIT ?`,
		mode, mode, limit,
	)
}

// RecentResults retrieves the most recent sessions.
func (s *Store) RecentResults(limit int) ([]SessionResult, error) {
	if limit <= 0 {
		limit = 20
	}

	return s.queryResults(
		`SELECT `+resultColumns+`
		 FROM session_results
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
}

// ResultBySession retrieves a result by its session ID.
// Returns nil if no such session was recorded.
func (s *Store) ResultBySession(sessionID string) (*SessionResult, error) {
	row := s.db.QueryRow(
		`SELECT `+resultColumns+` FROM session_results WHERE session_id = ?`,
		sessionID,
	)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query session result: %w", err)
	}
	return &r, nil
}

// BestResult returns the highest fruit count for a mode ("" for all).
// Returns 0 if no results exist.
func (s *Store) BestResult(mode string) (int, error) {
	var best sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(fruits) FROM session_results WHERE ? = '' OR mode = ?",
		mode, mode,
	).Scan(&best)

	if err != nil {
		return 0, fmt.Errorf("storage: cannot query best result: %w", err)
	}

	if !best.Valid {
		return 0, nil
	}

	return int(best.Int64), nil
}

// ClearResults deletes every recorded session.
func (s *Store) ClearResults() error {
	_, err := s.db.Exec("DELETE FROM session_results")
	if err != nil {
		return fmt.Errorf("storage: cannot clear results: %w", err)
	}
	return nil
}

// SaveResult implements session.ResultSaver.
// This adapter allows the server to save results without direct storage dependency.
func (s *Store) SaveResult(res session.Result) error {
	_, err := s.SaveSessionResult(SessionResult{
		SessionID:   string(res.SessionID),
		Width:       res.Width,
		Height:      res.Height,
		Mode:        res.Mode.String(),
		World:       res.World.String(),
		TimeLimit:   int(res.TimeLimit / time.Second),
		Fruits:      res.Fruits,
		Length:      res.Length,
		ElapsedSecs: int(res.Elapsed / time.Second),
		EndReason:   res.Describe(),
		Ticks:       int64(res.Ticks), //nolint:gosec // tick counts stay far below MaxInt64
	})
	return err
}

// Ensure Store implements ResultSaver
var _ session.ResultSaver = (*Store)(nil)

// Stats contains aggregated statistics over all sessions.
type Stats struct {
	Sessions    int
	BestFruits  int
	AvgFruits   float64
	TotalFruits int64
	PlaySecs    int64
	ByReason    map[string]int
	LastPlayed  time.Time
}

// Stats retrieves aggregated statistics.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByReason: make(map[string]int)}

	var lastPlayed any
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(fruits), 0), COALESCE(AVG(fruits), 0),
		        COALESCE(SUM(fruits), 0), COALESCE(SUM(elapsed_secs), 0), MAX(created_at)
		 FROM session_results`,
	).Scan(&stats.Sessions, &stats.BestFruits, &stats.AvgFruits, &stats.TotalFruits, &stats.PlaySecs, &lastPlayed)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get stats: %w", err)
	}
	stats.LastPlayed = parseTime(lastPlayed)

	rows, err := s.db.Query(`SELECT end_reason, COUNT(*) FROM session_results GROUP BY end_reason`)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get reason stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		stats.ByReason[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}
