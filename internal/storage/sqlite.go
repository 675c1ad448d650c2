// Package storage provides SQLite-based persistence for finished matches.
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

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/pong"
)

// Store manages the SQLite database connection for match history.
type Store struct {
	db *sql.DB
}

// MatchRecord is one row of the match history.
type MatchRecord struct {
	ID           int64
	MatchID      string
	Mode         string
	LeftID       string
	LeftType     string
	RightID      string
	RightType    string
	LeftScore    int
	RightScore   int
	WinnerSide   string
	StartedAt    time.Time
	EndedAt      time.Time
	DurationSecs int
	CreatedAt    time.Time
}

// WinnerID returns the id of the winning participant.
func (r MatchRecord) WinnerID() string {
	switch r.WinnerSide {
	case string(pong.SideLeft):
		return r.LeftID
	case string(pong.SideRight):
		return r.RightID
	default:
		return ""
	}
}

// Result converts the record back into a match result.
func (r MatchRecord) Result() multiplayer.MatchResult {
	return multiplayer.MatchResult{
		MatchID: multiplayer.MatchID(r.MatchID),
		Mode:    pong.Mode(r.Mode),
		Players: multiplayer.Players{
			Left:  multiplayer.PlayerRef{ID: r.LeftID, Kind: multiplayer.ControllerKind(r.LeftType)},
			Right: multiplayer.PlayerRef{ID: r.RightID, Kind: multiplayer.ControllerKind(r.RightType)},
		},
		Score:     pong.Score{Left: r.LeftScore, Right: r.RightScore},
		Winner:    pong.Side(r.WinnerSide),
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		Duration:  r.EndedAt.Sub(r.StartedAt),
	}
}

// RecordFromResult flattens a match result into a history row.
func RecordFromResult(res multiplayer.MatchResult) MatchRecord {
	return MatchRecord{
		MatchID:      string(res.MatchID),
		Mode:         string(res.Mode),
		LeftID:       res.Players.Left.ID,
		LeftType:     string(res.Players.Left.Kind),
		RightID:      res.Players.Right.ID,
		RightType:    string(res.Players.Right.Kind),
		LeftScore:    res.Score.Left,
		RightScore:   res.Score.Right,
		WinnerSide:   string(res.Winner),
		StartedAt:    res.StartedAt,
		EndedAt:      res.EndedAt,
		DurationSecs: res.DurationSeconds(),
	}
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
		CREATE TABLE IF NOT EXISTS match_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL,
			left_id TEXT NOT NULL,
			left_type TEXT NOT NULL,
			right_id TEXT NOT NULL,
			right_type TEXT NOT NULL,
			left_score INTEGER NOT NULL DEFAULT 0,
			right_score INTEGER NOT NULL DEFAULT 0,
			winner_side TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_match_history_left ON match_history(left_id);
		CREATE INDEX IF NOT EXISTS idx_match_history_right ON match_history(right_id);
		CREATE INDEX IF NOT EXISTS idx_match_history_ended ON match_history(ended_at DESC);
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

// SaveMatch records a finished match.
// Returns the ID of the inserted record.
func (s *Store) SaveMatch(r MatchRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO match_history
		 (match_id, mode, left_id, left_type, right_id, right_type,
		  left_score, right_score, winner_side, started_at, ended_at, duration_secs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MatchID,
		r.Mode,
		r.LeftID,
		r.LeftType,
		r.RightID,
		r.RightType,
		r.LeftScore,
		r.RightScore,
		r.WinnerSide,
		r.StartedAt.UnixMilli(),
		r.EndedAt.UnixMilli(),
		r.DurationSecs,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// SaveMatchResult implements multiplayer.ResultSink.
func (s *Store) SaveMatchResult(res multiplayer.MatchResult) error {
	_, err := s.SaveMatch(RecordFromResult(res))
	return err
}

// Ensure Store implements ResultSink
var _ multiplayer.ResultSink = (*Store)(nil)

const selectColumns = `SELECT id, match_id, mode, left_id, left_type, right_id, right_type,
	left_score, right_score, winner_side, started_at, ended_at, duration_secs, created_at
	FROM match_history`

// MatchByID retrieves a match by its match ID. Returns nil if absent.
func (s *Store) MatchByID(matchID string) (*MatchRecord, error) {
	row := s.db.QueryRow(selectColumns+` WHERE match_id = ?`, matchID)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match: %w", err)
	}
	return &r, nil
}

// RecentMatches retrieves the most recently finished matches.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		selectColumns+` ORDER BY ended_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	return collect(rows)
}

// PlayerHistory retrieves the most recent matches a participant played.
func (s *Store) PlayerHistory(playerID string, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		selectColumns+` WHERE left_id = ? OR right_id = ?
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`,
		playerID, playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query player matches: %w", err)
	}
	return collect(rows)
}

// PlayerStats aggregates wins and losses of a participant.
func (s *Store) PlayerStats(playerID string) (multiplayer.PlayerStats, error) {
	var stats multiplayer.PlayerStats
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE
		            WHEN left_id = ? AND winner_side = 'left' THEN 1
		            WHEN right_id = ? AND winner_side = 'right' THEN 1
		            ELSE 0 END), 0)
		 FROM match_history
		 WHERE left_id = ? OR right_id = ?`,
		playerID, playerID, playerID, playerID,
	).Scan(&stats.TotalGames, &stats.Wins)
	if err != nil {
		return multiplayer.PlayerStats{}, fmt.Errorf("storage: cannot get player stats: %w", err)
	}

	stats.Losses = stats.TotalGames - stats.Wins
	if stats.TotalGames > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalGames) * 100
	}
	return stats, nil
}

// MatchCount returns the number of stored matches.
func (s *Store) MatchCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM match_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: cannot count matches: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (MatchRecord, error) {
	var r MatchRecord
	var startedAt, endedAt int64
	var createdAt any

	err := sc.Scan(
		&r.ID,
		&r.MatchID,
		&r.Mode,
		&r.LeftID,
		&r.LeftType,
		&r.RightID,
		&r.RightType,
		&r.LeftScore,
		&r.RightScore,
		&r.WinnerSide,
		&startedAt,
		&endedAt,
		&r.DurationSecs,
		&createdAt,
	)
	if err != nil {
		return MatchRecord{}, err
	}

	r.StartedAt = time.UnixMilli(startedAt).UTC()
	r.EndedAt = time.UnixMilli(endedAt).UTC()
	r.CreatedAt = parseTimestamp(createdAt)
	return r, nil
}

func collect(rows *sql.Rows) ([]MatchRecord, error) {
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return records, nil
}

// parseTimestamp handles both time.Time and string datetimes.
func parseTimestamp(v any) time.Time {
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
