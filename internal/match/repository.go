package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// ErrRecordNotFound is returned by GetRecord for unknown match ids.
var ErrRecordNotFound = &Error{Kind: KindNotFound, Code: "record_not_found", Msg: "match record not found"}

// Repository persists terminal match records.
type Repository interface {
	// SaveRecord is idempotent per match id.
	SaveRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, matchID string) (*Record, error)
	// History lists finished matches of participant, newest first, with the total count.
	History(ctx context.Context, participant string, page, limit int) ([]*Record, int, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS rps_matches (
	match_id     TEXT PRIMARY KEY,
	mode         TEXT NOT NULL,
	player_a     TEXT NOT NULL,
	player_b     TEXT NOT NULL,
	status       TEXT NOT NULL,
	computer     BOOLEAN NOT NULL DEFAULT FALSE,
	rounds       JSONB NOT NULL,
	score_a      INTEGER NOT NULL,
	score_b      INTEGER NOT NULL,
	ties         INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	abandoned_by TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS rps_matches_player_a_idx ON rps_matches (player_a, ended_at DESC);
CREATE INDEX IF NOT EXISTS rps_matches_player_b_idx ON rps_matches (player_b, ended_at DESC);
`

type repository struct {
	db *sql.DB
}

// OpenDB opens and pings a Postgres pool.
func OpenDB(databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the match table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure rps_matches schema: %w", err)
	}
	return nil
}

func (r *repository) SaveRecord(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("nil match record")
	}
	if !rec.Status.Terminal() {
		return fmt.Errorf("save match %s: status %s is not terminal", rec.ID, rec.Status)
	}
	rounds, err := json.Marshal(rec.Rounds)
	if err != nil {
		return fmt.Errorf("marshal rounds: %w", err)
	}

	const query = `
		INSERT INTO rps_matches (
			match_id, mode, player_a, player_b, status, computer,
			rounds, score_a, score_b, ties, created_at, ended_at, abandoned_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (match_id) DO NOTHING`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.Mode),
		rec.PlayerA,
		rec.PlayerB,
		string(rec.Status),
		rec.Computer,
		rounds,
		rec.Score.A,
		rec.Score.B,
		rec.Score.Ties,
		rec.CreatedAt,
		rec.EndedAt(),
		rec.AbandonedBy,
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `
	match_id, mode, player_a, player_b, status, computer,
	rounds, created_at, ended_at, abandoned_by`

func (r *repository) GetRecord(ctx context.Context, matchID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+selectColumns+` FROM rps_matches WHERE match_id = $1`, strings.TrimSpace(matchID))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select match %s: %w", matchID, err)
	}
	return rec, nil
}

func (r *repository) History(ctx context.Context, participant string, page, limit int) ([]*Record, int, error) {
	page, limit = normalizePage(page, limit)
	participant = strings.TrimSpace(participant)

	var total int
	const countQuery = `
		SELECT COUNT(*) FROM rps_matches
		WHERE status = 'finished' AND (player_a = $1 OR player_b = $1)`
	if err := r.db.QueryRowContext(ctx, countQuery, participant).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	query := `SELECT` + selectColumns + `
		FROM rps_matches
		WHERE status = 'finished' AND (player_a = $1 OR player_b = $1)
		ORDER BY ended_at DESC, match_id
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, participant, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	out := make([]*Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate history: %w", err)
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		mode       string
		status     string
		roundsJSON []byte
		endedAt    time.Time
	)
	if err := row.Scan(
		&rec.ID, &mode, &rec.PlayerA, &rec.PlayerB, &status, &rec.Computer,
		&roundsJSON, &rec.CreatedAt, &endedAt, &rec.AbandonedBy,
	); err != nil {
		return nil, err
	}
	rec.Mode = Mode(mode)
	rec.Status = Status(status)
	if len(roundsJSON) > 0 {
		if err := json.Unmarshal(roundsJSON, &rec.Rounds); err != nil {
			return nil, fmt.Errorf("unmarshal rounds: %w", err)
		}
	}
	if rec.Rounds == nil {
		rec.Rounds = []Round{}
	}
	rec.Score = ScoreOf(rec.Rounds)
	switch rec.Status {
	case StatusFinished:
		rec.FinishedAt = &endedAt
	case StatusAbandoned:
		rec.AbandonedAt = &endedAt
	}
	return &rec, nil
}

// normalizePage clamps paging to page >= 1 and 1 <= limit <= 100 (default 20).
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
