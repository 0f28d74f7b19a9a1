package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS rps_stats_ledger (
	match_id       TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	recorded_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (match_id, participant_id)
);
CREATE TABLE IF NOT EXISTS rps_participant_stats (
	participant_id TEXT PRIMARY KEY,
	wins           INTEGER NOT NULL DEFAULT 0,
	losses         INTEGER NOT NULL DEFAULT 0,
	ties           INTEGER NOT NULL DEFAULT 0,
	total_games    INTEGER NOT NULL DEFAULT 0,
	win_rate       NUMERIC(5,2) NOT NULL DEFAULT 0,
	updated_at     TIMESTAMPTZ NOT NULL
);
`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the ledger and counter tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure stats schema: %w", err)
	}
	return nil
}

func (r *repository) Apply(ctx context.Context, participant, matchID string, o Outcome, at time.Time) (ParticipantStats, bool, error) {
	participant = strings.TrimSpace(participant)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ParticipantStats{}, false, fmt.Errorf("begin stats tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO rps_stats_ledger (match_id, participant_id, outcome, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id, participant_id) DO NOTHING`,
		strings.TrimSpace(matchID), participant, string(o), at,
	)
	if err != nil {
		return ParticipantStats{}, false, fmt.Errorf("insert ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ParticipantStats{}, false, fmt.Errorf("ledger rows: %w", err)
	}
	if n == 0 {
		st, err := scanStats(tx.QueryRowContext(ctx, selectStats, participant))
		if errors.Is(err, sql.ErrNoRows) {
			return ParticipantStats{ParticipantID: participant}, false, nil
		}
		if err != nil {
			return ParticipantStats{}, false, fmt.Errorf("select stats: %w", err)
		}
		return st, false, nil
	}

	var w, l, t int
	switch o {
	case Win:
		w = 1
	case Loss:
		l = 1
	default:
		t = 1
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO rps_participant_stats (participant_id, wins, losses, ties, total_games, win_rate, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (participant_id) DO UPDATE SET
			wins        = rps_participant_stats.wins + EXCLUDED.wins,
			losses      = rps_participant_stats.losses + EXCLUDED.losses,
			ties        = rps_participant_stats.ties + EXCLUDED.ties,
			total_games = rps_participant_stats.total_games + 1,
			win_rate    = ROUND((rps_participant_stats.wins + EXCLUDED.wins) * 100.0 / (rps_participant_stats.total_games + 1), 2),
			updated_at  = EXCLUDED.updated_at
		RETURNING participant_id, wins, losses, ties, total_games, win_rate, updated_at`,
		participant, w, l, t, WinRate(w, 1), at,
	)
	st, err := scanStats(row)
	if err != nil {
		return ParticipantStats{}, false, fmt.Errorf("upsert stats: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ParticipantStats{}, false, fmt.Errorf("commit stats: %w", err)
	}
	return st, true, nil
}

const selectStats = `
	SELECT participant_id, wins, losses, ties, total_games, win_rate, updated_at
	FROM rps_participant_stats WHERE participant_id = $1`

func (r *repository) Get(ctx context.Context, participant string) (ParticipantStats, error) {
	st, err := scanStats(r.db.QueryRowContext(ctx, selectStats, strings.TrimSpace(participant)))
	if errors.Is(err, sql.ErrNoRows) {
		return ParticipantStats{}, ErrNoStats
	}
	if err != nil {
		return ParticipantStats{}, fmt.Errorf("select stats: %w", err)
	}
	return st, nil
}

func scanStats(row *sql.Row) (ParticipantStats, error) {
	var st ParticipantStats
	err := row.Scan(&st.ParticipantID, &st.Wins, &st.Losses, &st.Ties, &st.TotalGames, &st.WinRate, &st.UpdatedAt)
	return st, err
}
