package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/rps-arena/internal/leaderboard"
	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/obslog"
)

var (
	ErrNotFinished    = errors.New("stats: match is not finished")
	ErrNotParticipant = errors.New("stats: participant not in match")
	ErrNoStats        = errors.New("stats: no stats for participant")
)

// Outcome of a finished match from one participant's point of view.
type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
	Tie  Outcome = "tie"
)

// ParticipantStats are the cumulative counters of one participant.
type ParticipantStats struct {
	ParticipantID string    `json:"participant_id"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Ties          int       `json:"ties"`
	TotalGames    int       `json:"total_games"`
	WinRate       float64   `json:"win_rate"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WinRate is wins/total as a percentage rounded to two decimals, 0 with no games.
func WinRate(wins, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(wins)/float64(total)*10000) / 100
}

// OutcomeFor compares the participant's round wins with the opponent's.
func OutcomeFor(participant string, rec *match.Record) (Outcome, error) {
	if rec == nil || rec.Status != match.StatusFinished {
		return "", ErrNotFinished
	}
	own, opp, ok := rec.ScoreFor(participant)
	if !ok {
		return "", ErrNotParticipant
	}
	switch {
	case own > opp:
		return Win, nil
	case own < opp:
		return Loss, nil
	default:
		return Tie, nil
	}
}

// Repository applies a ledgered increment. Apply must be atomic and report
// applied=false when (matchID, participant) was already recorded.
type Repository interface {
	Apply(ctx context.Context, participant, matchID string, o Outcome, at time.Time) (ParticipantStats, bool, error)
	Get(ctx context.Context, participant string) (ParticipantStats, error)
}

// Aggregator credits finished matches and mirrors the counters onto the leaderboard.
type Aggregator struct {
	repo  Repository
	board leaderboard.Board
	now   func() time.Time
}

func NewAggregator(repo Repository, board leaderboard.Board) *Aggregator {
	return &Aggregator{repo: repo, board: board, now: func() time.Time { return time.Now().UTC() }}
}

// RecordResult implements match.StatsRecorder.
func (a *Aggregator) RecordResult(ctx context.Context, participant string, rec *match.Record) error {
	participant = strings.TrimSpace(participant)
	o, err := OutcomeFor(participant, rec)
	if err != nil {
		return err
	}
	st, applied, err := a.repo.Apply(ctx, participant, rec.ID, o, a.now())
	if err != nil {
		return fmt.Errorf("apply stats %s/%s: %w", rec.ID, participant, err)
	}
	if applied {
		obslog.L().Info("stats_record",
			zap.String("match_id", rec.ID),
			zap.String("participant", participant),
			zap.String("outcome", string(o)),
			zap.Int("total_games", st.TotalGames),
			zap.Float64("win_rate", st.WinRate),
		)
	} else {
		obslog.L().Debug("stats_record_skip", zap.String("match_id", rec.ID), zap.String("participant", participant))
	}
	if a.board == nil {
		return nil
	}
	// retries resend the current counters; the board drops older snapshots
	if err := a.board.Upsert(ctx, leaderboard.Entry{
		ParticipantID: participant,
		TotalWins:     st.Wins,
		TotalGames:    st.TotalGames,
		WinRate:       st.WinRate,
		UpdatedAt:     st.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("leaderboard upsert %s: %w", participant, err)
	}
	return nil
}

// Get returns the stored counters, zero-valued when the participant has none.
func (a *Aggregator) Get(ctx context.Context, participant string) (ParticipantStats, error) {
	participant = strings.TrimSpace(participant)
	st, err := a.repo.Get(ctx, participant)
	if errors.Is(err, ErrNoStats) {
		return ParticipantStats{ParticipantID: participant}, nil
	}
	return st, err
}

// Replay rebuilds counters from records. Non-finished records and records
// without the participant are skipped.
func Replay(participant string, recs []*match.Record) ParticipantStats {
	st := ParticipantStats{ParticipantID: participant}
	for _, rec := range recs {
		o, err := OutcomeFor(participant, rec)
		if err != nil {
			continue
		}
		switch o {
		case Win:
			st.Wins++
		case Loss:
			st.Losses++
		default:
			st.Ties++
		}
		st.TotalGames++
		if at := rec.EndedAt(); at.After(st.UpdatedAt) {
			st.UpdatedAt = at
		}
	}
	st.WinRate = WinRate(st.Wins, st.TotalGames)
	return st
}

// Verify compares stored counters with a replay over recs.
func (a *Aggregator) Verify(ctx context.Context, participant string, recs []*match.Record) (bool, ParticipantStats, ParticipantStats, error) {
	stored, err := a.Get(ctx, participant)
	if err != nil {
		return false, stored, ParticipantStats{}, err
	}
	replayed := Replay(participant, recs)
	ok := stored.Wins == replayed.Wins &&
		stored.Losses == replayed.Losses &&
		stored.Ties == replayed.Ties &&
		stored.TotalGames == replayed.TotalGames
	if !ok {
		obslog.L().Warn("stats_verify_mismatch",
			zap.String("participant", participant),
			zap.Int("stored_total", stored.TotalGames),
			zap.Int("replayed_total", replayed.TotalGames),
		)
	}
	return ok, stored, replayed, nil
}

func applyOutcome(st *ParticipantStats, o Outcome, at time.Time) {
	switch o {
	case Win:
		st.Wins++
	case Loss:
		st.Losses++
	default:
		st.Ties++
	}
	st.TotalGames++
	st.WinRate = WinRate(st.Wins, st.TotalGames)
	st.UpdatedAt = at
}
