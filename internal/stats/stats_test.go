package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/rps-arena/internal/leaderboard"
	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/rps"
)

func finished(id, a, b string, outcomes ...rps.Outcome) *match.Record {
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rounds := make([]match.Round, 0, len(outcomes))
	for i, o := range outcomes {
		rounds = append(rounds, match.Round{Number: i + 1, Outcome: o})
	}
	return &match.Record{
		ID: id, Mode: match.ModeEndless, PlayerA: a, PlayerB: b,
		Rounds: rounds, Score: match.ScoreOf(rounds),
		Status: match.StatusFinished, FinishedAt: &at,
	}
}

func TestWinRate(t *testing.T) {
	cases := []struct {
		w, n int
		want float64
	}{
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{5, 5, 100},
		{0, 7, 0},
	}
	for _, tc := range cases {
		if got := WinRate(tc.w, tc.n); got != tc.want {
			t.Fatalf("WinRate(%d,%d)=%v want %v", tc.w, tc.n, got, tc.want)
		}
	}
}

func TestOutcomeFor(t *testing.T) {
	rec := finished("m1", "a", "b", rps.OutcomeA, rps.OutcomeB, rps.OutcomeA)
	if o, _ := OutcomeFor("a", rec); o != Win {
		t.Fatalf("a: %s", o)
	}
	if o, _ := OutcomeFor("b", rec); o != Loss {
		t.Fatalf("b: %s", o)
	}
	tie := finished("m2", "a", "b", rps.OutcomeTie)
	if o, _ := OutcomeFor("b", tie); o != Tie {
		t.Fatalf("tie: %s", o)
	}
	if _, err := OutcomeFor("c", rec); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider: %v", err)
	}
	rec.Status = match.StatusAbandoned
	if _, err := OutcomeFor("a", rec); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("abandoned: %v", err)
	}
}

func TestRecordResultIdempotentAndMirrorsBoard(t *testing.T) {
	board := leaderboard.NewMemoryBoard()
	agg := NewAggregator(NewMemoryRepository(), board)
	ctx := context.Background()

	recs := []*match.Record{
		finished("m1", "a", "b", rps.OutcomeA),
		finished("m2", "b", "a", rps.OutcomeA),
		finished("m3", "a", "b", rps.OutcomeTie),
	}
	for _, rec := range recs {
		for i := 0; i < 2; i++ {
			for _, p := range rec.Players() {
				if err := agg.RecordResult(ctx, p, rec); err != nil {
					t.Fatalf("RecordResult(%s,%s): %v", rec.ID, p, err)
				}
			}
		}
	}
	st, err := agg.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Wins != 1 || st.Losses != 1 || st.Ties != 1 || st.TotalGames != 3 || st.WinRate != 33.33 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.Wins+st.Losses+st.Ties != st.TotalGames {
		t.Fatalf("counters out of balance: %+v", st)
	}

	top, _ := board.Top(ctx, leaderboard.Query{Now: st.UpdatedAt})
	if len(top) != 2 || top[0].TotalGames != 3 {
		t.Fatalf("board: %+v", top)
	}

	ok, stored, replayed, err := agg.Verify(ctx, "a", recs)
	if err != nil || !ok {
		t.Fatalf("Verify: ok=%v stored=%+v replayed=%+v err=%v", ok, stored, replayed, err)
	}
}

func TestRecordResultRejectsAbandoned(t *testing.T) {
	agg := NewAggregator(NewMemoryRepository(), nil)
	rec := finished("m1", "a", "b", rps.OutcomeA)
	rec.Status = match.StatusAbandoned
	if err := agg.RecordResult(context.Background(), "a", rec); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected ErrNotFinished, got %v", err)
	}
	st, err := agg.Get(context.Background(), "a")
	if err != nil || st.TotalGames != 0 {
		t.Fatalf("abandoned match counted: %+v %v", st, err)
	}
}

func TestReplaySkipsAbandoned(t *testing.T) {
	recs := []*match.Record{
		finished("m1", "a", "b", rps.OutcomeA, rps.OutcomeA),
		finished("m2", "a", "c", rps.OutcomeB),
		finished("m3", "d", "e", rps.OutcomeB),
	}
	gone := finished("m4", "a", "b", rps.OutcomeA)
	gone.Status = match.StatusAbandoned
	recs = append(recs, gone)

	st := Replay("a", recs)
	if st.Wins != 1 || st.Losses != 1 || st.TotalGames != 2 || st.WinRate != 50 {
		t.Fatalf("replay: %+v", st)
	}
}

func TestVerifyDetectsMismatch(t *testing.T) {
	agg := NewAggregator(NewMemoryRepository(), nil)
	ctx := context.Background()
	rec := finished("m1", "a", "b", rps.OutcomeA)
	if err := agg.RecordResult(ctx, "a", rec); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	ok, _, _, err := agg.Verify(ctx, "a", nil)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}
