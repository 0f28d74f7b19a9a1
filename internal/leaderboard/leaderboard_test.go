package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisBoard(t *testing.T) *RedisBoard {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisBoard(rdb)
}

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, b Board) {
	t.Helper()
	ctx := context.Background()
	entries := []Entry{
		{ParticipantID: "ann", TotalWins: 3, TotalGames: 4, WinRate: 75, UpdatedAt: now.Add(-2 * time.Hour)},
		{ParticipantID: "ben", TotalWins: 10, TotalGames: 20, WinRate: 50, UpdatedAt: now.Add(-3 * 24 * time.Hour)},
		{ParticipantID: "cid", TotalWins: 1, TotalGames: 1, WinRate: 100, UpdatedAt: now.Add(-20 * 24 * time.Hour)},
		{ParticipantID: "dot", TotalWins: 6, TotalGames: 30, WinRate: 20, UpdatedAt: now.Add(-90 * 24 * time.Hour)},
	}
	for _, e := range entries {
		if err := b.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert(%s): %v", e.ParticipantID, err)
		}
	}
}

func names(es []Entry) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ParticipantID)
	}
	return out
}

func checkBoard(t *testing.T, b Board) {
	t.Helper()
	seed(t, b)
	ctx := context.Background()
	cases := []struct {
		q    Query
		want []string
	}{
		{Query{Window: WindowAllTime, SortBy: SortWinRate, Now: now}, []string{"cid", "ann", "ben", "dot"}},
		{Query{Window: WindowAllTime, SortBy: SortTotalWins, Now: now}, []string{"ben", "dot", "ann", "cid"}},
		{Query{Window: WindowAllTime, SortBy: SortTotalGames, Limit: 2, Now: now}, []string{"dot", "ben"}},
		{Query{Window: WindowDaily, SortBy: SortWinRate, Now: now}, []string{"ann"}},
		{Query{Window: WindowWeekly, SortBy: SortTotalWins, Now: now}, []string{"ben", "ann"}},
		{Query{Window: WindowMonthly, SortBy: SortWinRate, Now: now}, []string{"cid", "ann", "ben"}},
	}
	for _, tc := range cases {
		got, err := b.Top(ctx, tc.q)
		if err != nil {
			t.Fatalf("Top(%+v): %v", tc.q, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("Top(%s/%s): got %v want %v", tc.q.Window, tc.q.SortBy, names(got), tc.want)
		}
		for i := range got {
			if got[i].ParticipantID != tc.want[i] || got[i].Rank != i+1 {
				t.Fatalf("Top(%s/%s): got %v want %v", tc.q.Window, tc.q.SortBy, names(got), tc.want)
			}
		}
	}

	// upsert replaces, never duplicates
	if err := b.Upsert(ctx, Entry{ParticipantID: "dot", TotalWins: 7, TotalGames: 31, WinRate: 22.58, UpdatedAt: now}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, _ := b.Top(ctx, Query{Window: WindowDaily, Now: now})
	if len(got) != 2 || got[1].ParticipantID != "dot" || got[1].TotalWins != 7 {
		t.Fatalf("after upsert: %+v", got)
	}
}

func TestMemoryBoard(t *testing.T) { checkBoard(t, NewMemoryBoard()) }

func TestRedisBoard(t *testing.T) { checkBoard(t, newTestRedisBoard(t)) }

func TestRedisBoardEmpty(t *testing.T) {
	b := newTestRedisBoard(t)
	got, err := b.Top(context.Background(), Query{})
	if err != nil || len(got) != 0 {
		t.Fatalf("empty board: %v %v", got, err)
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("", "", "")
	if err != nil || q.Window != WindowAllTime || q.SortBy != SortWinRate || q.Limit != MaxLimit {
		t.Fatalf("defaults: %+v %v", q, err)
	}
	q, err = ParseQuery("Weekly", "total_games", "500")
	if err != nil || q.Window != WindowWeekly || q.SortBy != SortTotalGames || q.Limit != MaxLimit {
		t.Fatalf("clamped: %+v %v", q, err)
	}
	if _, err := ParseQuery("yearly", "", ""); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("bad filter: %v", err)
	}
	if _, err := ParseQuery("", "losses", ""); !errors.Is(err, ErrInvalidSort) {
		t.Fatalf("bad sort: %v", err)
	}
	if _, err := ParseQuery("", "", "-1"); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("bad limit: %v", err)
	}
}

func checkStaleUpsert(t *testing.T, b Board) {
	t.Helper()
	ctx := context.Background()
	fresh := Entry{ParticipantID: "eve", TotalWins: 3, TotalGames: 5, WinRate: 60, UpdatedAt: now}
	stale := Entry{ParticipantID: "eve", TotalWins: 2, TotalGames: 4, WinRate: 50, UpdatedAt: now.Add(-time.Minute)}
	if err := b.Upsert(ctx, fresh); err != nil {
		t.Fatalf("Upsert fresh: %v", err)
	}
	if err := b.Upsert(ctx, stale); err != nil {
		t.Fatalf("Upsert stale: %v", err)
	}
	got, err := b.Top(ctx, Query{Now: now})
	if err != nil || len(got) != 1 {
		t.Fatalf("Top: %+v %v", got, err)
	}
	if got[0].TotalGames != 5 || got[0].TotalWins != 3 {
		t.Fatalf("older snapshot overwrote newer entry: %+v", got[0])
	}
	// same game count is a retry of the same counters and still applies
	retry := fresh
	retry.UpdatedAt = now.Add(time.Second)
	if err := b.Upsert(ctx, retry); err != nil {
		t.Fatalf("Upsert retry: %v", err)
	}
	got, _ = b.Top(ctx, Query{Now: now.Add(time.Second)})
	if !got[0].UpdatedAt.Equal(retry.UpdatedAt) {
		t.Fatalf("equal-count upsert skipped: %+v", got[0])
	}
}

func TestMemoryBoardIgnoresStaleUpsert(t *testing.T) { checkStaleUpsert(t, NewMemoryBoard()) }

func TestRedisBoardIgnoresStaleUpsert(t *testing.T) { checkStaleUpsert(t, newTestRedisBoard(t)) }
