package match

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMemoryRepositoryHistory(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		rec := &Record{ID: fmt.Sprintf("m%d", i), Mode: ModeSingleRound, PlayerA: "alice", PlayerB: "bob", Status: StatusFinished, FinishedAt: &at}
		if err := repo.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("SaveRecord: %v", err)
		}
	}
	at := base.Add(time.Hour)
	if err := repo.SaveRecord(ctx, &Record{ID: "gone", PlayerA: "alice", PlayerB: "carol", Status: StatusAbandoned, AbandonedAt: &at}); err != nil {
		t.Fatalf("SaveRecord abandoned: %v", err)
	}

	items, total, err := repo.History(ctx, "alice", 1, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 5 || len(items) != 2 || items[0].ID != "m4" || items[1].ID != "m3" {
		t.Fatalf("page 1: total=%d items=%v", total, ids(items))
	}
	items, _, _ = repo.History(ctx, "alice", 3, 2)
	if len(items) != 1 || items[0].ID != "m0" {
		t.Fatalf("page 3: %v", ids(items))
	}
	items, total, _ = repo.History(ctx, "alice", 9, 2)
	if len(items) != 0 || total != 5 {
		t.Fatalf("past the end: %v total=%d", ids(items), total)
	}
}

func TestMemoryRepositorySaveIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()
	rec := &Record{ID: "m1", PlayerA: "a", PlayerB: "b", Status: StatusFinished, FinishedAt: &now, Rounds: []Round{{Number: 1}}}
	if err := repo.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if err := repo.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("second SaveRecord: %v", err)
	}
	rec.Rounds[0].Number = 99
	got, err := repo.GetRecord(ctx, "m1")
	if err != nil || got.Rounds[0].Number != 1 {
		t.Fatalf("stored record aliased caller data: %+v %v", got, err)
	}
	if _, total, _ := repo.History(ctx, "a", 1, 10); total != 1 {
		t.Fatalf("duplicate save indexed twice: %d", total)
	}
	if _, err := repo.GetRecord(ctx, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("missing record: %v", err)
	}
	if err := repo.SaveRecord(ctx, &Record{ID: "live", Status: StatusActive}); err == nil {
		t.Fatalf("active record must be rejected")
	}
}

func ids(recs []*Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}
