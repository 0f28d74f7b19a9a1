package match

import (
	"errors"
	"fmt"
	"testing"
)

func newTestMatch(id string) func(a, b string) *Match {
	return func(a, b string) *Match {
		return &Match{ID: id, Mode: ModeBestOf3, Players: [2]string{a, b}, Status: StatusActive}
	}
}

func TestRegistryEnqueueFIFO(t *testing.T) {
	r := NewRegistry()
	for _, p := range []string{"u1", "u2"} {
		m, err := r.Enqueue(p, ModeSingleRound, newTestMatch("x"))
		if err != nil {
			t.Fatalf("Enqueue(%s): %v", p, err)
		}
		if p == "u1" && m != nil {
			t.Fatalf("first enqueue should wait")
		}
		if p == "u2" && (m == nil || m.Players != [2]string{"u1", "u2"}) {
			t.Fatalf("unexpected pairing: %+v", m)
		}
	}
	if _, err := r.Enqueue("u3", ModeSingleRound, newTestMatch("y")); err != nil {
		t.Fatalf("Enqueue(u3): %v", err)
	}
	if _, err := r.Enqueue("u4", ModeBestOf7, newTestMatch("z")); err != nil {
		t.Fatalf("Enqueue(u4): %v", err)
	}
	if r.Waiting(ModeSingleRound) != 1 || r.Waiting(ModeBestOf7) != 1 {
		t.Fatalf("queue depth: single=%d bo7=%d", r.Waiting(ModeSingleRound), r.Waiting(ModeBestOf7))
	}
	if ids := r.MatchesOf("u2"); len(ids) != 1 || ids[0] != "x" {
		t.Fatalf("MatchesOf: %v", ids)
	}
}

func TestRegistryCancelKeepsOrder(t *testing.T) {
	r := NewRegistry()
	for _, p := range []string{"u1", "u2", "u3"} {
		if _, err := r.Enqueue(p, ModeEndless, newTestMatch("x")); err != nil && p == "u1" {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	// u1+u2 paired; queue: u3
	if _, err := r.Enqueue("u4", ModeBestOf5, newTestMatch("a")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := r.Enqueue("u5", ModeBestOf5, newTestMatch("b")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !r.Cancel("u3") || r.Cancel("u3") {
		t.Fatalf("Cancel must report once")
	}
	if _, ok := r.IsWaiting("u3"); ok {
		t.Fatalf("u3 still waiting")
	}
	if r.Waiting(ModeEndless) != 0 {
		t.Fatalf("endless queue not empty")
	}
}

func TestRegistryInsertRejectsBusy(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Enqueue("u1", ModeBestOf3, newTestMatch("x")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	m := &Match{ID: "c1", Players: [2]string{"u1", ComputerID}, Status: StatusActive, Computer: true}
	if err := r.Insert(m); !errors.Is(err, ErrAlreadyWaiting) {
		t.Fatalf("expected ErrAlreadyWaiting, got %v", err)
	}
	r.Cancel("u1")
	if err := r.Insert(m); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if ids := r.MatchesOf(ComputerID); len(ids) != 0 {
		t.Fatalf("computer must not be indexed: %v", ids)
	}
	r.remove(m)
	if r.ActiveCount() != 0 || len(r.MatchesOf("u1")) != 0 {
		t.Fatalf("remove left state behind")
	}
}

func TestRegistryRemembersEndedIDs(t *testing.T) {
	r := NewRegistry()
	first := &Match{ID: "m0", Players: [2]string{"a", "b"}}
	if err := r.Insert(first); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if r.Ended("m0") {
		t.Fatalf("active match reported as ended")
	}
	r.remove(first)
	if !r.Ended("m0") || r.lookup("m0") != nil {
		t.Fatalf("removed match must be remembered as ended")
	}
	for i := 1; i <= maxEndedIDs; i++ {
		r.remove(&Match{ID: fmt.Sprintf("m%d", i)})
	}
	if r.Ended("m0") {
		t.Fatalf("oldest ended id should be evicted")
	}
	if !r.Ended(fmt.Sprintf("m%d", maxEndedIDs)) {
		t.Fatalf("newest ended id missing")
	}
}
