package leaderboard

import (
	"context"
	"strings"
	"sync"
)

type memoryBoard struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryBoard is the development board used when Redis is not configured.
func NewMemoryBoard() Board {
	return &memoryBoard{entries: make(map[string]Entry)}
}

func (b *memoryBoard) Upsert(ctx context.Context, e Entry) error {
	id := strings.TrimSpace(e.ParticipantID)
	if id == "" {
		return nil
	}
	e.ParticipantID = id
	e.Rank = 0
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.entries[id]; ok && cur.TotalGames > e.TotalGames {
		return nil
	}
	b.entries[id] = e
	return nil
}

func (b *memoryBoard) Top(ctx context.Context, q Query) ([]Entry, error) {
	q = q.normalize()
	b.mu.RLock()
	all := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		all = append(all, e)
	}
	b.mu.RUnlock()
	return rank(all, q), nil
}
