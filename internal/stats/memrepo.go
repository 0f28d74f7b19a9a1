package stats

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memrepo is a development-only repository used when no DB is configured.
type memrepo struct {
	mu     sync.Mutex
	ledger map[string]Outcome // matchID|participant
	stats  map[string]ParticipantStats
}

func NewMemoryRepository() Repository {
	return &memrepo{ledger: make(map[string]Outcome), stats: make(map[string]ParticipantStats)}
}

func (m *memrepo) Apply(ctx context.Context, participant, matchID string, o Outcome, at time.Time) (ParticipantStats, bool, error) {
	participant = strings.TrimSpace(participant)
	key := strings.TrimSpace(matchID) + "|" + participant
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[participant]
	if !ok {
		st = ParticipantStats{ParticipantID: participant}
	}
	if _, seen := m.ledger[key]; seen {
		return st, false, nil
	}
	m.ledger[key] = o
	applyOutcome(&st, o, at)
	m.stats[participant] = st
	return st, true, nil
}

func (m *memrepo) Get(ctx context.Context, participant string) (ParticipantStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[strings.TrimSpace(participant)]
	if !ok {
		return ParticipantStats{}, ErrNoStats
	}
	return st, nil
}
