package match

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memrepo is a development-only in-memory repository used when no DB is configured.
type memrepo struct {
	mu      sync.RWMutex
	records map[string]*Record
	// participant -> match ids
	byPlayer map[string][]string
}

func NewMemoryRepository() Repository {
	return &memrepo{
		records:  make(map[string]*Record),
		byPlayer: make(map[string][]string),
	}
}

func (m *memrepo) SaveRecord(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.ID) == "" || !rec.Status.Terminal() {
		return ErrInvalidArgs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.ID]; exists {
		return nil
	}
	m.records[rec.ID] = cloneRecord(rec)
	for _, p := range rec.Players() {
		m.byPlayer[p] = append(m.byPlayer[p], rec.ID)
	}
	return nil
}

func (m *memrepo) GetRecord(ctx context.Context, matchID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[strings.TrimSpace(matchID)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (m *memrepo) History(ctx context.Context, participant string, page, limit int) ([]*Record, int, error) {
	page, limit = normalizePage(page, limit)
	m.mu.RLock()
	items := make([]*Record, 0)
	for _, id := range m.byPlayer[strings.TrimSpace(participant)] {
		if rec := m.records[id]; rec != nil && rec.Status == StatusFinished {
			items = append(items, rec)
		}
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		ei, ej := items[i].EndedAt(), items[j].EndedAt()
		if !ei.Equal(ej) {
			return ei.After(ej)
		}
		return items[i].ID < items[j].ID
	})
	total := len(items)
	start := (page - 1) * limit
	if start >= total {
		return []*Record{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := make([]*Record, 0, end-start)
	for _, rec := range items[start:end] {
		out = append(out, cloneRecord(rec))
	}
	return out, total, nil
}

func cloneRecord(rec *Record) *Record {
	cp := *rec
	cp.Rounds = append([]Round{}, rec.Rounds...)
	cp.Pending = append([]string(nil), rec.Pending...)
	if rec.FinishedAt != nil {
		t := *rec.FinishedAt
		cp.FinishedAt = &t
	}
	if rec.AbandonedAt != nil {
		t := *rec.AbandonedAt
		cp.AbandonedAt = &t
	}
	return &cp
}
