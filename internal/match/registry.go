package match

import (
	"strings"
	"sync"
)

type entry struct {
	mu sync.Mutex
	m  *Match
}

// Registry owns the waiting queues and the active match map.
// Queue mutations and pairing happen under a single lock; per-match state is
// guarded by the entry lock.
type Registry struct {
	mu sync.Mutex
	// mode -> FIFO of waiting participants
	queues  map[Mode][]string
	waiting map[string]Mode
	entries map[string]*entry
	// participant -> active match id
	active map[string]string
	// ids of matches removed after reaching a terminal state, oldest first
	ended    map[string]struct{}
	endedLog []string
}

const maxEndedIDs = 4096

func NewRegistry() *Registry {
	return &Registry{
		queues:  make(map[Mode][]string),
		waiting: make(map[string]Mode),
		entries: make(map[string]*entry),
		active:  make(map[string]string),
		ended:   make(map[string]struct{}),
	}
}

// Enqueue pairs participant with the head of the queue for mode, or appends it.
// create builds the match with slot A = waiter, slot B = requester; the match
// is registered before the lock is released. A nil match means waiting.
func (r *Registry) Enqueue(participant string, mode Mode, create func(a, b string) *Match) (*Match, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" || create == nil {
		return nil, ErrInvalidArgs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.busyLocked(participant); err != nil {
		return nil, err
	}
	q := r.queues[mode]
	if len(q) == 0 {
		r.queues[mode] = append(q, participant)
		r.waiting[participant] = mode
		return nil, nil
	}
	head := q[0]
	r.queues[mode] = q[1:]
	delete(r.waiting, head)

	m := create(head, participant)
	r.insertLocked(m)
	return m, nil
}

// Insert registers a match created outside the queue (computer opponent).
func (r *Registry) Insert(m *Match) error {
	if m == nil || m.ID == "" {
		return ErrInvalidArgs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range m.Players {
		if p == ComputerID {
			continue
		}
		if err := r.busyLocked(p); err != nil {
			return err
		}
	}
	r.insertLocked(m)
	return nil
}

// Cancel removes participant from its queue. Reports whether it was waiting.
func (r *Registry) Cancel(participant string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	mode, ok := r.waiting[participant]
	if !ok {
		return false
	}
	delete(r.waiting, participant)
	q := r.queues[mode]
	for i, p := range q {
		if p == participant {
			r.queues[mode] = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	return true
}

// IsWaiting reports the mode participant is queued for.
func (r *Registry) IsWaiting(participant string) (Mode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mode, ok := r.waiting[participant]
	return mode, ok
}

// Waiting returns the queue depth for mode.
func (r *Registry) Waiting(mode Mode) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues[mode])
}

// ActiveCount returns the number of registered active matches.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// MatchesOf returns the ids of active matches containing participant.
func (r *Registry) MatchesOf(participant string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.active[participant]; ok {
		return []string{id}
	}
	return nil
}

// Ended reports whether id belongs to a recently terminated match.
func (r *Registry) Ended(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ended[strings.TrimSpace(id)]
	return ok
}

func (r *Registry) lookup(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[strings.TrimSpace(id)]
}

// remove drops a terminal match from the active set.
func (r *Registry) remove(m *Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, m.ID)
	if _, ok := r.ended[m.ID]; !ok {
		r.ended[m.ID] = struct{}{}
		r.endedLog = append(r.endedLog, m.ID)
		if len(r.endedLog) > maxEndedIDs {
			delete(r.ended, r.endedLog[0])
			r.endedLog = r.endedLog[1:]
		}
	}
	for _, p := range m.Players {
		if r.active[p] == m.ID {
			delete(r.active, p)
		}
	}
}

func (r *Registry) busyLocked(participant string) error {
	if _, ok := r.waiting[participant]; ok {
		return ErrAlreadyWaiting
	}
	if _, ok := r.active[participant]; ok {
		return ErrAlreadyInMatch
	}
	return nil
}

func (r *Registry) insertLocked(m *Match) {
	r.entries[m.ID] = &entry{m: m}
	for _, p := range m.Players {
		if p == ComputerID {
			continue
		}
		r.active[p] = m.ID
	}
}
