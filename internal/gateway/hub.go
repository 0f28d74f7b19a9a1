package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/metrics"
	"github.com/park285/rps-arena/internal/msgcat"
	"github.com/park285/rps-arena/internal/obslog"
)

// Matches is the part of the match controller the gateway drives.
type Matches interface {
	FindMatch(ctx context.Context, participant string, mode match.Mode) (*match.FindResult, error)
	FindComputerMatch(ctx context.Context, participant string, mode match.Mode) (*match.FindResult, error)
	CancelSearch(ctx context.Context, participant string) error
	PlayMove(ctx context.Context, matchID, participant, move string) (*match.MoveResult, error)
	Leave(ctx context.Context, matchID, participant string) error
	End(ctx context.Context, matchID, participant string) (*match.Record, error)
	Disconnect(ctx context.Context, participant string)
}

type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}

// Hub tracks one live connection per participant and pushes match events.
type Hub struct {
	matches Matches
	cat     *msgcat.Catalog
	metrics *metrics.Recorder
	opts    Options

	mu    sync.RWMutex
	conns map[string]*client
}

func NewHub(m Matches, cat *msgcat.Catalog, rec *metrics.Recorder, opts Options) *Hub {
	return &Hub{
		matches: m,
		cat:     cat,
		metrics: rec,
		opts:    opts.withDefaults(),
		conns:   make(map[string]*client),
	}
}

// register makes c the live connection of its participant, closing any older one.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	old := h.conns[c.participant]
	h.conns[c.participant] = c
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
	if old != nil {
		obslog.L().Info("ws_replace", zap.String("participant", c.participant))
		// the close handshake may wait on the old peer
		go old.close()
	}
	obslog.L().Info("ws_connect", zap.String("participant", c.participant))
}

// unregister drops c and runs the disconnect flow when c was the live connection.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	current := h.conns[c.participant] == c
	if current {
		delete(h.conns, c.participant)
	}
	h.mu.Unlock()
	h.metrics.ConnectionClosed()
	if !current {
		return
	}
	obslog.L().Info("ws_disconnect", zap.String("participant", c.participant))
	if h.matches != nil {
		h.matches.Disconnect(context.Background(), c.participant)
	}
}

// Connected reports whether participant has a live connection.
func (h *Hub) Connected(participant string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[strings.TrimSpace(participant)]
	return ok
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Notify implements match.Notifier. Events for offline participants are dropped.
func (h *Hub) Notify(_ context.Context, participant string, ev match.Event) {
	h.mu.RLock()
	c := h.conns[participant]
	h.mu.RUnlock()
	if c == nil {
		obslog.L().Debug("ws_notify_offline", zap.String("participant", participant), zap.String("type", string(ev.Type)))
		return
	}
	if out, ok := h.eventMessage(participant, ev); ok {
		c.enqueue(out)
	}
}

// Close drops every connection, then runs the disconnect flow for each
// participant so their active matches are abandoned and persisted.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*client, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*client)
	h.mu.Unlock()
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			c.close()
		}(c)
	}
	wg.Wait()
	if h.matches == nil {
		return
	}
	for _, c := range conns {
		obslog.L().Info("ws_disconnect", zap.String("participant", c.participant), zap.String("reason", "shutdown"))
		h.matches.Disconnect(context.Background(), c.participant)
	}
}
