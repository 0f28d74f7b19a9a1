package match

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/rps-arena/internal/metrics"
	"github.com/park285/rps-arena/internal/obslog"
	"github.com/park285/rps-arena/internal/rps"
)

// StatsRecorder credits a finished match to one participant.
// Implementations must be idempotent per (match, participant).
type StatsRecorder interface {
	RecordResult(ctx context.Context, participant string, rec *Record) error
}

// Notifier pushes events to a participant. It must not block.
type Notifier interface {
	Notify(ctx context.Context, participant string, ev Event)
}

// Retrier receives terminal records whose finalization failed.
type Retrier interface {
	Defer(rec *Record, cause error)
}

// Controller drives the match lifecycle: pairing, moves, rounds and termination.
type Controller struct {
	reg      *Registry
	repo     Repository
	stats    StatsRecorder
	notifier Notifier
	retrier  Retrier
	metrics  *metrics.Recorder

	now           func() time.Time
	newID         func() string
	allowComputer bool
}

type Option func(*Controller)

func WithNotifier(n Notifier) Option { return func(c *Controller) { c.notifier = n } }

func WithMetrics(r *metrics.Recorder) Option { return func(c *Controller) { c.metrics = r } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

func WithIDGenerator(f func() string) Option { return func(c *Controller) { c.newID = f } }

func WithComputerOpponent(enabled bool) Option {
	return func(c *Controller) { c.allowComputer = enabled }
}

func NewController(reg *Registry, repo Repository, stats StatsRecorder, opts ...Option) *Controller {
	if reg == nil {
		reg = NewRegistry()
	}
	c := &Controller{
		reg:           reg,
		repo:          repo,
		stats:         stats,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return uuid.NewString() },
		allowComputer: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AttachNotifier wires the push transport after construction.
func (c *Controller) AttachNotifier(n Notifier) {
	if c != nil {
		c.notifier = n
	}
}

// AttachRetrier wires the reconciliation worker.
func (c *Controller) AttachRetrier(r Retrier) {
	if c != nil {
		c.retrier = r
	}
}

func (c *Controller) Registry() *Registry { return c.reg }

// FindMatch pairs participant with a waiter of the same mode or queues it.
// The waiter is notified; the requester learns the pairing from the result.
func (c *Controller) FindMatch(ctx context.Context, participant string, mode Mode) (*FindResult, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" || participant == ComputerID {
		return nil, ErrInvalidArgs
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	m, err := c.reg.Enqueue(participant, mode, func(a, b string) *Match {
		return c.newMatch(a, b, mode, false)
	})
	c.metrics.QueueDepth(string(mode), c.reg.Waiting(mode))
	if err != nil {
		return nil, err
	}
	if m == nil {
		obslog.L().Info("match_queue_wait", zap.String("participant", participant), zap.String("mode", string(mode)))
		return &FindResult{Status: FindWaiting, Mode: mode}, nil
	}

	c.metrics.MatchCreated(string(mode), false)
	obslog.L().Info("match_create",
		zap.String("match_id", m.ID),
		zap.String("mode", string(mode)),
		zap.String("slot_a", m.Players[0]),
		zap.String("slot_b", m.Players[1]),
	)
	c.notify(ctx, m.Players[0], Event{Type: EventMatchFound, MatchID: m.ID, Mode: mode, Opponent: m.Players[1], Slot: SlotA})
	return &FindResult{Status: FindPaired, MatchID: m.ID, OpponentID: m.Players[0], Slot: SlotB, Mode: mode}, nil
}

// FindComputerMatch starts a match against the built-in opponent in slot B.
func (c *Controller) FindComputerMatch(ctx context.Context, participant string, mode Mode) (*FindResult, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" || participant == ComputerID {
		return nil, ErrInvalidArgs
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	if !c.allowComputer {
		return nil, ErrComputerDisabled
	}
	m := c.newMatch(participant, ComputerID, mode, true)
	if err := c.reg.Insert(m); err != nil {
		return nil, err
	}
	c.metrics.MatchCreated(string(mode), true)
	obslog.L().Info("match_create",
		zap.String("match_id", m.ID),
		zap.String("mode", string(mode)),
		zap.String("slot_a", participant),
		zap.Bool("computer", true),
	)
	return &FindResult{Status: FindPaired, MatchID: m.ID, OpponentID: ComputerID, Slot: SlotA, Mode: mode}, nil
}

// CancelSearch leaves the waiting queue. Idempotent.
func (c *Controller) CancelSearch(ctx context.Context, participant string) error {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return ErrInvalidArgs
	}
	if mode, ok := c.reg.IsWaiting(participant); ok && c.reg.Cancel(participant) {
		c.metrics.QueueDepth(string(mode), c.reg.Waiting(mode))
		obslog.L().Info("match_queue_cancel", zap.String("participant", participant))
	}
	return nil
}

// PlayMove records a move and resolves the round once both moves are present.
func (c *Controller) PlayMove(ctx context.Context, matchID, participant, move string) (*MoveResult, error) {
	res, err := c.playMove(ctx, strings.TrimSpace(matchID), strings.TrimSpace(participant), move)
	if err != nil {
		c.metrics.MoveRejected(CodeOf(err))
	}
	return res, err
}

func (c *Controller) playMove(ctx context.Context, matchID, participant, move string) (*MoveResult, error) {
	if matchID == "" || participant == "" {
		return nil, ErrInvalidArgs
	}
	mv, err := rps.ParseMove(move)
	if err != nil {
		return nil, ErrInvalidMove
	}
	e := c.reg.lookup(matchID)
	if e == nil {
		return nil, ErrMatchNotFound
	}

	e.mu.Lock()
	m := e.m
	if m.Status != StatusActive {
		e.mu.Unlock()
		return nil, ErrMatchNotFound
	}
	if _, ok := m.slotOf(participant); !ok || participant == ComputerID {
		e.mu.Unlock()
		return nil, ErrNotAParticipant
	}
	if _, dup := m.Pending[participant]; dup {
		e.mu.Unlock()
		return nil, ErrDuplicateMove
	}
	m.Pending[participant] = mv
	if m.Computer {
		m.Pending[ComputerID] = rps.RandomMove()
	}
	if len(m.Pending) < 2 {
		e.mu.Unlock()
		obslog.L().Debug("move_pending", zap.String("match_id", m.ID), zap.String("participant", participant))
		return &MoveResult{Accepted: true}, nil
	}

	now := c.now()
	round := Round{
		Number:     len(m.Rounds) + 1,
		MoveA:      m.Pending[m.Players[0]],
		MoveB:      m.Pending[m.Players[1]],
		ResolvedAt: now,
	}
	round.Outcome = rps.Resolve(round.MoveA, round.MoveB)
	m.Rounds = append(m.Rounds, round)
	m.Pending = make(map[string]rps.Move, 2)
	score := ScoreOf(m.Rounds)
	finished := m.Mode.Done(score, len(m.Rounds))
	if finished {
		m.Status = StatusFinished
		m.EndedAt = now
	}
	rec := m.record()
	e.mu.Unlock()

	result := &RoundResult{
		MatchID:     m.ID,
		PlayerA:     m.Players[0],
		PlayerB:     m.Players[1],
		Number:      round.Number,
		MovesBySlot: map[Slot]rps.Move{SlotA: round.MoveA, SlotB: round.MoveB},
		Outcome:     round.Outcome,
		Winner:      winnerOf(rec, round.Outcome),
		Score:       score,
		Finished:    finished,
	}
	c.metrics.RoundResolved(string(m.Mode))
	obslog.L().Info("round_resolve",
		zap.String("match_id", m.ID),
		zap.Int("round", round.Number),
		zap.String("move_a", string(round.MoveA)),
		zap.String("move_b", string(round.MoveB)),
		zap.String("outcome", string(round.Outcome)),
		zap.Bool("finished", finished),
	)

	if opp := rec.opponentOf(participant); opp != ComputerID {
		slot, _ := m.slotOf(opp)
		c.notify(ctx, opp, Event{Type: EventRoundResult, MatchID: m.ID, Mode: m.Mode, Opponent: participant, Slot: slot, Round: result})
	}
	if finished {
		c.reg.remove(m)
		c.metrics.MatchTerminal(string(m.Mode), string(StatusFinished))
		obslog.L().Info("match_finish",
			zap.String("match_id", m.ID),
			zap.Int("rounds", len(rec.Rounds)),
			zap.Int("score_a", rec.Score.A),
			zap.Int("score_b", rec.Score.B),
			zap.Int("ties", rec.Score.Ties),
		)
		c.commit(ctx, rec)
	}
	return &MoveResult{Accepted: true, Round: result}, nil
}

// Leave abandons an active match on behalf of participant. Matches that
// already ended are a no-op; ids never seen return ErrMatchNotFound.
func (c *Controller) Leave(ctx context.Context, matchID, participant string) error {
	matchID, participant = strings.TrimSpace(matchID), strings.TrimSpace(participant)
	if matchID == "" || participant == "" {
		return ErrInvalidArgs
	}
	rec, err := c.abandon(matchID, participant)
	if err != nil {
		return err
	}
	if rec == nil {
		return c.leaveTerminal(ctx, matchID)
	}
	if opp := rec.opponentOf(participant); opp != ComputerID {
		c.notify(ctx, opp, Event{Type: EventOpponentLeft, MatchID: rec.ID, Mode: rec.Mode, Opponent: participant, Record: rec})
	}
	c.commit(ctx, rec)
	return nil
}

// End finishes an endless match and credits both participants.
func (c *Controller) End(ctx context.Context, matchID, participant string) (*Record, error) {
	matchID, participant = strings.TrimSpace(matchID), strings.TrimSpace(participant)
	if matchID == "" || participant == "" {
		return nil, ErrInvalidArgs
	}
	e := c.reg.lookup(matchID)
	if e == nil {
		return nil, ErrMatchNotFound
	}
	e.mu.Lock()
	m := e.m
	if m.Status != StatusActive {
		e.mu.Unlock()
		return nil, ErrMatchNotFound
	}
	if _, ok := m.slotOf(participant); !ok {
		e.mu.Unlock()
		return nil, ErrNotAParticipant
	}
	if m.Mode != ModeEndless {
		e.mu.Unlock()
		return nil, ErrNotEndless
	}
	m.Pending = make(map[string]rps.Move, 2)
	m.Status = StatusFinished
	m.EndedAt = c.now()
	m.EndedBy = participant
	rec := m.record()
	e.mu.Unlock()

	c.reg.remove(m)
	c.metrics.MatchTerminal(string(m.Mode), string(StatusFinished))
	obslog.L().Info("match_end", zap.String("match_id", m.ID), zap.String("by", participant), zap.Int("rounds", len(rec.Rounds)))
	if opp := rec.opponentOf(participant); opp != ComputerID {
		c.notify(ctx, opp, Event{Type: EventMatchEnded, MatchID: rec.ID, Mode: rec.Mode, Opponent: participant, Record: rec})
	}
	c.commit(ctx, rec)
	return rec, nil
}

// Disconnect cancels any search and abandons every active match of participant.
// The remaining side gets a single notification per match.
func (c *Controller) Disconnect(ctx context.Context, participant string) {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return
	}
	_ = c.CancelSearch(ctx, participant)
	for _, id := range c.reg.MatchesOf(participant) {
		rec, err := c.abandon(id, participant)
		if err != nil || rec == nil {
			continue
		}
		if opp := rec.opponentOf(participant); opp != ComputerID {
			c.notify(ctx, opp, Event{Type: EventOpponentDisconnected, MatchID: rec.ID, Mode: rec.Mode, Opponent: participant, Record: rec})
		}
		c.commit(ctx, rec)
	}
}

// Get returns a snapshot of an active match.
func (c *Controller) Get(matchID string) (*Record, bool) {
	e := c.reg.lookup(matchID)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.m.Status != StatusActive {
		return nil, false
	}
	return e.m.record(), true
}

// Finalize persists a terminal record and credits stats for finished matches.
// Safe to call repeatedly for the same record.
func (c *Controller) Finalize(ctx context.Context, rec *Record) error {
	if rec == nil || !rec.Status.Terminal() {
		return ErrInvalidArgs
	}
	if c.repo != nil {
		if err := c.repo.SaveRecord(ctx, rec); err != nil {
			return Transient(err)
		}
	}
	if rec.Status == StatusFinished && c.stats != nil {
		for _, p := range rec.Players() {
			if p == ComputerID {
				continue
			}
			if err := c.stats.RecordResult(ctx, p, rec); err != nil {
				return Transient(err)
			}
		}
	}
	obslog.L().Info("match_persist", zap.String("match_id", rec.ID), zap.String("status", string(rec.Status)))
	return nil
}

func (c *Controller) commit(ctx context.Context, rec *Record) {
	err := c.Finalize(ctx, rec)
	if err == nil {
		return
	}
	c.metrics.FinalizeFailed()
	obslog.L().Error("match_persist_error", zap.String("match_id", rec.ID), zap.String("status", string(rec.Status)), zap.Error(err))
	if c.retrier != nil {
		c.retrier.Defer(rec, err)
	}
}

func (c *Controller) abandon(matchID, by string) (*Record, error) {
	e := c.reg.lookup(matchID)
	if e == nil {
		return nil, nil
	}
	e.mu.Lock()
	m := e.m
	if m.Status != StatusActive {
		e.mu.Unlock()
		return nil, nil
	}
	if _, ok := m.slotOf(by); !ok {
		e.mu.Unlock()
		return nil, ErrNotAParticipant
	}
	m.Pending = make(map[string]rps.Move, 2)
	m.Status = StatusAbandoned
	m.EndedAt = c.now()
	m.EndedBy = by
	rec := m.record()
	e.mu.Unlock()

	c.reg.remove(m)
	c.metrics.MatchTerminal(string(m.Mode), string(StatusAbandoned))
	obslog.L().Info("match_abandon", zap.String("match_id", m.ID), zap.String("by", by), zap.Int("rounds", len(rec.Rounds)))
	return rec, nil
}

// leaveTerminal makes Leave a no-op for matches that already ended and
// rejects ids that never existed.
func (c *Controller) leaveTerminal(ctx context.Context, matchID string) error {
	if c.reg.lookup(matchID) != nil || c.reg.Ended(matchID) {
		return nil
	}
	if c.repo == nil {
		return ErrMatchNotFound
	}
	_, err := c.repo.GetRecord(ctx, matchID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRecordNotFound):
		return ErrMatchNotFound
	default:
		return Transient(err)
	}
}

func (c *Controller) newMatch(a, b string, mode Mode, computer bool) *Match {
	return &Match{
		ID:        c.newID(),
		Mode:      mode,
		Players:   [2]string{a, b},
		Rounds:    []Round{},
		Status:    StatusActive,
		Pending:   make(map[string]rps.Move, 2),
		Computer:  computer,
		CreatedAt: c.now(),
	}
}

func (c *Controller) notify(ctx context.Context, participant string, ev Event) {
	if c.notifier == nil || participant == "" || participant == ComputerID {
		return
	}
	c.notifier.Notify(ctx, participant, ev)
}

func (r *Record) opponentOf(participant string) string {
	if r.PlayerA == participant {
		return r.PlayerB
	}
	if r.PlayerB == participant {
		return r.PlayerA
	}
	return ""
}

func winnerOf(rec *Record, o rps.Outcome) string {
	switch o {
	case rps.OutcomeA:
		return rec.PlayerA
	case rps.OutcomeB:
		return rec.PlayerB
	}
	return ""
}
