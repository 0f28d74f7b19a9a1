package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/metrics"
	"github.com/park285/rps-arena/internal/obslog"
)

// Finalizer is the retryable half of match termination.
type Finalizer interface {
	Finalize(ctx context.Context, rec *match.Record) error
}

type pending struct {
	rec      *match.Record
	attempts int
	lastErr  string
	since    time.Time
}

// Worker is an in-memory outbox of terminal records whose persistence or
// stats crediting failed. A gocron duration job drains it periodically.
type Worker struct {
	fin      Finalizer
	metrics  *metrics.Recorder
	interval time.Duration
	timeout  time.Duration

	mu    sync.Mutex
	queue map[string]*pending

	sched gocron.Scheduler
}

func New(fin Finalizer, interval time.Duration, rec *metrics.Recorder) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{
		fin:      fin,
		metrics:  rec,
		interval: interval,
		timeout:  10 * time.Second,
		queue:    make(map[string]*pending),
	}
}

// Defer implements match.Retrier. A record already queued keeps its attempt count.
func (w *Worker) Defer(rec *match.Record, cause error) {
	if w == nil || rec == nil {
		return
	}
	w.mu.Lock()
	p, ok := w.queue[rec.ID]
	if !ok {
		p = &pending{rec: rec, since: time.Now()}
		w.queue[rec.ID] = p
	}
	if cause != nil {
		p.lastErr = cause.Error()
	}
	n := len(w.queue)
	w.mu.Unlock()
	w.metrics.ReconcilePending(n)
	obslog.L().Warn("reconcile_defer", zap.String("match_id", rec.ID), zap.Int("pending", n), zap.Error(cause))
}

// Pending returns the number of queued records.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// RetryPending attempts every queued record once, oldest first, and returns
// how many succeeded.
func (w *Worker) RetryPending(ctx context.Context) int {
	w.mu.Lock()
	items := make([]*pending, 0, len(w.queue))
	for _, p := range w.queue {
		items = append(items, p)
	}
	w.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].since.Before(items[j].since) })

	done := 0
	for _, p := range items {
		if ctx.Err() != nil {
			break
		}
		actx, cancel := context.WithTimeout(ctx, w.timeout)
		err := w.fin.Finalize(actx, p.rec)
		cancel()

		w.mu.Lock()
		p.attempts++
		if err == nil || errors.Is(err, match.ErrInvalidArgs) {
			delete(w.queue, p.rec.ID)
		} else {
			p.lastErr = err.Error()
		}
		attempts := p.attempts
		w.mu.Unlock()

		switch {
		case err == nil:
			done++
			obslog.L().Info("reconcile_ok", zap.String("match_id", p.rec.ID), zap.Int("attempts", attempts))
		case errors.Is(err, match.ErrInvalidArgs):
			obslog.L().Error("reconcile_drop", zap.String("match_id", p.rec.ID), zap.Error(err))
		default:
			obslog.L().Warn("reconcile_retry_failed", zap.String("match_id", p.rec.ID), zap.Int("attempts", attempts), zap.Error(err))
		}
	}
	w.metrics.ReconcilePending(w.Pending())
	return done
}

// Start schedules RetryPending every interval until Stop.
func (w *Worker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			if w.Pending() == 0 {
				return
			}
			w.RetryPending(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}
	sched.Start()
	w.sched = sched
	obslog.L().Info("reconcile_start", zap.Duration("interval", w.interval))
	return nil
}

// Stop shuts the scheduler down and makes one last drain attempt.
func (w *Worker) Stop(ctx context.Context) error {
	if w.sched != nil {
		if err := w.sched.Shutdown(); err != nil {
			return err
		}
		w.sched = nil
	}
	if w.Pending() > 0 {
		w.RetryPending(ctx)
	}
	if n := w.Pending(); n > 0 {
		obslog.L().Warn("reconcile_stop_with_pending", zap.Int("pending", n))
	}
	return nil
}
