package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rps"

// Recorder wraps the Prometheus collectors of the match server.
// All methods are safe on a nil receiver so callers may run without metrics.
type Recorder struct {
	reg *prometheus.Registry

	matchesCreated   *prometheus.CounterVec
	matchesTerminal  *prometheus.CounterVec
	roundsResolved   *prometheus.CounterVec
	movesRejected    *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
	connections      prometheus.Gauge
	finalizeFailures prometheus.Counter
	reconcilePending prometheus.Gauge
	apiRequests      *prometheus.CounterVec
	apiLatency       *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		reg: reg,
		matchesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_created_total", Help: "Matches created.",
		}, []string{"mode", "opponent"}),
		matchesTerminal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_terminal_total", Help: "Matches that reached a terminal state.",
		}, []string{"mode", "status"}),
		roundsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rounds_resolved_total", Help: "Rounds resolved.",
		}, []string{"mode"}),
		movesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "moves_rejected_total", Help: "Rejected move submissions by error code.",
		}, []string{"code"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_waiting", Help: "Participants waiting for an opponent.",
		}, []string{"mode"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ws_connections", Help: "Open websocket connections.",
		}),
		finalizeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "finalize_failures_total", Help: "Failed attempts to persist a terminal match.",
		}),
		reconcilePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reconcile_pending", Help: "Terminal matches awaiting persistence retry.",
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total", Help: "Query API requests.",
		}, []string{"path", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds", Help: "Query API latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}
	reg.MustRegister(
		r.matchesCreated, r.matchesTerminal, r.roundsResolved, r.movesRejected,
		r.queueDepth, r.connections, r.finalizeFailures, r.reconcilePending,
		r.apiRequests, r.apiLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Recorder) MatchCreated(mode string, computer bool) {
	if r == nil {
		return
	}
	opp := "human"
	if computer {
		opp = "computer"
	}
	r.matchesCreated.WithLabelValues(mode, opp).Inc()
}

func (r *Recorder) MatchTerminal(mode, status string) {
	if r == nil {
		return
	}
	r.matchesTerminal.WithLabelValues(mode, status).Inc()
}

func (r *Recorder) RoundResolved(mode string) {
	if r == nil {
		return
	}
	r.roundsResolved.WithLabelValues(mode).Inc()
}

func (r *Recorder) MoveRejected(code string) {
	if r == nil {
		return
	}
	r.movesRejected.WithLabelValues(code).Inc()
}

func (r *Recorder) QueueDepth(mode string, n int) {
	if r == nil {
		return
	}
	r.queueDepth.WithLabelValues(mode).Set(float64(n))
}

func (r *Recorder) ConnectionOpened() {
	if r == nil {
		return
	}
	r.connections.Inc()
}

func (r *Recorder) ConnectionClosed() {
	if r == nil {
		return
	}
	r.connections.Dec()
}

func (r *Recorder) FinalizeFailed() {
	if r == nil {
		return
	}
	r.finalizeFailures.Inc()
}

func (r *Recorder) ReconcilePending(n int) {
	if r == nil {
		return
	}
	r.reconcilePending.Set(float64(n))
}

// APIRequest tracks one query API call. path should be normalized.
func (r *Recorder) APIRequest(path string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.apiRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	r.apiLatency.WithLabelValues(path).Observe(d.Seconds())
}
