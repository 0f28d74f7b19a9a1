package rpsclient

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/rps-arena/internal/appbuilder"
	"github.com/park285/rps-arena/internal/config"
	"github.com/park285/rps-arena/internal/gateway"
)

type stack struct {
	wsURL   string
	apiBase string
}

func startStack(t *testing.T) stack {
	t.Helper()
	cfg := &config.AppConfig{
		ReconcileInterval:  time.Minute,
		WSSendBuffer:       16,
		WSPingInterval:     time.Minute,
		AllowComputerMatch: true,
		LeaderboardLimit:   30,
	}
	deps, err := appbuilder.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("appbuilder.New: %v", err)
	}
	t.Cleanup(deps.Close)

	ws := httptest.NewServer(gateway.NewMux(deps.Hub, deps.Metrics))
	t.Cleanup(func() {
		deps.Hub.Close()
		ws.Close()
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := deps.API.HTTPServer()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return stack{
		wsURL:   "ws" + strings.TrimPrefix(ws.URL, "http") + "/ws",
		apiBase: "http://" + ln.Addr().String(),
	}
}

func TestRunSmokeBestOfThree(t *testing.T) {
	st := startStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rep, err := RunSmoke(ctx, SmokeConfig{WSURL: st.wsURL, APIBase: st.apiBase, Mode: "best_of_3"})
	if err != nil {
		t.Fatalf("RunSmoke: %v", err)
	}
	// A: win, tie, loss, win
	if rep.Rounds != 4 || rep.Record.Status != "finished" || rep.Record.Score.A != 2 || rep.Record.Score.B != 1 {
		t.Fatalf("unexpected match: rounds=%d record=%+v", rep.Rounds, rep.Record)
	}
	if rep.StatsA.Overall.Wins != 1 || rep.StatsA.Overall.TotalGames != 1 || rep.StatsA.Overall.WinRate != 100 {
		t.Fatalf("stats: %+v", rep.StatsA)
	}
	if rep.StatsA.Filter != "daily" || rep.StatsA.Filtered.Wins != 1 || rep.StatsA.Filtered.TotalGames != 1 {
		t.Fatalf("daily stats: %+v", rep.StatsA)
	}
	if rep.Leaderboard.Total != 2 || rep.Leaderboard.Leaderboard[0].ParticipantID != "smoke-a" {
		t.Fatalf("leaderboard: %+v", rep.Leaderboard)
	}
}

func TestRunSmokeEndless(t *testing.T) {
	st := startStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rep, err := RunSmoke(ctx, SmokeConfig{WSURL: st.wsURL, APIBase: st.apiBase, Mode: "endless", MaxRounds: 3})
	if err != nil {
		t.Fatalf("RunSmoke: %v", err)
	}
	if rep.Rounds != 3 || rep.Record.Status != "finished" || rep.Record.Score.Ties != 1 {
		t.Fatalf("endless match: rounds=%d record=%+v", rep.Rounds, rep.Record)
	}
}

func TestClientErrors(t *testing.T) {
	st := startStack(t)
	c := NewClient(st.apiBase, WithRetry(1))
	ctx := context.Background()

	h, err := c.Health(ctx)
	if err != nil || h.Status != "ok" {
		t.Fatalf("health: %+v %v", h, err)
	}
	_, err = c.Match(ctx, "missing")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != fasthttp.StatusNotFound || se.Domain.Code != "record_not_found" {
		t.Fatalf("missing match: %v", err)
	}
	if _, err := c.Leaderboard(ctx, "yearly", "", 0); !errors.As(err, &se) || se.Status != fasthttp.StatusBadRequest {
		t.Fatalf("bad filter: %v", err)
	}
	hist, err := c.History(ctx, "nobody", 1, 10)
	if err != nil || hist.Total != 0 || len(hist.Matches) != 0 {
		t.Fatalf("empty history: %+v %v", hist, err)
	}
}

func TestRetryOnServerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var calls atomic.Int32
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			ctx.SetBodyString(`{"error":{"code":"store_unavailable","message":"down","retryable":true}}`)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"ok","storage":"memory","active_matches":0}`)
	}}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Shutdown() }()

	c := NewClient("http://"+ln.Addr().String(), WithRetry(3))
	h, err := c.Health(context.Background())
	if err != nil || h.Status != "ok" || calls.Load() != 3 {
		t.Fatalf("retry: calls=%d h=%+v err=%v", calls.Load(), h, err)
	}
}
