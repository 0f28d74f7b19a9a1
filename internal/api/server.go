package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/rps-arena/internal/leaderboard"
	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/metrics"
	"github.com/park285/rps-arena/internal/obslog"
	"github.com/park285/rps-arena/internal/stats"
	"github.com/park285/rps-arena/pkg/rpsdto"
)

// ActiveMatches reads live match snapshots.
type ActiveMatches interface {
	Get(matchID string) (*match.Record, bool)
}

// StatsReader reads participant counters.
type StatsReader interface {
	Get(ctx context.Context, participant string) (stats.ParticipantStats, error)
}

type Deps struct {
	Active  ActiveMatches
	Counter func() int
	Records match.Repository
	Stats   StatsReader
	Board   leaderboard.Board
	Metrics *metrics.Recorder
	// Storage names the record backend for /health ("postgres" or "memory").
	Storage      string
	DefaultLimit int
	Timeout      time.Duration
	// Now anchors stats windows; nil means time.Now.
	Now func() time.Time
}

const windowPageSize = 100

// Server serves the read-only query API over fasthttp.
type Server struct {
	d Deps
}

func New(d Deps) *Server {
	if d.DefaultLimit <= 0 || d.DefaultLimit > leaderboard.MaxLimit {
		d.DefaultLimit = leaderboard.MaxLimit
	}
	if d.Timeout <= 0 {
		d.Timeout = 5 * time.Second
	}
	if d.Storage == "" {
		d.Storage = "memory"
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Server{d: d}
}

// Handler routes requests by path.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	path := string(ctx.Path())
	route := s.route(ctx, path)
	s.d.Metrics.APIRequest(route, ctx.Response.StatusCode(), time.Since(start))
}

func (s *Server) route(ctx *fasthttp.RequestCtx, path string) string {
	if !ctx.IsGet() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, rpsdto.DomainError{Code: "method_not_allowed", Message: "only GET is supported"})
		return "other"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case path == "/health":
		s.health(ctx)
		return "/health"
	case path == "/leaderboard":
		s.leaderboard(ctx)
		return "/leaderboard"
	case len(parts) == 2 && parts[0] == "matches":
		s.matchByID(ctx, parts[1])
		return "/matches/{id}"
	case len(parts) == 3 && parts[0] == "participants" && parts[2] == "stats":
		s.participantStats(ctx, parts[1])
		return "/participants/{id}/stats"
	case len(parts) == 3 && parts[0] == "participants" && parts[2] == "history":
		s.history(ctx, parts[1])
		return "/participants/{id}/history"
	}
	writeError(ctx, fasthttp.StatusNotFound, rpsdto.DomainError{Code: "route_not_found", Message: "no such endpoint"})
	return "other"
}

func (s *Server) reqContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.d.Timeout)
}

func (s *Server) health(ctx *fasthttp.RequestCtx) {
	resp := rpsdto.HealthResponse{Status: "ok", Storage: s.d.Storage}
	if s.d.Counter != nil {
		resp.ActiveMatches = s.d.Counter()
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) leaderboard(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	limit := string(args.Peek("limit"))
	if limit == "" {
		limit = strconv.Itoa(s.d.DefaultLimit)
	}
	q, err := leaderboard.ParseQuery(string(args.Peek("filter")), string(args.Peek("sort_by")), limit)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, rpsdto.DomainError{Code: "invalid_query", Message: err.Error()})
		return
	}
	rctx, cancel := s.reqContext()
	defer cancel()
	entries, err := s.d.Board.Top(rctx, q)
	if err != nil {
		s.fail(ctx, "leaderboard", err)
		return
	}
	out := rpsdto.LeaderboardResponse{
		Leaderboard: make([]rpsdto.LeaderboardEntry, 0, len(entries)),
		Filter:      string(q.Window),
		SortBy:      string(q.SortBy),
		Total:       len(entries),
	}
	for _, e := range entries {
		out.Leaderboard = append(out.Leaderboard, rpsdto.LeaderboardEntry{
			Rank:          e.Rank,
			ParticipantID: e.ParticipantID,
			TotalWins:     e.TotalWins,
			TotalGames:    e.TotalGames,
			WinRate:       e.WinRate,
			UpdatedAt:     e.UpdatedAt,
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) matchByID(ctx *fasthttp.RequestCtx, id string) {
	if id = strings.TrimSpace(id); id == "" {
		s.writeMatchError(ctx, match.ErrInvalidArgs)
		return
	}
	if s.d.Active != nil {
		if rec, ok := s.d.Active.Get(id); ok {
			writeJSON(ctx, fasthttp.StatusOK, toMatch(rec))
			return
		}
	}
	rctx, cancel := s.reqContext()
	defer cancel()
	rec, err := s.d.Records.GetRecord(rctx, id)
	if err != nil {
		s.writeMatchError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toMatch(rec))
}

func (s *Server) participantStats(ctx *fasthttp.RequestCtx, participant string) {
	w, err := leaderboard.ParseWindow(string(ctx.QueryArgs().Peek("filter")))
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, rpsdto.DomainError{Code: "invalid_query", Message: err.Error()})
		return
	}
	rctx, cancel := s.reqContext()
	defer cancel()
	st, err := s.d.Stats.Get(rctx, participant)
	if err != nil {
		s.fail(ctx, "stats", err)
		return
	}
	filtered := st
	if w != leaderboard.WindowAllTime {
		recs, err := s.windowRecords(rctx, participant, w.Cutoff(s.d.Now()))
		if err != nil {
			s.fail(ctx, "stats_window", err)
			return
		}
		filtered = stats.Replay(participant, recs)
	}
	writeJSON(ctx, fasthttp.StatusOK, rpsdto.StatsResponse{
		ParticipantID: participant,
		Filter:        string(w),
		Overall:       toStats(st),
		Filtered:      toStats(filtered),
	})
}

// windowRecords pages through the participant's history, newest first, and
// stops at the first record that ended before cutoff.
func (s *Server) windowRecords(ctx context.Context, participant string, cutoff time.Time) ([]*match.Record, error) {
	var out []*match.Record
	for page := 1; ; page++ {
		recs, total, err := s.d.Records.History(ctx, participant, page, windowPageSize)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec.EndedAt().Before(cutoff) {
				return out, nil
			}
			out = append(out, rec)
		}
		if len(recs) == 0 || page*windowPageSize >= total {
			return out, nil
		}
	}
}

func toStats(st stats.ParticipantStats) rpsdto.ParticipantStats {
	return rpsdto.ParticipantStats{
		ParticipantID: st.ParticipantID,
		Wins:          st.Wins,
		Losses:        st.Losses,
		Ties:          st.Ties,
		TotalGames:    st.TotalGames,
		WinRate:       st.WinRate,
		UpdatedAt:     st.UpdatedAt,
	}
}

func (s *Server) history(ctx *fasthttp.RequestCtx, participant string) {
	args := ctx.QueryArgs()
	page, err := intArg(args, "page", 1)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, rpsdto.DomainError{Code: "invalid_query", Message: "page must be a positive integer"})
		return
	}
	limit, err := intArg(args, "limit", 20)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, rpsdto.DomainError{Code: "invalid_query", Message: "limit must be a positive integer"})
		return
	}
	if limit > 100 {
		limit = 100
	}
	rctx, cancel := s.reqContext()
	defer cancel()
	recs, total, err := s.d.Records.History(rctx, participant, page, limit)
	if err != nil {
		s.fail(ctx, "history", err)
		return
	}
	out := rpsdto.HistoryResponse{
		ParticipantID: participant,
		Matches:       make([]rpsdto.Match, 0, len(recs)),
		Page:          page,
		Limit:         limit,
		Total:         total,
	}
	for _, rec := range recs {
		out.Matches = append(out.Matches, toMatch(rec))
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func intArg(args *fasthttp.Args, key string, def int) (int, error) {
	raw := strings.TrimSpace(string(args.Peek(key)))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}

// fail reports a storage failure as 503.
func (s *Server) fail(ctx *fasthttp.RequestCtx, op string, err error) {
	obslog.L().Error("api_store_error", zap.String("op", op), zap.Error(err))
	writeError(ctx, fasthttp.StatusServiceUnavailable, rpsdto.DomainError{Code: "store_unavailable", Message: "storage unavailable", Retryable: true})
}

func (s *Server) writeMatchError(ctx *fasthttp.RequestCtx, err error) {
	status := StatusFor(err)
	if status == fasthttp.StatusServiceUnavailable || status == fasthttp.StatusInternalServerError {
		s.fail(ctx, "match", err)
		return
	}
	writeError(ctx, status, ToDomainError(err))
}

// StatusFor maps the error taxonomy to HTTP status codes.
func StatusFor(err error) int {
	switch match.KindOf(err) {
	case match.KindValidation:
		return fasthttp.StatusBadRequest
	case match.KindNotFound:
		return fasthttp.StatusNotFound
	case match.KindConflict:
		return fasthttp.StatusConflict
	case match.KindTransient:
		return fasthttp.StatusServiceUnavailable
	}
	return fasthttp.StatusServiceUnavailable
}

// ToDomainError converts a match error into its wire form.
func ToDomainError(err error) rpsdto.DomainError {
	var me *match.Error
	if errors.As(err, &me) {
		return rpsdto.DomainError{Code: me.Code, Message: me.Error(), Retryable: me.Kind == match.KindTransient}
	}
	return rpsdto.DomainError{Code: "internal", Message: "internal error"}
}

func toMatch(rec *match.Record) rpsdto.Match {
	out := rpsdto.Match{
		MatchID:     rec.ID,
		Mode:        string(rec.Mode),
		PlayerA:     rec.PlayerA,
		PlayerB:     rec.PlayerB,
		Rounds:      make([]rpsdto.Round, 0, len(rec.Rounds)),
		Score:       rpsdto.Score{A: rec.Score.A, B: rec.Score.B, Ties: rec.Score.Ties},
		Status:      string(rec.Status),
		Computer:    rec.Computer,
		Pending:     rec.Pending,
		CreatedAt:   rec.CreatedAt,
		FinishedAt:  rec.FinishedAt,
		AbandonedAt: rec.AbandonedAt,
		AbandonedBy: rec.AbandonedBy,
	}
	for _, r := range rec.Rounds {
		out.Rounds = append(out.Rounds, rpsdto.Round{
			RoundNumber: r.Number,
			MoveA:       string(r.MoveA),
			MoveB:       string(r.MoveB),
			Outcome:     string(r.Outcome),
			ResolvedAt:  r.ResolvedAt,
		})
	}
	return out
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		obslog.L().Error("api_encode_error", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, e rpsdto.DomainError) {
	writeJSON(ctx, status, rpsdto.ErrorResponse{Error: e})
}

// HTTPServer wraps Handler in a fasthttp server.
func (s *Server) HTTPServer() *fasthttp.Server {
	return &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "rps-arena",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
