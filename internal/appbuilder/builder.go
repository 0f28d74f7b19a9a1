package appbuilder

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/rps-arena/internal/api"
	"github.com/park285/rps-arena/internal/config"
	"github.com/park285/rps-arena/internal/gateway"
	"github.com/park285/rps-arena/internal/leaderboard"
	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/metrics"
	"github.com/park285/rps-arena/internal/msgcat"
	"github.com/park285/rps-arena/internal/obslog"
	"github.com/park285/rps-arena/internal/reconcile"
	"github.com/park285/rps-arena/internal/stats"
)

type Deps struct {
	Controller *match.Controller
	Records    match.Repository
	Stats      *stats.Aggregator
	Board      leaderboard.Board
	Hub        *gateway.Hub
	API        *api.Server
	Reconciler *reconcile.Worker
	Metrics    *metrics.Recorder
	Catalog    *msgcat.Catalog

	// Storage is "postgres" or "memory".
	Storage string

	db  *sql.DB
	rdb *redis.Client
}

// New wires every component from cfg. Postgres and Redis are optional; the
// in-memory repositories stand in when their URL is empty.
func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	d := &Deps{Metrics: metrics.NewRecorder(), Storage: "memory"}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = cat

	statsRepo := stats.NewMemoryRepository()
	d.Records = match.NewMemoryRepository()
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := match.OpenDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		d.db = db
		if err := match.EnsureSchema(ctx, db); err != nil {
			d.Close()
			return nil, err
		}
		if err := stats.EnsureSchema(ctx, db); err != nil {
			d.Close()
			return nil, err
		}
		d.Records = match.NewRepository(db)
		statsRepo = stats.NewRepository(db)
		d.Storage = "postgres"
	} else {
		obslog.L().Warn("storage_memory_fallback", zap.String("reason", "DATABASE_URL not set"))
	}

	d.Board = leaderboard.NewMemoryBoard()
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			d.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		d.rdb = rdb
		d.Board = leaderboard.NewRedisBoard(rdb)
	} else {
		obslog.L().Warn("leaderboard_memory_fallback", zap.String("reason", "REDIS_URL not set"))
	}

	d.Stats = stats.NewAggregator(statsRepo, d.Board)
	d.Controller = match.NewController(match.NewRegistry(), d.Records, d.Stats,
		match.WithMetrics(d.Metrics),
		match.WithComputerOpponent(cfg.AllowComputerMatch),
	)
	d.Reconciler = reconcile.New(d.Controller, cfg.ReconcileInterval, d.Metrics)
	d.Controller.AttachRetrier(d.Reconciler)

	d.Hub = gateway.NewHub(d.Controller, cat, d.Metrics, gateway.Options{
		SendBuffer:   cfg.WSSendBuffer,
		PingInterval: cfg.WSPingInterval,
	})
	d.Controller.AttachNotifier(d.Hub)

	d.API = api.New(api.Deps{
		Active:       d.Controller,
		Counter:      d.Controller.Registry().ActiveCount,
		Records:      d.Records,
		Stats:        d.Stats,
		Board:        d.Board,
		Metrics:      d.Metrics,
		Storage:      d.Storage,
		DefaultLimit: cfg.LeaderboardLimit,
	})

	obslog.L().Info("app_build",
		zap.String("storage", d.Storage),
		zap.Bool("redis", d.rdb != nil),
		zap.Bool("computer_match", cfg.AllowComputerMatch),
	)
	return d, nil
}

// Close releases the database and Redis connections.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.rdb != nil {
		_ = d.rdb.Close()
		d.rdb = nil
	}
	if d.db != nil {
		_ = d.db.Close()
		d.db = nil
	}
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing redis host")
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: host + ":" + port, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
