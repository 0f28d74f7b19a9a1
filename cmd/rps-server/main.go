package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/rps-arena/internal/appbuilder"
	appcfg "github.com/park285/rps-arena/internal/config"
	"github.com/park285/rps-arena/internal/gateway"
	"github.com/park285/rps-arena/internal/obslog"
)

func main() {
	appcfg.LoadDotEnv()
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := appbuilder.New(ctx, cfg)
	if err != nil {
		logger.Fatal("deps_init_error", zap.Error(err))
	}
	if err := deps.Reconciler.Start(ctx); err != nil {
		logger.Fatal("reconcile_start_error", zap.Error(err))
	}

	wsSrv := &http.Server{
		Addr:              cfg.WSAddr,
		Handler:           gateway.NewMux(deps.Hub, deps.Metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
	apiSrv := deps.API.HTTPServer()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("ws_listen", zap.String("addr", cfg.WSAddr))
		if err := wsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.APIAddr))
		if err := apiSrv.ListenAndServe(cfg.APIAddr); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		logger.Error("server_error", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := wsSrv.Shutdown(sctx); err != nil {
		logger.Warn("ws_shutdown_error", zap.Error(err))
	}
	if err := apiSrv.ShutdownWithContext(sctx); err != nil {
		logger.Warn("api_shutdown_error", zap.Error(err))
	}
	// Hub.Close abandons live matches; failed saves land in the reconciler.
	deps.Hub.Close()
	if err := deps.Reconciler.Stop(sctx); err != nil {
		logger.Warn("reconcile_stop_error", zap.Error(err))
	}
	deps.Close()
	logger.Info("shutdown_complete")
}
