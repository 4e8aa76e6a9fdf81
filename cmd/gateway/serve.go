package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fystack/solana-gateway/internal/config"
	"github.com/fystack/solana-gateway/internal/cycles"
	"github.com/fystack/solana-gateway/internal/gateway"
	"github.com/fystack/solana-gateway/internal/keystore"
	"github.com/fystack/solana-gateway/internal/outcall"
	"github.com/fystack/solana-gateway/internal/provider"
	"github.com/fystack/solana-gateway/pkg/events"
	"github.com/fystack/solana-gateway/pkg/logger"
	"github.com/fystack/solana-gateway/pkg/ratelimiter"
)

func runServer(cfg *config.Config) error {
	gc := cfg.Gateway

	keys, err := openKeystore(gc.Keystore)
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}
	defer keys.Close()

	var override *provider.Override
	if gc.OverrideProvider != nil {
		override, err = provider.NewOverride(gc.OverrideProvider.Pattern, gc.OverrideProvider.Replacement)
		if err != nil {
			return err
		}
		logger.Info("provider URL override active", "pattern", gc.OverrideProvider.Pattern)
	}

	var limiter outcall.Limiter
	if gc.RateLimit.RequestsPerSecond > 0 {
		limiter = ratelimiter.NewPooledRateLimiter(gc.RateLimit.RequestsPerSecond, gc.RateLimit.BurstSize)
	}

	emitter := events.Emitter(events.NoopEmitter{})
	if gc.NATS.URL != "" {
		emitter, err = events.NewNATSEmitter(gc.NATS.URL, gc.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("connect event sink: %w", err)
		}
	}
	defer emitter.Close()

	registry := provider.NewRegistry(keys, override)
	estimator := cycles.NewEstimator(gc.NumSubnetNodes, cycles.Mode(gc.Mode))
	dispatcher := outcall.NewDispatcher(gc.RequestTimeout.Std(), limiter)

	gw := gateway.New(registry, estimator, dispatcher, emitter)
	admin := gateway.NewAdmin(keys, gc.ManageAPIKeys)

	mux := http.NewServeMux()
	NewHTTPHandler(version, gw, admin).Register(mux)

	server := &http.Server{
		Addr:              gc.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("gateway listening", "addr", gc.ListenAddr, "mode", gc.Mode, "nodes", gc.NumSubnetNodes)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("gateway stopped")
	return nil
}

func openKeystore(cfg config.KeystoreConfig) (keystore.Store, error) {
	if cfg.Path == "" {
		logger.Warn("no keystore path configured, API keys will not survive restarts")
		return keystore.NewMemoryStore(), nil
	}
	return keystore.NewBadgerStore(cfg.Path)
}
