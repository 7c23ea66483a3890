package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/events"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/marketcache"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/migrations"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/seed"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/store"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// engine is the predictor together with the optional infrastructure wired around it.
type engine struct {
	store     *store.Store
	predictor *pricing.Predictor
	cache     *marketcache.Cache
	closers   []func() error
}

func (e *engine) close() {
	for _, c := range e.closers {
		_ = c()
	}
}

// buildEngine wires the predictor over the store, adding the Redis cache and the Kafka
// publisher when they are configured.
func (a *app) buildEngine(ctx context.Context, database *sql.DB) (*engine, error) {
	st := store.New(database, a.logger)
	e := &engine{store: st}

	var market pricing.MarketDataFinder = st
	if a.cfg.Redis.Addr != "" {
		client, err := marketcache.NewClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, client.Close)
		e.cache = marketcache.New(client, st, a.cfg.Redis.TTL, a.logger)
		market = e.cache
		a.logger.Info("market cache enabled", zap.String("redis_addr", a.cfg.Redis.Addr), zap.Duration("ttl", a.cfg.Redis.TTL))
	}

	var activity pricing.ActivityLog = st
	if len(a.cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewPublisher(a.cfg.Kafka.Brokers, a.cfg.Kafka.ActivityTopic, a.logger)
		if err != nil {
			e.close()
			return nil, err
		}
		e.closers = append(e.closers, publisher.Close)
		activity = events.Tee{st, publisher}
		a.logger.Info("activity publisher enabled",
			zap.Strings("brokers", a.cfg.Kafka.Brokers),
			zap.String("topic", a.cfg.Kafka.ActivityTopic))
	}

	e.predictor = pricing.New(
		pricing.Sources{Models: st, Rules: st, Market: market, Customers: st},
		a.logger,
		pricing.WithConfig(a.cfg.Pricing()),
		pricing.WithPredictionSink(st),
		pricing.WithActivityLog(activity),
	)
	return e, nil
}

func (a *app) serve(ctx context.Context) error {
	database, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if a.cfg.IsDev() {
		if err := migrations.Up(ctx, database); err != nil {
			return fmt.Errorf("run database migrations: %w", err)
		}
	}

	if a.cfg.AdminEmail != "" && a.cfg.AdminPassword != "" {
		if err := seed.EnsureAdmin(ctx, database, a.cfg.AdminEmail, a.cfg.AdminPassword); err != nil {
			return err
		}
	}

	e, err := a.buildEngine(ctx, database)
	if err != nil {
		return err
	}
	defer e.close()

	secret := []byte(a.cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		a.logger.Warn("using a random session secret; sessions end when the process restarts")
	}

	srv := newServer(newAuthService(e.store, secret), e.store, e.predictor, a.logger)
	if e.cache != nil {
		srv.cache = e.cache
	}

	httpServer := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("environment", a.cfg.Environment))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}

	e.predictor.Wait()
	return nil
}
