package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	settle "github.com/xraph/settle"
	"github.com/xraph/settle/httpapi"
	"github.com/xraph/settle/idempotency"
	"github.com/xraph/settle/notify"
	"github.com/xraph/settle/observability"
	"github.com/xraph/settle/rail"
	"github.com/xraph/settle/store"
	"github.com/xraph/settle/store/memory"
	"github.com/xraph/settle/store/mongo"
	"github.com/xraph/settle/store/postgres"
	"github.com/xraph/settle/store/sqlite"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the settlement API server",
		Long: "serve starts the JSON API configured through SETTLE_* environment\n" +
			"variables. Transfers execute against the in-process rail; point a\n" +
			"real rail implementation at the engine to move actual money.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg := loadConfig()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []settle.Option{
		settle.WithTransferConcurrency(cfg.TransferConcurrency),
		settle.WithTransferTimeout(cfg.TransferTimeout),
		settle.WithTransferRetries(cfg.TransferMaxRetries, cfg.TransferRetryInterval),
		settle.WithPlugin(observability.NewMetricsExtension(
			observability.NewPromFactory(prometheus.DefaultRegisterer),
		)),
		settle.WithPlugin(notify.New(logSink())),
	}
	if cfg.RedisURL != "" {
		registry, err := idempotency.NewRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		opts = append(opts, settle.WithIdempotencyRegistry(registry))
	}

	eng := settle.New(st, rail.NewMemory(), opts...)
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	var serverOpts []httpapi.ServerOption
	if cfg.JWTSecret != "" {
		serverOpts = append(serverOpts, httpapi.WithAuth(
			httpapi.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		))
	}
	api := httpapi.New(eng, serverOpts...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("settle API listening",
			"addr", cfg.Addr,
			"store", cfg.Store,
			"auth", cfg.JWTSecret != "",
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = eng.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "error", err)
	}
	return eng.Stop()
}

func openStore(ctx context.Context, cfg config) (store.Store, error) {
	switch cfg.Store {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(cfg.SQLitePath)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("SETTLE_DATABASE_URL is required for the postgres store")
		}
		return postgres.Open(ctx, cfg.DatabaseURL)
	case "mongo":
		if cfg.MongoURL == "" {
			return nil, fmt.Errorf("SETTLE_MONGO_URL is required for the mongo store")
		}
		return mongo.Connect(ctx, cfg.MongoURL, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store %q: must be memory, sqlite, postgres, or mongo", cfg.Store)
	}
}

// logSink forwards engine events to the process log. Swap in a webhook or
// queue-backed sink to push them somewhere real.
func logSink() notify.Sink {
	return notify.SinkFunc(func(ctx context.Context, evt *notify.Event) error {
		slog.Info("event",
			"kind", evt.Kind,
			"group_id", evt.GroupID,
			"resource_id", evt.ResourceID,
			"amount", evt.Amount,
		)
		return nil
	})
}
