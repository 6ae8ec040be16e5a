package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchtag/internal/adapters/http/api"
	"github.com/okian/matchtag/internal/adapters/http/live"
	"github.com/okian/matchtag/internal/adapters/mq/handoff"
	"github.com/okian/matchtag/internal/adapters/repository"
	service "github.com/okian/matchtag/internal/app"
	"github.com/okian/matchtag/internal/config"
	"github.com/okian/matchtag/pkg/logger"
	"github.com/okian/matchtag/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "matchtag exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the components from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore.Close(); err != nil {
			log.Error(ctx, "closing event store failed", logger.Error(err))
		}
	}()

	hub := live.NewHub(live.WithLogger(log.Named("live")))
	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithIdempotencySize(cfg.IdempotencySize),
		service.WithStore(store),
		service.WithPublisher(buildPublisher(cfg, log)),
		service.WithBroadcaster(hub),
		service.WithKickoutDelay(cfg.KickoutDelaySeconds),
		service.WithFoulOffset(cfg.FoulOffsetSeconds),
		service.WithKickoutWindow(cfg.KickoutLookback, cfg.KickoutWindowSeconds),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	apiServer := api.NewServer(svc, svc,
		api.WithLive(hub),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithLogger(log.Named("api")),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})
	g.Go(func() error {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("service stop: %w", err))
		}
		log.Info(ctx, "server stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildStore selects the event store named by cfg.StoreDriver.
func buildStore(ctx context.Context, cfg *config.Config) (repository.EventStore, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := repository.NewPostgresStore(ctx, cfg.PostgresDSN,
			repository.WithPool(cfg.PostgresMaxOpenConns, cfg.PostgresMaxIdleConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		return pg, pg, nil
	default:
		return repository.NewMemoryStore(), nopCloser{}, nil
	}
}

// buildPublisher returns the AMQP hand-off when a broker URL is configured
// and a log-only publisher otherwise.
func buildPublisher(cfg *config.Config, log logger.Logger) handoff.Publisher {
	if cfg.AMQPURL == "" {
		return handoff.NewLogPublisher(log.Named("handoff"))
	}
	return handoff.NewAMQPPublisher(cfg.AMQPURL,
		handoff.WithExchange(cfg.AMQPExchange),
		handoff.WithRoutingKey(cfg.AMQPRoutingKey),
		handoff.WithLogger(log.Named("handoff")),
	)
}

// startServiceMetricsUpdater refreshes the queue gauges from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.GetStats(ctx)
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if open, ok := stats["openSessions"].(int); ok {
		metrics.UpdateActiveSessions(open)
	}
}
