package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	"screener/internal/platform/config"
	"screener/internal/platform/httpserver"
	"screener/internal/platform/logger"
	"screener/internal/platform/metrics"
	redisclient "screener/internal/platform/redis"
	ratelimit "screener/internal/ratelimit/middleware"
	rlmodels "screener/internal/ratelimit/models"
	"screener/internal/ratelimit/store/bucket"
	"screener/internal/screening/dataset"
	"screener/internal/screening/engine"
	"screener/internal/screening/financial"
	"screener/internal/screening/handler"
	screeningMetrics "screener/internal/screening/metrics"
	"screener/internal/screening/ports"
	"screener/internal/screening/publisher"
	"screener/internal/screening/service"
	"screener/internal/screening/store"
	httptransport "screener/internal/transport/http"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/audit/publishers/compliance"
	auditmemory "screener/pkg/platform/audit/store/memory"
	auditpostgres "screener/pkg/platform/audit/store/postgres"
)

// instrumentStore is what the server needs from either backend: the read
// side for screening and the write side for seeding.
type instrumentStore interface {
	ports.InstrumentStore
	dataset.Loader
}

// resultStore both records results and serves them back.
type resultStore interface {
	ports.ResultStore
	ports.ResultSink
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg, err := engine.LoadConfig(cfg.EngineConfigPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	screenMetrics := screeningMetrics.New(reg)
	httpMetrics := metrics.New(reg)
	checks := map[string]httptransport.HealthCheck{}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		checks["redis"] = rc.Health
	}

	var (
		instruments instrumentStore
		results     resultStore
		auditStore  audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err := store.Migrate(ctx, db); err != nil {
			return err
		}
		instruments = store.NewPostgres(db)
		results = store.NewPostgresResultStore(db)
		auditStore = auditpostgres.New(db)
		checks["postgres"] = db.PingContext
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		instruments = store.NewInMemoryStore()
		results = store.NewInMemoryResultStore()
		auditStore = auditmemory.NewInMemoryStore()
	}

	if cfg.DatasetPath != "" {
		f, err := dataset.ReadFile(cfg.DatasetPath)
		if err != nil {
			return err
		}
		sum, err := f.Apply(ctx, instruments)
		if err != nil {
			return fmt.Errorf("seed dataset: %w", err)
		}
		log.Info("dataset loaded", "path", cfg.DatasetPath,
			"instruments", sum.Instruments, "evidence", sum.Evidence, "holdings", sum.Holdings)
	}

	sinks := []ports.ResultSink{results}
	if len(cfg.KafkaBrokers) > 0 {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
		if err != nil {
			return fmt.Errorf("create kafka client: %w", err)
		}
		defer client.Close()
		if err := publisher.EnsureTopic(ctx, client, cfg.KafkaResultsTopic, 3, -1); err != nil {
			return err
		}
		sinks = append(sinks, publisher.NewKafkaPublisher(client,
			publisher.WithTopic(cfg.KafkaResultsTopic),
			publisher.WithLogger(log),
		))
		checks["kafka"] = client.Ping
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(screenMetrics),
		service.WithEngineConfig(engineCfg),
		service.WithResultStore(results),
		service.WithResultSink(publisher.NewMultiSink(sinks...)),
		service.WithAuditPublisher(compliance.New(auditStore,
			compliance.WithLogger(log),
			compliance.WithFailureCounter(screenMetrics.AuditFailures),
		)),
		service.WithConcurrency(cfg.ScreeningConcurrency),
	}

	if cfg.FinancialAPIURL != "" {
		provider, err := newFinancialProvider(cfg, rc, log)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithFinancialProvider(provider))
	}

	svc, err := service.New(instruments, opts...)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Config{
		Modules:       []httptransport.Registrar{handler.New(svc, log)},
		APIMiddleware: []func(http.Handler) http.Handler{newRateLimiter(cfg, rc, httpMetrics, log).RateLimit},
		Metrics:       httpMetrics,
		Gatherer:      reg,
		HealthChecks:  checks,
		Logger:        log,
	})
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting screener", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("screener stopped")
	return nil
}

// newFinancialProvider builds the HTTP ratio client behind a cache. Redis is
// used when configured, otherwise a process-local cache.
func newFinancialProvider(cfg config.Server, rc *redisclient.Client, log *slog.Logger) (ports.FinancialDataProvider, error) {
	httpProvider, err := financial.NewHTTPProvider(cfg.FinancialAPIURL,
		financial.WithAPIKey(cfg.FinancialAPIKey),
		financial.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	var cache financial.Cache = financial.NewInMemoryCache(cfg.FinancialCacheTTL)
	if rc != nil {
		cache = financial.NewRedisCache(rc.Client, cfg.FinancialCacheTTL)
	}
	return financial.NewCachedProvider(httpProvider, cache, log), nil
}

// newRateLimiter shares budgets through Redis when it is configured and keeps
// an in-memory window as the fallback.
func newRateLimiter(cfg config.Server, rc *redisclient.Client, m *metrics.Metrics, log *slog.Logger) *ratelimit.Middleware {
	limit := rlmodels.Limit{RequestsPerWindow: cfg.RateLimitRequests, Window: cfg.RateLimitWindow}
	local := bucket.NewInMemoryBucketStore()
	if rc == nil {
		return ratelimit.New(local, limit, log, ratelimit.WithRejectedCounter(m.RateLimited))
	}
	return ratelimit.New(bucket.NewRedisBucketStore(rc.Client), limit, log,
		ratelimit.WithFallback(local),
		ratelimit.WithRejectedCounter(m.RateLimited),
	)
}
