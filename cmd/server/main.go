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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"authgate/internal/authcode/handler"
	"authgate/internal/authcode/service"
	authorizationcode "authgate/internal/authcode/store/authorization-code"
	"authgate/internal/authcode/store/ticket"
	clientstore "authgate/internal/client/store"
	"authgate/internal/platform/config"
	"authgate/internal/platform/health"
	"authgate/internal/platform/httpserver"
	"authgate/internal/platform/logger"
	"authgate/internal/platform/metrics"
	"authgate/internal/platform/middleware"
	redisclient "authgate/internal/platform/redis"
	ratelimit "authgate/internal/ratelimit/middleware"
	ratelimitmodels "authgate/internal/ratelimit/models"
	"authgate/internal/ratelimit/store/bucket"
	userstore "authgate/internal/user/store"
	audit "authgate/pkg/platform/audit"
	"authgate/pkg/platform/audit/publisher"
	"authgate/pkg/platform/audit/publishers/kafka"
	auditmemory "authgate/pkg/platform/audit/store/memory"
	"authgate/pkg/platform/middleware/metadata"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("authgate stopped", "error", err)
		os.Exit(1)
	}
}

// infra collects what main has to release on shutdown and what /health pings.
type infra struct {
	checks  map[string]health.CheckFunc
	closers []func()
}

func (i *infra) close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &infra{checks: map[string]health.CheckFunc{}}
	defer deps.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	clients, err := buildClientRegistry(ctx, cfg, deps)
	if err != nil {
		return err
	}
	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		deps.closers = append(deps.closers, func() { _ = rc.Close() })
		deps.checks["redis"] = rc.Health
	}
	tickets := buildTicketStore(cfg, rc)
	limiter, sweepLimiter := buildRateLimitStore(cfg, rc)
	auditStore, err := buildAuditStore(cfg, deps)
	if err != nil {
		return err
	}
	users := userstore.NewInMemory()

	if cfg.SeedDemo {
		if _, err := clientstore.SeedDemoClient(ctx, clients); err != nil {
			return fmt.Errorf("seed demo client: %w", err)
		}
		if err := userstore.SeedDemoUser(ctx, users, cfg.DemoPassword); err != nil {
			return fmt.Errorf("seed demo user: %w", err)
		}
		log.Info("demo client and user seeded", "client_id", "c1", "username", "demo")
	}

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	svc := service.New(clients, users, tickets, authorizationcode.New(),
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(auditPublisher),
		service.WithTicketTTL(cfg.TicketTTL),
		service.WithAuthCodeTTL(cfg.AuthCodeTTL),
	)

	trustedProxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	rateLimit := ratelimit.New(limiter, log,
		ratelimit.WithMetrics(m),
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)
	handler.New(svc, log, m, handler.Config{
		SignInFallbackPath:  cfg.SignInFallbackPath,
		ConsentResponseMode: cfg.ConsentResponseMode,
		RequestTimeout:      cfg.RequestTimeout,
		TrustedProxies:      trustedProxies,
		AuthenticateLimit: rateLimit.RateLimit("authenticate", ratelimitmodels.Limit{
			Requests: cfg.RateLimit.AuthenticateRequests,
			Window:   cfg.RateLimit.AuthenticateWindow,
		}),
	}).Register(r)
	r.Mount("/health", health.Router(deps.checks, 2*time.Second))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting authgate", "addr", cfg.Addr, "consent_mode", cfg.ConsentResponseMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return svc.RunSweeper(gctx, cfg.SweepEvery)
	})
	if sweepLimiter != nil {
		g.Go(func() error {
			runEvery(gctx, cfg.SweepEvery, sweepLimiter)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// clientRegistry is a client store that can also be seeded.
type clientRegistry interface {
	service.ClientRegistry
	clientstore.Creator
}

func buildClientRegistry(ctx context.Context, cfg config.Server, deps *infra) (clientRegistry, error) {
	if cfg.DatabaseURL == "" {
		return clientstore.NewInMemory(), nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	deps.closers = append(deps.closers, func() { _ = db.Close() })

	store := clientstore.NewPostgres(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure client schema: %w", err)
	}
	deps.checks["postgres"] = store.Health
	return store, nil
}

func buildTicketStore(cfg config.Server, rc *redisclient.Client) service.TicketStore {
	if rc == nil {
		return ticket.New()
	}
	return ticket.NewRedis(rc.Client, ticket.WithKeyPrefix(cfg.Redis.KeyPrefix))
}

// buildRateLimitStore returns the attempt counter store and, for the
// in-memory store, the sweep that forgets idle keys.
func buildRateLimitStore(cfg config.Server, rc *redisclient.Client) (ratelimit.Limiter, func(context.Context)) {
	if rc == nil {
		store := bucket.NewInMemoryBucketStore()
		return store, func(ctx context.Context) { store.Sweep(ctx) }
	}
	return bucket.NewRedis(rc.Client, bucket.WithKeyPrefix(cfg.Redis.KeyPrefix)), nil
}

func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func buildAuditStore(cfg config.Server, deps *infra) (audit.Store, error) {
	if len(cfg.Audit.KafkaBrokers) == 0 {
		return auditmemory.NewInMemoryStore(), nil
	}
	sink, err := kafka.New(cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, sink.Close)
	deps.checks["kafka"] = sink.Health
	return sink, nil
}
