package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotwise/libs/db"
	"github.com/md-rashed-zaman/slotwise/libs/httpx"
	"github.com/md-rashed-zaman/slotwise/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotwise/libs/otel"
	"github.com/md-rashed-zaman/slotwise/libs/runtime"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/config"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/synctrigger"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

// The public API is read-only, so request bodies are never expected to be large.
const maxRequestBody = 64 << 10

func main() {
	help := flag.Bool("help", false, "print the environment variables and exit")
	flag.Parse()
	if *help {
		fmt.Println(config.Usage())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.Env)
	if err := run(cfg, logger); err != nil {
		logger.Error("service failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, cfg.ServiceName, cfg.Otel)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: cfg.DBMaxConns, ReadOnly: true})
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := storage.NewRepository(pool)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{
			Name:     "redis",
			Check:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Optional: true,
		})
	}

	var (
		publisher synctrigger.Publisher = synctrigger.LogPublisher{Logger: logger}
		throttle  synctrigger.Throttle  = synctrigger.NewMemoryThrottle()
	)
	if len(cfg.Sync.Brokers) > 0 {
		writer := kafkax.NewWriter(cfg.Sync.Brokers, cfg.Sync.Topic)
		defer func() { _ = writer.Close() }()
		publisher = synctrigger.NewKafkaPublisher(writer)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.Sync.Brokers), Optional: true})
	} else {
		logger.Warn("KAFKA_BROKERS not set, calendar sync requests are disabled")
	}
	if rdb != nil {
		throttle = synctrigger.NewRedisThrottle(rdb, "sync")
	}
	trigger := synctrigger.New(publisher, throttle, synctrigger.Config{
		Window:      cfg.Sync.Throttle,
		Timeout:     cfg.Sync.Timeout,
		MaxInFlight: cfg.Sync.MaxInFlight,
	}, logger)

	var sweeper *synctrigger.Sweeper
	if spec := strings.TrimSpace(cfg.Sync.SweepSchedule); spec != "" {
		sweeper = synctrigger.NewSweeper(repo, trigger, cfg.Sync.StaleAfter, logger)
		if err := sweeper.Start(spec); err != nil {
			return err
		}
	}

	loader, err := tz.NewLoader(cfg.Slots.FallbackTimezone, logger)
	if err != nil {
		return err
	}
	eng := engine.New(repo, loader, engine.Options{
		Step:             time.Duration(cfg.Slots.StepMinutes) * time.Minute,
		SafetyBuffer:     cfg.Slots.SafetyBuffer,
		DefaultDaysAhead: cfg.Slots.DefaultDaysAhead,
		Sync:             trigger,
		Logger:           logger,
	})

	var limit httpx.Middleware
	if rdb != nil {
		limit = httpx.NewRedisRateLimiter(rdb, cfg.HTTP.RateLimitPerMinute, time.Minute, "rl:slots", httpx.ClientIP).Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(cfg.HTTP.RateLimitPerMinute, time.Minute, httpx.ClientIP).Middleware()
	}

	router := chi.NewRouter()
	router.Get("/healthz", runtime.Healthz)
	router.Get("/readyz", runtime.Readyz(2*time.Second, checks...))
	handlers.NewSlotsHandler(eng, logger).Mount(router, limit)

	handler := httpx.Chain(router,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(maxRequestBody),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.HTTP.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader, "Retry-After"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithTimeout(cfg.HTTP.RequestTimeout),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(handler, "availability"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	if err := startGrpcServer(ctx, logger, cfg.GRPCPort, cfg.ServiceName, db.ReadyCheck(pool)); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}
	if err := trigger.Wait(shutdownCtx); err != nil {
		logger.Warn("sync requests still in flight at shutdown", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}
