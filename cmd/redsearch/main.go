package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pooi/redsearch/internal/docstore"
	"github.com/pooi/redsearch/internal/events"
	"github.com/pooi/redsearch/internal/search/cache"
	"github.com/pooi/redsearch/internal/search/engine"
	"github.com/pooi/redsearch/internal/server"
	"github.com/pooi/redsearch/pkg/config"
	"github.com/pooi/redsearch/pkg/health"
	"github.com/pooi/redsearch/pkg/kafka"
	"github.com/pooi/redsearch/pkg/logger"
	"github.com/pooi/redsearch/pkg/metrics"
	"github.com/pooi/redsearch/pkg/middleware"
	"github.com/pooi/redsearch/pkg/postgres"
	pkgredis "github.com/pooi/redsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting redsearch",
		"port", cfg.Server.Port,
		"prefix", cfg.Search.Prefix,
		"result_ttl", cfg.Search.ResultTTL,
	)

	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("redis unavailable", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	eng := engine.New(redisClient, cfg.Search, m)

	var pageCache *cache.PageCache
	if cfg.Search.CacheTTL > 0 {
		pageCache = cache.New(redisClient, cfg.Search.CacheTTL, m)
		slog.Info("page cache enabled", "ttl", cfg.Search.CacheTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *events.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		collector = events.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("events collector started", "topic", cfg.Kafka.Topic)
	}

	checker := health.NewChecker()
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	h := server.New(eng, pageCache, collector, cfg.Search)
	h.Register(mux)

	// The person demo needs PostgreSQL; without it only the generic index
	// and search APIs are served.
	pgClient, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, person API disabled", "error", err)
	} else {
		defer pgClient.Close()
		personStore := docstore.NewPersonStore(pgClient)
		if err := personStore.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare person schema", "error", err)
			os.Exit(1)
		}
		server.NewPersonHandler(personStore, eng).Register(mux)
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgClient.DB.PingContext(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		slog.Info("person API enabled")
	}

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("redsearch listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("redsearch stopped")
}
