package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webhook-gateway/middleware/webhookguard"
	"webhook-gateway/middleware/webhookguard/domain"
	"webhook-gateway/middleware/webhookguard/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, cfgErr := readConfig()

	logger, err := newLogger(cfg.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfgErr != nil {
		logger.Fatal("config error", zap.Error(cfgErr))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("gateway stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	var rdb *redis.Client
	if cfg.storeBackend == "redis" || cfg.statsRedisEnabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	var store domain.ClientStore
	switch cfg.storeBackend {
	case "redis":
		store = infra.NewRedisClientStore(rdb, infra.WithKeyPrefix(cfg.redisPrefix))
	default:
		mem := infra.NewMemoryClientStore(infra.WithCleanupEvery(cfg.janitorEvery))
		mem.StartJanitor(ctx, cfg.limits.BlockDuration)
		store = mem
	}

	memStats := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.statsTrackKeys))
	sinks := infra.MultiStats{memStats}
	if cfg.statsRedisEnabled {
		sinks = append(sinks, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		))
	}

	var gatherer prometheus.Gatherer
	if cfg.metricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		prom, err := infra.NewPrometheusStats(reg)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		sinks = append(sinks, prom)
		gatherer = reg
	}

	var events webhookguard.EventSource
	if cfg.eventsEnabled {
		hub := infra.NewEventHub()
		sinks = append(sinks, hub)
		events = hub
	}

	var throttle domain.LimiterStore
	if cfg.apiRPS > 0 {
		buckets := infra.NewBucketStore(cfg.apiRPS, cfg.apiBurst)
		buckets.StartJanitor(ctx)
		throttle = buckets
	}

	keyFn := webhookguard.DefaultKeyFunc(cfg.keyHeader, cfg.trustXFF)
	guard, err := webhookguard.New(webhookguard.Options{
		Store:        store,
		Limits:       cfg.limits,
		Stats:        sinks,
		Throttle:     throttle,
		KeyFn:        keyFn,
		WebhookPath:  cfg.webhookPath,
		MaxBodyBytes: cfg.maxBodyBytes,
		Logger:       logger.Named("guard"),
	})
	if err != nil {
		return err
	}

	allow, err := webhookguard.ParseAllowlist(cfg.allowlist)
	if err != nil {
		return err
	}

	var pool domain.SlotPool
	if cfg.concurrencyMax > 0 {
		pool = infra.NewChanPool(cfg.concurrencyMax)
	}

	gw := &gateway{
		guard: guard,
		allowlist: webhookguard.AllowlistOptions{
			Enabled:     cfg.allowlistEnabled,
			List:        allow,
			WebhookPath: cfg.webhookPath,
			// a allowlist é por IP, nunca pelo header de chave
			KeyFn:  webhookguard.DefaultKeyFunc("", cfg.trustXFF),
			Logger: logger.Named("allowlist"),
		},
		inflight: webhookguard.InflightOptions{
			Pool:           pool,
			AcquireTimeout: cfg.concurrencyTimeout,
			Logger:         logger.Named("inflight"),
		},
		totals:     memStats,
		events:     events,
		metrics:    gatherer,
		upstream:   newProxy(target, logger.Named("proxy")),
		adminToken: cfg.adminToken,
		log:        logger,
	}

	// o stream de eventos é de longa duração; WriteTimeout o derrubaria
	writeTimeout := 30 * time.Second
	if cfg.eventsEnabled {
		writeTimeout = 0
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.listenAddr),
		zap.Stringer("upstream", target),
		zap.String("store", cfg.storeBackend),
	)
	logger.Info("webhook guard",
		zap.String("path", cfg.webhookPath),
		zap.Int("per_minute", cfg.limits.PerMinute),
		zap.Int("per_hour", cfg.limits.PerHour),
		zap.Duration("block_duration", cfg.limits.BlockDuration),
		zap.Bool("trust_xff", cfg.trustXFF),
		zap.Bool("allowlist", cfg.allowlistEnabled),
		zap.Int("allowlist_entries", allow.Len()),
	)
	logger.Info("extras",
		zap.Float64("api_rps", cfg.apiRPS),
		zap.Int("api_burst", cfg.apiBurst),
		zap.Int("concurrency_max", cfg.concurrencyMax),
		zap.Duration("concurrency_timeout", cfg.concurrencyTimeout),
		zap.Bool("stats_redis", cfg.statsRedisEnabled),
		zap.Bool("metrics", cfg.metricsEnabled),
		zap.Bool("events", cfg.eventsEnabled),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
