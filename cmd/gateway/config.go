package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"webhook-gateway/middleware/webhookguard"
	"webhook-gateway/middleware/webhookguard/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type config struct {
	listenAddr   string
	upstreamURL  string
	webhookPath  string
	limits       domain.Limits
	maxBodyBytes int64
	keyHeader    string
	trustXFF     bool
	adminToken   string

	allowlistEnabled bool
	allowlist        []string

	storeBackend  string
	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	janitorEvery  time.Duration

	apiRPS   float64
	apiBurst int

	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsRedisEnabled bool
	statsPrefix       string
	statsTTL          time.Duration
	statsBucket       string
	statsTrackKeys    bool

	metricsEnabled bool
	eventsEnabled  bool
	logLevel       zapcore.Level
}

func setDefaults(v *viper.Viper) {
	d := domain.DefaultLimits()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("WEBHOOK_PATH", webhookguard.DefaultWebhookPath)
	v.SetDefault("RATE_PER_MINUTE", d.PerMinute)
	v.SetDefault("RATE_PER_HOUR", d.PerHour)
	v.SetDefault("BLOCK_DURATION", d.BlockDuration)
	v.SetDefault("MAX_BODY_BYTES", webhookguard.DefaultMaxBodyBytes)
	v.SetDefault("TRUST_XFF", false)
	v.SetDefault("IP_ALLOWLIST_ENABLED", false)
	v.SetDefault("IP_ALLOWLIST", strings.Join(webhookguard.DefaultTelegramAllowlist, ","))
	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "webhookguard")
	v.SetDefault("JANITOR_EVERY", 2*time.Minute)
	v.SetDefault("API_RATE_RPS", 0)
	v.SetDefault("API_RATE_BURST", 20)
	v.SetDefault("CONCURRENCY_MAX", 100)
	v.SetDefault("CONCURRENCY_TIMEOUT", 2*time.Second)
	v.SetDefault("STATS_REDIS_ENABLED", false)
	v.SetDefault("STATS_PREFIX", "webhookguard:stats")
	v.SetDefault("STATS_TTL", 24*time.Hour)
	v.SetDefault("STATS_BUCKET", "minute")
	v.SetDefault("STATS_TRACK_KEYS", false)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("EVENTS_ENABLED", false)
	v.SetDefault("LOG_LEVEL", "info")
}

// readConfig lê .env (se existir), variáveis de ambiente e, opcionalmente,
// o arquivo apontado por CONFIG_FILE. Ambiente tem precedência sobre o arquivo.
func readConfig() (config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("unable to read CONFIG_FILE %q: %w", file, err)
		}
	}

	cfg := config{
		listenAddr:   v.GetString("LISTEN_ADDR"),
		upstreamURL:  strings.TrimSpace(v.GetString("UPSTREAM_URL")),
		webhookPath:  v.GetString("WEBHOOK_PATH"),
		maxBodyBytes: v.GetInt64("MAX_BODY_BYTES"),
		keyHeader:    strings.TrimSpace(v.GetString("RATE_KEY_HEADER")),
		trustXFF:     v.GetBool("TRUST_XFF"),
		adminToken:   v.GetString("ADMIN_TOKEN"),
		limits: domain.Limits{
			PerMinute:     v.GetInt("RATE_PER_MINUTE"),
			PerHour:       v.GetInt("RATE_PER_HOUR"),
			BlockDuration: v.GetDuration("BLOCK_DURATION"),
		},

		allowlistEnabled: v.GetBool("IP_ALLOWLIST_ENABLED"),
		allowlist:        splitList(v.GetStringSlice("IP_ALLOWLIST")),

		storeBackend:  strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		redisAddr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
		redisPassword: v.GetString("REDIS_PASSWORD"),
		redisDB:       v.GetInt("REDIS_DB"),
		redisPrefix:   v.GetString("REDIS_PREFIX"),
		janitorEvery:  v.GetDuration("JANITOR_EVERY"),

		apiRPS:   v.GetFloat64("API_RATE_RPS"),
		apiBurst: v.GetInt("API_RATE_BURST"),

		concurrencyMax:     v.GetInt("CONCURRENCY_MAX"),
		concurrencyTimeout: v.GetDuration("CONCURRENCY_TIMEOUT"),

		statsRedisEnabled: v.GetBool("STATS_REDIS_ENABLED"),
		statsPrefix:       v.GetString("STATS_PREFIX"),
		statsTTL:          v.GetDuration("STATS_TTL"),
		statsBucket:       v.GetString("STATS_BUCKET"),
		statsTrackKeys:    v.GetBool("STATS_TRACK_KEYS"),

		metricsEnabled: v.GetBool("METRICS_ENABLED"),
		eventsEnabled:  v.GetBool("EVENTS_ENABLED"),
	}

	level, err := zapcore.ParseLevel(v.GetString("LOG_LEVEL"))
	if err != nil {
		return config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.logLevel = level

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.upstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	if u, err := url.Parse(c.upstreamURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid UPSTREAM_URL %q", c.upstreamURL)
	}
	if err := c.limits.Validate(); err != nil {
		return fmt.Errorf("RATE_PER_MINUTE/RATE_PER_HOUR/BLOCK_DURATION: %w", err)
	}
	if strings.TrimSpace(c.webhookPath) == "" {
		return errors.New("WEBHOOK_PATH must not be empty")
	}
	if c.maxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}

	switch c.storeBackend {
	case "memory":
	case "redis":
		if c.redisAddr == "" {
			return errors.New("REDIS_ADDR is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q (memory|redis)", c.storeBackend)
	}
	if c.statsRedisEnabled && c.redisAddr == "" {
		return errors.New("REDIS_ADDR is required when STATS_REDIS_ENABLED=true")
	}

	if c.allowlistEnabled && len(c.allowlist) == 0 {
		return errors.New("IP_ALLOWLIST must not be empty when IP_ALLOWLIST_ENABLED=true")
	}
	if c.apiRPS < 0 {
		return errors.New("API_RATE_RPS must be >= 0")
	}
	if c.apiRPS > 0 && c.apiBurst <= 0 {
		return errors.New("API_RATE_BURST must be > 0")
	}
	if c.concurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.concurrencyTimeout < 0 {
		return errors.New("CONCURRENCY_TIMEOUT must be >= 0")
	}
	return nil
}

// splitList aceita tanto lista (arquivo de config) quanto "a,b,c" (env).
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
