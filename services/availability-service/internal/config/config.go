package config

import (
	"fmt"
	"time"

	libconfig "github.com/md-rashed-zaman/slotwise/libs/config"
	"github.com/md-rashed-zaman/slotwise/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotwise/libs/otel"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" env-default:"availability-service"`
	Env         string `env:"APP_ENV" env-default:"local" env-description:"local, dev or prod; selects the log format"`
	Port        string `env:"PORT" env-default:"8086"`
	GRPCPort    string `env:"GRPC_PORT" env-default:"9096"`

	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" env-default:"10"`

	Redis RedisConfig
	Sync  SyncConfig
	Slots SlotsConfig
	HTTP  HTTPConfig
	Otel  otelx.Config
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-description:"empty disables Redis; throttling and rate limits fall back to memory"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type SyncConfig struct {
	Brokers       []string      `env:"KAFKA_BROKERS" env-separator:"," env-description:"empty disables sync requests"`
	Topic         string        `env:"SYNC_TOPIC" env-default:"calendar.sync.requested.v1"`
	Throttle      time.Duration `env:"SYNC_THROTTLE" env-default:"5m" env-description:"minimum gap between sync requests for one provider"`
	Timeout       time.Duration `env:"SYNC_TIMEOUT" env-default:"5s"`
	MaxInFlight   int           `env:"SYNC_MAX_INFLIGHT" env-default:"16"`
	SweepSchedule string        `env:"SYNC_SWEEP_SCHEDULE" env-default:"@every 10m" env-description:"cron spec; empty disables the stale sync sweep"`
	StaleAfter    time.Duration `env:"SYNC_STALE_AFTER" env-default:"1h"`
}

type SlotsConfig struct {
	StepMinutes      int           `env:"SLOT_STEP_MINUTES" env-default:"0" env-description:"fixed candidate step; 0 derives it from duration and buffer"`
	SafetyBuffer     time.Duration `env:"SLOT_SAFETY_BUFFER" env-default:"15m"`
	DefaultDaysAhead int           `env:"DEFAULT_DAYS_AHEAD" env-default:"14"`
	FallbackTimezone string        `env:"FALLBACK_TIMEZONE" env-default:"America/New_York"`
}

type HTTPConfig struct {
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" env-default:"10s"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" env-default:"120"`
	CORSOrigins        []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// Load reads the environment, plus .env when present.
func Load() (Config, error) {
	var cfg Config
	if err := libconfig.Load(&cfg, ".env"); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.Sync.Brokers = kafkax.CleanBrokers(cfg.Sync.Brokers)
	return cfg, nil
}

func (c Config) Validate() error {
	if err := libconfig.ValidatePort("PORT", c.Port); err != nil {
		return err
	}
	if err := libconfig.ValidatePort("GRPC_PORT", c.GRPCPort); err != nil {
		return err
	}
	if c.Slots.StepMinutes < 0 {
		return fmt.Errorf("SLOT_STEP_MINUTES must not be negative (got %d)", c.Slots.StepMinutes)
	}
	if c.Slots.DefaultDaysAhead < 1 {
		return fmt.Errorf("DEFAULT_DAYS_AHEAD must be at least 1 (got %d)", c.Slots.DefaultDaysAhead)
	}
	return nil
}

func Usage() string {
	var cfg Config
	return libconfig.Describe(&cfg, "availability-service environment:")
}
