package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	NATSURL     string

	ChannexBase string
	ChannexRPS  int

	Workers       int
	BatchSize     int
	RetryBatch    int
	MaxRetries    int
	FullWindow    int
	PullWindow    int
	LogRetention  time.Duration
	JobTimeout    time.Duration
	CacheTTL      time.Duration

	IncrementalEvery time.Duration
	HealthEvery      time.Duration
	RetryEvery       time.Duration
	FullAt           int // hour of day, UTC
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	mins := func(k string, def int) time.Duration {
		return time.Duration(atoi(k, def)) * time.Minute
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/channelsync?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		NATSURL:     env("NATS_URL", ""),

		ChannexBase: env("CHANNEX_BASE_URL", "https://staging.channex.io/api/v1"),
		ChannexRPS:  atoi("CHANNEX_RPS", 5),

		Workers:      atoi("SYNC_WORKERS", 4),
		BatchSize:    atoi("SYNC_BATCH_SIZE", 500),
		RetryBatch:   atoi("SYNC_RETRY_BATCH_SIZE", 100),
		MaxRetries:   atoi("SYNC_MAX_RETRIES", 5),
		FullWindow:   atoi("SYNC_FULL_WINDOW_DAYS", 365),
		PullWindow:   atoi("SYNC_PULL_WINDOW_DAYS", 30),
		LogRetention: time.Duration(atoi("SYNC_LOG_RETENTION_DAYS", 30)) * 24 * time.Hour,
		JobTimeout:   mins("SYNC_JOB_TIMEOUT_MINUTES", 5),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		IncrementalEvery: mins("SYNC_INCREMENTAL_MINUTES", 15),
		HealthEvery:      mins("SYNC_HEALTH_MINUTES", 30),
		RetryEvery:       mins("SYNC_RETRY_MINUTES", 240),
		FullAt:           atoi("SYNC_FULL_HOUR_UTC", 3),
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty; availability and calendar caching disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
