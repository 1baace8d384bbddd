package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	TargetsPath    string
	Workers        int
	PagesPerSource int
	MaxPerModel    int
	FetchRPS       int
	CacheTTL       time.Duration
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
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/auto_reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisDB:        atoi("REDIS_DB", 0),
		RedisPass:      env("REDIS_PASSWORD", ""),
		TargetsPath:    env("TARGETS_PATH", "targets.yaml"),
		Workers:        atoi("COLLECT_WORKERS", 4),
		PagesPerSource: atoi("PAGES_PER_SOURCE", 50),
		MaxPerModel:    atoi("MAX_REVIEWS_PER_MODEL", 1000),
		FetchRPS:       atoi("FETCH_RPS", 1),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.FetchRPS > 2 {
		log.Warn().Int("rps", c.FetchRPS).Msg("FETCH_RPS above 2 tends to get the collector blocked")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
