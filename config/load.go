package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

func Load() App {
	cfg := App{
		Port:          getenv("APP_PORT", "8080"),
		DatabaseURL:   must("DATABASE_URL"),
		JWTSecret:     getenv("JWT_SECRET", "local_dev_secret"),
		HolidayAPIKey: os.Getenv("HOLIDAY_API_KEY"),
		Env:           getenv("APP_ENV", "dev"),

		CacheTTL:             getdur("AVAILABILITY_CACHE_TTL", 2*time.Minute),
		CleanupRetentionDays: getint("CLEANUP_RETENTION_DAYS", 90),
		CleanupBatchSize:     getint("CLEANUP_BATCH_SIZE", 500),

		Pricing: Pricing{
			Day2SurchargeBps:     getint64("DAY2_SURCHARGE_BPS", 4000),
			Day3To6SurchargeBps:  getint64("DAY3TO6_SURCHARGE_BPS", 2000),
			Day7PlusSurchargeBps: getint64("DAY7PLUS_SURCHARGE_BPS", 1000),
			WeekendHolidayBps:    getint64("WEEKEND_HOLIDAY_SURCHARGE_BPS", 1000),
			VATBps:               getint64("VAT_BPS", 700),
			Holidays:             getlist("HOLIDAYS"),
		},
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("bad int env, using default", "key", k, "value", v)
		return def
	}
	return n
}

func getint64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("bad int env, using default", "key", k, "value", v)
		return def
	}
	return n
}

func getdur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("bad duration env, using default", "key", k, "value", v)
		return def
	}
	return d
}

func getlist(k string) []string {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
