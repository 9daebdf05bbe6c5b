package config

import "time"

type App struct {
	Port          string `env:"APP_PORT" default:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	JWTSecret     string `env:"JWT_SECRET,required"`
	HolidayAPIKey string `env:"HOLIDAY_API_KEY"`
	Env           string `env:"APP_ENV" default:"dev"`

	CacheTTL             time.Duration `env:"AVAILABILITY_CACHE_TTL" default:"2m"`
	CleanupRetentionDays int           `env:"CLEANUP_RETENTION_DAYS" default:"90"`
	CleanupBatchSize     int           `env:"CLEANUP_BATCH_SIZE" default:"500"`

	Pricing Pricing
}

// Pricing rates are basis points of the package base daily price so operators
// can retune without a rebuild.
type Pricing struct {
	Day2SurchargeBps     int64    `env:"DAY2_SURCHARGE_BPS" default:"4000"`
	Day3To6SurchargeBps  int64    `env:"DAY3TO6_SURCHARGE_BPS" default:"2000"`
	Day7PlusSurchargeBps int64    `env:"DAY7PLUS_SURCHARGE_BPS" default:"1000"`
	WeekendHolidayBps    int64    `env:"WEEKEND_HOLIDAY_SURCHARGE_BPS" default:"1000"`
	VATBps               int64    `env:"VAT_BPS" default:"700"`
	Holidays             []string `env:"HOLIDAYS"` // comma-separated YYYY-MM-DD
}
