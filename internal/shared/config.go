package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
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

	VendorBase      string
	VendorKey       string
	VendorRPS       int
	RankerURL       string
	ProviderTimeout time.Duration
	RequestTimeout  time.Duration
	CacheTTL        time.Duration
	SessionTTL      time.Duration

	TopN    int
	TaxRate float64
	FeeRate float64

	GeminiKey   string
	GeminiModel string
	Workers     int
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over .env entries.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid integer; using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid rate; using default")
		}
		return def
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    os.Getenv("MYSQL_DSN"), // empty: in-memory bookings
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		VendorBase:      env("VENDOR_BASE_URL", "http://localhost:8090"),
		VendorKey:       env("VENDOR_API_KEY", ""),
		VendorRPS:       atoi("VENDOR_RPS", 5),
		RankerURL:       os.Getenv("PACKAGE_RANKER_URL"),
		ProviderTimeout: time.Duration(atoi("PROVIDER_TIMEOUT_MS", 8000)) * time.Millisecond,
		RequestTimeout:  time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		SessionTTL:      time.Duration(atoi("SESSION_TTL_MINUTES", 120)) * time.Minute,

		TopN:    atoi("TOP_N", 3),
		TaxRate: atof("TAX_RATE", 0.0875),
		FeeRate: atof("FEE_RATE", 0.025),

		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel: env("GEMINI_MODEL", "gemini-1.5-flash"),
		Workers:     atoi("PLANNER_WORKERS", 4),
	}
	if c.VendorKey == "" {
		log.Warn().Msg("VENDOR_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
