package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ClaimerMemory = "memory"
	ClaimerRedis  = "redis"
)

type Config struct {
	AppEnv  string
	AppPort string

	DBDriver string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	PGHost    string
	PGPort    string
	PGDB      string
	PGUser    string
	PGPass    string
	PGSSLMode string

	RedisAddr string
	RedisPass string
	RedisDB   int

	IdempTTLSecs int

	// empty paths keep the built-in pricing table / start with no pools
	PricingTablePath string
	PoolSeedPath     string

	MarketplaceTimeout time.Duration
	MarketplaceRelist  bool
	MaxRelists         int
	MaxMatchRounds     int
	ListingRetention   time.Duration
	ClaimerBackend     string
	JanitorSpec        string

	AutoMigrate bool
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getbool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}

// Load reads the environment, after an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv:   getenv("APP_ENV", "development"),
		AppPort:  getenv("APP_PORT", "8080"),
		DBDriver: getenv("DB_DRIVER", "mysql"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "origination"),
		MySQLUser: getenv("MYSQL_USER", "origination"),
		MySQLPass: getenv("MYSQL_PASS", "origination"),

		PGHost:    getenv("PG_HOST", "postgres"),
		PGPort:    getenv("PG_PORT", "5432"),
		PGDB:      getenv("PG_DB", "origination"),
		PGUser:    getenv("PG_USER", "origination"),
		PGPass:    getenv("PG_PASS", "origination"),
		PGSSLMode: getenv("PG_SSLMODE", "disable"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisPass:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:      getint("REDIS_DB", 0),
		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		PricingTablePath: os.Getenv("PRICING_TABLE_PATH"),
		PoolSeedPath:     os.Getenv("POOL_SEED_PATH"),

		MarketplaceTimeout: getduration("MARKETPLACE_TIMEOUT", 72*time.Hour),
		MarketplaceRelist:  getbool("MARKETPLACE_RELIST", false),
		MaxRelists:         getint("MARKETPLACE_MAX_RELISTS", 0),
		MaxMatchRounds:     getint("POOL_MAX_MATCH_ROUNDS", 3),
		ListingRetention:   getduration("MARKETPLACE_LISTING_RETENTION", 24*time.Hour),
		ClaimerBackend:     getenv("MARKETPLACE_CLAIMER", ClaimerRedis),
		JanitorSpec:        getenv("MARKETPLACE_JANITOR_SPEC", "@every 10m"),

		AutoMigrate: getbool("DB_AUTO_MIGRATE", true),
	}
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "postgres":
		if c.PGHost == "" || c.PGPort == "" || c.PGDB == "" || c.PGUser == "" {
			return errors.New("missing Postgres config (PG_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.PGPort); err != nil {
			return fmt.Errorf("invalid PG_PORT %q: %w", c.PGPort, err)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.MarketplaceTimeout <= 0 {
		return errors.New("MARKETPLACE_TIMEOUT must be positive")
	}
	if c.MaxRelists < 0 || c.MaxMatchRounds < 1 {
		return errors.New("MARKETPLACE_MAX_RELISTS must be >= 0 and POOL_MAX_MATCH_ROUNDS >= 1")
	}
	if c.ClaimerBackend != ClaimerMemory && c.ClaimerBackend != ClaimerRedis {
		return fmt.Errorf("unsupported MARKETPLACE_CLAIMER %q", c.ClaimerBackend)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.PGHost, c.PGPort, c.PGUser, c.PGPass, c.PGDB, c.PGSSLMode)
}

// DSN returns the connection string for DBDriver.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.PostgresDSN()
	}
	return c.MySQLDSN()
}
