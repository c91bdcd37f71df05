package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	Codes       CodesConfig
	Mail        MailConfig
	Geo         GeoConfig
	Workers     WorkersConfig
	Outbox      OutboxConfig
	Sweeper     SweeperConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// SessionConfig drives sliding expiry and the cache tiers.
type SessionConfig struct {
	RefreshWindow   time.Duration
	MaxDuration     time.Duration
	LocalCacheSize  int
	LocalCacheTTL   time.Duration
	RedisSessionTTL time.Duration
	RedisUserTTL    time.Duration
	CookieName      string
	CookieSecure    bool
}

type RateLimitConfig struct {
	Window    time.Duration
	Max       int
	KeyPrefix string
}

type CodesConfig struct {
	Lifetime time.Duration
	CacheTTL time.Duration
	Length   int
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type GeoConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
}

type WorkersConfig struct {
	Size        int
	QueueSize   int
	TaskTimeout time.Duration
}

type OutboxConfig struct {
	Path         string
	SyncInterval time.Duration
	BatchSize    int
	MaxRetry     int
	Retention    time.Duration
}

type SweeperConfig struct {
	Interval time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	refresh := getDuration("SESSION_REFRESH_WINDOW", 15*24*time.Hour)
	cfg := &Config{
		AppName:     getString("APP_NAME", "sessionguard"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "sessionguard"),
			User:            getString("DB_USER", "sessionguard"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			RefreshWindow:   refresh,
			MaxDuration:     getDuration("SESSION_MAX_DURATION", 2*refresh),
			LocalCacheSize:  getInt("SESSION_LOCAL_CACHE_SIZE", 1000),
			LocalCacheTTL:   getDuration("SESSION_LOCAL_CACHE_TTL", time.Minute),
			RedisSessionTTL: getDuration("SESSION_REDIS_TTL", 24*time.Hour),
			RedisUserTTL:    getDuration("SESSION_REDIS_USER_TTL", time.Hour),
			CookieName:      getString("SESSION_COOKIE_NAME", "session"),
			CookieSecure:    getBool("SESSION_COOKIE_SECURE", false),
		},
		RateLimit: RateLimitConfig{
			Window:    getDuration("RATE_LIMIT_WINDOW", time.Minute),
			Max:       getInt("RATE_LIMIT_MAX", 5),
			KeyPrefix: getString("RATE_LIMIT_PREFIX", "rl-auth"),
		},
		Codes: CodesConfig{
			Lifetime: getDuration("CODE_LIFETIME", 10*time.Minute),
			CacheTTL: getDuration("CODE_CACHE_TTL", 10*time.Minute),
			Length:   getInt("CODE_LENGTH", 6),
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getString("SMTP_FROM", "no-reply@localhost"),
		},
		Geo: GeoConfig{
			Enabled:  getBool("GEO_ENABLED", true),
			Endpoint: getString("GEO_ENDPOINT", "http://ip-api.com/json/"),
			Timeout:  getDuration("GEO_TIMEOUT", 2*time.Second),
		},
		Workers: WorkersConfig{
			Size:        getInt("WORKERS_SIZE", 4),
			QueueSize:   getInt("WORKERS_QUEUE_SIZE", 256),
			TaskTimeout: getDuration("WORKERS_TASK_TIMEOUT", 5*time.Second),
		},
		Outbox: OutboxConfig{
			Path:         getString("BOLTDB_PATH", "./data/outbox.db"),
			SyncInterval: getDuration("SYNC_INTERVAL_SECONDS", 30*time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 50),
			MaxRetry:     getInt("MAX_RETRY_ATTEMPTS", 5),
			Retention:    getDuration("OUTBOX_RETENTION", 24*time.Hour),
		},
		Sweeper: SweeperConfig{
			Interval: getDuration("SWEEPER_INTERVAL", time.Hour),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg.Database)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects settings the session lifecycle cannot work with.
func (c *Config) Validate() error {
	var errs []error
	s := c.Session
	if s.RefreshWindow <= 0 {
		errs = append(errs, errors.New("session refresh window must be positive"))
	}
	if s.MaxDuration != 2*s.RefreshWindow {
		errs = append(errs, fmt.Errorf("session max duration %s must be twice the refresh window %s", s.MaxDuration, s.RefreshWindow))
	}
	if s.LocalCacheSize <= 0 || s.LocalCacheTTL <= 0 {
		errs = append(errs, errors.New("local session cache size and ttl must be positive"))
	}
	if s.RedisSessionTTL <= 0 || s.RedisUserTTL <= 0 {
		errs = append(errs, errors.New("redis session ttls must be positive"))
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.Max <= 0 {
		errs = append(errs, errors.New("rate limit window and max must be positive"))
	}
	if c.Codes.Lifetime <= 0 || c.Codes.CacheTTL <= 0 || c.Codes.Length <= 0 {
		errs = append(errs, errors.New("verification code settings must be positive"))
	}
	return errors.Join(errs...)
}

func buildPostgresURL(db DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
