package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/infrastructure/password"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	Port           string   `env:"PORT,            default=3000"`
	Env            string   `env:"ENV,             default=development"`
	LogLevel       string   `env:"LOG_LEVEL,       default=info"`
	StoreDriver    string   `env:"STORE_DRIVER,    default=mongo"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*"`

	Auth   AuthConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	SQLite SQLiteConfig
	Audit  AuditConfig
}

type AuthConfig struct {
	JWTSecret     string   `env:"JWT_SECRET"`
	JWTExpiresIn  Duration `env:"JWT_EXPIRES_IN,     default=7d"`
	HashAlgorithm string   `env:"HASH_ALGORITHM,     default=bcrypt"`
	RawWorkFactor string   `env:"BCRYPT_WORK_FACTOR"`

	// WorkFactor is RawWorkFactor after validation.
	WorkFactor int
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=data/identity.db"`
}

type AuditConfig struct {
	Workers   int `env:"AUDIT_WORKERS,    default=4"`
	QueueSize int `env:"AUDIT_QUEUE_SIZE, default=256"`
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads an optional .env file, then the process environment. Every
// failure is a *domain.ConfigurationError.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, &domain.ConfigurationError{Key: "environment", Reason: "cannot be decoded", Err: err}
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, &domain.ConfigurationError{Key: "JWT_SECRET", Reason: "is required"}
	}

	workFactor, err := password.ParseWorkFactor(cfg.Auth.RawWorkFactor)
	if err != nil {
		return nil, err
	}
	cfg.Auth.WorkFactor = workFactor

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreMongo, StoreSQLite, StoreRedis:
	default:
		return nil, &domain.ConfigurationError{
			Key:    "STORE_DRIVER",
			Reason: fmt.Sprintf("unsupported driver %q (use mongo, sqlite or redis)", cfg.StoreDriver),
		}
	}

	if cfg.Audit.Workers <= 0 {
		return nil, &domain.ConfigurationError{Key: "AUDIT_WORKERS", Reason: "must be positive"}
	}
	if cfg.Audit.QueueSize <= 0 {
		return nil, &domain.ConfigurationError{Key: "AUDIT_QUEUE_SIZE", Reason: "must be positive"}
	}

	return &cfg, nil
}

// loadDotEnv applies path to the process environment when the file exists.
// Variables already set are left alone.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &domain.ConfigurationError{Key: path, Reason: "cannot be read", Err: err}
	}
	return nil
}

// Duration accepts Go durations, a whole number of days ("7d") or a bare
// number of seconds.
type Duration time.Duration

func (d *Duration) EnvDecode(val string) error {
	parsed, err := ParseDuration(val)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty duration")
	}

	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("duration must be positive, got %q", raw)
		}
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", raw)
	}
	return d, nil
}
