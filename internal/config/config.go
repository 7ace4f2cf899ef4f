package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the API process reads from the environment.
type Config struct {
	Port           int           `env:"PORT" envDefault:"8080"`
	Debug          bool          `env:"DEBUG" envDefault:"false"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"https://*,http://*"`

	DBDriver         string `env:"DB_DRIVER" envDefault:"mongo"`
	MongoURI         string `env:"MONGODB_URI"`
	DBUsername       string `env:"DB_USERNAME"`
	DBPassword       string `env:"DB_PASSWORD"`
	ConnectionString string `env:"DB_CONNECTION_STRING"`
	DBName           string `env:"DB_NAME" envDefault:"serialhub"`

	JWTSecret string `env:"JWTSECRET,required"`

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"1m"`

	MeiliURL       string `env:"MEILI_URL"`
	MeiliMasterKey string `env:"MEILI_MASTER_KEY"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"covers"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	MinioPublicURL string `env:"MINIO_PUBLIC_URL"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"6h"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mongo":
		if c.MongoDSN() == "" {
			return fmt.Errorf("config: MONGODB_URI or DB_CONNECTION_STRING is required for the mongo driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("config: RECONCILE_INTERVAL must be positive")
	}
	return nil
}

// MongoDSN returns MONGODB_URI when set, otherwise the legacy Atlas form
// assembled from DB_USERNAME, DB_PASSWORD and DB_CONNECTION_STRING.
func (c *Config) MongoDSN() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	if c.ConnectionString == "" {
		return ""
	}
	if strings.Contains(c.ConnectionString, "://") {
		return c.ConnectionString
	}
	return fmt.Sprintf("mongodb+srv://%s:%s%s", c.DBUsername, c.DBPassword, c.ConnectionString)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
