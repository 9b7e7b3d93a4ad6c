package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

// Config is what the API needs before the database is reachable.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	GitSHA    string `env:"GIT_SHA" envDefault:"dev"`
	BuildTime string `env:"BUILD_TIME"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	// DevAuth trusts the X-Debug-UID header. Never enable it in production.
	DevAuth bool `env:"DEV_AUTH" envDefault:"false"`
	// AllowedOriginSuffix is the hostname suffix of deployed frontends, on
	// top of localhost.
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"vercel.app"`

	// RedisURL enables cross-instance live delivery, e.g. redis://host:6379/0.
	RedisURL string `env:"REDIS_URL"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type DBConfig struct {
	DBUser     string `env:"DB_USER,required,notEmpty"`
	DBPassword string `env:"DB_PASSWORD,required,notEmpty"`
	DBHost     string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName     string `env:"DB_NAME,required,notEmpty"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`
	// InstanceConnectionName selects the Cloud SQL unix socket over DBHost.
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadDB() (*DBConfig, error) {
	var cfg DBConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
