package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr     string        `yaml:"addr"`
	RunDelay time.Duration `yaml:"run_delay"`
	LogDir   string        `yaml:"log_dir"`

	// RequestTimeout bounds the non-streaming routes. Buffered runs get the
	// total simulated delay on top of it.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	JWTSecret string `yaml:"jwt_secret"`

	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBName     string `yaml:"db_name"`

	MinIOEndpoint  string `yaml:"minio_endpoint"`
	MinIOAccessKey string `yaml:"minio_access_key"`
	MinIOSecretKey string `yaml:"minio_secret_key"`
	MinIOBucket    string `yaml:"minio_bucket"`
	MinIOSecure    bool   `yaml:"minio_secure"`
}

func Default() Config {
	return Config{
		Addr:        ":8000",
		RunDelay:       time.Second,
		LogDir:         "./logs",
		RequestTimeout: 60 * time.Second,
		DBPort:         "5432",
		MinIOBucket:    "fakeagent-runs",
	}
}

// JournalEnabled reports whether runs are recorded in postgres.
func (c Config) JournalEnabled() bool { return c.DBHost != "" }

// ArchiveEnabled reports whether run transcripts are uploaded to object storage.
func (c Config) ArchiveEnabled() bool { return c.MinIOEndpoint != "" }

// LoadConfig reads .env (if present), then the YAML file named by
// AGENT_CONFIG (if set); environment variables win over both.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("AGENT_CONFIG"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Addr = getEnv("AGENT_ADDR", cfg.Addr)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.MinIOEndpoint = getEnv("MINIO_ENDPOINT", cfg.MinIOEndpoint)
	cfg.MinIOAccessKey = getEnv("MINIO_ACCESS_KEY", cfg.MinIOAccessKey)
	cfg.MinIOSecretKey = getEnv("MINIO_SECRET_KEY", cfg.MinIOSecretKey)
	cfg.MinIOBucket = getEnv("MINIO_BUCKET", cfg.MinIOBucket)
	if v := os.Getenv("MINIO_SECURE"); v != "" {
		cfg.MinIOSecure = v == "true" || v == "1"
	}
	if err := durationEnv("RUN_DELAY", &cfg.RunDelay); err != nil {
		return err
	}
	return durationEnv("REQUEST_TIMEOUT", &cfg.RequestTimeout)
}

func durationEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}
