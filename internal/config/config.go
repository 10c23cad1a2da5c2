package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leca/photex/internal/storage"
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendBadger     = "badger"
	BackendS3         = "s3"
)

type Config struct {
	ListenAddr     string `yaml:"listen_addr"`
	DBPath         string `yaml:"db_path"`
	StorageBackend string `yaml:"storage_backend"`
	StoragePath    string `yaml:"storage_path"`
	BaseURL        string `yaml:"base_url"`
	// ObjectBaseURL prefixes object keys in image URLs. Defaults to
	// BaseURL + "/objects".
	ObjectBaseURL  string           `yaml:"object_base_url"`
	AuthToken      string           `yaml:"auth_token"`
	MaxUploadBytes int              `yaml:"max_upload_bytes"`
	PurgeObjects   bool             `yaml:"purge_objects"`
	LogLevel       string           `yaml:"log_level"`
	S3             storage.S3Config `yaml:"s3"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:     ":8080",
		DBPath:         "/data/db/photex.db",
		StorageBackend: BackendFilesystem,
		StoragePath:    "/data/objects",
		BaseURL:        "http://localhost:8080",
		MaxUploadBytes: 20 << 20,
		LogLevel:       "info",
		S3:             storage.S3Config{Bucket: "photex"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and PHOTEX_* environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ListenAddr = getEnv("PHOTEX_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = getEnv("PHOTEX_DB_PATH", cfg.DBPath)
	cfg.StorageBackend = getEnv("PHOTEX_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.StoragePath = getEnv("PHOTEX_STORAGE_PATH", cfg.StoragePath)
	cfg.BaseURL = getEnv("PHOTEX_BASE_URL", cfg.BaseURL)
	cfg.ObjectBaseURL = getEnv("PHOTEX_OBJECT_BASE_URL", cfg.ObjectBaseURL)
	cfg.AuthToken = getEnv("PHOTEX_AUTH_TOKEN", cfg.AuthToken)
	cfg.MaxUploadBytes = getEnvInt("PHOTEX_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.PurgeObjects = getEnvBool("PHOTEX_PURGE_OBJECTS", cfg.PurgeObjects)
	cfg.LogLevel = getEnv("PHOTEX_LOG_LEVEL", getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.S3.Endpoint = getEnv("PHOTEX_S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.AccessKey = getEnv("PHOTEX_S3_ACCESS_KEY", cfg.S3.AccessKey)
	cfg.S3.SecretKey = getEnv("PHOTEX_S3_SECRET_KEY", cfg.S3.SecretKey)
	cfg.S3.Bucket = getEnv("PHOTEX_S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.UseSSL = getEnvBool("PHOTEX_S3_USE_SSL", cfg.S3.UseSSL)

	if cfg.ObjectBaseURL == "" {
		cfg.ObjectBaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/objects"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendFilesystem, BackendBadger:
	case BackendS3:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return errors.New("config: s3 backend needs an endpoint and a bucket")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.StorageBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: max_upload_bytes must be positive")
	}
	if c.StorageBackend == BackendBadger && c.StoragePath == "" && c.MaxUploadBytes > storage.InMemoryBadgerLimit {
		return fmt.Errorf("config: in-memory badger holds at most %d bytes per object, lower max_upload_bytes", storage.InMemoryBadgerLimit)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var result int
	for _, c := range v {
		if c < '0' || c > '9' {
			return defaultValue
		}
		result = result*10 + int(c-'0')
	}
	return result
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return defaultValue
	}
}
