package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration before any file or environment overrides
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			GRPCHealthPort:  8081,
			ReadTimeout:     "15s",
			WriteTimeout:    "60s",
			ShutdownTimeout: "10s",
			AllowedOrigins:  []string{"http://localhost:3000"},
			MaxUploadBytes:  20 << 20, // 20MB
			MetricsEnabled:  true,
		},
		Auth: AuthConfig{
			SessionSecret:  "",
			SessionIssuer:  "property-manager",
			SessionTTL:     "12h",
			CookieSecure:   false,
			BcryptCost:     12,
			LoginRateLimit: 1,
			LoginBurst:     5,
		},
		Storage: StorageConfig{
			DataDir: "./data",
			Backend: "local",
			BlobDir: "./data/blobs",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/ledger.db",
		},
		SMS: SMSConfig{
			Enabled: false,
			Timeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Path: "./data/audit.jsonl",
		},
	}
}

// Load loads configuration from .env, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence
// (environment wins).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvString("HTTP_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("HTTP_PORT", c.Server.Port)
	c.Server.GRPCHealthPort = getEnvInt("GRPC_HEALTH_PORT", c.Server.GRPCHealthPort)
	c.Server.ReadTimeout = getEnvString("HTTP_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvString("HTTP_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvString("HTTP_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.Server.MetricsEnabled)

	c.Auth.SessionSecret = getEnvString("SESSION_SECRET", c.Auth.SessionSecret)
	c.Auth.SessionIssuer = getEnvString("SESSION_ISSUER", c.Auth.SessionIssuer)
	c.Auth.SessionTTL = getEnvString("SESSION_TTL", c.Auth.SessionTTL)
	c.Auth.CookieSecure = getEnvBool("COOKIE_SECURE", c.Auth.CookieSecure)
	c.Auth.BcryptCost = getEnvInt("BCRYPT_COST", c.Auth.BcryptCost)
	c.Auth.LoginRateLimit = getEnvFloat("LOGIN_RATE_LIMIT", c.Auth.LoginRateLimit)
	c.Auth.LoginBurst = getEnvInt("LOGIN_BURST", c.Auth.LoginBurst)

	c.Storage.DataDir = getEnvString("DATA_DIR", c.Storage.DataDir)
	c.Storage.Backend = getEnvString("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.BlobDir = getEnvString("BLOB_DIR", c.Storage.BlobDir)
	c.Storage.S3.Bucket = getEnvString("S3_BUCKET", c.Storage.S3.Bucket)
	c.Storage.S3.Region = getEnvString("S3_REGION", c.Storage.S3.Region)
	c.Storage.S3.Prefix = getEnvString("S3_PREFIX", c.Storage.S3.Prefix)
	c.Storage.S3.Endpoint = getEnvString("S3_ENDPOINT", c.Storage.S3.Endpoint)

	c.Database.Driver = getEnvString("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnvString("DATABASE_URL", c.Database.DSN)

	c.SMS.Enabled = getEnvBool("SMS_ENABLED", c.SMS.Enabled)
	c.SMS.URL = getEnvString("SMS_URL", c.SMS.URL)
	c.SMS.AccountID = getEnvString("SMS_ACCOUNT_ID", c.SMS.AccountID)
	c.SMS.AuthToken = getEnvString("SMS_AUTH_TOKEN", c.SMS.AuthToken)
	c.SMS.From = getEnvString("SMS_FROM", c.SMS.From)
	c.SMS.Timeout = getEnvString("SMS_TIMEOUT", c.SMS.Timeout)

	c.Logging.Level = getEnvString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvString("LOG_FORMAT", c.Logging.Format)

	c.Audit.Path = getEnvString("AUDIT_LOG_PATH", c.Audit.Path)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// String returns a pretty-printed JSON representation of the config.
// Secrets are tagged json:"-" and never printed.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.Port)
	}
	if c.Server.GRPCHealthPort < 0 || c.Server.GRPCHealthPort > 65535 {
		return fmt.Errorf("invalid grpc health port: %d", c.Server.GRPCHealthPort)
	}
	for name, value := range map[string]string{
		"read_timeout":     c.Server.ReadTimeout,
		"write_timeout":    c.Server.WriteTimeout,
		"shutdown_timeout": c.Server.ShutdownTimeout,
		"session_ttl":      c.Auth.SessionTTL,
		"sms timeout":      c.SMS.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes (set SESSION_SECRET)")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("invalid bcrypt cost: %d", c.Auth.BcryptCost)
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.BlobDir == "" {
			return fmt.Errorf("blob dir is required for local storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	if c.SMS.Enabled && (c.SMS.URL == "" || c.SMS.From == "") {
		return fmt.Errorf("sms url and from are required when sms is enabled")
	}
	return nil
}

// Duration parses one of the duration fields, which Validate has already checked
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// Path resolves a file name inside the data directory
func (c *Config) Path(name string) string {
	return filepath.Join(c.Storage.DataDir, name)
}
