package config

// Config holds the configuration for the API server and the admin CLI
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	SMS      SMSConfig      `yaml:"sms" json:"sms"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Audit    AuditConfig    `yaml:"audit" json:"audit"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host            string   `yaml:"host" json:"host"`
	Port            int      `yaml:"port" json:"port"`
	GRPCHealthPort  int      `yaml:"grpc_health_port" json:"grpc_health_port"`
	ReadTimeout     string   `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    string   `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins" json:"allowed_origins"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes" json:"max_upload_bytes"`
	MetricsEnabled  bool     `yaml:"metrics_enabled" json:"metrics_enabled"`
}

// AuthConfig contains session and password settings
type AuthConfig struct {
	SessionSecret  string  `yaml:"session_secret" json:"-"`
	SessionIssuer  string  `yaml:"session_issuer" json:"session_issuer"`
	SessionTTL     string  `yaml:"session_ttl" json:"session_ttl"`
	CookieSecure   bool    `yaml:"cookie_secure" json:"cookie_secure"`
	BcryptCost     int     `yaml:"bcrypt_cost" json:"bcrypt_cost"`
	LoginRateLimit float64 `yaml:"login_rate_limit" json:"login_rate_limit"`
	LoginBurst     int     `yaml:"login_burst" json:"login_burst"`
}

// StorageConfig contains JSON collection and blob storage settings
type StorageConfig struct {
	DataDir string   `yaml:"data_dir" json:"data_dir"`
	Backend string   `yaml:"backend" json:"backend"` // "local" or "s3"
	BlobDir string   `yaml:"blob_dir" json:"blob_dir"`
	S3      S3Config `yaml:"s3" json:"s3"`
}

// S3Config for S3 storage backend
type S3Config struct {
	Bucket   string `yaml:"bucket" json:"bucket"`
	Region   string `yaml:"region" json:"region"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// DatabaseConfig contains the relational ledger store settings
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn" json:"-"`
}

// SMSConfig contains the outbound SMS provider settings
type SMSConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	URL       string `yaml:"url" json:"url"`
	AccountID string `yaml:"account_id" json:"account_id"`
	AuthToken string `yaml:"auth_token" json:"-"`
	From      string `yaml:"from" json:"from"`
	Timeout   string `yaml:"timeout" json:"timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, console
}

// AuditConfig contains audit trail settings
type AuditConfig struct {
	Path string `yaml:"path" json:"path"`
}
