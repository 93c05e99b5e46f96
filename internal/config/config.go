package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	// RedisURL switches chat history to Redis when set. Accounts, catalog and
	// orders always live in SQLite.
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	JWTRequired bool          `mapstructure:"jwt_required" yaml:"jwt_required"`
	StaffEmails []string      `mapstructure:"staff_emails" yaml:"staff_emails"`

	UploadDir      string `mapstructure:"upload_dir" yaml:"upload_dir"`
	UploadBaseURL  string `mapstructure:"upload_base_url" yaml:"upload_base_url"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`

	MaxMessageBytes    int `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	EventBuffer        int `mapstructure:"event_buffer" yaml:"event_buffer"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":3000",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		DatabasePath:       "crm.db",
		JWTSecret:          "change-me",
		JWTIssuer:          "dsolution-crm",
		JWTAudience:        "dsolution-crm",
		JWTTTL:             time.Hour,
		JWTRequired:        true,
		UploadDir:          "uploads",
		UploadBaseURL:      "/uploads",
		MaxUploadBytes:     10 << 20,
		MaxMessageBytes:    4096,
		RateLimitPerMinute: 60,
		EventBuffer:        16,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RedisURL != "" {
		c.RedisURL = other.RedisURL
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
}
