package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// ChatHistoryLimit bounds message replay on room join; 0 disables it.
	ChatHistoryLimit int `mapstructure:"chat_history_limit" yaml:"chat_history_limit"`
	// ChatIdleTimeout closes a connection with no inbound frames; 0 disables.
	ChatIdleTimeout time.Duration `mapstructure:"chat_idle_timeout" yaml:"chat_idle_timeout"`
	// ChatSendBuffer is the per-connection outbound queue; a peer that falls
	// this far behind is evicted as a slow consumer.
	ChatSendBuffer int `mapstructure:"chat_send_buffer" yaml:"chat_send_buffer"`
	// AliasSeed seeds the anonymous name pool; 0 means a random seed.
	AliasSeed int64 `mapstructure:"alias_seed" yaml:"alias_seed"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "courseconnect.db",
		LogLevel:          "info",
		JWTSecret:         "",
		JWTIssuer:         "courseconnect",
		JWTAudience:       "courseconnect-clients",
		JWTTTL:            24 * time.Hour,
		ChatHistoryLimit:  50,
		ChatIdleTimeout:   5 * time.Minute,
		ChatSendBuffer:    32,
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
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTTTL != 0 {
		c.JWTTTL = other.JWTTTL
	}
	if other.ChatHistoryLimit != 0 {
		c.ChatHistoryLimit = other.ChatHistoryLimit
	}
	if other.ChatIdleTimeout != 0 {
		c.ChatIdleTimeout = other.ChatIdleTimeout
	}
	if other.ChatSendBuffer != 0 {
		c.ChatSendBuffer = other.ChatSendBuffer
	}
	if other.AliasSeed != 0 {
		c.AliasSeed = other.AliasSeed
	}
}
