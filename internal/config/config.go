// Package config defines the top-level configuration for the seer engine and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SEERBOT_* environment variables.
type Config struct {
	Oracle   OracleConfig   `toml:"oracle"`
	Twitter  TwitterConfig  `toml:"twitter"`
	Opinion  OpinionConfig  `toml:"opinion"`
	Trading  TradingConfig  `toml:"trading"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// OracleConfig holds the LLM decision-oracle endpoint and model parameters.
type OracleConfig struct {
	APIKey  string   `toml:"api_key"`
	BaseURL string   `toml:"base_url"`
	Model   string   `toml:"model"`
	Timeout duration `toml:"timeout"`
}

// TwitterConfig holds the event-stream credentials and connection policy.
type TwitterConfig struct {
	APIKey        string   `toml:"api_key"`
	WSHost        string   `toml:"ws_host"`
	Accounts      []string `toml:"accounts"`
	QueueSize     int      `toml:"queue_size"`
	ReconnectBase duration `toml:"reconnect_base"`
	MaxReconnects int      `toml:"max_reconnects"`
	MockInterval  duration `toml:"mock_interval"`
}

// OpinionConfig holds Opinion Trade venue credentials and endpoints.
type OpinionConfig struct {
	Host         string   `toml:"host"`
	APIKey       string   `toml:"api_key"`
	PrivateKey   string   `toml:"private_key"`
	MultisigAddr string   `toml:"multisig_addr"`
	RPCURL       string   `toml:"rpc_url"`
	ChainID      int      `toml:"chain_id"`
	Timeout      duration `toml:"timeout"`
}

// Credentialed reports whether order placement is possible. Without full
// credentials the engine analyzes but records executions as failed.
func (o OpinionConfig) Credentialed() bool {
	return o.APIKey != "" && o.PrivateKey != "" && o.MultisigAddr != ""
}

// TradingConfig holds analyzer trade policy.
type TradingConfig struct {
	// SizeUSDC is the fixed per-trade size. The oracle's suggested size is
	// advisory only and is always overridden by this value.
	SizeUSDC float64 `toml:"size_usdc"`
	// MaxRelevantMarkets bounds the filter-stage fan-out.
	MaxRelevantMarkets int `toml:"max_relevant_markets"`
	// RemoteTimeout bounds each oracle/venue call inside the pipeline.
	RemoteTimeout duration `toml:"remote_timeout"`
	// MaxConcurrentSessions bounds in-flight pipeline runs.
	MaxConcurrentSessions int `toml:"max_concurrent_sessions"`
}

// CatalogConfig holds market-catalog refresh parameters.
type CatalogConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	PageLimit       int      `toml:"page_limit"`
}

// RedisConfig holds the optional Redis signal-bus connection. When disabled,
// an in-process bus is used instead.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// PostgresConfig holds the optional session audit-log connection.
type PostgresConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

// S3Config holds optional cold-storage archival of sealed sessions.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// ServerConfig holds HTTP/WebSocket server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Oracle: OracleConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-5.1",
			Timeout: duration{60 * time.Second},
		},
		Twitter: TwitterConfig{
			WSHost:        "wss://ws.twitterapi.io/twitter/tweet/websocket",
			QueueSize:     64,
			ReconnectBase: duration{90 * time.Second},
			MaxReconnects: 5,
			MockInterval:  duration{45 * time.Second},
		},
		Opinion: OpinionConfig{
			Host:    "https://proxy.opinion.trade:8443",
			RPCURL:  "https://bsc-dataseed.binance.org",
			ChainID: 56,
			Timeout: duration{30 * time.Second},
		},
		Trading: TradingConfig{
			SizeUSDC:              5.0,
			MaxRelevantMarkets:    5,
			RemoteTimeout:         duration{45 * time.Second},
			MaxConcurrentSessions: 4,
		},
		Catalog: CatalogConfig{
			RefreshInterval: duration{60 * time.Second},
			PageLimit:       20,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "seerbot-sessions",
			ForcePathStyle:  true,
			ArchiveInterval: duration{10 * time.Minute},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        3001,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "trade_failed", "session_error"},
		},
		Mode:     "live",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live":   true,
	"demo":   true,
	"server": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, demo, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Oracle: required for any mode that runs the pipeline.
	if c.Mode == "live" || c.Mode == "demo" {
		if c.Oracle.APIKey == "" {
			errs = append(errs, "oracle: api_key is required for mode "+c.Mode)
		}
	}
	if c.Oracle.BaseURL == "" {
		errs = append(errs, "oracle: base_url must not be empty")
	}
	if c.Oracle.Model == "" {
		errs = append(errs, "oracle: model must not be empty")
	}

	// Twitter: required only in live mode.
	if c.Mode == "live" && c.Twitter.APIKey == "" {
		errs = append(errs, "twitter: api_key is required for live mode (use demo mode without one)")
	}
	if c.Twitter.QueueSize < 1 {
		errs = append(errs, "twitter: queue_size must be >= 1")
	}
	if c.Twitter.MaxReconnects < 0 {
		errs = append(errs, "twitter: max_reconnects must be >= 0")
	}

	// Opinion credentials are all-or-nothing.
	ak := c.Opinion.APIKey != ""
	pk := c.Opinion.PrivateKey != ""
	ms := c.Opinion.MultisigAddr != ""
	if (ak || pk || ms) && !(ak && pk && ms) {
		errs = append(errs, "opinion: api_key, private_key, and multisig_addr must all be set together")
	}
	if c.Opinion.Host == "" {
		errs = append(errs, "opinion: host must not be empty")
	}
	if c.Opinion.ChainID <= 0 {
		errs = append(errs, "opinion: chain_id must be positive")
	}

	// Trading
	if c.Trading.SizeUSDC <= 0 {
		errs = append(errs, "trading: size_usdc must be > 0")
	}
	if c.Trading.MaxRelevantMarkets < 1 || c.Trading.MaxRelevantMarkets > 5 {
		errs = append(errs, fmt.Sprintf("trading: max_relevant_markets must be 1-5, got %d", c.Trading.MaxRelevantMarkets))
	}
	if c.Trading.MaxConcurrentSessions < 1 {
		errs = append(errs, "trading: max_concurrent_sessions must be >= 1")
	}

	// Catalog
	if c.Catalog.RefreshInterval.Duration <= 0 {
		errs = append(errs, "catalog: refresh_interval must be > 0")
	}
	if c.Catalog.PageLimit < 1 {
		errs = append(errs, "catalog: page_limit must be >= 1")
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	// Postgres
	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		errs = append(errs, "postgres: dsn must not be empty when enabled")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "s3: archive_interval must be > 0 when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
