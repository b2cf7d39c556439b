package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SEERBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SEERBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// Oracle
	setStr(&cfg.Oracle.APIKey, "SEERBOT_ORACLE_API_KEY")
	setStr(&cfg.Oracle.APIKey, "OPENAI_API_KEY") // compatibility alias
	setStr(&cfg.Oracle.BaseURL, "SEERBOT_ORACLE_BASE_URL")
	setStr(&cfg.Oracle.Model, "SEERBOT_ORACLE_MODEL")
	setDuration(&cfg.Oracle.Timeout, "SEERBOT_ORACLE_TIMEOUT")

	// Twitter
	setStr(&cfg.Twitter.APIKey, "SEERBOT_TWITTER_API_KEY")
	setStr(&cfg.Twitter.APIKey, "TWITTER_API_KEY") // compatibility alias
	setStr(&cfg.Twitter.WSHost, "SEERBOT_TWITTER_WS_HOST")
	setStringSlice(&cfg.Twitter.Accounts, "SEERBOT_TWITTER_ACCOUNTS")
	setInt(&cfg.Twitter.QueueSize, "SEERBOT_TWITTER_QUEUE_SIZE")
	setDuration(&cfg.Twitter.ReconnectBase, "SEERBOT_TWITTER_RECONNECT_BASE")
	setInt(&cfg.Twitter.MaxReconnects, "SEERBOT_TWITTER_MAX_RECONNECTS")

	// Opinion
	setStr(&cfg.Opinion.Host, "SEERBOT_OPINION_HOST")
	setStr(&cfg.Opinion.APIKey, "SEERBOT_OPINION_API_KEY")
	setStr(&cfg.Opinion.PrivateKey, "SEERBOT_OPINION_PRIVATE_KEY")
	setStr(&cfg.Opinion.MultisigAddr, "SEERBOT_OPINION_MULTISIG_ADDR")
	setStr(&cfg.Opinion.RPCURL, "SEERBOT_OPINION_RPC_URL")
	setInt(&cfg.Opinion.ChainID, "SEERBOT_OPINION_CHAIN_ID")
	setDuration(&cfg.Opinion.Timeout, "SEERBOT_OPINION_TIMEOUT")

	// Trading
	setFloat64(&cfg.Trading.SizeUSDC, "SEERBOT_TRADING_SIZE_USDC")
	setInt(&cfg.Trading.MaxRelevantMarkets, "SEERBOT_TRADING_MAX_RELEVANT_MARKETS")
	setDuration(&cfg.Trading.RemoteTimeout, "SEERBOT_TRADING_REMOTE_TIMEOUT")
	setInt(&cfg.Trading.MaxConcurrentSessions, "SEERBOT_TRADING_MAX_CONCURRENT_SESSIONS")

	// Catalog
	setDuration(&cfg.Catalog.RefreshInterval, "SEERBOT_CATALOG_REFRESH_INTERVAL")
	setInt(&cfg.Catalog.PageLimit, "SEERBOT_CATALOG_PAGE_LIMIT")

	// Redis
	setBool(&cfg.Redis.Enabled, "SEERBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SEERBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SEERBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SEERBOT_REDIS_DB")

	// Postgres
	setBool(&cfg.Postgres.Enabled, "SEERBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SEERBOT_POSTGRES_DSN")

	// S3
	setBool(&cfg.S3.Enabled, "SEERBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SEERBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SEERBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SEERBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SEERBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SEERBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "SEERBOT_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "SEERBOT_S3_ARCHIVE_INTERVAL")

	// Server
	setBool(&cfg.Server.Enabled, "SEERBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SEERBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SEERBOT_SERVER_CORS_ORIGINS")

	// Notify
	setStr(&cfg.Notify.TelegramToken, "SEERBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SEERBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SEERBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SEERBOT_NOTIFY_EVENTS")

	// Top-level
	setStr(&cfg.Mode, "SEERBOT_MODE")
	setStr(&cfg.LogLevel, "SEERBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
