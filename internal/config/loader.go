package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PEGGUARD_* environment variable overrides, and
// returns the final Config. A missing file is not an error: the agents can
// run entirely from environment variables, so Load falls through to env-only
// configuration. The returned Config has NOT been validated; the caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	applyEnvJobs(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PEGGUARD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Chain.RPCURL, "PEGGUARD_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "PEGGUARD_CHAIN_ID")

	setStr(&cfg.Wallet.PrivateKey, "PEGGUARD_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PEGGUARD_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PEGGUARD_KEY_PASSWORD")

	setStr(&cfg.Keeper.Contract, "PEGGUARD_KEEPER_CONTRACT")
	setStr(&cfg.Keeper.Oracle, "PEGGUARD_ORACLE_CONTRACT")
	setStringSlice(&cfg.Keeper.Endpoints, "PEGGUARD_ORACLE_ENDPOINTS")
	setBool(&cfg.Keeper.StreamEnabled, "PEGGUARD_ORACLE_STREAM_ENABLED")

	setStr(&cfg.Jit.Manager, "PEGGUARD_JIT_MANAGER")
	setStr(&cfg.Jit.Hook, "PEGGUARD_HOOK")

	setDuration(&cfg.Scheduler.KeeperInterval, "PEGGUARD_KEEPER_INTERVAL")
	setDuration(&cfg.Scheduler.JitInterval, "PEGGUARD_JIT_INTERVAL")
	setInt(&cfg.Scheduler.RetryAttempts, "PEGGUARD_RETRY_ATTEMPTS")
	setDuration(&cfg.Scheduler.RetryDelay, "PEGGUARD_RETRY_DELAY")

	setBool(&cfg.Postgres.Enabled, "PEGGUARD_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PEGGUARD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PEGGUARD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PEGGUARD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PEGGUARD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PEGGUARD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PEGGUARD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PEGGUARD_POSTGRES_SSLMODE")

	setBool(&cfg.Redis.Enabled, "PEGGUARD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PEGGUARD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PEGGUARD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PEGGUARD_REDIS_DB")

	setBool(&cfg.S3.Enabled, "PEGGUARD_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PEGGUARD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PEGGUARD_S3_REGION")
	setStr(&cfg.S3.Bucket, "PEGGUARD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PEGGUARD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PEGGUARD_S3_SECRET_KEY")

	setStr(&cfg.Notify.TelegramToken, "PEGGUARD_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PEGGUARD_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PEGGUARD_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PEGGUARD_NOTIFY_EVENTS")

	setStr(&cfg.Mode, "PEGGUARD_MODE")
	setStr(&cfg.LogLevel, "PEGGUARD_LOG_LEVEL")
}

// applyEnvJobs synthesizes a single job from flat PEGGUARD_POOL_* variables
// when the config file defines none. This keeps the minimal single-pool
// deployment a pure-env affair.
func applyEnvJobs(cfg *Config) {
	pool := PoolConfig{
		Currency0: os.Getenv("PEGGUARD_POOL_CURRENCY0"),
		Currency1: os.Getenv("PEGGUARD_POOL_CURRENCY1"),
		Hooks:     os.Getenv("PEGGUARD_HOOK"),
	}
	setInt64(&pool.Fee, "PEGGUARD_POOL_FEE")
	setInt64(&pool.TickSpacing, "PEGGUARD_POOL_TICK_SPACING")

	if pool.Currency0 == "" || pool.Currency1 == "" || pool.Hooks == "" {
		return
	}

	if len(cfg.Keeper.Jobs) == 0 {
		if feeds := os.Getenv("PEGGUARD_FEED_IDS"); feeds != "" {
			cfg.Keeper.Jobs = []KeeperJobConfig{{
				ID:      "env",
				Pool:    pool,
				FeedIDs: splitAndClean(feeds),
			}}
		}
	}

	if len(cfg.Jit.Jobs) == 0 {
		job := JitJobConfig{
			ID:         "env",
			Pool:       pool,
			Liquidity:  "1000000000000000000",
			Amount0Max: "0",
			Amount1Max: "0",
			Duration:   900,
		}
		setStr(&job.Liquidity, "PEGGUARD_JIT_LIQUIDITY")
		setStr(&job.Amount0Max, "PEGGUARD_JIT_AMOUNT0_MAX")
		setStr(&job.Amount1Max, "PEGGUARD_JIT_AMOUNT1_MAX")
		setInt64(&job.Duration, "PEGGUARD_JIT_DURATION")
		if v := os.Getenv("PEGGUARD_JIT_MODE_THRESHOLD"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				job.ModeThreshold = &n
			}
		}
		cfg.Jit.Jobs = []JitJobConfig{job}
	}
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
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
		if cleaned := splitAndClean(v); len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func splitAndClean(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
