// Package config defines the top-level configuration for the pegguard agents
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PEGGUARD_* environment
// variables.
type Config struct {
	Chain     ChainConfig     `toml:"chain"`
	Wallet    WalletConfig    `toml:"wallet"`
	Keeper    KeeperConfig    `toml:"keeper"`
	Jit       JitConfig       `toml:"jit"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ChainConfig holds the RPC endpoint and chain parameters.
type ChainConfig struct {
	RPCURL  string `toml:"rpc_url"`
	ChainID int64  `toml:"chain_id"`
}

// WalletConfig holds the operator key. Either a raw hex key or an encrypted
// key file plus password must be provided.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// KeeperConfig holds the oracle relay agent's contracts and jobs. Endpoints
// is the default failover list for jobs that do not set their own.
type KeeperConfig struct {
	Contract      string            `toml:"contract"`
	Oracle        string            `toml:"oracle"`
	Endpoints     []string          `toml:"endpoints"`
	StreamEnabled bool              `toml:"stream_enabled"`
	Jobs          []KeeperJobConfig `toml:"jobs"`
}

// KeeperJobConfig describes one relay job in the config file.
type KeeperJobConfig struct {
	ID        string     `toml:"id"`
	Pool      PoolConfig `toml:"pool"`
	FeedIDs   []string   `toml:"feed_ids"`
	Endpoints []string   `toml:"endpoints"`
	Interval  duration   `toml:"interval"`
}

// JitConfig holds the burst controller's contracts and jobs.
type JitConfig struct {
	Manager string         `toml:"manager"`
	Hook    string         `toml:"hook"`
	Jobs    []JitJobConfig `toml:"jobs"`
}

// JitJobConfig describes one burst job in the config file. Liquidity and the
// amount bounds are decimal strings so full uint256 precision survives the
// TOML round trip.
type JitJobConfig struct {
	ID         string     `toml:"id"`
	Pool       PoolConfig `toml:"pool"`
	Liquidity  string     `toml:"liquidity"`
	Amount0Max string     `toml:"amount0_max"`
	Amount1Max string     `toml:"amount1_max"`
	Duration   int64      `toml:"duration"`
	// ModeThreshold is a pointer so an explicit 0 (open even in calm mode)
	// is distinguishable from an absent field.
	ModeThreshold *int         `toml:"mode_threshold"`
	SettleBuffer  duration     `toml:"settle_buffer"`
	Interval      duration     `toml:"interval"`
	Flash         *FlashConfig `toml:"flash"`
}

// FlashConfig selects the flash-funded open path for a burst job.
type FlashConfig struct {
	Borrower     string `toml:"borrower"`
	Asset        string `toml:"asset"`
	Amount       string `toml:"amount"`
	Executor     string `toml:"executor"`
	ExecutorData string `toml:"executor_data"`
}

// PoolConfig identifies a pool in the config file. A fee of 0 selects the
// dynamic-fee sentinel.
type PoolConfig struct {
	Currency0   string `toml:"currency0"`
	Currency1   string `toml:"currency1"`
	Fee         int64  `toml:"fee"`
	TickSpacing int64  `toml:"tick_spacing"`
	Hooks       string `toml:"hooks"`
}

// SchedulerConfig holds cycle timing and retry parameters shared by all jobs.
type SchedulerConfig struct {
	KeeperInterval duration `toml:"keeper_interval"`
	JitInterval    duration `toml:"jit_interval"`
	RetryAttempts  int      `toml:"retry_attempts"`
	RetryDelay     duration `toml:"retry_delay"`
	SettlePause    duration `toml:"settle_pause"`
}

// PostgresConfig holds PostgreSQL connection parameters for run history.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the risk cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	TTLMinutes int    `toml:"ttl_minutes"`
}

// S3Config holds S3-compatible object storage parameters for run-history
// archival.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	RetentionDays   int      `toml:"retention_days"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "45s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
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
		Keeper: KeeperConfig{
			Endpoints: []string{"https://hermes.pyth.network"},
		},
		Scheduler: SchedulerConfig{
			KeeperInterval: duration{60 * time.Second},
			JitInterval:    duration{45 * time.Second},
			RetryAttempts:  3,
			RetryDelay:     duration{5 * time.Second},
			SettlePause:    duration{time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pegguard",
			User:          "pegguard",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			TTLMinutes: 30,
		},
		S3: S3Config{
			Region:          "us-east-1",
			Bucket:          "pegguard-history",
			ForcePathStyle:  true,
			RetentionDays:   90,
			ArchiveInterval: duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"burst_opened", "burst_closed", "cycle_failed", "stale_feed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"keeper": true,
	"jit":    true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found. A failed validation is
// fatal at startup: nothing gets scheduled on a partial configuration.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: keeper, jit, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}

	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: either private_key or encrypted_key_path must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	runsKeeper := mode == "keeper" || mode == "full"
	runsJit := mode == "jit" || mode == "full"

	// A malformed address would later decode to the zero address and leave
	// the contract unbound, so it must be caught here, not at wiring time.
	if runsKeeper {
		errs = append(errs, checkAddress("keeper: contract", c.Keeper.Contract, c.Mode)...)
		errs = append(errs, checkAddress("keeper: oracle", c.Keeper.Oracle, c.Mode)...)
	}
	if runsJit {
		errs = append(errs, checkAddress("jit: manager", c.Jit.Manager, c.Mode)...)
		errs = append(errs, checkAddress("jit: hook", c.Jit.Hook, c.Mode)...)
	}

	if c.Scheduler.RetryAttempts < 0 {
		errs = append(errs, "scheduler: retry_attempts must be >= 0")
	}
	if c.Scheduler.RetryDelay.Duration <= 0 {
		errs = append(errs, "scheduler: retry_delay must be > 0")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archival requires postgres.enabled (nothing to archive otherwise)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// checkAddress validates one required contract address field, reporting both
// absence and malformed values.
func checkAddress(field, value, mode string) []string {
	if value == "" {
		return []string{fmt.Sprintf("%s address is required for mode %s", field, mode)}
	}
	if !common.IsHexAddress(value) {
		return []string{fmt.Sprintf("%s address %q is not a valid hex address", field, value)}
	}
	return nil
}
