package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/pegguardlabs/pegguardd/internal/blob/s3"
	"github.com/pegguardlabs/pegguardd/internal/cache/redis"
	"github.com/pegguardlabs/pegguardd/internal/config"
	"github.com/pegguardlabs/pegguardd/internal/crypto"
	"github.com/pegguardlabs/pegguardd/internal/domain"
	"github.com/pegguardlabs/pegguardd/internal/ledger"
	"github.com/pegguardlabs/pegguardd/internal/notify"
	"github.com/pegguardlabs/pegguardd/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Ledger *ledger.Client

	RunStore   domain.RunStore
	BurstStore domain.BurstEventStore
	Cache      domain.RiskCache
	Archiver   *s3blob.Archiver
	Notifier   *notify.Notifier
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Cache: domain.NopRiskCache{},
	}

	// --- Ledger ---
	privateKey, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
	}

	ledgerClient, err := ledger.New(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID, privateKey, ledger.Addresses{
		Keeper:  common.HexToAddress(cfg.Keeper.Contract),
		Oracle:  common.HexToAddress(cfg.Keeper.Oracle),
		Manager: common.HexToAddress(cfg.Jit.Manager),
		Hook:    common.HexToAddress(cfg.Jit.Hook),
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: ledger: %w", err)
	}
	closers = append(closers, ledgerClient.Close)
	deps.Ledger = ledgerClient

	// --- PostgreSQL run history ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.RunStore = postgres.NewRunStore(pool)
		deps.BurstStore = postgres.NewBurstEventStore(pool)
	}

	// --- Redis risk cache ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		ttl := time.Duration(0)
		if cfg.Redis.TTLMinutes > 0 {
			ttl = time.Duration(cfg.Redis.TTLMinutes) * time.Minute
		}
		deps.Cache = redis.NewRiskCache(redisClient, ttl)
	}

	// --- S3 run-history archival (requires the run store) ---
	if cfg.S3.Enabled {
		if deps.RunStore == nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 archival requires postgres to be enabled")
		}
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		retention := time.Duration(cfg.S3.RetentionDays) * 24 * time.Hour
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.RunStore, retention, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}
