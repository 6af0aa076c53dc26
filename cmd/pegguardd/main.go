// Command pegguardd runs the pegguard off-chain agents: the oracle relay
// keeper and the burst controller. It loads configuration, validates it,
// sets up signal handling, and starts the application in the configured
// mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pegguardlabs/pegguardd/internal/app"
	"github.com/pegguardlabs/pegguardd/internal/config"
	"github.com/pegguardlabs/pegguardd/internal/crypto"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	encryptKeyPath := flag.String("encrypt-key", "", "encrypt PEGGUARD_PRIVATE_KEY with PEGGUARD_KEY_PASSWORD, write the key file to this path, and exit")
	flag.Parse()

	if *encryptKeyPath != "" {
		if err := encryptKeyFile(*encryptKeyPath); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("encrypted key written to %s\n", *encryptKeyPath)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Rebuild the logger at the configured level.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("pegguardd starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("pegguardd stopped")
}

// encryptKeyFile produces the key file that wallet.encrypted_key_path points
// at, taking the plaintext key and password from the environment so neither
// lands in shell history.
func encryptKeyFile(path string) error {
	privateKey := os.Getenv("PEGGUARD_PRIVATE_KEY")
	if privateKey == "" {
		return fmt.Errorf("PEGGUARD_PRIVATE_KEY must be set")
	}
	password := os.Getenv("PEGGUARD_KEY_PASSWORD")
	if password == "" {
		return fmt.Errorf("PEGGUARD_KEY_PASSWORD must be set")
	}

	blob, err := crypto.EncryptKey(privateKey, password)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}
