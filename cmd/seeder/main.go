package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cradoe/puddle/internal/app"
	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/repository"
	seeders "github.com/cradoe/puddle/internal/seeder"
	"github.com/cradoe/puddle/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := app.LoadConfig(logger)

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	svc := service.New(service.Options{DB: db, Logger: logger})
	resolver := auth.NewJWTResolver(cfg.Jwt.SecretKey, cfg.Jwt.Issuer, cfg.BaseURL)

	result, err := seeders.New(svc, resolver, logger).Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("piggy bank: %s\n", result.PiggyBankID)
	for _, account := range result.Accounts {
		fmt.Printf("%s (%s)\n  Bearer %s\n", account.WalletAddress, account.UserID, account.Token)
	}

	return nil
}
