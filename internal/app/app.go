package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/cache"
	"github.com/cradoe/puddle/internal/chain"
	"github.com/cradoe/puddle/internal/config"
	"github.com/cradoe/puddle/internal/env"
	"github.com/cradoe/puddle/internal/errHandler"
	"github.com/cradoe/puddle/internal/helper"
	"github.com/cradoe/puddle/internal/repository"
	"github.com/cradoe/puddle/internal/service"
	"github.com/cradoe/puddle/internal/smtp"
	"github.com/cradoe/puddle/internal/stream"
	"github.com/cradoe/puddle/internal/worker"
	"github.com/joho/godotenv"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items and when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	errorHandler *errHandler.ErrorRepository
	helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache
	Chain        *chain.Client
	Resolver     auth.Resolver
	Service      *service.Service
}

// LoadConfig reads the environment. Defaults are for development only; no
// production value belongs here.
func LoadConfig(logger *slog.Logger) config.Config {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded", "error", err)
	}

	var cfg config.Config

	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")
	cfg.Jwt.Issuer = env.GetString("JWT_ISSUER", cfg.BaseURL)

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Puddle <no_reply@example.org>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")
	cfg.KafkaEnabled = env.GetBool("KAFKA_ENABLED", false)

	cfg.Redis.Addr = env.GetString("REDIS_ADDR", "")
	cfg.Redis.DB = env.GetInt("REDIS_DB", 0)
	cfg.Redis.TTL = env.GetDuration("CACHE_TTL", cache.DefaultTTL)

	cfg.Chain.RpcURL = env.GetString("CHAIN_RPC_URL", "")
	cfg.Chain.ChainID = env.GetInt64("CHAIN_ID", 84532)
	cfg.Chain.FactoryAddress = env.GetString("CHAIN_FACTORY_ADDRESS", "")
	cfg.Chain.DeployerKey = env.GetString("CHAIN_DEPLOYER_KEY", "")
	cfg.Chain.ConfirmTimeout = env.GetDuration("CHAIN_CONFIRM_TIMEOUT", chain.DefaultConfirmTimeout)

	cfg.Invite.MaxAttempts = env.GetInt("INVITE_MAX_ATTEMPTS", service.DefaultInviteMaxAttempts)
	cfg.Invite.BaseDelay = env.GetDuration("INVITE_BASE_DELAY", service.DefaultInviteBaseDelay)

	cfg.ReconcileInterval = env.GetDuration("RECONCILE_INTERVAL", worker.DefaultReconcileInterval)

	cfg.RateLimit.RPS = env.GetFloat("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = env.GetInt("RATE_LIMIT_BURST", 20)

	return cfg
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	cfg := LoadConfig(logger)

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app := &Application{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Mailer:   mailer,
		Resolver: auth.NewJWTResolver(cfg.Jwt.SecretKey, cfg.Jwt.Issuer, cfg.BaseURL),
	}

	app.errorHandler = errHandler.New(cfg.Notifications.Email, cfg.BaseURL, mailer, logger)
	app.helper = helper.New(cfg.BaseURL, &app.WG, app.errorHandler)

	opts := service.Options{
		DB:                db,
		Logger:            logger,
		InviteMaxAttempts: cfg.Invite.MaxAttempts,
		InviteBaseDelay:   cfg.Invite.BaseDelay,
	}

	// optional collaborators stay untyped nil when disabled so the service
	// falls back to its no-op implementations
	if cfg.KafkaEnabled {
		app.Kafka, err = stream.New(cfg.KafkaServers, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize kafka: %w", err)
		}
		opts.Publisher = app.Kafka
	}

	if cfg.Redis.Addr != "" {
		app.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.TTL)
		opts.Cache = app.Cache
	}

	if cfg.Chain.RpcURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.ConfirmTimeout)
		defer cancel()

		app.Chain, err = chain.Dial(ctx, cfg.Chain.RpcURL, chain.Options{
			ChainID:        cfg.Chain.ChainID,
			FactoryAddress: cfg.Chain.FactoryAddress,
			DeployerKey:    cfg.Chain.DeployerKey,
			ConfirmTimeout: cfg.Chain.ConfirmTimeout,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize chain client: %w", err)
		}
		opts.Chain = app.Chain
	}

	app.Service = service.New(opts)

	logger.Info("application initialized",
		"kafka", app.Kafka != nil,
		"redis", app.Cache != nil,
		"chain", app.Chain != nil,
	)

	return app, nil
}

// Workers builds the background workers over the application's resources.
func (app *Application) Workers() *worker.Worker {
	return worker.New(&worker.Worker{
		KafkaStream: app.Kafka,
		DB:          app.DB,
		Reconciler:  app.Service,
		Mailer:      app.Mailer,
		Helper:      app.helper,
		Logger:      app.Logger,
	})
}

// Close releases every connection the application opened.
func (app *Application) Close() {
	if app.Kafka != nil {
		app.Kafka.Close()
	}
	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			app.Logger.Warn("close redis", "error", err)
		}
	}
	if app.Chain != nil {
		app.Chain.Close()
	}
	if err := app.DB.Close(); err != nil {
		app.Logger.Warn("close database", "error", err)
	}
}
