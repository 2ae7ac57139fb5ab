package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"schoolRecords/auth"
	"schoolRecords/config"
	"schoolRecords/database"
	"schoolRecords/logger"
	"schoolRecords/maxAPI"
	"schoolRecords/notify"
	"schoolRecords/reports"
	"schoolRecords/services"
)

const (
	lockoutMemory = "memory"
	lockoutRedis  = "redis"
)

type Application struct {
	Bot      *maxAPI.Bot
	DB       *sqlx.DB
	Auth     *auth.Service
	Services *services.Service

	redis  *redis.Client
	logger *logger.Logger
}

func NewApplication() *Application {
	return &Application{}
}

// Configure opens and migrates the database, seeds the built-in roles and
// wires the services. The bot is only created when a token is configured.
func (app *Application) Configure(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	app.logger = log

	db, err := database.OpenDB(&cfg.Database)
	if err != nil {
		return err
	}
	app.DB = db

	if err := database.Migrate(ctx, db); err != nil {
		app.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	log.Infof("Database schema ready (%s)", db.DriverName())

	store := database.NewStore(db, log)

	attempts, err := app.attemptStore(ctx, cfg)
	if err != nil {
		app.Close()
		return err
	}

	if cfg.Auth.TokenSecret == config.DefaultTokenSecret {
		log.Warn("AUTH_TOKEN_SECRET is the built-in default, sessions can be forged; set a secret")
	}

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	app.Auth, err = auth.NewService(store, attempts, hasher, tokens, log)
	if err != nil {
		app.Close()
		return err
	}

	writer := reports.NewWriter(cfg.Reports.OutputDir, log)
	app.Services = services.New(store, hasher, writer, notify.NewConsoleNotifier(log), log)

	if err := app.Services.Seed(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		app.Close()
		return fmt.Errorf("seed: %w", err)
	}

	if cfg.MaxAPI.Token == "" {
		log.Warn("MAX_TOKEN is not set, the bot is disabled")
		return nil
	}

	b, err := maxAPI.NewBot(ctx, &cfg.MaxAPI, log, app.Auth, app.Services)
	if err != nil {
		app.Close()
		return err
	}
	app.Bot = b

	return nil
}

func (app *Application) attemptStore(ctx context.Context, cfg *config.Config) (auth.AttemptStore, error) {
	policy := auth.Policy{MaxFailures: cfg.Auth.MaxFailures, LockDuration: cfg.Auth.LockDuration}

	switch cfg.Auth.LockoutStore {
	case "", lockoutMemory:
		return auth.NewMemoryStore(policy), nil
	case lockoutRedis:
		client, err := auth.DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis lockout store: %w", err)
		}
		app.redis = client
		app.logger.Infof("Lockout counters kept in redis at %s", cfg.Redis.Addr)
		return auth.NewRedisStore(client, policy), nil
	default:
		return nil, fmt.Errorf("unknown lockout store %q", cfg.Auth.LockoutStore)
	}
}

func (app *Application) Run(ctx context.Context) {
	if app.Bot == nil {
		return
	}
	app.Bot.Start(ctx)
}

func (app *Application) Close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.DB != nil {
		errs = append(errs, app.DB.Close())
	}
	return errors.Join(errs...)
}
