// Package app connects the stores, clients and services shared by the api,
// consumers and opsctl binaries.
package app

import (
	"fmt"
	"log/slog"

	"cocinarte/internal/auth"
	"cocinarte/internal/cache"
	"cocinarte/internal/config"
	"cocinarte/internal/database"
	"cocinarte/internal/external"
	"cocinarte/internal/logger"
	"cocinarte/internal/messaging"
	"cocinarte/internal/repository"
	"cocinarte/internal/search"
	"cocinarte/internal/service"
)

type App struct {
	Config    *config.Config
	DB        *database.DB
	Repos     *repository.Repositories
	Processor *external.PaymentClient
	Services  *service.Services

	// Optional backends, nil when not reachable
	NATS   *messaging.NATSClient
	Cache  *cache.ValkeyClient
	Search *search.ElasticsearchClient

	Verifier *auth.TokenVerifier
	Checker  auth.AuthorizationChecker
}

// New connects to the database and, best effort, to NATS, Valkey and Elasticsearch.
// Only the database is mandatory.
func New(cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{
		Config: cfg,
		DB:     db,
		Repos:  repository.NewRepositories(db),
	}

	if a.NATS, err = messaging.NewNATSClient(cfg.NATS); err != nil {
		slog.Warn("Event bus unavailable, events will not be published", "error", err)
		a.NATS = nil
	}

	if a.Cache, err = cache.NewValkeyClient(cfg.Redis); err != nil {
		slog.Warn("Valkey unavailable, class lists and admin checks are not cached", "error", err)
		a.Cache = nil
	}

	if cfg.Elasticsearch.Enabled() {
		if a.Search, err = search.NewElasticsearchClient(cfg.Elasticsearch); err != nil {
			slog.Warn("Elasticsearch unavailable, class search disabled", "error", err)
			a.Search = nil
		}
	}

	paymentCfg := cfg.Payment
	paymentCfg.Logger = logger.Get()
	a.Processor = external.NewPaymentClient(paymentCfg)
	if !a.Processor.Configured() {
		slog.Warn("Payment processor secret key is not set, payment operations will fail")
	}

	deps := service.Dependencies{
		Classes:   a.Repos.Classes,
		Students:  a.Repos.Students,
		Bookings:  a.Repos.Bookings,
		Processor: a.Processor,
		Currency:  cfg.Currency,
	}
	// Interfaces stay nil unless the backend is connected
	if a.NATS != nil {
		deps.Events = a.NATS
	}
	if a.Cache != nil {
		deps.Cache = a.Cache
	}
	if a.Search != nil {
		deps.Index = a.Search
	}
	a.Services = service.NewServices(deps)

	a.Verifier = auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience)
	a.Checker = NewAdminChecker(cfg.Auth, a.Repos.Admins, a.Cache)

	return a, nil
}

// NewAdminChecker grants admin to configured e-mails and to rows of the admins table
func NewAdminChecker(cfg config.AuthConfig, admins auth.AdminLookup, flags *cache.ValkeyClient) auth.AuthorizationChecker {
	var checker auth.AuthorizationChecker = auth.AnyChecker{
		auth.NewStaticChecker(cfg.AdminEmails),
		auth.NewTableChecker(admins),
	}
	if flags != nil {
		checker = auth.NewCachedChecker(checker, flags, cfg.AdminCacheTTL)
	}
	return checker
}

func (a *App) Close() error {
	if a.NATS != nil {
		if err := a.NATS.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
