package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/jrsteele09/go-sso-server/auth"
	"github.com/jrsteele09/go-sso-server/events"
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/internal/worker"
	"github.com/jrsteele09/go-sso-server/server"
	"github.com/jrsteele09/go-sso-server/server/grpcapi"
	"github.com/jrsteele09/go-sso-server/services"
	"github.com/jrsteele09/go-sso-server/sso"
	"github.com/jrsteele09/go-sso-server/store"
	"github.com/jrsteele09/go-sso-server/store/gormstore"
	"github.com/jrsteele09/go-sso-server/store/memstore"
	"github.com/jrsteele09/go-sso-server/store/redisstore"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

// app holds every long-lived component of the process
type app struct {
	server    *server.Server
	grpc      *grpc.Server
	reaper    *worker.Reaper
	catalogue *services.Catalogue

	closers []func() error
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func newApp(ctx context.Context, c config.Config) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var health []server.Pinger
	var txStore store.Transactor
	if dsn := c.GetDatabaseURL(); dsn != "" {
		pg, err := gormstore.Open(ctx, dsn, c.GetAutoMigrate())
		if err != nil {
			return nil, fmt.Errorf("[newApp] open database: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		health = append(health, pg)
		txStore = pg
	} else {
		if !c.IsDev() {
			return nil, errors.New("[newApp] DATABASE_URL is required outside DEV")
		}
		log.Warn().Msg("DATABASE_URL not set, using the in-memory store")
		txStore = memstore.New()
	}

	var grants redisstore.GrantStore
	if redisURL := c.GetRedisURL(); redisURL != "" {
		client, err := redisstore.Connect(ctx, redisURL)
		if err != nil {
			return nil, fmt.Errorf("[newApp] connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		health = append(health, redisPinger{client: client})
		grants = redisstore.NewRedisGrantStore(client)
	} else {
		log.Warn().Msg("REDIS_URL not set, password reset grants are kept in memory")
		grants = redisstore.NewMemoryGrantStore()
	}

	publisher, err := events.NewPublisherFromConfig(c)
	if err != nil {
		return nil, fmt.Errorf("[newApp] events: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)

	a.catalogue, err = loadCatalogue(c.GetServicesFile())
	if err != nil {
		return nil, err
	}
	logos, err := services.NewLogoStoreFromConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("[newApp] logo store: %w", err)
	}

	signer, err := token.NewSignerFromConfig(c)
	if err != nil {
		return nil, fmt.Errorf("[newApp] signer: %w", err)
	}
	issuer := token.NewIssuer(signer, c.GetBaseURL(), c)

	cipher, err := sso.NewCipher(c.GetServerSecret())
	if err != nil {
		return nil, fmt.Errorf("[newApp] sso cipher: %w", err)
	}

	authService, err := auth.NewService(auth.Dependencies{
		Store:  txStore,
		Issuer: issuer,
		Ledger: refresh.NewLedger(issuer, c),
		Broker: newBroker(c, cipher, a.catalogue),
		Grants: grants,
		Events: publisher,
		Hasher: users.NewHasher(c.GetBcryptCost()),
	}, auth.WithPasswordResetTTL(c.GetPasswordResetExpiry()))
	if err != nil {
		return nil, fmt.Errorf("[newApp] auth service: %w", err)
	}

	a.server, err = server.New(c, server.Dependencies{
		Auth:      authService,
		Catalogue: a.catalogue,
		Logos:     logos,
		Health:    health,
	})
	if err != nil {
		return nil, err
	}
	a.grpc = grpcapi.NewServer(authService)
	a.reaper = worker.NewReaper(authService, c.GetReaperInterval(), c.GetRefreshRetention())
	return a, nil
}

// newBroker builds the SSO broker. Pending auth requests live for the refresh token window.
func newBroker(c config.Config, cipher *sso.Cipher, catalogue *services.Catalogue) *sso.Broker {
	return sso.NewBroker(cipher, catalogue, c.GetAuthUIURL(), c.GetRefreshTokenExpiry())
}

// loadCatalogue reads the services file. A missing file starts an empty catalogue that the
// watcher fills once the file appears.
func loadCatalogue(path string) (*services.Catalogue, error) {
	catalogue, err := services.LoadCatalogue(path)
	if err == nil {
		log.Info().Int("services", len(catalogue.List())).Str("file", path).Msg("Service catalogue loaded")
		return catalogue, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("file", path).Msg("Service catalogue file not found, no service can start an SSO handoff")
		return services.NewEmptyCatalogue(path), nil
	}
	return nil, fmt.Errorf("[newApp] %w", err)
}

// Close releases stores and clients in reverse order of creation
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
