package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/boardlink/internal/config"
	httptransport "github.com/smallbiznis/boardlink/internal/http"
	"github.com/smallbiznis/boardlink/internal/http/handler"
	"github.com/smallbiznis/boardlink/internal/provider"
	"github.com/smallbiznis/boardlink/internal/secrets"
	"github.com/smallbiznis/boardlink/internal/server"
	"github.com/smallbiznis/boardlink/internal/store"
	"github.com/smallbiznis/boardlink/internal/telemetry"
	"github.com/smallbiznis/boardlink/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newStore,
			newCipher,
			newVault,
			newHTTPClient,
			newTokenManager,
			newProviderClient,
			handler.NewConfigHandler,
			handler.NewBoardHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StorageDriver {
	case "postgres":
		return newPostgresStore(lc, cfg)
	case "redis":
		return newRedisStore(lc, cfg)
	default:
		logger.Warn("using in-memory settings store; credentials will not survive a restart")
		return store.NewMemoryStore(), nil
	}
}

func newPostgresStore(lc fx.Lifecycle, cfg config.Config) (store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pg := store.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pg, nil
}

func newRedisStore(lc fx.Lifecycle, cfg config.Config) (store.Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return store.NewRedisStore(client), nil
}

func newCipher(cfg config.Config) (secrets.Cipher, error) {
	return secrets.NewAEADCipher(cfg.SecretKey)
}

func newVault(s store.Store, c secrets.Cipher) *secrets.Vault {
	return secrets.NewVault(s, c)
}

func newHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

func newTokenManager(vault *secrets.Vault, client *http.Client, cfg config.Config, logger *zap.Logger) *token.Manager {
	return token.NewManager(vault, client, cfg.ProviderBaseURL, logger)
}

func newProviderClient(client *http.Client, cfg config.Config, vault *secrets.Vault, tokens *token.Manager, logger *zap.Logger) *provider.Client {
	return provider.NewClient(client, cfg.ProviderBaseURL, vault, tokens, logger)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
