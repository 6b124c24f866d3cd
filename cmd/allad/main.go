package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/seongpil0948/all-ad-sub002/internal/adapter/cache"
	oauthadapter "github.com/seongpil0948/all-ad-sub002/internal/adapter/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/config"
	httptransport "github.com/seongpil0948/all-ad-sub002/internal/http"
	"github.com/seongpil0948/all-ad-sub002/internal/http/handler"
	apimiddleware "github.com/seongpil0948/all-ad-sub002/internal/middleware"
	"github.com/seongpil0948/all-ad-sub002/internal/repository"
	"github.com/seongpil0948/all-ad-sub002/internal/server"
	"github.com/seongpil0948/all-ad-sub002/internal/service/connect"
	"github.com/seongpil0948/all-ad-sub002/internal/service/refresh"
	"github.com/seongpil0948/all-ad-sub002/internal/state"
	"github.com/seongpil0948/all-ad-sub002/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newCredentialRepository,
			newRedisClient,
			newRefreshLock,
			newProviderClient,
			newStateCodec,
			newRateLimiter,
			connect.NewService,
			refresh.NewOrchestrator,
			handler.NewCredentialHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer, startRefreshScheduler),
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

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
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

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newCredentialRepository(pool *pgxpool.Pool) repository.CredentialRepository {
	return repository.NewPostgresCredentialRepo(pool)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
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
	return client, nil
}

func newRefreshLock(client redis.UniversalClient) repository.RefreshLock {
	return cacheadapter.NewRedisRefreshLock(client)
}

func newProviderClient(cfg config.Config) oauthadapter.ProviderClient {
	return oauthadapter.NewHTTPProviderClient(&http.Client{Timeout: cfg.ProviderHTTPTimeout})
}

func newStateCodec(cfg config.Config) *state.Codec {
	return state.NewCodec([]byte(cfg.StateSecret), cfg.StateValidity)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
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

func startRefreshScheduler(lc fx.Lifecycle, orch refresh.Orchestrator) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			orch.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			orch.Stop()
			return nil
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
