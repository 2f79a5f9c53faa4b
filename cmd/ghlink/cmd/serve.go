package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"go.pilab.hu/ghlink/api"
	"go.pilab.hu/ghlink/config"
	"go.pilab.hu/ghlink/domain"
	"go.pilab.hu/ghlink/internal/browse"
	"go.pilab.hu/ghlink/internal/directory"
	"go.pilab.hu/ghlink/internal/githubapp"
	"go.pilab.hu/ghlink/internal/linking"
	"go.pilab.hu/ghlink/internal/metrics"
	"go.pilab.hu/ghlink/internal/server"
	"go.pilab.hu/ghlink/internal/statetoken"
	"go.pilab.hu/ghlink/tracing"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.ServerConfig) error {
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracerProvider(cfg.OtelServiceName, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer provider: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()
	dir := st.directory

	pemBytes, err := cfg.PrivateKeyPEM()
	if err != nil {
		return err
	}
	key, err := githubapp.ParsePrivateKey(pemBytes)
	if err != nil {
		return err
	}

	gh, err := githubapp.New(githubapp.Config{
		AppID:        strconv.FormatInt(cfg.AppID, 10),
		PrivateKey:   key,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		APIURL:       cfg.GitHubAPIURL,
		WebURL:       cfg.GitHubWebURL,
		Timeout:      cfg.UpstreamTimeout,
	})
	if err != nil {
		return err
	}

	codec, err := statetoken.NewCodec(cfg.StateSecret, statetoken.WithTTL(cfg.StateTTL))
	if err != nil {
		return err
	}

	var replay linking.ReplayGuard
	switch {
	case !cfg.StateSingleUse:
	case st.redis != nil:
		replay = statetoken.NewRedisReplayGuard(st.redis, cfg.RedisPrefix)
	default:
		guard := statetoken.NewReplayGuard()
		defer guard.Close()
		replay = guard
	}

	accountID := cfg.AccountID
	if accountID == "" {
		accountID = uuid.NewString()
		appLogger.Warn(ctx, "No account_id configured, using a generated one for this run", map[string]interface{}{
			"account_id": accountID,
		})
	}

	linker := linking.NewService(codec, replay, gh, dir, cfg.AppSlug, appLogger)
	browser := browse.NewService(gh, dir)

	httpServer, err := server.NewHTTPServer(cfg, appLogger, api.NewLinkAPI(linker, browser, accountID, appLogger), reg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{
			"addr":            cfg.HTTPAddr,
			"storage_backend": cfg.StorageBackend,
			"app_slug":        cfg.AppSlug,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}

	appLogger.Info(context.Background(), "Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	appLogger.Info(shutdownCtx, "Server gracefully stopped.")

	return nil
}

// storage is the opened directory backend. redis is set for the redis
// backend so the replay guard can share the connection.
type storage struct {
	directory domain.InstallationDirectory
	redis     *redis.Client
	close     func()
}

func openStorage(ctx context.Context, cfg *config.ServerConfig) (*storage, error) {
	switch cfg.StorageBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &storage{
			directory: directory.NewRedis(client, cfg.RedisPrefix),
			redis:     client,
			close:     func() { _ = client.Close() },
		}, nil

	case "mongodb":
		client, err := directory.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return &storage{
			directory: directory.NewMongo(client.Database(cfg.MongoDBName)),
			close: func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = client.Disconnect(disconnectCtx)
			},
		}, nil

	default:
		return &storage{directory: directory.NewMemory(), close: func() {}}, nil
	}
}
