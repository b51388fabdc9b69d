// Command todo-server starts the todo HTTP API and the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/todo-keeper/internal/clock"
	"github.com/and161185/todo-keeper/internal/config"
	pkgcrypto "github.com/and161185/todo-keeper/internal/crypto"
	"github.com/and161185/todo-keeper/internal/limiter"
	"github.com/and161185/todo-keeper/internal/migrate"
	"github.com/and161185/todo-keeper/internal/repository"
	"github.com/and161185/todo-keeper/internal/repository/memory"
	"github.com/and161185/todo-keeper/internal/repository/postgres"
	grpcserver "github.com/and161185/todo-keeper/internal/server/grpc"
	httpserver "github.com/and161185/todo-keeper/internal/server/http"
	"github.com/and161185/todo-keeper/internal/service"
	"github.com/and161185/todo-keeper/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clk := clock.System{}
	policy := limiter.Policy{Window: cfg.LoginWindow, MaxFails: cfg.LoginMaxFails, BlockFor: cfg.LoginBlock}

	var (
		store repository.Store
		lim   limiter.Limiter
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store = memory.New()
		lim = limiter.NewMemory(clk, policy)
	default:
		if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
			return err
		}
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		store = postgres.NewStore(db)
		lim = limiter.NewPG(db.Pool, clk, policy)
	}
	if cfg.LoginMaxFails <= 0 {
		lim = limiter.Disabled{}
	}

	tokens := token.NewService(token.Config{
		Secret:     []byte(cfg.JWTKey),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, clk)
	hasher := pkgcrypto.NewArgon2()

	app := httpserver.New(httpserver.Services{
		Auth:     service.NewAuthService(store, tokens, hasher, lim, clk, logger),
		Guard:    service.NewGuard(tokens, store),
		Todos:    service.NewTodoService(store, clk),
		Deletion: service.NewDeletionService(store, clk, cfg.LogRetention),
		Admin:    service.NewAdminService(store, hasher, clk),
	}, logger)

	ops, err := grpcserver.New(logger, grpcserver.Options{
		TLSCert:    cfg.TLSCert,
		TLSKey:     cfg.TLSKey,
		Reflection: cfg.Dev,
	})
	if err != nil {
		return err
	}
	healthLis, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		return err
	}
	go ops.Watch(ctx, store, 10*time.Second)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("health listening", zap.String("addr", cfg.HealthAddr))
		errCh <- ops.Serve(healthLis)
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Addr))
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		ops.Shutdown(shutdownTimeout)
		_ = app.ShutdownWithTimeout(shutdownTimeout)
		return err
	}

	ops.Shutdown(shutdownTimeout)
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
