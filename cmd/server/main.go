// Command lk-server starts the LearnKeeper backend gRPC server.
package main

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/learnkeeper/internal/config"
	"github.com/and161185/learnkeeper/internal/limiter"
	"github.com/and161185/learnkeeper/internal/migrate"
	"github.com/and161185/learnkeeper/internal/repository/postgres"
	"github.com/and161185/learnkeeper/internal/service"
	grpctransport "github.com/and161185/learnkeeper/internal/transport/grpc"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves the API until a
// termination signal arrives.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadServer(os.Args[1:], os.Stderr)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("limiter", cfg.Limiter),
		zap.Bool("dev", cfg.Dev),
	)
	if cfg.DefaultAnonKey {
		logger.Warn("no anon key configured, using the public development key")
	}

	var opts []grpc.ServerOption
	creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
	switch {
	case err == nil:
		opts = append(opts, grpc.Creds(creds))
	case cfg.Dev && errors.Is(err, fs.ErrNotExist):
		logger.Warn("dev mode without TLS certificate, serving plaintext")
	default:
		logger.Fatal("failed to load TLS cert/key", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ver, err := migrate.Up(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("schema ready", zap.Int64("version", ver))

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	var lim limiter.Limiter
	switch cfg.Limiter {
	case config.LimiterRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		lim = limiter.NewRedis(rdb, "", limiter.DefaultPolicy)
	default:
		lim = limiter.NewPG(db.Pool, limiter.DefaultPolicy)
	}

	// Services
	authSvc := service.NewAuthService(postgres.NewUserRepo(db), []byte(cfg.JWTKey), cfg.AccessTTL, lim, logger.Named("auth"))
	catalogSvc := service.NewCatalogService(postgres.NewCourseRepo(db), postgres.NewEnrollmentRepo(db))

	// gRPC server with interceptors
	opts = append(opts, grpc.ChainUnaryInterceptor(
		grpctransport.RecoverUnary(logger),
		grpctransport.LoggingUnary(logger),
		grpctransport.APIKeyUnary(cfg.AnonKey),
	))
	s := grpc.NewServer(opts...)
	grpctransport.New(authSvc, catalogSvc, logger.Named("api")).Register(s)

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
