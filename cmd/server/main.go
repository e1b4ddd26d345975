package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/cache"
	"github.com/oggyb/galatea/internal/completion"
	"github.com/oggyb/galatea/internal/config"
	"github.com/oggyb/galatea/internal/db"
	"github.com/oggyb/galatea/internal/logger"
	"github.com/oggyb/galatea/internal/server"
	"github.com/oggyb/galatea/internal/service/health"
	"github.com/oggyb/galatea/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		log.Error("refusing to start", "err", err)
		return err
	}

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return err
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return err
	}

	appCtx := app.New(cfg, database, redisCache, log)

	store, err := storage.NewCloudinary(cfg)
	switch {
	case errors.Is(err, storage.ErrStorageUnavailable):
		log.Warn("object storage disabled, uploads will fail", "err", err)
	case err != nil:
		log.Error("failed to init object storage", "err", err)
		return err
	default:
		appCtx.WithStorage(store)
	}

	gen, err := completion.New(completion.OptionsFromConfig(cfg))
	if err != nil {
		log.Warn("completion service disabled, replies will fail", "err", err)
	} else {
		appCtx.WithCompletion(gen).WithProfileGenerator(gen)
	}

	if cfg.App.ENV == "development" {
		seedIfEmpty(database, log)
	}

	healthSvc := health.NewService(health.NewChecker(appCtx))
	grpcServer := server.NewGRPCServer(health.NewRegistrar(healthSvc))
	grpcLis, err := server.ListenGRPC(cfg)
	if err != nil {
		log.Error("failed to listen for gRPC", "err", err)
		return err
	}
	httpServer := server.NewHTTPServer(appCtx)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting gRPC server", "addr", grpcLis.Addr().String())
		return grpcServer.Serve(grpcLis)
	})
	g.Go(func() error {
		log.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
