package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fleet-wars-backend/internal/commitment"
	"fleet-wars-backend/internal/config"
	"fleet-wars-backend/internal/handlers"
	"fleet-wars-backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	scheme, err := commitment.ByName(cfg.CommitmentScheme)
	if err != nil {
		return err
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		return err
	}
	defer redisService.Close()

	venue := services.NewVenue(redisService, services.VenueOptions{
		LeaseTTL:       cfg.LeaseTTL,
		CommitInterval: cfg.VenueCommitInterval,
		MaxIdle:        cfg.VenueMaxIdle,
	}, logger)

	matches := services.NewMatchService(redisService, venue, scheme, cfg.StartingBalance, logger)
	wsHandler := handlers.NewWebSocketHandler(logger)
	defer wsHandler.Close()
	matches.SetBroadcaster(wsHandler)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Matches:    matches,
		Store:      redisService,
		JWT:        services.NewJWTService(cfg),
		WebSocket:  wsHandler,
		Logger:     logger,
		IssueToken: !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// The venue outlives the listener so in-flight moves land before the final checkin.
	venueCtx, stopVenue := context.WithCancel(context.Background())
	defer stopVenue()
	g.Go(func() error {
		return venue.Run(venueCtx)
	})

	g.Go(func() error {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("commitment", scheme.Name()),
			zap.String("venue", venue.Holder()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		defer stopVenue()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
