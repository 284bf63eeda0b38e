package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/draftroom/squad-auction-backend/internal/api/rest"
	ws "github.com/draftroom/squad-auction-backend/internal/api/websocket"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/cache"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/config"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/events"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/repository"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/telemetry"
	auctionsvc "github.com/draftroom/squad-auction-backend/internal/service/auction"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic("failed to set up logger: " + err.Error())
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.InitTracing(ctx, "squad-auction-backend", cfg.Version, cfg.Environment, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.Enabled)
	if err != nil {
		return err
	}
	defer tracing.Shutdown(context.Background()) //nolint:errcheck

	pool, err := repository.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	store := repository.NewStore(pool)
	presence := cache.NewPresence(redisClient)
	bcast := events.NewBroadcaster(logger)

	svc := auctionsvc.NewService(store, store, bcast, presence, logger)
	defer svc.Close()

	// Bring non-completed auctions back from the journal. They return
	// paused and wait for an admin continue.
	ids, err := store.ListAuctionIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := svc.Restore(ctx, id); err != nil {
			logger.Error("failed to restore auction",
				zap.String("auction_id", id.String()), zap.Error(err))
		}
	}

	auth := rest.NewAuth(cfg.Security.JWTSecret, cfg.Security.TokenExpiry)

	mux := http.NewServeMux()
	rest.NewHandler(svc, cfg.Auction, logger).Routes(mux, auth)
	ws.NewHandler(svc, bcast, presence, auth, cfg.Security, logger).Routes(mux)

	root := rest.Recover(logger)(rest.RequestLogger(logger)(mux))
	outer := http.NewServeMux()
	outer.Handle("/", root)

	server := rest.NewServer(cfg.Server, outer, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
