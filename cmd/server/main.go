package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/miahui/internal/app"
	"github.com/oggyb/miahui/internal/config"
	"github.com/oggyb/miahui/internal/db"
	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/server"
	"github.com/oggyb/miahui/internal/service/sessionsvc"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open preference store", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := appCtx.Close(); err != nil {
			log.Error("failed to close preference store", "err", err)
		}
	}()

	if cfg.App.ENV == "development" {
		keys, err := appCtx.Store.Keys(ctx)
		if err != nil {
			log.Warn("failed to inspect preference store", "err", err)
		} else if len(keys) == 0 {
			if err := db.SeedDemoData(ctx, appCtx.Store, db.SeedOptions{
				Balance:       cfg.Defaults.WalletBalance,
				TrialCredits:  cfg.Defaults.TrialCredits,
				CounterpartID: "1",
			}); err != nil {
				log.Error("failed to seed", "err", err)
			}
		}
	}

	appCtx.StartSession(ctx, cfg)
	srvLog := logger.Named("server")

	grpcServer := server.NewGRPCServer(
		sessionsvc.NewRegistrar(appCtx),
	)
	httpServer := server.NewHTTPServer(cfg, server.NewFeed(appCtx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srvLog.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.StartGRPCServer(gctx, cfg, grpcServer)
	})
	g.Go(func() error {
		srvLog.Info("starting event feed", "addr", httpServer.Addr)
		return server.StartHTTPServer(gctx, httpServer)
	})

	if err := g.Wait(); err != nil {
		srvLog.Error("server stopped", "err", err)
		return
	}
	srvLog.Info("server stopped")
}
