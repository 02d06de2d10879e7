package main

import (
	"context"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/oggyb/miahui/internal/app"
	"github.com/oggyb/miahui/internal/config"
	"github.com/oggyb/miahui/internal/db"
	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/model"
)

var opts = struct {
	Balance     int64  `long:"balance" env:"SEED_BALANCE" default:"1000" description:"wallet balance in coins"`
	Tier        string `long:"tier" env:"SEED_TIER" default:"NONE" choice:"NONE" choice:"BASIC" choice:"PRO" choice:"ELITE" description:"membership tier"`
	Trial       int    `long:"trial" env:"SEED_TRIAL" default:"5" description:"free trial credits"`
	Counterpart string `long:"counterpart" env:"SEED_COUNTERPART" default:"1" description:"counterpart id to open a demo conversation with, empty for none"`
	Reset       bool   `long:"reset" description:"clear every preference before seeding"`
}{}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "seed"
	parser.LongDescription = "Writes demo wallet, profile and conversation preferences"

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx := context.Background()
	appCtx, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open preference store", "err", err)
		os.Exit(1)
	}
	defer appCtx.Close()

	if err := db.SeedDemoData(ctx, appCtx.Store, db.SeedOptions{
		Balance:       opts.Balance,
		Tier:          model.Tier(opts.Tier),
		TrialCredits:  opts.Trial,
		CounterpartID: opts.Counterpart,
		Reset:         opts.Reset,
	}); err != nil {
		logger.Named("seed").Error("failed to seed", "err", err)
		return
	}

	logger.Named("seed").Info("seeding completed", "backend", cfg.Store.Backend)
}
