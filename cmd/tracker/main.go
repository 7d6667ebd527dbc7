package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tracker/internal/account"
	"tracker/internal/api"
	"tracker/internal/bounty"
	"tracker/internal/config"
	"tracker/internal/database"
	"tracker/internal/exchange"
	"tracker/internal/fetcher"
	"tracker/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	if _, err := logger.Init(cfg.Logging); err != nil {
		logrus.WithError(err).Fatal("failed to init logger")
	}
	logrus.WithField("env", cfg.App.Env).Info("starting trade tracker")

	db, err := database.NewConnection(&database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpen:         cfg.Database.MaxOpen,
		MaxIdle:         cfg.Database.MaxIdle,
		Timeout:         cfg.Database.Timeout,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := database.NewTradeStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to ensure schema")
	}

	accounts := account.NewProvider(
		account.FileSource(cfg.Providers.AccountsFile),
		exchange.NewClient,
		cfg.Exchange.TestNet,
	)
	if err := accounts.Refresh(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to load accounts")
	}

	bounties := bounty.NewProvider(bounty.FileSource(cfg.Providers.CampaignsFile))
	if err := bounties.Refresh(); err != nil {
		logrus.WithError(err).Fatal("failed to load campaigns")
	}

	refresher := cron.New()
	if err := accounts.ScheduleRefresh(refresher, cfg.Providers.AccountRefresh); err != nil {
		logrus.WithError(err).Fatal("invalid account refresh schedule")
	}
	if err := bounties.ScheduleRefresh(refresher, cfg.Providers.CampaignRefresh); err != nil {
		logrus.WithError(err).Fatal("invalid campaign refresh schedule")
	}
	refresher.Start()
	defer refresher.Stop()

	engine := fetcher.New(&cfg.Exchange, store, accounts.Accounts(), bounties.Active())
	logrus.WithField("pairs", engine.Pairs()).Info("fetch engine ready")

	var server *api.Server
	if cfg.Monitoring.Enabled {
		server = api.NewServer(cfg.Monitoring.Addr, engine, accounts, db)
		server.Start()
	}

	// A termination signal cancels the engine context; the engine closes
	// every exchange connection before Start returns.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logrus.WithField("signal", sig.String()).Info("shutting down")
		cancel()
	}()

	err = engine.Start(ctx)

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("status server shutdown failed")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Fatal("fetch engine terminated")
	}
	logrus.Info("tracker stopped")
}
