package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/centavo-app/centavo-backend/internal/adapter/pricing"
	"github.com/centavo-app/centavo-backend/internal/adapter/repository/postgres"
	"github.com/centavo-app/centavo-backend/internal/app"
	"github.com/centavo-app/centavo-backend/internal/config"
	"github.com/centavo-app/centavo-backend/internal/logger"
	"github.com/centavo-app/centavo-backend/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel)

	db, err := postgres.NewDB(cfg.DBConnStr, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	factory := postgres.NewUnitOfWorkFactory(db)
	kv := postgres.NewKeyValueStore(db)
	rates := postgres.NewConversionRateRepository(db)
	users := postgres.NewUserLister(db)
	oracle := pricing.NewYahooOracle(log)

	core := app.New(app.Options{
		Factory:           factory,
		KV:                kv,
		Rates:             rates,
		Oracle:            oracle,
		DollarCacheTTL:    cfg.DollarCacheTTL,
		DefaultDollarRate: cfg.DefaultDollarRate,
		Log:               log,
	})

	sched := scheduler.New(core.Bus, users, log)
	if err := sched.Register(scheduler.Schedules{
		Rollover:    cfg.RolloverSchedule,
		Bills:       cfg.BillsSchedule,
		Snapshots:   cfg.SnapshotsSchedule,
		PriceUpdate: cfg.PriceUpdateSchedule,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register scheduled jobs")
	}
	sched.Start()
	log.Info().Msg("scheduler started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	sched.Stop()
	log.Info().Msg("scheduler stopped")
}
