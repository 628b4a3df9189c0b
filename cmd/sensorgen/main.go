// Command sensorgen backfills synthetic sensor telemetry and breakdown
// requests for every active machine in the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/observability"
	"github.com/spec-kit/gearguard/internal/persistence"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/internal/simulation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sensorgen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		samples  int
		interval time.Duration
		seed     uint64
	)
	flags := pflag.NewFlagSet("sensorgen", pflag.ContinueOnError)
	flags.IntVar(&samples, "samples", 300, "readings generated per machine")
	flags.DurationVar(&interval, "interval", time.Minute, "spacing between consecutive readings")
	flags.Uint64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sensorgen [flags]\n\nConnects with POSTGRES_DSN from the environment.\n\nFlags:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Driver == config.StorageDriverMemory {
		return errors.New("sensorgen writes to postgres; set POSTGRES_DSN")
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	gen := simulation.NewGenerator(repository.NewPostgres(pg.PoolHandle()), simulation.Config{
		SamplesPerEquipment: samples,
		Interval:            interval,
		Seed:                seed,
	}, logger)
	sum, err := gen.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("sensor data generated",
		zap.Int("equipment", sum.Equipment),
		zap.Int("samples", sum.Samples),
		zap.Int("failures", sum.Failures))
	return nil
}
