// Command dataset exports labeled sensor samples for training the anomaly
// model. A sample is labeled failed when a corrective request for the same
// machine opened within the hour after it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/observability"
	"github.com/spec-kit/gearguard/internal/persistence"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dataset: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		out    string
		format string
	)
	flags := pflag.NewFlagSet("dataset", pflag.ContinueOnError)
	flags.StringVarP(&out, "out", "o", "dataset.csv", "output file (- for stdout)")
	flags.StringVar(&format, "format", "csv", "output format: csv or xlsx")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dataset [flags]\n\nFlags:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	var write func(io.Writer, []service.DatasetRow) error
	switch format {
	case "csv":
		write = service.WriteDatasetCSV
	case "xlsx":
		write = service.WriteDatasetXLSX
	default:
		return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Driver == config.StorageDriverMemory {
		return errors.New("dataset reads from postgres; set POSTGRES_DSN")
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

	exporter := service.NewExportService(repository.NewPostgres(pg.PoolHandle()), logger)
	rows, err := exporter.BuildDataset(ctx)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}

	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := write(w, rows); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}

	failed := 0
	for _, r := range rows {
		if r.Failed {
			failed++
		}
	}
	logger.Info("dataset exported",
		zap.String("out", out),
		zap.String("format", format),
		zap.Int("rows", len(rows)),
		zap.Int("failed", failed))
	return nil
}
