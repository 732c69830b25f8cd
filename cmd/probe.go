package cmd

import (
	"agent-browser/models"
	"agent-browser/prober"
	"agent-browser/services"
	"agent-browser/storage"
	"agent-browser/utils"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	var (
		csvPath string
		useDB   bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "probe URL...",
		Short: "Probe pages for observable automation signals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath != "" {
				cfg.CSVPath = csvPath
			}
			if useDB {
				cfg.DBEnabled = true
			}
			if workers > 0 {
				cfg.MaxWorkers = workers
			}
			return runProbe(cmd.Context(), args)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "write results to this CSV file")
	cmd.Flags().BoolVar(&useDB, "db", false, "store results in PostgreSQL")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of parallel browser sessions")
	return cmd
}

func runProbe(ctx context.Context, urls []string) error {
	utils.Info("Probe starting | urls=%d workers=%d delay=%v-%v",
		len(urls), cfg.MaxWorkers, cfg.MinDelay, cfg.MaxDelay)

	pool := prober.NewWorkerPool(newSession, prober.New(loggerFor("probe")), cfg, loggerFor("probe"))
	outcomes, runErr := pool.Run(ctx, urls)
	if runErr != nil {
		utils.Error("Probing stopped early: %v", runErr)
	}

	var results []models.ProbeResult
	for _, o := range outcomes {
		if o.Error != nil {
			utils.Error("Probe failed for %s: %v", o.Job.URL, o.Error)
			continue
		}
		results = append(results, o.Result)
	}

	if len(results) == 0 {
		utils.Warn("No pages probed.")
		return runErr
	}

	if err := storage.NewCSVWriter(cfg.CSVPath).Write(results); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to save CSV: %w", err))
	}
	utils.Success("Saved %d results → %s", len(results), cfg.CSVPath)

	if cfg.DBEnabled {
		if err := saveToPostgres(ctx, results); err != nil {
			return errors.Join(runErr, err)
		}
		utils.Success("Saved %d results to PostgreSQL", len(results))
	}

	services.PrintReport(services.GenerateReport(outcomes))
	return runErr
}

func saveToPostgres(ctx context.Context, results []models.ProbeResult) error {
	pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer pgWriter.Close()

	if err := pgWriter.EnsureSchema(ctx); err != nil {
		return err
	}
	return pgWriter.WriteBatch(ctx, results)
}
