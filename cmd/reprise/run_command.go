package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paveg/reprise/internal/config"
	"github.com/paveg/reprise/internal/logging"
	"github.com/paveg/reprise/internal/pipeline"
)

func newRunCommand(configFlag *string) *cobra.Command {
	var (
		dataDir         string
		outputDir       string
		corrected       bool
		dryRun          bool
		loadConcurrency int
		workers         int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline and export the feature tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(*configFlag)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("data") {
				cfg.Data.Dir = dataDir
			}
			if flags.Changed("out") {
				cfg.Data.OutputDir = outputDir
			}
			if flags.Changed("corrected-test-transform") {
				cfg.Pipeline.CorrectedTestTransform = corrected
			}
			if flags.Changed("dry-run") {
				cfg.Pipeline.DryRun = dryRun
			}
			if flags.Changed("load-concurrency") {
				cfg.Parallel.LoadConcurrency = loadConcurrency
			}
			if flags.Changed("workers") {
				cfg.Parallel.WorkerPoolSize = workers
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			cfg, warnings := cfg.Normalize()
			logging.Init(cfg.Logging)
			for _, warning := range warnings {
				logging.Warn().Msg(warning)
			}

			// The pipeline checks this too, but a missing directory should
			// fail before anything else happens
			info, err := os.Stat(cfg.Data.Dir)
			if err != nil {
				return fmt.Errorf("data directory %s: %w", cfg.Data.Dir, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("data directory %s is not a directory", cfg.Data.Dir)
			}

			start := time.Now()
			p, err := pipeline.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(p.Reports(), time.Since(start)))
			if cfg.Pipeline.DryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "dry run: no tables written")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "feature tables written to %s\n", cfg.Data.OutputDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data", "", "Directory holding the five raw tables")
	cmd.Flags().StringVar(&outputDir, "out", "", "Directory receiving the feature tables")
	cmd.Flags().BoolVar(&corrected, "corrected-test-transform", false, "Transform the test table itself instead of reproducing the historical train-table read")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run all stages but skip writing outputs")
	cmd.Flags().IntVar(&loadConcurrency, "load-concurrency", 0, "Concurrent CSV loads (0 = sequential)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Transform worker pool size (0 = CPU count)")

	return cmd
}

// resolveConfig builds the base configuration: defaults overlaid with
// REPRISE_* environment variables, or the config file contents when one is
// given. Command flags override the result.
func resolveConfig(configPath string) (config.Config, error) {
	if configPath == "" {
		return config.LoadFromEnv(), nil
	}
	return config.LoadFromFile(configPath)
}
