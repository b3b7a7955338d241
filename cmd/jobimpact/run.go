package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimpact/internal/ai"
	"github.com/amishk599/jobimpact/internal/batch"
	"github.com/amishk599/jobimpact/internal/config"
	"github.com/amishk599/jobimpact/internal/jobs"
	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/progress"
	"github.com/amishk599/jobimpact/internal/ratelimit"
	"github.com/amishk599/jobimpact/internal/schema"
	"github.com/amishk599/jobimpact/internal/sink"
	"github.com/amishk599/jobimpact/internal/store"
	"github.com/amishk599/jobimpact/internal/sweep"
)

var (
	dryRun       bool
	showProgress bool
	noLedger     bool
	modelsFlag   []string
	jobsFlag     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model sweep",
	Long:  "Classifies every job in the jobs file with each configured model in turn and writes one JSON and one XLSX file per model.",
	RunE:  runSweep,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "answer every job from a stub instead of calling providers; nothing is recorded in the ledger")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "render a progress bar instead of periodic log lines")
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "do not record the sweep in the run ledger")
	cmd.Flags().StringSliceVar(&modelsFlag, "models", nil, "comma-separated model ids overriding the configured list")
	cmd.Flags().StringVar(&jobsFlag, "jobs", "", "jobs file overriding jobs_file")
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if len(modelsFlag) > 0 {
		cfg.Models = modelsFlag
	}
	if jobsFlag != "" {
		cfg.JobsFile = jobsFlag
	}

	jobList, err := jobs.Load(cfg.JobsFile)
	if err != nil {
		logger.Error("failed to load jobs", "error", err)
		os.Exit(1)
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	decoder, err := schema.NewDecoder(schema.Version(cfg.SchemaVersion))
	if err != nil {
		logger.Error("failed to build schema decoder", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"jobs", len(jobList),
		"models", len(cfg.Models),
		"schema", cfg.SchemaVersion,
		"output_dir", cfg.OutputDir,
		"max_attempts", cfg.Retry.MaxAttempts,
		"base_delay", cfg.Retry.BaseDelay.String(),
	)

	httpClient := &http.Client{Timeout: 120 * time.Second}
	router := setupRouter(cfg, creds, dryRun, httpClient)
	if dryRun {
		logger.Info("dry-run mode enabled, providers will not be called")
	} else {
		warnMissingCredentials(cfg, creds, router, logger)
	}

	pool := ratelimit.NewPool(cfg.Concurrency.Default, cfg.Concurrency.Overrides)
	binder := sweep.NewRouterBinder(router, pool, decoder, generationParams(cfg))

	var reporter progress.Reporter = progress.NewLogReporter(logger)
	if showProgress {
		reporter = progress.NewBarReporter(os.Stderr)
	}
	runner := batch.NewRunner(retryPolicy(cfg), reporter, logger)

	var ledger model.RunLedger = store.NewNopLedger()
	if !noLedger && !dryRun {
		sqlStore, err := store.NewSQLiteStore(cfg.Database)
		if err != nil {
			logger.Error("failed to open ledger", "error", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		ledger = sqlStore
	}

	n := setupNotifier(cfg, httpClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := sweep.New(cfg.Models, binder, runner, sink.NewFileSink(cfg.OutputDir, logger), ledger, n, logger)
	orch.Run(ctx, jobList)

	if ctx.Err() != nil {
		logger.Warn("sweep interrupted", "sweep", orch.SweepID())
	}
	logger.Info("goodbye")
	return nil
}

// warnMissingCredentials logs the keys the configured models need but the
// environment lacks. Those models fail on their own; the sweep still runs.
func warnMissingCredentials(cfg *config.Config, creds config.Credentials, router *ai.Router, logger *slog.Logger) {
	seen := map[string]bool{}
	var families []string
	for _, m := range cfg.Models {
		family, _ := router.Resolve(m)
		if !seen[string(family)] {
			seen[string(family)] = true
			families = append(families, string(family))
		}
	}
	if missing := creds.Missing(families...); len(missing) > 0 {
		logger.Warn("missing credentials, affected models will fail", "env", missing)
	}
}
