package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimpact/internal/ai"
	"github.com/amishk599/jobimpact/internal/config"
	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/notifier"
	"github.com/amishk599/jobimpact/internal/retry"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobimpact",
	Short: "Predict how generative AI will change a list of jobs",
	Long:  "jobimpact sends every job title in a list to a sweep of LLMs and writes each model's predictions to JSON and XLSX.",
	// Default to `run` so that `jobimpact` with no args runs the sweep.
	RunE: runSweep,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBIMPACT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	addRunFlags(rootCmd)
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBIMPACT_CONFIG env var > "./config.yaml".
// Only the implicit ./config.yaml may be absent, in which case defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if env := os.Getenv("JOBIMPACT_CONFIG"); env != "" {
		return config.Load(env)
	}
	cfg, _, err := config.LoadOptional("config.yaml")
	return cfg, err
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupRouter registers one binding per provider family. In dry-run mode every
// family answers from a stub and no credentials are needed.
func setupRouter(cfg *config.Config, creds config.Credentials, dryRun bool, httpClient *http.Client) *ai.Router {
	if dryRun {
		return ai.NewRouter(ai.DefaultRoutes, ai.FamilyOpenRouter,
			ai.NewStubBinding(ai.FamilyOpenRouter),
			ai.NewStubBinding(ai.FamilyCohere),
			ai.NewStubBinding(ai.FamilyGemini),
		)
	}
	return ai.NewRouter(ai.DefaultRoutes, ai.FamilyOpenRouter,
		ai.NewOpenRouterBinding(cfg.Providers.OpenRouterBaseURL, creds.OpenRouterAPIKey, httpClient),
		ai.NewCohereBinding(cfg.Providers.CohereBaseURL, creds.CohereAPIKey, httpClient),
		ai.NewGeminiBinding(creds.GeminiAPIKey),
	)
}

func retryPolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = cfg.Retry.MaxAttempts
	p.BaseDelay = cfg.Retry.BaseDelay
	p.MaxDelay = cfg.Retry.MaxDelay
	p.Jitter = cfg.Retry.Jitter
	return p
}

func generationParams(cfg *config.Config) ai.GenerationParams {
	p := ai.DefaultParams()
	p.MaxTokens = cfg.Generation.MaxTokens
	p.Seed = cfg.Generation.Seed
	return p
}
