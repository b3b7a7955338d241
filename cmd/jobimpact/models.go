package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimpact/internal/ai"
	"github.com/amishk599/jobimpact/internal/config"
	"github.com/amishk599/jobimpact/internal/ratelimit"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models",
	Long:  "Reads the config and prints each model with the provider it routes to and that provider's concurrency limit.",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load credentials: %v\n", err)
		os.Exit(1)
	}
	router := ai.NewRouter(ai.DefaultRoutes, ai.FamilyOpenRouter)
	pool := ratelimit.NewPool(cfg.Concurrency.Default, cfg.Concurrency.Overrides)

	fmt.Printf("%-40s %-12s %-6s %s\n", "Model", "Provider", "Limit", "Credential")
	fmt.Println(strings.Repeat("─", 72))

	ready := 0
	for _, m := range cfg.Models {
		family, _ := router.Resolve(m)
		status := "ok"
		if missing := creds.Missing(string(family)); len(missing) > 0 {
			status = "missing " + missing[0]
		} else {
			ready++
		}
		fmt.Printf("%-40s %-12s %-6d %s\n", m, family, pool.LimitFor(string(family)), status)
	}

	fmt.Printf("\nTotal: %d models (%d ready, %d missing credentials)\n", len(cfg.Models), ready, len(cfg.Models)-ready)
	return nil
}
