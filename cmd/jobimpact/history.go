package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/store"
)

var (
	historyLimit int
	historyPrune time.Duration
)

var (
	historyHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	historyDoneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	historyFailedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	historyDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent model runs from the ledger",
	Long:  "Lists the most recent model runs recorded in the run ledger, newest sweep first.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of model runs to show")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete sweeps older than this before listing (e.g. 720h)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open ledger: %v\n", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	if historyPrune > 0 {
		if err := sqlStore.Cleanup(historyPrune); err != nil {
			fmt.Fprintf(os.Stderr, "failed to prune ledger: %v\n", err)
			os.Exit(1)
		}
	}

	runs, err := sqlStore.ListRuns(historyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list runs: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Println(historyHeaderStyle.Render(fmt.Sprintf("%-10s %-36s %-8s %7s %7s %s", "Sweep", "Model", "State", "OK", "Failed", "Started")))
	fmt.Println(strings.Repeat("─", 90))
	for _, r := range runs {
		fmt.Println(formatRun(r))
	}
	return nil
}

func formatRun(r store.RunRecord) string {
	started := "-"
	if !r.StartedAt.IsZero() {
		started = r.StartedAt.Local().Format("2006-01-02 15:04:05")
	}
	sweepID := r.SweepID
	if len(sweepID) > 8 {
		sweepID = sweepID[:8]
	}

	state := fmt.Sprintf("%-8s", r.State)
	switch r.State {
	case model.StateDone:
		state = historyDoneStyle.Render(state)
	case model.StateFailed:
		state = historyFailedStyle.Render(state)
	default:
		state = historyDimStyle.Render(state)
	}

	line := fmt.Sprintf("%-10s %-36s %s %7d %7d %s", sweepID, r.Model, state, r.Succeeded, r.Failed, started)
	if r.Error != "" {
		line += "\n" + historyDimStyle.Render("           "+r.Error)
	}
	return line
}
