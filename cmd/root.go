package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/config"
	"github.com/projtrack/ptt/internal/coord"
	"github.com/projtrack/ptt/internal/session"
	"github.com/projtrack/ptt/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "ptt",
	Short: "ptt – a per-project, multi-window time tracker",
	Long: `ptt tracks elapsed working time per project and per task.
State is one human-readable JSON snapshot per project under ~/.ptt/,
so several windows or shells can track the same projects concurrently
without a server or lock daemon.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(outlookCmd)
}

// openTracker wires the store, coordinator and tracker from config.
func openTracker() (config.Config, *storage.Store, *session.Tracker, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, err
	}
	dir, err := cfg.ResolvedDataDir()
	if err != nil {
		return cfg, nil, nil, err
	}
	store, err := storage.New(dir)
	if err != nil {
		return cfg, nil, nil, err
	}
	shared := coord.NewFileStore(filepath.Join(dir, "shared.json"))
	tracker := session.NewTracker(store, coord.New(shared, cfg.ActivityInterval()))
	tracker.SetMaxRetries(cfg.ConflictRetryLimit)
	return cfg, store, tracker, nil
}

// projectArg resolves the --project flag, defaulting to the current
// working directory.
func projectArg(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working directory: %w", err)
	}
	return wd, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(2)
}
