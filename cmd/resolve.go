package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/session"
	"github.com/projtrack/ptt/internal/timecalc"
)

var (
	resolveProject string
	resolveEnd     string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Close an unfinished entry left behind by a crash",
	Args:  cobra.NoArgs,
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveProject, "project", "", "Project path (default: current directory)")
	resolveCmd.Flags().StringVar(&resolveEnd, "end", "", "End time as HH:MM on the day the entry started (required)")
	_ = resolveCmd.MarkFlagRequired("end")
}

func runResolve(cmd *cobra.Command, args []string) error {
	_, _, tracker, err := openTracker()
	if err != nil {
		fail(err)
	}
	path, err := projectArg(resolveProject)
	if err != nil {
		fail(err)
	}

	pending, ok := tracker.PendingEntry(path)
	if !ok {
		fmt.Println("No unfinished entry to resolve.")
		return nil
	}

	end, err := timecalc.ParseClock(resolveEnd, pending.Start)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	res, err := tracker.Resolve(path, end)
	if err != nil {
		var invalid *session.ValidationError
		if errors.As(err, &invalid) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fail(err)
	}
	if res.AlreadyResolved {
		fmt.Println("The entry was already resolved by another window.")
		return nil
	}

	fmt.Printf("Closed entry for task %q started %s on %s: %s logged.\n",
		pending.Task, pending.Start.Format("15:04:05"), pending.Date,
		timecalc.FormatDuration(res.Seconds))
	return nil
}
