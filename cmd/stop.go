package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/session"
)

var stopProject string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer for the current project",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopProject, "project", "", "Project path (default: current directory)")
}

func runStop(cmd *cobra.Command, args []string) error {
	_, _, tracker, err := openTracker()
	if err != nil {
		fail(err)
	}
	path, err := projectArg(stopProject)
	if err != nil {
		fail(err)
	}

	// An explicit stop ends the session at the wall clock, however long
	// ago the last activity write was. Stale-recovery runs on the start
	// and status paths only.
	if _, ok := tracker.Adopt(path); !ok {
		fmt.Fprintln(os.Stderr, "No active timer to stop.")
		os.Exit(1)
	}

	res, err := tracker.Stop(session.StopOptions{})
	if err != nil {
		fail(err)
	}
	if res.AlreadyResolved {
		fmt.Println("Timer was already stopped by another window.")
		return nil
	}

	fmt.Printf("Stopped timer for task %q. Elapsed: %s\n", res.Task, formatElapsed(res.Seconds))
	if res.Split {
		fmt.Println("The session crossed midnight; time was split across both days.")
	}
	return nil
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
