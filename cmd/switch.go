package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/session"
)

var switchProject string

var switchCmd = &cobra.Command{
	Use:   "switch <task>",
	Short: "Stop the running task and start another in one step",
	Args:  cobra.ExactArgs(1),
	RunE:  runSwitch,
}

func init() {
	switchCmd.Flags().StringVar(&switchProject, "project", "", "Project path (default: current directory)")
}

func runSwitch(cmd *cobra.Command, args []string) error {
	newTask := args[0]

	_, _, tracker, err := openTracker()
	if err != nil {
		fail(err)
	}
	path, err := projectArg(switchProject)
	if err != nil {
		fail(err)
	}

	// Like an explicit stop, a switch means the user is present: the
	// old task ends at the wall clock, not at the stale-recovery clamp.
	if _, ok := tracker.Adopt(path); !ok {
		fmt.Fprintln(os.Stderr, "No active timer to switch from.")
		os.Exit(1)
	}

	oldTask := tracker.Active().Task
	sess, err := tracker.SwitchTask(newTask, time.Now())
	if err != nil {
		var invalid *session.ValidationError
		if errors.As(err, &invalid) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fail(err)
	}

	fmt.Printf("Switched from %q to %q at %s\n", oldTask, sess.Task, sess.Start.Format("15:04:05"))
	return nil
}
