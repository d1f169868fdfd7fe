package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/session"
	"github.com/projtrack/ptt/internal/timecalc"
)

var (
	startProject    string
	startAt         string
	startResolveEnd string
)

var startCmd = &cobra.Command{
	Use:   "start <task>",
	Short: "Start a timer for a task on the current project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&startProject, "project", "", "Project path (default: current directory)")
	startCmd.Flags().StringVar(&startAt, "at", "", "Start time today as HH:MM (default: now)")
	startCmd.Flags().StringVar(&startResolveEnd, "resolve-end", "", "End time (HH:MM) used to close an unfinished entry blocking the start")
}

func runStart(cmd *cobra.Command, args []string) error {
	task := args[0]

	cfg, _, tracker, err := openTracker()
	if err != nil {
		fail(err)
	}
	path, err := projectArg(startProject)
	if err != nil {
		fail(err)
	}

	now := time.Now()
	at := now
	if startAt != "" {
		at, err = timecalc.ParseClock(startAt, now)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	// Close out a session a crashed or sleeping window left behind.
	attach, err := tracker.Attach(path, cfg.IdleThreshold())
	if err != nil {
		fail(err)
	}
	if attach.Recovered && attach.Stopped != nil && !attach.Stopped.AlreadyResolved {
		fmt.Printf("Recovered abandoned timer for task %q (%s logged)\n",
			attach.Stopped.Task, timecalc.FormatDuration(attach.Stopped.Seconds))
	}

	sess, err := tracker.Start(path, task, session.StartOptions{At: at})
	if err != nil {
		var running *session.AlreadyRunningError
		var pending *session.PendingEntryError
		switch {
		case errors.As(err, &running):
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "Hint: run 'ptt stop' or 'ptt switch <task>'")
			os.Exit(1)
		case errors.As(err, &pending):
			if startResolveEnd == "" {
				fmt.Fprintln(os.Stderr, err)
				fmt.Fprintln(os.Stderr, "Hint: pass --resolve-end HH:MM, or run 'ptt resolve --end HH:MM'")
				os.Exit(1)
			}
			end, perr := timecalc.ParseClock(startResolveEnd, pending.Start)
			if perr != nil {
				fmt.Fprintln(os.Stderr, perr)
				os.Exit(1)
			}
			sess, err = tracker.ResolveAndStart(path, task, end, session.StartOptions{At: at})
			if err != nil {
				var invalid *session.ValidationError
				if errors.As(err, &invalid) {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				fail(err)
			}
		default:
			fail(err)
		}
	}

	fmt.Printf("Started timer for task %q on project %q at %s\n",
		task, sess.ProjectName, sess.Start.Format("15:04:05"))
	return nil
}
