package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/storage"
	"github.com/projtrack/ptt/internal/timecalc"
)

var (
	statusProject string
	statusWatch   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current timer status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusProject, "project", "", "Project path (default: current directory)")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Keep running and update the elapsed time every second")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, store, tracker, err := openTracker()
	if err != nil {
		fail(err)
	}
	path, err := projectArg(statusProject)
	if err != nil {
		fail(err)
	}

	attach, err := tracker.Attach(path, cfg.IdleThreshold())
	if err != nil {
		fail(err)
	}
	if attach.Recovered && attach.Stopped != nil {
		fmt.Printf("Recovered abandoned timer for task %q (%s logged).\n",
			attach.Stopped.Task, timecalc.FormatDuration(attach.Stopped.Seconds))
	}

	active := tracker.Active()
	if active == nil {
		printIdle(store, path)
		return nil
	}

	now := time.Now()
	fmt.Println("Running:")
	fmt.Printf("  Project: %s\n", active.ProjectName)
	fmt.Printf("  Task: %s\n", active.Task)
	fmt.Printf("  Since: %s\n", active.Start.Format("15:04"))
	fmt.Printf("  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(timecalc.RoundSeconds(active.Elapsed(now))))
	if !tracker.Owns() {
		fmt.Println("  (started by another window)")
	}

	if !statusWatch {
		return nil
	}

	// The 1-second tick recomputes the elapsed display from memory.
	// Ticking adopts the session once its starting process goes quiet,
	// then refreshes the shared activity timestamp at a throttled rate;
	// the snapshot itself is re-read occasionally so a stop in another
	// window is noticed.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for i := 1; ; i++ {
		now := <-ticker.C
		fmt.Printf("\r  Elapsed: %s ", timecalc.FormatDurationHHMMSS(timecalc.RoundSeconds(active.Elapsed(now))))
		tracker.Tick()
		if i%5 == 0 {
			snap := store.ReadSnapshot(active.ProjectID)
			if snap.Current == nil || !snap.Current.Start.Equal(active.Start) {
				fmt.Println()
				fmt.Println("Timer was stopped in another window.")
				return nil
			}
		}
	}
}

// printIdle shows today's total for the project when no timer runs.
func printIdle(store *storage.Store, path string) {
	fmt.Println("No active timer.")
	proj, ok := store.FindProjectByPath(path)
	if !ok {
		return
	}
	snap := store.ReadSnapshot(proj.ID)
	today := timecalc.DateKey(time.Now())
	var total int64
	if rec, ok := snap.Days[today]; ok {
		total = rec.TotalSeconds
	}
	fmt.Printf("Today on %s: %s logged.\n", proj.Name, timecalc.FormatDuration(total))
	if snap.LastTask != "" {
		fmt.Printf("Last task: %s\n", snap.LastTask)
	}
}
