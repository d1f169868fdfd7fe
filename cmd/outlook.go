package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/msgraph"
	"github.com/projtrack/ptt/internal/timecalc"
)

var (
	outlookSyncProject string
	outlookSyncFrom    string
	outlookSyncTo      string
	outlookSyncDate    string
	outlookSyncDryRun  bool
	outlookSyncTZ      string
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar integration",
}

var outlookSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import Outlook calendar events as finalized entries",
	Args:  cobra.NoArgs,
	RunE:  runOutlookSync,
}

func init() {
	outlookSyncCmd.Flags().StringVar(&outlookSyncProject, "project", "", "Project path to import into (default: current directory)")
	outlookSyncCmd.Flags().StringVar(&outlookSyncFrom, "from", "", "Start date (YYYY-MM-DD); required when --to is specified")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTo, "to", "", "End date (YYYY-MM-DD); defaults to today")
	outlookSyncCmd.Flags().StringVar(&outlookSyncDate, "date", "", "Sync a specific date (YYYY-MM-DD)")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncDryRun, "dry-run", false, "Print planned operations without writing")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTZ, "timezone", "", "IANA timezone for event times (e.g. Europe/Berlin)")
	outlookCmd.AddCommand(outlookSyncCmd)
}

func runOutlookSync(cmd *cobra.Command, args []string) error {
	now := time.Now()
	var from, to time.Time

	switch {
	case outlookSyncDate != "":
		d, err := timecalc.ParseDate(outlookSyncDate)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		from = timecalc.StartOfDay(d)
		to = timecalc.EndOfDay(d)

	case outlookSyncFrom != "" || outlookSyncTo != "":
		if outlookSyncTo != "" && outlookSyncFrom == "" {
			fmt.Fprintln(os.Stderr, "--from is required when --to is specified")
			os.Exit(1)
		}
		d, err := timecalc.ParseDate(outlookSyncFrom)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		from = timecalc.StartOfDay(d)

		if outlookSyncTo != "" {
			t, err := timecalc.ParseDate(outlookSyncTo)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			to = timecalc.EndOfDay(t)
		} else {
			to = timecalc.EndOfDay(now)
		}

	default:
		// Default: today.
		from = timecalc.StartOfDay(now)
		to = timecalc.EndOfDay(now)
	}

	cfg, store, tracker, err := openTracker()
	if err != nil {
		fail(err)
	}
	path, err := projectArg(outlookSyncProject)
	if err != nil {
		fail(err)
	}

	timezone := outlookSyncTZ
	if timezone == "" {
		timezone = cfg.Outlook.Timezone
	}

	dryTag := ""
	if outlookSyncDryRun {
		dryTag = " [dry-run]"
	}
	fmt.Printf("Syncing Outlook events (%s → %s)%s...\n",
		from.Format("2006-01-02"), to.Format("2006-01-02"), dryTag)
	fmt.Println()

	ctx := context.Background()

	client, err := msgraph.Dial(ctx, store.BaseDir(), cfg.Outlook.TenantID, cfg.Outlook.ClientID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Authentication failed: %v\n", err)
		os.Exit(1)
	}

	events, err := client.GetCalendarView(ctx, from, to, timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch calendar events: %v\n", err)
		os.Exit(1)
	}

	opts := msgraph.SyncOptions{
		ProjectPath: path,
		DryRun:      outlookSyncDryRun,
		Timezone:    timezone,
	}

	result, err := msgraph.SyncEvents(tracker, events, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  %d imported\n", result.Imported)
	fmt.Printf("  %d skipped\n", result.Skipped)
	fmt.Printf("  %d updated\n", result.Updated)
	if result.Errors > 0 {
		fmt.Printf("  %d errors\n", result.Errors)
		os.Exit(2)
	}
	return nil
}
