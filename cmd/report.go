package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/storage"
	"github.com/projtrack/ptt/internal/timecalc"
)

var (
	reportFrom   string
	reportTo     string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show aggregated time per project",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Start date (YYYY-MM-DD); default: Monday of this week")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "End date (YYYY-MM-DD), inclusive; default: Sunday of this week")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

// rangeArgs resolves the --from/--to flags into inclusive date keys,
// defaulting to the current ISO week.
func rangeArgs(from, to string) (string, string, error) {
	now := time.Now()
	monday, sunday := timecalc.WeekRange(now)
	fromKey := timecalc.DateKey(monday)
	toKey := timecalc.DateKey(sunday)
	if from != "" {
		d, err := timecalc.ParseDate(from)
		if err != nil {
			return "", "", err
		}
		fromKey = timecalc.DateKey(d)
	}
	if to != "" {
		d, err := timecalc.ParseDate(to)
		if err != nil {
			return "", "", err
		}
		toKey = timecalc.DateKey(d)
	}
	if toKey < fromKey {
		return "", "", fmt.Errorf("--to %s precedes --from %s", toKey, fromKey)
	}
	return fromKey, toKey, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	_, store, _, err := openTracker()
	if err != nil {
		fail(err)
	}

	from, to, err := rangeArgs(reportFrom, reportTo)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// The activity log narrows the scan to projects that actually had
	// entries in the range; only their snapshots are read.
	ids, err := store.ProjectsTouchedBetween(from, to)
	if err != nil {
		fail(err)
	}

	var totals []projectTotal
	var grandTotal int64
	for _, id := range ids {
		name := projectName(store, id)
		snap := store.ReadSnapshot(id)
		var secs int64
		for date, rec := range snap.Days {
			if date < from || date > to {
				continue
			}
			secs += rec.TotalSeconds
		}
		if secs == 0 {
			continue
		}
		totals = append(totals, projectTotal{name: name, seconds: secs})
		grandTotal += secs
	}

	switch reportFormat {
	case "csv":
		fmt.Println("project,duration_minutes")
		for _, t := range totals {
			fmt.Printf("%s,%d\n", csvEscape(t.name), t.seconds/60)
		}
	case "json":
		data, err := marshalReport(from, to, totals, grandTotal)
		if err != nil {
			fail(err)
		}
		fmt.Println(string(data))
	default: // md
		fmt.Printf("%s → %s\n", from, to)
		fmt.Println("--------------------------------")
		for _, t := range totals {
			fmt.Printf("%-20s%s\n", t.name, timecalc.FormatDuration(t.seconds))
		}
		fmt.Println("--------------------------------")
		fmt.Printf("%-20s%s\n", "Total", timecalc.FormatDuration(grandTotal))
	}

	return nil
}

// projectTotal is one aggregated report line.
type projectTotal struct {
	name    string
	seconds int64
}

type reportRow struct {
	Project         string `json:"project"`
	DurationMinutes int64  `json:"duration_minutes"`
}

type reportPayload struct {
	From         string      `json:"from"`
	To           string      `json:"to"`
	Projects     []reportRow `json:"projects"`
	TotalMinutes int64       `json:"total_minutes"`
}

func marshalReport(from, to string, totals []projectTotal, grandTotal int64) ([]byte, error) {
	payload := reportPayload{
		From:         from,
		To:           to,
		Projects:     make([]reportRow, 0, len(totals)),
		TotalMinutes: grandTotal / 60,
	}
	for _, t := range totals {
		payload.Projects = append(payload.Projects, reportRow{Project: t.name, DurationMinutes: t.seconds / 60})
	}
	return json.MarshalIndent(payload, "", "  ")
}

// projectName resolves a display name, falling back to the id.
func projectName(store *storage.Store, id string) string {
	if p, ok := store.FindProjectByID(id); ok {
		return p.Name
	}
	return id
}
