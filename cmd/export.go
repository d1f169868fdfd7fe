package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/projtrack/ptt/internal/storage"
	"github.com/projtrack/ptt/internal/timecalc"
)

var (
	exportFrom   string
	exportTo     string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export time entries to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (YYYY-MM-DD); default: Monday of this week")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date (YYYY-MM-DD), inclusive; default: Sunday of this week")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md")
}

// exportRow is one finalized entry denormalized with its project.
type exportRow struct {
	Date    string     `json:"date"`
	Project string     `json:"project"`
	Task    string     `json:"task"`
	Start   time.Time  `json:"start"`
	End     *time.Time `json:"end,omitempty"`
	Seconds int64      `json:"seconds"`
	Source  string     `json:"source,omitempty"`
}

func runExport(cmd *cobra.Command, args []string) error {
	_, store, _, err := openTracker()
	if err != nil {
		fail(err)
	}

	from, to, err := rangeArgs(exportFrom, exportTo)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rows := collectRows(store, from, to)

	switch exportFormat {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
	case "md":
		printRows(rows)
	default: // csv
		printCSV(rows)
	}

	return nil
}

// collectRows gathers every entry in the range across all projects that
// had activity, ordered by start time.
func collectRows(store *storage.Store, from, to string) []exportRow {
	ids, err := store.ProjectsTouchedBetween(from, to)
	if err != nil {
		fail(err)
	}

	var rows []exportRow
	for _, id := range ids {
		name := projectName(store, id)
		snap := store.ReadSnapshot(id)
		for date, rec := range snap.Days {
			if date < from || date > to {
				continue
			}
			for _, e := range rec.Entries {
				rows = append(rows, exportRow{
					Date:    date,
					Project: name,
					Task:    e.Task,
					Start:   e.Start,
					End:     e.End,
					Seconds: e.Seconds,
					Source:  e.Source,
				})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Start.Before(rows[j].Start) })
	return rows
}

// printRows groups entries by date and prints them.
func printRows(rows []exportRow) {
	if len(rows) == 0 {
		fmt.Println("No entries found.")
		return
	}

	var currentDay string
	for _, r := range rows {
		if r.Date != currentDay {
			fmt.Println(r.Date)
			currentDay = r.Date
		}

		startStr := r.Start.Format("15:04")
		endStr := "ongoing"
		durStr := ""
		if r.End != nil {
			endStr = r.End.Format("15:04")
			durStr = fmt.Sprintf(" (%s)", timecalc.FormatDuration(r.Seconds))
		}

		fmt.Printf("%s–%s  %s  %s%s\n", startStr, endStr, r.Project, r.Task, durStr)
	}
}

func printCSV(rows []exportRow) {
	fmt.Println("date,project,task,start,end,duration_minutes,source")
	for _, r := range rows {
		startStr := r.Start.Format(time.RFC3339)
		endStr := ""
		if r.End != nil {
			endStr = r.End.Format(time.RFC3339)
		}
		fmt.Printf("%s,%s,%s,%s,%s,%d,%s\n",
			csvEscape(r.Date),
			csvEscape(r.Project),
			csvEscape(r.Task),
			csvEscape(startStr),
			csvEscape(endStr),
			r.Seconds/60,
			csvEscape(r.Source),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	needsQuote := false
	for _, c := range s {
		if c == ',' || c == '"' || c == '\n' || c == '\r' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	// Escape internal double quotes by doubling them.
	escaped := ""
	for _, c := range s {
		if c == '"' {
			escaped += "\""
		}
		escaped += string(c)
	}
	return `"` + escaped + `"`
}
