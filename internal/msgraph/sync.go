package msgraph

import (
	"fmt"
	"time"

	"github.com/projtrack/ptt/internal/model"
	"github.com/projtrack/ptt/internal/session"
	"github.com/projtrack/ptt/internal/timecalc"
)

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported int
	Skipped  int
	Updated  int
	Errors   int
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	ProjectPath string
	DryRun      bool
	Timezone    string
}

// parseGraphTime parses a Graph API dateTime string in the given timezone.
// Graph returns times like "2026-02-27T09:00:00.0000000" without a zone suffix
// when a Prefer: outlook.timezone header is set.
func parseGraphTime(dt, tz string) (time.Time, error) {
	// Try RFC3339 first (includes timezone offset).
	if t, err := time.Parse(time.RFC3339, dt); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, dt); err == nil {
		return t, nil
	}

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	// Graph returns fractional seconds: "2026-02-27T09:00:00.0000000"
	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}

// shouldSkip returns true if the event should not be imported.
func shouldSkip(event CalendarEvent) bool {
	if event.IsCancelled {
		return true
	}
	if event.IsAllDay {
		return true
	}
	if event.Sensitivity == "private" {
		return true
	}
	if event.ShowAs == "free" {
		return true
	}
	if event.Start.DateTime == "" || event.End.DateTime == "" {
		return true
	}
	return false
}

// MapEventToEntry converts a Graph CalendarEvent into a finalized
// session entry keyed on the event id for idempotent import.
func MapEventToEntry(event CalendarEvent, timezone string) (model.SessionEntry, error) {
	startTime, err := parseGraphTime(event.Start.DateTime, timezone)
	if err != nil {
		return model.SessionEntry{}, fmt.Errorf("parsing start time: %w", err)
	}
	endTime, err := parseGraphTime(event.End.DateTime, timezone)
	if err != nil {
		return model.SessionEntry{}, fmt.Errorf("parsing end time: %w", err)
	}

	return model.SessionEntry{
		Task:       event.Subject,
		Start:      startTime,
		End:        &endTime,
		Seconds:    timecalc.RoundSeconds(endTime.Sub(startTime)),
		Source:     model.SourceOutlook,
		ExternalID: event.ID,
	}, nil
}

// SyncEvents merges a slice of Graph events into the target project's
// snapshot through the tracker's conflict-retried import path. It
// prints progress to stdout and returns a SyncResult.
func SyncEvents(tracker *session.Tracker, events []CalendarEvent, opts SyncOptions) (SyncResult, error) {
	var result SyncResult

	for _, event := range events {
		if shouldSkip(event) {
			continue
		}

		entry, err := MapEventToEntry(event, opts.Timezone)
		if err != nil {
			fmt.Printf("  ! Error mapping event %q: %v\n", event.Subject, err)
			result.Errors++
			continue
		}

		if opts.DryRun {
			fmt.Printf("  ✓ Would import: %s (%s)\n", event.Subject, timecalc.FormatDuration(entry.Seconds))
			result.Imported++
			continue
		}

		outcome, err := tracker.ImportEntry(opts.ProjectPath, entry)
		if err != nil {
			fmt.Printf("  ! Error importing %q: %v\n", event.Subject, err)
			result.Errors++
			continue
		}
		switch outcome {
		case session.ImportSkipped:
			fmt.Printf("  – Skipped:  %s (already exists)\n", event.Subject)
			result.Skipped++
		case session.ImportUpdated:
			fmt.Printf("  ↑ Updated:  %s (%s)\n", event.Subject, timecalc.FormatDuration(entry.Seconds))
			result.Updated++
		default:
			fmt.Printf("  ✓ Imported: %s (%s)\n", event.Subject, timecalc.FormatDuration(entry.Seconds))
			result.Imported++
		}
	}

	return result, nil
}
