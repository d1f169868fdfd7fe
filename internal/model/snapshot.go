package model

import "time"

// SchemaVersion is stamped into every persisted file so future versions
// can migrate older layouts.
const SchemaVersion = 1

// Entry sources.
const (
	SourceManual    = "manual"
	SourceOutlook   = "outlook"
	SourceRecovered = "recovered"
)

// SessionEntry is a single tracked interval filed under a day bucket.
// End == nil marks a provisional entry: a timer that is still running,
// or one that was abandoned by a crashed process.
type SessionEntry struct {
	Task       string     `json:"task"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end,omitempty"`
	Seconds    int64      `json:"seconds"`
	Source     string     `json:"source,omitempty"`
	ExternalID string     `json:"externalId,omitempty"`
}

// Pending reports whether the entry has not been finalized yet.
func (e *SessionEntry) Pending() bool {
	return e.End == nil
}

// DayRecord accumulates the finalized entries for one calendar date.
type DayRecord struct {
	TotalSeconds int64            `json:"totalSeconds"`
	Tasks        map[string]int64 `json:"tasks"`
	Entries      []SessionEntry   `json:"entries"`
}

// Fold adds a finalized duration to the day total and the per-task total.
func (d *DayRecord) Fold(task string, seconds int64) {
	d.TotalSeconds += seconds
	if d.Tasks == nil {
		d.Tasks = map[string]int64{}
	}
	d.Tasks[task] += seconds
}

// Recalc rebuilds the day total and per-task totals from the finalized
// entries. Used after an entry is replaced in place (calendar import).
func (d *DayRecord) Recalc() {
	d.TotalSeconds = 0
	d.Tasks = map[string]int64{}
	for i := range d.Entries {
		e := &d.Entries[i]
		if e.Pending() {
			continue
		}
		d.TotalSeconds += e.Seconds
		d.Tasks[e.Task] += e.Seconds
	}
}

// ActiveSession mirrors the provisional entry while a timer runs.
// EntryDay names the day bucket the provisional entry was filed under,
// which may differ from the stop day after a midnight crossover.
type ActiveSession struct {
	Task     string    `json:"task"`
	Start    time.Time `json:"start"`
	EntryDay string    `json:"entryDay"`
}

// ProjectSnapshot is the full persisted time-tracking state for one
// project. LastModified is assigned by the store on every successful
// write and is used exclusively for optimistic-lock comparison.
type ProjectSnapshot struct {
	Version      int                   `json:"version"`
	Days         map[string]*DayRecord `json:"days"`
	LastTask     string                `json:"lastTask,omitempty"`
	Current      *ActiveSession        `json:"current,omitempty"`
	LastModified int64                 `json:"lastModified,omitempty"`
}

// NewSnapshot returns an empty snapshot, the default for projects that
// have never been persisted.
func NewSnapshot() *ProjectSnapshot {
	return &ProjectSnapshot{
		Version: SchemaVersion,
		Days:    map[string]*DayRecord{},
	}
}

// Day returns the record for the given date key, creating it if absent.
func (s *ProjectSnapshot) Day(date string) *DayRecord {
	if s.Days == nil {
		s.Days = map[string]*DayRecord{}
	}
	rec, ok := s.Days[date]
	if !ok {
		rec = &DayRecord{Tasks: map[string]int64{}}
		s.Days[date] = rec
	}
	return rec
}
