// Package session implements the per-project timer state machine on top
// of the snapshot store. The tracker is the sole mutator of snapshots:
// it re-reads the snapshot from disk before every write attempt, lets
// the store's optimistic lock reject stale writes, and re-derives its
// decision from a fresh read whenever a conflict is observed.
package session

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/projtrack/ptt/internal/coord"
	"github.com/projtrack/ptt/internal/model"
	"github.com/projtrack/ptt/internal/storage"
	"github.com/projtrack/ptt/internal/timecalc"
)

// defaultMaxRetries bounds the read-validate-write loop on conflicts.
const defaultMaxRetries = 3

// ActiveProjectSession is the tracker's in-memory projection of the
// running timer plus denormalized project identity. It is a weak
// projection: always rebuilt from a freshly read snapshot, never the
// source of truth.
type ActiveProjectSession struct {
	ProjectID   string
	ProjectPath string
	ProjectName string
	Task        string
	Start       time.Time
	EntryDay    string
}

// Elapsed returns the running duration at the given instant.
func (a *ActiveProjectSession) Elapsed(now time.Time) time.Duration {
	if now.Before(a.Start) {
		return 0
	}
	return now.Sub(a.Start)
}

// Tracker owns the session state machine for this process.
type Tracker struct {
	store      *storage.Store
	coord      *coord.Coordinator
	now        func() time.Time
	maxRetries int
	active     *ActiveProjectSession
}

// NewTracker returns a tracker over the given store. The coordinator
// may be nil for hosts that do not participate in cross-process idle
// detection.
func NewTracker(store *storage.Store, c *coord.Coordinator) *Tracker {
	return &Tracker{
		store:      store,
		coord:      c,
		now:        time.Now,
		maxRetries: defaultMaxRetries,
	}
}

// SetNowFunc overrides the clock. Passing nil resets it to time.Now.
func (t *Tracker) SetNowFunc(now func() time.Time) {
	if now == nil {
		t.now = time.Now
		return
	}
	t.now = now
}

// SetMaxRetries overrides the conflict retry cap.
func (t *Tracker) SetMaxRetries(n int) {
	if n > 0 {
		t.maxRetries = n
	}
}

// Active returns the in-memory session, or nil when this process is not
// tracking one.
func (t *Tracker) Active() *ActiveProjectSession {
	return t.active
}

// Owns reports whether this process owns the active session.
func (t *Tracker) Owns() bool {
	return t.coord != nil && t.coord.Owns()
}

// StartOptions configure a Start call. A zero At means "now". Silent
// suppresses user-facing notifications in the caller; the state-machine
// rules are identical.
type StartOptions struct {
	At     time.Time
	Silent bool
}

// StopOptions configure a Stop call.
type StopOptions struct {
	At     time.Time
	Silent bool
}

// StopResult describes what a stop did.
type StopResult struct {
	ProjectID       string
	Task            string
	Seconds         int64
	Split           bool
	AlreadyResolved bool
}

// Start begins a timer for the project at path. The snapshot is re-read
// from disk on every attempt; an already-set current session rejects
// the start, and any unterminated entry anywhere in the snapshot blocks
// it until resolved. After a successful write the snapshot is read back
// once more to confirm the session landed.
func (t *Tracker) Start(path, task string, opts StartOptions) (*ActiveProjectSession, error) {
	at := opts.At
	if at.IsZero() {
		at = t.now()
	}
	proj, err := t.store.UpsertProject(path, "")
	if err != nil {
		return nil, err
	}

	var lastConflict error
	for attempt := 0; attempt < t.maxRetries; attempt++ {
		snap := t.store.ReadSnapshot(proj.ID)
		if cur := snap.Current; cur != nil {
			return nil, &AlreadyRunningError{ProjectID: proj.ID, Task: cur.Task, Start: cur.Start}
		}
		if date, idx, ok := findPending(snap); ok {
			p := snap.Days[date].Entries[idx]
			return nil, &PendingEntryError{ProjectID: proj.ID, Date: date, Task: p.Task, Start: p.Start}
		}

		day := timecalc.DateKey(at)
		rec := snap.Day(day)
		rec.Entries = append(rec.Entries, model.SessionEntry{
			Task:   task,
			Start:  at,
			Source: model.SourceManual,
		})
		snap.Current = &model.ActiveSession{Task: task, Start: at, EntryDay: day}
		snap.LastTask = task

		if err := t.store.WriteSnapshot(proj.ID, snap); err != nil {
			var conflict *storage.ConflictError
			if errors.As(err, &conflict) {
				// The meaning of "may I start" can change across a
				// refresh, so re-validate from scratch.
				lastConflict = err
				continue
			}
			return nil, err
		}

		if err := t.verifyStart(proj.ID, at, day); err != nil {
			return nil, err
		}

		t.noteActivity(proj.ID, day, at)
		t.active = &ActiveProjectSession{
			ProjectID:   proj.ID,
			ProjectPath: proj.Path,
			ProjectName: proj.Name,
			Task:        task,
			Start:       at,
			EntryDay:    day,
		}
		if t.coord != nil {
			t.coord.ClaimOwnership()
		}
		return t.active, nil
	}
	return nil, fmt.Errorf("start for project %s did not settle after %d attempts: %w",
		proj.ID, t.maxRetries, lastConflict)
}

// verifyStart re-reads the snapshot and confirms the provisional entry
// and current session actually landed on disk.
func (t *Tracker) verifyStart(id string, at time.Time, day string) error {
	snap := t.store.ReadSnapshot(id)
	if snap.Current == nil || !snap.Current.Start.Equal(at) {
		return &VerificationError{ProjectID: id}
	}
	rec, ok := snap.Days[day]
	if !ok {
		return &VerificationError{ProjectID: id}
	}
	for i := range rec.Entries {
		e := &rec.Entries[i]
		if e.Pending() && e.Start.Equal(at) {
			return nil
		}
	}
	return &VerificationError{ProjectID: id}
}

// Stop finalizes the session held by this process. If another process
// already stopped it, Stop succeeds as a no-op.
func (t *Tracker) Stop(opts StopOptions) (*StopResult, error) {
	if t.active == nil {
		return nil, &ValidationError{Reason: "no active session in this process"}
	}
	at := opts.At
	if at.IsZero() {
		at = t.now()
	}
	res, err := t.stopProject(t.active.ProjectID, t.active.Start, at, "")
	if err != nil {
		return nil, err
	}
	t.active = nil
	if t.coord != nil {
		t.coord.ReleaseOwnership()
	}
	return res, nil
}

// stopProject finalizes the provisional entry whose start matches the
// given session start. source, when non-empty, overrides the entry
// source on the finalized segments (used for crash recovery).
func (t *Tracker) stopProject(id string, start, at time.Time, source string) (*StopResult, error) {
	var lastConflict error
	for attempt := 0; attempt < t.maxRetries; attempt++ {
		snap := t.store.ReadSnapshot(id)
		cur := snap.Current
		if cur == nil || !cur.Start.Equal(start) {
			// Another process stopped this session, or started a new
			// one. Either way there is nothing left to finalize here.
			return &StopResult{ProjectID: id, AlreadyResolved: true}, nil
		}

		// Stop never precedes start; clock skew is clamped, not rejected.
		effective := at
		if effective.Before(cur.Start) {
			effective = cur.Start
		}

		date, idx := locateProvisional(snap, cur, effective)
		if idx < 0 {
			// Should not occur under correct operation. Synthesize a
			// fresh provisional entry so the stop cannot crash.
			date = cur.EntryDay
			if date == "" {
				date = timecalc.DateKey(cur.Start)
			}
			rec := snap.Day(date)
			rec.Entries = append(rec.Entries, model.SessionEntry{
				Task:   cur.Task,
				Start:  cur.Start,
				Source: model.SourceManual,
			})
			idx = len(rec.Entries) - 1
		}

		seconds, split := finalizeEntry(snap, date, idx, effective, source)
		task := cur.Task
		snap.Current = nil
		snap.LastTask = task

		if err := t.store.WriteSnapshot(id, snap); err != nil {
			var conflict *storage.ConflictError
			if errors.As(err, &conflict) {
				lastConflict = err
				continue
			}
			return nil, err
		}

		t.noteActivity(id, timecalc.DateKey(effective), effective)
		return &StopResult{ProjectID: id, Task: task, Seconds: seconds, Split: split}, nil
	}
	return nil, fmt.Errorf("stop for project %s did not settle after %d attempts: %w",
		id, t.maxRetries, lastConflict)
}

// SwitchTask stops the running task and immediately starts newTask at
// the same instant. A failed restart after a successful stop is
// surfaced to the caller; the stop is not rolled back.
func (t *Tracker) SwitchTask(newTask string, at time.Time) (*ActiveProjectSession, error) {
	if t.active == nil {
		return nil, &ValidationError{Reason: "no active session to switch from"}
	}
	if at.IsZero() {
		at = t.now()
	}
	path := t.active.ProjectPath
	if _, err := t.Stop(StopOptions{At: at, Silent: true}); err != nil {
		return nil, fmt.Errorf("switch aborted, stop failed: %w", err)
	}
	sess, err := t.Start(path, newTask, StartOptions{At: at, Silent: true})
	if err != nil {
		return nil, fmt.Errorf("timer stopped but task %q could not be started, start it manually: %w", newTask, err)
	}
	return sess, nil
}

// Resolve finalizes an abandoned provisional entry with the
// caller-supplied end time. The end must fall on the same calendar date
// as the entry start and must not precede it. On a write conflict the
// resolution is rebuilt from a fresh snapshot.
func (t *Tracker) Resolve(path string, end time.Time) (*StopResult, error) {
	proj, ok := t.store.FindProjectByPath(path)
	if !ok {
		return nil, &ValidationError{Reason: fmt.Sprintf("no tracked project at %s", path)}
	}

	var lastConflict error
	for attempt := 0; attempt < t.maxRetries; attempt++ {
		snap := t.store.ReadSnapshot(proj.ID)
		date, idx, found := findPending(snap)
		if !found {
			return &StopResult{ProjectID: proj.ID, AlreadyResolved: true}, nil
		}
		p := snap.Days[date].Entries[idx]
		if !timecalc.SameDay(p.Start, end) {
			return nil, &ValidationError{Reason: fmt.Sprintf(
				"end time must fall on %s, the day the entry started", date)}
		}
		if end.Before(p.Start) {
			return nil, &ValidationError{Reason: "end time precedes the entry start"}
		}

		seconds, _ := finalizeEntry(snap, date, idx, end, "")
		task := p.Task

		if err := t.store.WriteSnapshot(proj.ID, snap); err != nil {
			var conflict *storage.ConflictError
			if errors.As(err, &conflict) {
				lastConflict = err
				continue
			}
			return nil, err
		}

		t.noteActivity(proj.ID, date, end)
		return &StopResult{ProjectID: proj.ID, Task: task, Seconds: seconds}, nil
	}
	return nil, fmt.Errorf("resolution for project %s did not settle after %d attempts: %w",
		proj.ID, t.maxRetries, lastConflict)
}

// ResolveAndStart resolves the pending entry blocking a start and then
// starts the new timer. If a conflict interrupts the resolution, the
// whole sequence restarts against a fresh snapshot; a stale resolution
// is never applied to a new disk state.
func (t *Tracker) ResolveAndStart(path, task string, pendingEnd time.Time, opts StartOptions) (*ActiveProjectSession, error) {
	if _, err := t.store.UpsertProject(path, ""); err != nil {
		return nil, err
	}
	if _, err := t.Resolve(path, pendingEnd); err != nil {
		return nil, err
	}
	return t.Start(path, task, opts)
}

// PendingEntry reports the unterminated entry blocking new starts for
// the project at path, if any.
func (t *Tracker) PendingEntry(path string) (*PendingEntryError, bool) {
	proj, ok := t.store.FindProjectByPath(path)
	if !ok {
		return nil, false
	}
	snap := t.store.ReadSnapshot(proj.ID)
	date, idx, found := findPending(snap)
	if !found {
		return nil, false
	}
	p := snap.Days[date].Entries[idx]
	return &PendingEntryError{ProjectID: proj.ID, Date: date, Task: p.Task, Start: p.Start}, true
}

// AttachResult describes what Attach found.
type AttachResult struct {
	Recovered bool
	Stopped   *StopResult
	Observing bool
	Session   *ActiveProjectSession
}

// Attach inspects a project another process may have left running. A
// session whose shared activity timestamp is stale beyond the idle
// threshold is stopped at the recovered activity time, clamped to
// [start, now]. A fresh session is observed passively: this process
// displays it without claiming ownership; a later Tick may still adopt
// it once the original holder goes quiet.
func (t *Tracker) Attach(path string, idleThreshold time.Duration) (*AttachResult, error) {
	proj, ok := t.store.FindProjectByPath(path)
	if !ok {
		return &AttachResult{}, nil
	}
	snap := t.store.ReadSnapshot(proj.ID)
	cur := snap.Current
	if cur == nil {
		return &AttachResult{}, nil
	}

	now := t.now()
	last := cur.Start
	if t.coord != nil {
		if shared, ok := t.coord.LastActivity(); ok && shared.After(last) {
			last = shared
		}
	}

	if now.Sub(last) > idleThreshold {
		recovered := last
		if recovered.Before(cur.Start) {
			recovered = cur.Start
		}
		if recovered.After(now) {
			recovered = now
		}
		res, err := t.stopProject(proj.ID, cur.Start, recovered, model.SourceRecovered)
		if err != nil {
			return nil, err
		}
		return &AttachResult{Recovered: true, Stopped: res}, nil
	}

	t.active = &ActiveProjectSession{
		ProjectID:   proj.ID,
		ProjectPath: proj.Path,
		ProjectName: proj.Name,
		Task:        cur.Task,
		Start:       cur.Start,
		EntryDay:    cur.EntryDay,
	}
	return &AttachResult{Observing: true, Session: t.active}, nil
}

// Adopt binds this process to whatever session is persisted for the
// project, no matter how stale its activity record is. Explicit stops
// and switches go through here: the user issuing them is present, so
// the session ends at the wall clock rather than at the stale-recovery
// clamp.
func (t *Tracker) Adopt(path string) (*ActiveProjectSession, bool) {
	proj, ok := t.store.FindProjectByPath(path)
	if !ok {
		return nil, false
	}
	snap := t.store.ReadSnapshot(proj.ID)
	cur := snap.Current
	if cur == nil {
		return nil, false
	}
	t.active = &ActiveProjectSession{
		ProjectID:   proj.ID,
		ProjectPath: proj.Path,
		ProjectName: proj.Name,
		Task:        cur.Task,
		Start:       cur.Start,
		EntryDay:    cur.EntryDay,
	}
	if t.coord != nil {
		t.coord.TryAdopt(t.now())
	}
	return t.active, true
}

// Tick refreshes the shared activity timestamp for the tracked session.
// A non-owning process first tries to adopt the session; while another
// holder is still writing activity, adoption fails and the tick is a
// no-op. The coordinator throttles the actual writes.
func (t *Tracker) Tick() {
	if t.active == nil || t.coord == nil {
		return
	}
	now := t.now()
	if !t.coord.Owns() && !t.coord.TryAdopt(now) {
		return
	}
	if err := t.coord.MarkActivity(t.active.ProjectID, now, false); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not persist activity timestamp: %v\n", err)
	}
}

// ImportOutcome classifies what ImportEntry did.
type ImportOutcome int

const (
	ImportSkipped ImportOutcome = iota
	ImportAdded
	ImportUpdated
)

// ImportEntry merges a finalized externally sourced entry into the
// project snapshot, keyed on ExternalID for idempotence. Day totals of
// a touched bucket are recomputed from its entries.
func (t *Tracker) ImportEntry(path string, entry model.SessionEntry) (ImportOutcome, error) {
	if entry.End == nil || entry.ExternalID == "" {
		return ImportSkipped, &ValidationError{Reason: "imported entries must be finalized and carry an external id"}
	}
	proj, err := t.store.UpsertProject(path, "")
	if err != nil {
		return ImportSkipped, err
	}

	var lastConflict error
	for attempt := 0; attempt < t.maxRetries; attempt++ {
		snap := t.store.ReadSnapshot(proj.ID)
		day := timecalc.DateKey(entry.Start)

		outcome := ImportAdded
		if date, idx, ok := findByExternalID(snap, entry.ExternalID); ok {
			existing := snap.Days[date].Entries[idx]
			if existing.Task == entry.Task && existing.Start.Equal(entry.Start) &&
				existing.End != nil && existing.End.Equal(*entry.End) {
				return ImportSkipped, nil
			}
			// Replace the stale copy, possibly moving it to a new day.
			rec := snap.Days[date]
			rec.Entries = append(rec.Entries[:idx], rec.Entries[idx+1:]...)
			rec.Recalc()
			outcome = ImportUpdated
		}

		rec := snap.Day(day)
		rec.Entries = append(rec.Entries, entry)
		rec.Recalc()

		if err := t.store.WriteSnapshot(proj.ID, snap); err != nil {
			var conflict *storage.ConflictError
			if errors.As(err, &conflict) {
				lastConflict = err
				continue
			}
			return ImportSkipped, err
		}
		if err := t.store.RecordActivity(proj.ID, day); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record activity: %v\n", err)
		}
		return outcome, nil
	}
	return ImportSkipped, fmt.Errorf("import for project %s did not settle after %d attempts: %w",
		proj.ID, t.maxRetries, lastConflict)
}

// noteActivity updates the auxiliary tables after a successful snapshot
// write. Failures here never fail the operation; the snapshot is the
// source of truth and the side tables are rebuilt opportunistically.
func (t *Tracker) noteActivity(id, date string, at time.Time) {
	if err := t.store.TouchUsage(id, at); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not update project index: %v\n", err)
	}
	if err := t.store.RecordActivity(id, date); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not record activity: %v\n", err)
	}
	if t.coord != nil {
		if err := t.coord.MarkActivity(id, at, true); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not persist activity timestamp: %v\n", err)
		}
	}
}

// findPending scans all day buckets, oldest first, for an entry with no
// end time. The provisional entry backing a live current session is not
// pending: it is finalized through Stop, never through resolution.
func findPending(snap *model.ProjectSnapshot) (date string, idx int, ok bool) {
	dates := make([]string, 0, len(snap.Days))
	for d := range snap.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		rec := snap.Days[d]
		for i := range rec.Entries {
			e := &rec.Entries[i]
			if !e.Pending() {
				continue
			}
			if snap.Current != nil && snap.Current.Start.Equal(e.Start) {
				continue
			}
			return d, i, true
		}
	}
	return "", -1, false
}

// findByExternalID scans all day buckets for an entry imported from the
// given external event.
func findByExternalID(snap *model.ProjectSnapshot, externalID string) (date string, idx int, ok bool) {
	dates := make([]string, 0, len(snap.Days))
	for d := range snap.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		rec := snap.Days[d]
		for i := range rec.Entries {
			if rec.Entries[i].ExternalID == externalID {
				return d, i, true
			}
		}
	}
	return "", -1, false
}

// locateProvisional finds the provisional entry matching the current
// session by exact start timestamp: first in the recorded entry day,
// then the stop day, then a full scan.
func locateProvisional(snap *model.ProjectSnapshot, cur *model.ActiveSession, stop time.Time) (string, int) {
	candidates := []string{cur.EntryDay, timecalc.DateKey(stop)}
	for _, date := range candidates {
		if rec, ok := snap.Days[date]; ok {
			for i := range rec.Entries {
				e := &rec.Entries[i]
				if e.Pending() && e.Start.Equal(cur.Start) {
					return date, i
				}
			}
		}
	}
	for date, rec := range snap.Days {
		for i := range rec.Entries {
			e := &rec.Entries[i]
			if e.Pending() && e.Start.Equal(cur.Start) {
				return date, i
			}
		}
	}
	return "", -1
}

// finalizeEntry closes the provisional entry at days[date].entries[idx]
// at the effective stop time. A stop on a later calendar day splits the
// duration at each local midnight: the original entry ends exactly at
// midnight of its day, and one finalized segment per following day is
// filed in that day's bucket. Every segment contributes its seconds to
// its own day's totals. Returns total seconds and whether a split
// occurred.
func finalizeEntry(snap *model.ProjectSnapshot, date string, idx int, stop time.Time, source string) (int64, bool) {
	rec := snap.Days[date]
	entry := &rec.Entries[idx]
	start := entry.Start
	task := entry.Task
	if source != "" {
		entry.Source = source
	}

	if timecalc.SameDay(start, stop) || !stop.After(start) {
		end := stop
		entry.End = &end
		entry.Seconds = timecalc.RoundSeconds(stop.Sub(start))
		rec.Fold(task, entry.Seconds)
		return entry.Seconds, false
	}

	mid := timecalc.Midnight(start)
	end := mid
	entry.End = &end
	entry.Seconds = timecalc.RoundSeconds(mid.Sub(start))
	rec.Fold(task, entry.Seconds)
	total := entry.Seconds
	if !stop.After(mid) {
		// Stopped exactly at midnight: the whole duration belongs to
		// the start day.
		return total, true
	}

	entrySource := entry.Source
	segStart := mid
	for {
		segRec := snap.Day(timecalc.DateKey(segStart))
		if timecalc.SameDay(segStart, stop) {
			segEnd := stop
			seg := model.SessionEntry{
				Task:    task,
				Start:   segStart,
				End:     &segEnd,
				Seconds: timecalc.RoundSeconds(stop.Sub(segStart)),
				Source:  entrySource,
			}
			segRec.Entries = append(segRec.Entries, seg)
			segRec.Fold(task, seg.Seconds)
			total += seg.Seconds
			return total, true
		}
		next := timecalc.Midnight(segStart)
		segEnd := next
		seg := model.SessionEntry{
			Task:    task,
			Start:   segStart,
			End:     &segEnd,
			Seconds: timecalc.RoundSeconds(next.Sub(segStart)),
			Source:  entrySource,
		}
		segRec.Entries = append(segRec.Entries, seg)
		segRec.Fold(task, seg.Seconds)
		total += seg.Seconds
		segStart = next
	}
}
