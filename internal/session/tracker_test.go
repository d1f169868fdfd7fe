package session_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/projtrack/ptt/internal/coord"
	"github.com/projtrack/ptt/internal/model"
	"github.com/projtrack/ptt/internal/session"
	"github.com/projtrack/ptt/internal/storage"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time  { return c.now }
func (c *fakeClock) Set(t time.Time) { c.now = t }

// newProc simulates one process attached to the shared data directory:
// its own store handle, coordinator and tracker.
func newProc(t *testing.T, dir string, now time.Time) (*session.Tracker, *storage.Store, *fakeClock) {
	t.Helper()
	store, err := storage.New(dir)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	shared := coord.NewFileStore(filepath.Join(dir, "shared.json"))
	tracker := session.NewTracker(store, coord.New(shared, 30*time.Second))
	clock := &fakeClock{now: now}
	tracker.SetNowFunc(clock.Now)
	return tracker, store, clock
}

func mustID(t *testing.T, store *storage.Store, path string) string {
	t.Helper()
	proj, ok := store.FindProjectByPath(path)
	if !ok {
		t.Fatalf("project %s not in index", path)
	}
	return proj.ID
}

func TestStartStopSingleEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, store, _ := newProc(t, dir, t0)

	sess, err := tracker.Start(path, "review", session.StartOptions{At: t0})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.EntryDay != "2026-02-27" {
		t.Errorf("entryDay = %q, want %q", sess.EntryDay, "2026-02-27")
	}
	if !tracker.Owns() {
		t.Error("starting process does not own the session")
	}

	res, err := tracker.Stop(session.StopOptions{At: t0.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.Seconds != 90 {
		t.Errorf("seconds = %d, want 90", res.Seconds)
	}
	if res.Split {
		t.Error("unexpected midnight split")
	}
	if tracker.Active() != nil {
		t.Error("session still active after stop")
	}

	snap := store.ReadSnapshot(mustID(t, store, path))
	if snap.Current != nil {
		t.Error("current still set after stop")
	}
	if snap.LastTask != "review" {
		t.Errorf("lastTask = %q, want %q", snap.LastTask, "review")
	}
	rec, ok := snap.Days["2026-02-27"]
	if !ok {
		t.Fatal("day bucket missing")
	}
	if len(rec.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(rec.Entries))
	}
	e := rec.Entries[0]
	if e.End == nil || e.Seconds != 90 {
		t.Errorf("entry not finalized: end=%v seconds=%d", e.End, e.Seconds)
	}
	if rec.TotalSeconds != 90 || rec.Tasks["review"] != 90 {
		t.Errorf("day totals = %d/%d, want 90/90", rec.TotalSeconds, rec.Tasks["review"])
	}
}

func TestMidnightCrossoverSplitsEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	start := time.Date(2026, 2, 27, 23, 59, 50, 0, time.UTC)
	stop := time.Date(2026, 2, 28, 0, 0, 10, 0, time.UTC)

	tracker, store, _ := newProc(t, dir, start)
	if _, err := tracker.Start(path, "deploy", session.StartOptions{At: start}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := tracker.Stop(session.StopOptions{At: stop})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !res.Split {
		t.Error("expected a midnight split")
	}
	if res.Seconds != 20 {
		t.Errorf("total seconds = %d, want 20", res.Seconds)
	}

	snap := store.ReadSnapshot(mustID(t, store, path))
	day1, day2 := snap.Days["2026-02-27"], snap.Days["2026-02-28"]
	if day1 == nil || day2 == nil {
		t.Fatal("expected entries on both days")
	}
	if len(day1.Entries) != 1 || len(day2.Entries) != 1 {
		t.Fatalf("entries = %d + %d, want 1 + 1", len(day1.Entries), len(day2.Entries))
	}

	first, second := day1.Entries[0], day2.Entries[0]
	midnight := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	if first.End == nil || !first.End.Equal(midnight) {
		t.Errorf("first segment ends at %v, want midnight", first.End)
	}
	if first.Seconds != 10 {
		t.Errorf("first segment seconds = %d, want 10", first.Seconds)
	}
	if !second.Start.Equal(midnight) {
		t.Errorf("second segment starts at %v, want midnight", second.Start)
	}
	if second.End == nil || !second.End.Equal(stop) || second.Seconds != 10 {
		t.Errorf("second segment = %v/%d, want %v/10", second.End, second.Seconds, stop)
	}
	if day1.TotalSeconds != 10 || day2.TotalSeconds != 10 {
		t.Errorf("day totals = %d + %d, want 10 + 10", day1.TotalSeconds, day2.TotalSeconds)
	}
	if day1.Tasks["deploy"] != 10 || day2.Tasks["deploy"] != 10 {
		t.Error("per-task totals not attributed to both days")
	}
}

func TestSecondProcessCannotDoubleStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	procA, _, _ := newProc(t, dir, t0)
	procB, _, _ := newProc(t, dir, t0)

	if _, err := procA.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatalf("process A start: %v", err)
	}

	_, err := procB.Start(path, "other", session.StartOptions{At: t0})
	var running *session.AlreadyRunningError
	if !errors.As(err, &running) {
		t.Fatalf("process B start: got %v, want AlreadyRunningError", err)
	}
	if running.Task != "review" {
		t.Errorf("conflicting task = %q, want %q", running.Task, "review")
	}
}

func TestConcurrentTimersOnDistinctProjects(t *testing.T) {
	dir := t.TempDir()
	base := t.TempDir()
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	procA, storeA, _ := newProc(t, dir, t0)
	procB, _, _ := newProc(t, dir, t0)

	if _, err := procA.Start(filepath.Join(base, "one"), "a", session.StartOptions{At: t0}); err != nil {
		t.Fatalf("start one: %v", err)
	}
	if _, err := procB.Start(filepath.Join(base, "two"), "b", session.StartOptions{At: t0}); err != nil {
		t.Fatalf("start two: %v", err)
	}

	one := storeA.ReadSnapshot(mustID(t, storeA, filepath.Join(base, "one")))
	two := storeA.ReadSnapshot(mustID(t, storeA, filepath.Join(base, "two")))
	if one.Current == nil || two.Current == nil {
		t.Error("per-project exclusivity must not block distinct projects")
	}
}

func TestStopAfterOtherProcessStopped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	procA, _, _ := newProc(t, dir, t0)
	procB, storeB, clockB := newProc(t, dir, t0)

	if _, err := procA.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatalf("A start: %v", err)
	}

	// B sees a fresh session and observes without taking ownership.
	clockB.Set(t0.Add(time.Minute))
	attach, err := procB.Attach(path, 5*time.Minute)
	if err != nil {
		t.Fatalf("B attach: %v", err)
	}
	if !attach.Observing || attach.Recovered {
		t.Fatalf("attach = %+v, want passive observation", attach)
	}
	if procB.Owns() {
		t.Error("observer must not claim ownership")
	}

	res, err := procB.Stop(session.StopOptions{At: t0.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("B stop: %v", err)
	}
	if res.Seconds != 120 {
		t.Errorf("seconds = %d, want 120", res.Seconds)
	}

	// A's stop finds the session already resolved and does not re-mutate.
	resA, err := procA.Stop(session.StopOptions{At: t0.Add(3 * time.Minute)})
	if err != nil {
		t.Fatalf("A stop: %v", err)
	}
	if !resA.AlreadyResolved {
		t.Error("A's stop should be a no-op after B stopped the session")
	}

	snap := storeB.ReadSnapshot(mustID(t, storeB, path))
	rec := snap.Days["2026-02-27"]
	if rec == nil || rec.TotalSeconds != 120 {
		t.Error("duration double-counted after redundant stop")
	}
}

func TestExplicitStopAfterLongGapLogsFullElapsed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	procA, _, _ := newProc(t, dir, t0)
	if _, err := procA.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatalf("A start: %v", err)
	}

	// The starting process exits; ten minutes later the user stops the
	// timer from a fresh process. The full elapsed time is logged, not
	// a stale-recovery clamp to the start.
	procB, storeB, _ := newProc(t, dir, t0.Add(10*time.Minute))
	sess, ok := procB.Adopt(path)
	if !ok {
		t.Fatal("no persisted session to adopt")
	}
	if sess.Task != "review" {
		t.Errorf("adopted task = %q, want %q", sess.Task, "review")
	}

	res, err := procB.Stop(session.StopOptions{At: t0.Add(10 * time.Minute)})
	if err != nil {
		t.Fatalf("B stop: %v", err)
	}
	if res.AlreadyResolved {
		t.Fatal("stop reported already-resolved for a live session")
	}
	if res.Seconds != 600 {
		t.Errorf("seconds = %d, want 600", res.Seconds)
	}

	snap := storeB.ReadSnapshot(mustID(t, storeB, path))
	rec := snap.Days["2026-02-27"]
	if rec == nil || rec.TotalSeconds != 600 {
		t.Fatal("elapsed time lost on explicit stop")
	}
	if rec.Entries[0].Source != model.SourceManual {
		t.Errorf("source = %q, want %q", rec.Entries[0].Source, model.SourceManual)
	}
}

func TestWatcherAdoptsOrphanedSession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	procA, _, _ := newProc(t, dir, t0)
	if _, err := procA.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatalf("A start: %v", err)
	}

	// A watcher attaches a minute later and keeps ticking after the
	// starting process is gone.
	procW, _, clockW := newProc(t, dir, t0)
	clockW.Set(t0.Add(time.Minute))
	attach, err := procW.Attach(path, 5*time.Minute)
	if err != nil {
		t.Fatalf("watcher attach: %v", err)
	}
	if !attach.Observing {
		t.Fatalf("attach = %+v, want observation", attach)
	}
	for i := 2; i <= 9; i++ {
		clockW.Set(t0.Add(time.Duration(i) * time.Minute))
		procW.Tick()
	}
	if !procW.Owns() {
		t.Fatal("watcher never took over the orphaned session")
	}

	shared := coord.NewFileStore(filepath.Join(dir, "shared.json"))
	last, ok := shared.LastActivity()
	if !ok || !last.Equal(t0.Add(9*time.Minute)) {
		t.Errorf("shared activity = %v/%v, want %v", last, ok, t0.Add(9*time.Minute))
	}

	// With activity kept fresh, a later command must not treat the
	// session as abandoned.
	procB, _, _ := newProc(t, dir, t0.Add(10*time.Minute))
	attachB, err := procB.Attach(path, 5*time.Minute)
	if err != nil {
		t.Fatalf("B attach: %v", err)
	}
	if attachB.Recovered {
		t.Error("fresh session recovered despite live watcher")
	}
	if !attachB.Observing {
		t.Error("B should observe the running session")
	}
}

func TestResolveIgnoresRunningSession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, store, _ := newProc(t, dir, t0)
	if _, err := tracker.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatal(err)
	}

	if _, ok := tracker.PendingEntry(path); ok {
		t.Fatal("live session reported as pending")
	}

	res, err := tracker.Resolve(path, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.AlreadyResolved {
		t.Error("resolution touched a running session")
	}

	snap := store.ReadSnapshot(mustID(t, store, path))
	if snap.Current == nil {
		t.Fatal("resolution cleared the running session")
	}
	rec := snap.Days["2026-02-27"]
	if rec == nil || len(rec.Entries) != 1 || !rec.Entries[0].Pending() {
		t.Fatal("resolution finalized the running session's entry")
	}

	// The session still stops normally afterwards.
	stopRes, err := tracker.Stop(session.StopOptions{At: t0.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopRes.Seconds != 120 {
		t.Errorf("seconds = %d, want 120", stopRes.Seconds)
	}
}

func TestIdleRecoveryStopsStaleSession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	procA, _, clockA := newProc(t, dir, t0)
	if _, err := procA.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatalf("A start: %v", err)
	}

	// A keeps working for a minute, then crashes.
	clockA.Set(t0.Add(time.Minute))
	procA.Tick()

	procB, storeB, _ := newProc(t, dir, t0.Add(10*time.Minute))
	attach, err := procB.Attach(path, 5*time.Minute)
	if err != nil {
		t.Fatalf("B attach: %v", err)
	}
	if !attach.Recovered || attach.Stopped == nil {
		t.Fatalf("attach = %+v, want recovery", attach)
	}
	if attach.Stopped.Seconds != 60 {
		t.Errorf("recovered seconds = %d, want 60 (stop at last activity, not now)", attach.Stopped.Seconds)
	}

	snap := storeB.ReadSnapshot(mustID(t, storeB, path))
	if snap.Current != nil {
		t.Error("current still set after recovery")
	}
	rec := snap.Days["2026-02-27"]
	if rec == nil || len(rec.Entries) != 1 {
		t.Fatal("expected exactly one recovered entry")
	}
	if rec.Entries[0].Source != model.SourceRecovered {
		t.Errorf("source = %q, want %q", rec.Entries[0].Source, model.SourceRecovered)
	}
}

func TestPendingEntryBlocksStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, store, _ := newProc(t, dir, t0)
	if _, err := tracker.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Simulate a crash that cleared current but left the provisional
	// entry behind.
	id := mustID(t, store, path)
	snap := store.ReadSnapshot(id)
	snap.Current = nil
	if err := store.WriteSnapshot(id, snap); err != nil {
		t.Fatalf("simulating crash: %v", err)
	}

	procB, storeB, _ := newProc(t, dir, t0.Add(time.Hour))
	_, err := procB.Start(path, "next", session.StartOptions{At: t0.Add(time.Hour)})
	var pending *session.PendingEntryError
	if !errors.As(err, &pending) {
		t.Fatalf("Start: got %v, want PendingEntryError", err)
	}
	if !pending.Start.Equal(t0) {
		t.Errorf("pending start = %v, want %v", pending.Start, t0)
	}

	// Resolving with a same-day end unblocks the start.
	sess, err := procB.ResolveAndStart(path, "next", t0.Add(5*time.Minute), session.StartOptions{At: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("ResolveAndStart: %v", err)
	}
	if sess.Task != "next" {
		t.Errorf("task = %q, want %q", sess.Task, "next")
	}

	fresh := storeB.ReadSnapshot(id)
	rec := fresh.Days["2026-02-27"]
	if rec.TotalSeconds != 300 || rec.Tasks["review"] != 300 {
		t.Errorf("resolved totals = %d/%d, want 300/300", rec.TotalSeconds, rec.Tasks["review"])
	}
	if fresh.Current == nil || fresh.Current.Task != "next" {
		t.Error("new session did not land after resolution")
	}
	if _, _, found := findUnfinished(fresh); found {
		t.Error("an unterminated entry survived resolution")
	}
}

// findUnfinished scans a snapshot for any entry lacking an end,
// excluding the one backing current.
func findUnfinished(snap *model.ProjectSnapshot) (string, int, bool) {
	for date, rec := range snap.Days {
		for i := range rec.Entries {
			e := rec.Entries[i]
			if e.End != nil {
				continue
			}
			if snap.Current != nil && snap.Current.Start.Equal(e.Start) {
				continue
			}
			return date, i, true
		}
	}
	return "", -1, false
}

func TestResolveValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, store, _ := newProc(t, dir, t0)
	if _, err := tracker.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatal(err)
	}
	id := mustID(t, store, path)
	snap := store.ReadSnapshot(id)
	snap.Current = nil
	if err := store.WriteSnapshot(id, snap); err != nil {
		t.Fatal(err)
	}

	var invalid *session.ValidationError

	// End before start is rejected.
	_, err := tracker.Resolve(path, t0.Add(-time.Minute))
	if !errors.As(err, &invalid) {
		t.Errorf("end before start: got %v, want ValidationError", err)
	}

	// End on a different day is rejected.
	_, err = tracker.Resolve(path, t0.Add(24*time.Hour))
	if !errors.As(err, &invalid) {
		t.Errorf("end on another day: got %v, want ValidationError", err)
	}

	// End equal to start yields a zero-second entry.
	res, err := tracker.Resolve(path, t0)
	if err != nil {
		t.Fatalf("Resolve at start time: %v", err)
	}
	if res.Seconds != 0 {
		t.Errorf("seconds = %d, want 0", res.Seconds)
	}
}

func TestSwitchTask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, store, _ := newProc(t, dir, t0)
	if _, err := tracker.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatal(err)
	}

	sess, err := tracker.SwitchTask("deploy", t0.Add(30*time.Second))
	if err != nil {
		t.Fatalf("SwitchTask: %v", err)
	}
	if sess.Task != "deploy" {
		t.Errorf("task = %q, want %q", sess.Task, "deploy")
	}

	snap := store.ReadSnapshot(mustID(t, store, path))
	if snap.Current == nil || snap.Current.Task != "deploy" {
		t.Fatal("current not switched")
	}
	rec := snap.Days["2026-02-27"]
	if len(rec.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(rec.Entries))
	}
	if rec.Entries[0].End == nil || rec.Entries[0].Seconds != 30 {
		t.Error("previous task not finalized at the switch instant")
	}
	if rec.Entries[1].End != nil {
		t.Error("new task should be provisional")
	}
	if rec.TotalSeconds != 30 {
		t.Errorf("day total = %d, want 30", rec.TotalSeconds)
	}
}

func TestStopClampsClockSkew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, _, _ := newProc(t, dir, t0)
	if _, err := tracker.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatal(err)
	}

	// A stale stop timestamp is clamped to the start, not rejected.
	res, err := tracker.Stop(session.StopOptions{At: t0.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.Seconds != 0 {
		t.Errorf("seconds = %d, want 0", res.Seconds)
	}
}

func TestImportEntryIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, store, _ := newProc(t, dir, t0)

	end := t0.Add(90 * time.Minute)
	entry := model.SessionEntry{
		Task:       "Sprint Planning",
		Start:      t0,
		End:        &end,
		Seconds:    5400,
		Source:     model.SourceOutlook,
		ExternalID: "ev-1",
	}

	outcome, err := tracker.ImportEntry(path, entry)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if outcome != session.ImportAdded {
		t.Errorf("first import outcome = %v, want ImportAdded", outcome)
	}

	outcome, err = tracker.ImportEntry(path, entry)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if outcome != session.ImportSkipped {
		t.Errorf("second import outcome = %v, want ImportSkipped", outcome)
	}

	// A changed event updates the stored entry in place.
	newEnd := t0.Add(2 * time.Hour)
	entry.End = &newEnd
	entry.Seconds = 7200
	outcome, err = tracker.ImportEntry(path, entry)
	if err != nil {
		t.Fatalf("third import: %v", err)
	}
	if outcome != session.ImportUpdated {
		t.Errorf("third import outcome = %v, want ImportUpdated", outcome)
	}

	snap := store.ReadSnapshot(mustID(t, store, path))
	rec := snap.Days["2026-02-27"]
	if rec == nil || len(rec.Entries) != 1 {
		t.Fatal("import duplicated the entry")
	}
	if rec.TotalSeconds != 7200 || rec.Tasks["Sprint Planning"] != 7200 {
		t.Errorf("totals = %d/%d, want 7200/7200", rec.TotalSeconds, rec.Tasks["Sprint Planning"])
	}
}

func TestImportRejectsUnfinalizedEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, _, _ := newProc(t, dir, t0)

	var invalid *session.ValidationError
	_, err := tracker.ImportEntry(path, model.SessionEntry{Task: "x", Start: t0, ExternalID: "ev"})
	if !errors.As(err, &invalid) {
		t.Errorf("pending import: got %v, want ValidationError", err)
	}
	end := t0.Add(time.Hour)
	_, err = tracker.ImportEntry(path, model.SessionEntry{Task: "x", Start: t0, End: &end})
	if !errors.As(err, &invalid) {
		t.Errorf("missing external id: got %v, want ValidationError", err)
	}
}

func TestStartAfterRoundTripLastModifiedAdvances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "acme")
	t0 := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	tracker, store, _ := newProc(t, dir, t0)
	if _, err := tracker.Start(path, "review", session.StartOptions{At: t0}); err != nil {
		t.Fatal(err)
	}
	id := mustID(t, store, path)
	afterStart := store.ReadSnapshot(id).LastModified
	if afterStart == 0 {
		t.Fatal("start did not stamp the snapshot")
	}

	if _, err := tracker.Stop(session.StopOptions{At: t0.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}
	afterStop := store.ReadSnapshot(id).LastModified
	if afterStop <= afterStart {
		t.Errorf("lastModified did not advance: %d -> %d", afterStart, afterStop)
	}
}
