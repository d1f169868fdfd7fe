// Package coord persists the shared last-activity record that every
// process can see, and tracks which process owns the running session.
// The record is advisory: it is written last-writer-wins, never
// optimistically locked, and is only consulted to detect sessions
// abandoned by a crashed or sleeping process.
package coord

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Store is the cross-process key/value persistence for the shared
// last-activity timestamp, last-project id and holder id. It is
// injected into the Coordinator so hosts can supply their own
// persistence.
type Store interface {
	LastActivity() (time.Time, bool)
	SetLastActivity(t time.Time) error
	LastProject() (string, bool)
	SetLastProject(id string) error
	Holder() (string, bool)
	SetHolder(id string) error
}

type sharedRecord struct {
	Version        int    `json:"version"`
	LastActivityMS int64  `json:"lastActivityMs,omitempty"`
	LastProjectID  string `json:"lastProjectId,omitempty"`
	HolderID       string `json:"holderId,omitempty"`
}

// FileStore is the default Store, backed by a single JSON file in the
// data directory.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore persisting to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() sharedRecord {
	var rec sharedRecord
	data, err := os.ReadFile(f.path)
	if err != nil {
		return rec
	}
	// A corrupt record is treated as absent.
	_ = json.Unmarshal(data, &rec)
	return rec
}

func (f *FileStore) save(rec sharedRecord) error {
	rec.Version = 1
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling shared record: %w", err)
	}
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing shared record: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving shared record: %w", err)
	}
	return nil
}

func (f *FileStore) LastActivity() (time.Time, bool) {
	rec := f.load()
	if rec.LastActivityMS == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(rec.LastActivityMS), true
}

func (f *FileStore) SetLastActivity(t time.Time) error {
	rec := f.load()
	rec.LastActivityMS = t.UnixMilli()
	return f.save(rec)
}

func (f *FileStore) LastProject() (string, bool) {
	rec := f.load()
	return rec.LastProjectID, rec.LastProjectID != ""
}

func (f *FileStore) SetLastProject(id string) error {
	rec := f.load()
	rec.LastProjectID = id
	return f.save(rec)
}

func (f *FileStore) Holder() (string, bool) {
	rec := f.load()
	return rec.HolderID, rec.HolderID != ""
}

func (f *FileStore) SetHolder(id string) error {
	rec := f.load()
	rec.HolderID = id
	return f.save(rec)
}

// Coordinator throttles shared activity writes and holds the
// process-local ownership flag. The owning process additionally records
// its id as the holder in the shared record, so other processes can
// tell a live owner (holder with fresh activity) from one that exited,
// and two processes never double-account the same session.
type Coordinator struct {
	store     Store
	processID string
	interval  time.Duration
	now       func() time.Time
	owns      bool
	lastWrite time.Time
}

// New returns a Coordinator writing through store, throttled to at most
// one activity write per interval outside of Start/Stop.
func New(store Store, interval time.Duration) *Coordinator {
	return &Coordinator{
		store:     store,
		processID: uuid.NewString(),
		interval:  interval,
		now:       time.Now,
	}
}

// SetNowFunc overrides the clock. Passing nil resets it to time.Now.
func (c *Coordinator) SetNowFunc(now func() time.Time) {
	if now == nil {
		c.now = time.Now
		return
	}
	c.now = now
}

// ProcessID identifies this process instance.
func (c *Coordinator) ProcessID() string {
	return c.processID
}

// Owns reports whether this process owns the running session.
func (c *Coordinator) Owns() bool {
	return c.owns
}

// ClaimOwnership marks this process as the owner of the session it just
// started, adopted or recovered, and records its id as the shared
// holder.
func (c *Coordinator) ClaimOwnership() {
	c.owns = true
	if err := c.store.SetHolder(c.processID); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not record session holder: %v\n", err)
	}
}

// ReleaseOwnership clears the ownership flag after a stop. The shared
// holder id is cleared only when it is ours; a stop issued by a
// non-owner leaves the holder record alone.
func (c *Coordinator) ReleaseOwnership() {
	c.owns = false
	if holder, ok := c.store.Holder(); ok && holder == c.processID {
		if err := c.store.SetHolder(""); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not clear session holder: %v\n", err)
		}
	}
}

// TryAdopt takes ownership of a session whose recorded holder is gone:
// either no holder at all, or a holder that has not written activity
// within twice the throttle interval. Short-lived commands exit right
// after starting a timer, so a long-lived observer adopts the session
// this way and keeps the shared activity timestamp fresh on its behalf.
func (c *Coordinator) TryAdopt(at time.Time) bool {
	if c.owns {
		return true
	}
	if holder, ok := c.store.Holder(); ok && holder != c.processID {
		if last, ok := c.store.LastActivity(); ok && at.Sub(last) <= 2*c.interval {
			return false
		}
	}
	c.ClaimOwnership()
	return true
}

// MarkActivity persists the shared last-activity timestamp and
// last-project id. Forced writes (Start, Stop) always go through;
// periodic writes are dropped for non-owners and throttled to one per
// interval for the owner.
func (c *Coordinator) MarkActivity(projectID string, at time.Time, force bool) error {
	if !force {
		if !c.owns {
			return nil
		}
		if !c.lastWrite.IsZero() && at.Sub(c.lastWrite) < c.interval {
			return nil
		}
	}
	if err := c.store.SetLastActivity(at); err != nil {
		return err
	}
	if projectID != "" {
		if err := c.store.SetLastProject(projectID); err != nil {
			return err
		}
	}
	c.lastWrite = at
	return nil
}

// LastActivity reads the shared last-activity timestamp.
func (c *Coordinator) LastActivity() (time.Time, bool) {
	return c.store.LastActivity()
}

// LastProject reads the shared last-project id.
func (c *Coordinator) LastProject() (string, bool) {
	return c.store.LastProject()
}

// StaleSince reports whether the shared activity timestamp is older
// than threshold at the given instant, returning the recovered
// timestamp when one exists.
func (c *Coordinator) StaleSince(threshold time.Duration, now time.Time) (stale bool, last time.Time, ok bool) {
	last, ok = c.store.LastActivity()
	if !ok {
		return false, time.Time{}, false
	}
	return now.Sub(last) > threshold, last, true
}
