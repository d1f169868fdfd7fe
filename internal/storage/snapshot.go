package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/projtrack/ptt/internal/model"
)

const (
	dirPerm  os.FileMode = 0o700
	filePerm os.FileMode = 0o600

	backupSuffix = ".bak"
	tempSuffix   = ".tmp"

	projectsDir = "projects"
)

// Store owns all persisted state under one data directory: per-project
// snapshots, the project index, and the activity log. It keeps no
// in-memory cache, so every read observes the latest on-disk state,
// including writes made by other processes.
type Store struct {
	baseDir string
	now     func() time.Time
}

// New opens (and if needed creates) a store rooted at baseDir.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, projectsDir), dirPerm); err != nil {
		return nil, fmt.Errorf("storage error creating data directory: %w", err)
	}
	return &Store{baseDir: baseDir, now: time.Now}, nil
}

// SetNowFunc overrides the clock used for lastModified stamping and
// usage timestamps. Passing nil resets it to time.Now.
func (s *Store) SetNowFunc(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// BaseDir returns the data directory root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// ProjectID derives the stable project identifier from a path. The path
// is made absolute and cleaned so every process derives the same id for
// the same project folder.
func ProjectID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	sum := sha1.Sum([]byte(abs))
	return hex.EncodeToString(sum[:])[:16]
}

// ConflictError reports an optimistic-lock mismatch: the snapshot being
// written was read against a different on-disk version than the one
// present now. The caller must re-read and re-derive its mutation.
type ConflictError struct {
	ProjectID string
	Expected  int64
	Found     int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("snapshot conflict for project %s: expected lastModified %d, found %d",
		e.ProjectID, e.Expected, e.Found)
}

func (s *Store) snapshotPath(id string) string {
	return filepath.Join(s.baseDir, projectsDir, id+".json")
}

// readSnapshotFile parses one snapshot file. ok is false for missing,
// unreadable or corrupt files.
func readSnapshotFile(path string) (*model.ProjectSnapshot, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var snap model.ProjectSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	if snap.Days == nil {
		snap.Days = map[string]*model.DayRecord{}
	}
	return &snap, true
}

// ReadSnapshot returns the persisted snapshot for a project id. It
// never fails: a missing file yields an empty snapshot, and a corrupt
// primary file falls back to the backup copy before degrading to empty.
// Losing data here is preferred over crashing the tracker.
func (s *Store) ReadSnapshot(id string) *model.ProjectSnapshot {
	path := s.snapshotPath(id)
	if snap, ok := readSnapshotFile(path); ok {
		return snap
	}
	if _, err := os.Stat(path); err == nil {
		// The file exists but did not parse.
		if snap, ok := readSnapshotFile(path + backupSuffix); ok {
			fmt.Fprintf(os.Stderr, "Warning: snapshot for project %s is corrupt, recovered from backup\n", id)
			return snap
		}
		fmt.Fprintf(os.Stderr, "Warning: snapshot for project %s is corrupt and has no usable backup, starting empty\n", id)
	}
	return model.NewSnapshot()
}

// WriteSnapshot persists a snapshot with optimistic locking. It fails
// with *ConflictError when both the in-memory snapshot and the on-disk
// file carry a lastModified and they differ; a never-persisted snapshot
// (lastModified zero) never conflicts. On success the snapshot's
// LastModified is updated in place to the newly assigned stamp, which
// is strictly greater than the previous on-disk value even when the
// wall clock ties or steps backwards.
func (s *Store) WriteSnapshot(id string, snap *model.ProjectSnapshot) error {
	path := s.snapshotPath(id)
	disk := s.ReadSnapshot(id)
	if snap.LastModified != 0 && disk.LastModified != 0 && snap.LastModified != disk.LastModified {
		return &ConflictError{ProjectID: id, Expected: snap.LastModified, Found: disk.LastModified}
	}

	stamp := s.now().UnixMilli()
	if stamp <= disk.LastModified {
		stamp = disk.LastModified + 1
	}
	if stamp <= snap.LastModified {
		stamp = snap.LastModified + 1
	}

	prev := snap.LastModified
	snap.Version = model.SchemaVersion
	snap.LastModified = stamp

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		snap.LastModified = prev
		return fmt.Errorf("storage error marshalling snapshot: %w", err)
	}

	// Atomic write: temp file, backup of the previous file, then rename.
	tmpPath := path + tempSuffix
	if err := os.WriteFile(tmpPath, data, filePerm); err != nil {
		snap.LastModified = prev
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if prevData, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+backupSuffix, prevData, filePerm); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not back up snapshot for project %s: %v\n", id, err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		snap.LastModified = prev
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// DeleteSnapshot removes a project's snapshot and its backup.
func (s *Store) DeleteSnapshot(id string) error {
	path := s.snapshotPath(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage error deleting snapshot: %w", err)
	}
	_ = os.Remove(path + backupSuffix)
	return nil
}

// writeJSONAtomic persists one of the auxiliary tables (index, activity
// log, shared record) with the same temp-and-rename discipline as
// snapshots, but without optimistic locking: these tables are
// funnel-merged, last writer wins.
func (s *Store) writeJSONAtomic(filename string, v any) error {
	path := filepath.Join(s.baseDir, filename)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling %s: %w", filename, err)
	}
	tmpPath := path + tempSuffix
	if err := os.WriteFile(tmpPath, data, filePerm); err != nil {
		return fmt.Errorf("storage error writing %s: %w", filename, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming %s: %w", filename, err)
	}
	return nil
}

// readJSON loads an auxiliary table, tolerating a missing file. A
// corrupt table is moved aside and treated as empty so one bad file
// never wedges every process.
func (s *Store) readJSON(filename string, v any) error {
	path := filepath.Join(s.baseDir, filename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage error reading %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		fmt.Fprintf(os.Stderr, "Warning: corrupt %s moved to %s, starting empty\n", filename, backupPath)
	}
	return nil
}
