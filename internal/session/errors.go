package session

import (
	"fmt"
	"time"
)

// AlreadyRunningError is returned by Start when a freshly read snapshot
// already carries an active session, possibly started by another
// process. It is surfaced to the caller, never retried automatically.
type AlreadyRunningError struct {
	ProjectID string
	Task      string
	Start     time.Time
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("a timer for task %q is already running on project %s (since %s)",
		e.Task, e.ProjectID, e.Start.Format("15:04:05"))
}

// PendingEntryError is returned by Start when the snapshot contains an
// unterminated entry left behind by a crashed or abandoned session. It
// blocks the start until the caller supplies an end time.
type PendingEntryError struct {
	ProjectID string
	Date      string
	Task      string
	Start     time.Time
}

func (e *PendingEntryError) Error() string {
	return fmt.Sprintf("project %s has an unfinished entry for task %q started %s on %s; resolve it before starting a new timer",
		e.ProjectID, e.Task, e.Start.Format("15:04:05"), e.Date)
}

// ValidationError reports malformed caller input, such as a resolution
// end time before the entry start. The operation is aborted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// VerificationError reports that a write appeared to succeed but a
// post-write read did not confirm it. Proceeding would desynchronize
// memory from disk, so it is surfaced as a hard failure.
type VerificationError struct {
	ProjectID string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("write verification failed for project %s: the started session did not land on disk", e.ProjectID)
}
