package model

// ProjectIndexEntry maps a stable project id to its path and display
// name. Created on first use, never deleted except by explicit user
// deletion.
type ProjectIndexEntry struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	LastUsed int64  `json:"lastUsed,omitempty"`
}

// ProjectIndex is the global registry stored in index.json.
type ProjectIndex struct {
	Version  int                 `json:"version"`
	Projects []ProjectIndexEntry `json:"projects"`
}

// ActivityLogEntry records that a project had activity on a date.
// Deduplicated on (date, projectId).
type ActivityLogEntry struct {
	Date      string `json:"date"`
	ProjectID string `json:"projectId"`
}

// ActivityLog is the global append/merge log stored in activity.json.
type ActivityLog struct {
	Version int                `json:"version"`
	Entries []ActivityLogEntry `json:"entries"`
}
