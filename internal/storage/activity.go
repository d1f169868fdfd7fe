package storage

import (
	"sort"

	"github.com/projtrack/ptt/internal/model"
)

const activityFile = "activity.json"

func (s *Store) loadActivity() (*model.ActivityLog, error) {
	log := &model.ActivityLog{Version: model.SchemaVersion}
	if err := s.readJSON(activityFile, log); err != nil {
		return nil, err
	}
	return log, nil
}

// RecordActivity notes that a project had activity on a date.
// Re-recording an existing (date, projectId) pair is a no-op.
func (s *Store) RecordActivity(projectID, date string) error {
	log, err := s.loadActivity()
	if err != nil {
		return err
	}
	for _, e := range log.Entries {
		if e.Date == date && e.ProjectID == projectID {
			return nil
		}
	}
	log.Entries = append(log.Entries, model.ActivityLogEntry{Date: date, ProjectID: projectID})
	return s.writeJSONAtomic(activityFile, log)
}

// ProjectsTouchedBetween returns the distinct project ids with at least
// one logged activity date in [start, end] inclusive. Date keys are
// fixed-width and zero-padded, so string comparison is chronological.
func (s *Store) ProjectsTouchedBetween(start, end string) ([]string, error) {
	log, err := s.loadActivity()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var ids []string
	for _, e := range log.Entries {
		if e.Date < start || e.Date > end {
			continue
		}
		if !seen[e.ProjectID] {
			seen[e.ProjectID] = true
			ids = append(ids, e.ProjectID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// purgeActivity drops all log entries for a deleted project.
func (s *Store) purgeActivity(projectID string) error {
	log, err := s.loadActivity()
	if err != nil {
		return err
	}
	kept := log.Entries[:0]
	changed := false
	for _, e := range log.Entries {
		if e.ProjectID == projectID {
			changed = true
			continue
		}
		kept = append(kept, e)
	}
	if !changed {
		return nil
	}
	log.Entries = kept
	return s.writeJSONAtomic(activityFile, log)
}
