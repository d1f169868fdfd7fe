package storage

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/projtrack/ptt/internal/model"
)

const indexFile = "index.json"

func (s *Store) loadIndex() (*model.ProjectIndex, error) {
	ix := &model.ProjectIndex{Version: model.SchemaVersion}
	if err := s.readJSON(indexFile, ix); err != nil {
		return nil, err
	}
	return ix, nil
}

// UpsertProject resolves a path to its index entry, creating one with
// the deterministic id on first use. A non-empty name updates the
// display name; a moved path is re-recorded under the same id.
func (s *Store) UpsertProject(path, name string) (model.ProjectIndexEntry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	id := ProjectID(abs)

	ix, err := s.loadIndex()
	if err != nil {
		return model.ProjectIndexEntry{}, err
	}
	for i := range ix.Projects {
		if ix.Projects[i].ID != id {
			continue
		}
		changed := false
		if name != "" && ix.Projects[i].Name != name {
			ix.Projects[i].Name = name
			changed = true
		}
		if ix.Projects[i].Path != abs {
			ix.Projects[i].Path = abs
			changed = true
		}
		if changed {
			if err := s.writeJSONAtomic(indexFile, ix); err != nil {
				return model.ProjectIndexEntry{}, err
			}
		}
		return ix.Projects[i], nil
	}

	if name == "" {
		name = filepath.Base(abs)
	}
	entry := model.ProjectIndexEntry{ID: id, Path: abs, Name: name}
	ix.Projects = append(ix.Projects, entry)
	if err := s.writeJSONAtomic(indexFile, ix); err != nil {
		return model.ProjectIndexEntry{}, err
	}
	return entry, nil
}

// FindProjectByID looks up an index entry by project id.
func (s *Store) FindProjectByID(id string) (model.ProjectIndexEntry, bool) {
	ix, err := s.loadIndex()
	if err != nil {
		return model.ProjectIndexEntry{}, false
	}
	for _, p := range ix.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return model.ProjectIndexEntry{}, false
}

// FindProjectByPath looks up an index entry by project path.
func (s *Store) FindProjectByPath(path string) (model.ProjectIndexEntry, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return s.FindProjectByID(ProjectID(abs))
}

// TouchUsage records when a project was last used.
func (s *Store) TouchUsage(id string, when time.Time) error {
	ix, err := s.loadIndex()
	if err != nil {
		return err
	}
	for i := range ix.Projects {
		if ix.Projects[i].ID == id {
			ix.Projects[i].LastUsed = when.UnixMilli()
			return s.writeJSONAtomic(indexFile, ix)
		}
	}
	return fmt.Errorf("project %s not found in index", id)
}

// RenameProject updates a project's display name.
func (s *Store) RenameProject(id, name string) error {
	ix, err := s.loadIndex()
	if err != nil {
		return err
	}
	for i := range ix.Projects {
		if ix.Projects[i].ID == id {
			ix.Projects[i].Name = name
			return s.writeJSONAtomic(indexFile, ix)
		}
	}
	return fmt.Errorf("project %s not found in index", id)
}

// DeleteProject removes a project from the index together with its
// snapshot and its activity-log entries.
func (s *Store) DeleteProject(id string) error {
	ix, err := s.loadIndex()
	if err != nil {
		return err
	}
	kept := ix.Projects[:0]
	found := false
	for _, p := range ix.Projects {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return fmt.Errorf("project %s not found in index", id)
	}
	ix.Projects = kept
	if err := s.writeJSONAtomic(indexFile, ix); err != nil {
		return err
	}
	if err := s.purgeActivity(id); err != nil {
		return err
	}
	return s.DeleteSnapshot(id)
}

// Projects returns all index entries sorted by display name.
func (s *Store) Projects() ([]model.ProjectIndexEntry, error) {
	ix, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	sort.Slice(ix.Projects, func(i, j int) bool {
		return ix.Projects[i].Name < ix.Projects[j].Name
	})
	return ix.Projects, nil
}
