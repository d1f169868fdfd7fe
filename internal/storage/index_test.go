package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestUpsertProjectCreatesDeterministicID(t *testing.T) {
	s := newStore(t)
	path := filepath.Join(t.TempDir(), "acme")

	a, err := s.UpsertProject(path, "")
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	b, err := s.UpsertProject(path, "")
	if err != nil {
		t.Fatalf("UpsertProject again: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("ids differ across upserts: %q vs %q", a.ID, b.ID)
	}
	if a.Name != "acme" {
		t.Errorf("default name = %q, want %q", a.Name, "acme")
	}
}

func TestUpsertProjectUpdatesName(t *testing.T) {
	s := newStore(t)
	path := filepath.Join(t.TempDir(), "acme")

	if _, err := s.UpsertProject(path, ""); err != nil {
		t.Fatal(err)
	}
	renamed, err := s.UpsertProject(path, "Acme Corp")
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Name != "Acme Corp" {
		t.Errorf("name = %q, want %q", renamed.Name, "Acme Corp")
	}

	found, ok := s.FindProjectByPath(path)
	if !ok {
		t.Fatal("FindProjectByPath: not found")
	}
	if found.Name != "Acme Corp" {
		t.Errorf("persisted name = %q, want %q", found.Name, "Acme Corp")
	}
}

func TestFindProjectByID(t *testing.T) {
	s := newStore(t)
	path := filepath.Join(t.TempDir(), "acme")

	created, err := s.UpsertProject(path, "")
	if err != nil {
		t.Fatal(err)
	}
	found, ok := s.FindProjectByID(created.ID)
	if !ok {
		t.Fatal("FindProjectByID: not found")
	}
	if found.Path != created.Path {
		t.Errorf("path = %q, want %q", found.Path, created.Path)
	}

	if _, ok := s.FindProjectByID("no-such-id"); ok {
		t.Error("found a project for an unknown id")
	}
}

func TestTouchUsage(t *testing.T) {
	s := newStore(t)
	path := filepath.Join(t.TempDir(), "acme")

	created, err := s.UpsertProject(path, "")
	if err != nil {
		t.Fatal(err)
	}
	when := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	if err := s.TouchUsage(created.ID, when); err != nil {
		t.Fatalf("TouchUsage: %v", err)
	}

	found, _ := s.FindProjectByID(created.ID)
	if found.LastUsed != when.UnixMilli() {
		t.Errorf("lastUsed = %d, want %d", found.LastUsed, when.UnixMilli())
	}

	if err := s.TouchUsage("no-such-id", when); err == nil {
		t.Error("expected error touching unknown project")
	}
}

func TestDeleteProjectRemovesEverything(t *testing.T) {
	s := newStore(t)
	path := filepath.Join(t.TempDir(), "acme")

	created, err := s.UpsertProject(path, "")
	if err != nil {
		t.Fatal(err)
	}
	snap := s.ReadSnapshot(created.ID)
	if err := s.WriteSnapshot(created.ID, snap); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordActivity(created.ID, "2026-02-27"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteProject(created.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if _, ok := s.FindProjectByID(created.ID); ok {
		t.Error("project still in index after delete")
	}
	if _, err := os.Stat(snapshotFile(s, created.ID)); !os.IsNotExist(err) {
		t.Error("snapshot still on disk after delete")
	}
	ids, err := s.ProjectsTouchedBetween("2026-02-27", "2026-02-27")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("activity entries remain after delete: %v", ids)
	}
}

func TestProjectsSortedByName(t *testing.T) {
	s := newStore(t)
	base := t.TempDir()

	if _, err := s.UpsertProject(filepath.Join(base, "zeta"), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertProject(filepath.Join(base, "alpha"), ""); err != nil {
		t.Fatal(err)
	}

	projects, err := s.Projects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(projects))
	}
	if projects[0].Name != "alpha" || projects[1].Name != "zeta" {
		t.Errorf("projects not sorted by name: %q, %q", projects[0].Name, projects[1].Name)
	}
}
