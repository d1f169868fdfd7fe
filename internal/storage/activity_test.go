package storage_test

import (
	"reflect"
	"testing"
)

func TestRecordActivityDedupes(t *testing.T) {
	s := newStore(t)

	if err := s.RecordActivity("p1", "2025-01-10"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordActivity("p1", "2025-01-10"); err != nil {
		t.Fatal(err)
	}

	ids, err := s.ProjectsTouchedBetween("2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"p1"}) {
		t.Errorf("ids = %v, want [p1]", ids)
	}
}

func TestProjectsTouchedBetweenInclusive(t *testing.T) {
	s := newStore(t)

	// Insertion order deliberately scrambled.
	records := []struct{ id, date string }{
		{"p2", "2025-01-31"},
		{"p3", "2025-02-01"},
		{"p1", "2025-01-01"},
		{"p4", "2024-12-31"},
		{"p2", "2025-01-15"},
	}
	for _, r := range records {
		if err := s.RecordActivity(r.id, r.date); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := s.ProjectsTouchedBetween("2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"p1", "p2"}) {
		t.Errorf("ids = %v, want [p1 p2]", ids)
	}
}

func TestProjectsTouchedBetweenEmptyRange(t *testing.T) {
	s := newStore(t)

	if err := s.RecordActivity("p1", "2025-03-01"); err != nil {
		t.Fatal(err)
	}
	ids, err := s.ProjectsTouchedBetween("2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want empty", ids)
	}
}
