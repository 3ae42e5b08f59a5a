package storage

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestTablesExist(t *testing.T) {
	s := openTestStore(t)

	tables := []string{"installation_rows", "selected_cells", "selected_columns", "unified_notes"}
	for _, tbl := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", tbl).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", tbl, err)
		}
		if count != 1 {
			t.Errorf("table %q not found in sqlite_master", tbl)
		}
	}
}

func TestReplaceAndListRows(t *testing.T) {
	s := openTestStore(t)

	want := []Row{
		{"Unit": "101", "Leak Issue Kitchen Faucet": "light"},
		{"Unit": "102", "GPM": float64(1.5)},
	}
	if err := s.ReplaceRows(want); err != nil {
		t.Fatalf("ReplaceRows: %v", err)
	}

	got, err := s.ListRows()
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListRows = %v, want %v", got, want)
	}

	// A second replace must fully swap the dataset, not append.
	if err := s.ReplaceRows([]Row{{"Unit": "201"}}); err != nil {
		t.Fatalf("second ReplaceRows: %v", err)
	}
	got, err = s.ListRows()
	if err != nil {
		t.Fatalf("ListRows after swap: %v", err)
	}
	if len(got) != 1 || got[0]["Unit"] != "201" {
		t.Errorf("dataset not replaced: %v", got)
	}
}

func TestSelectedCellsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := map[string][]string{
		"101": {"Replaced shutoff valve", "Caulked around tub"},
		"5":   {"No access"},
	}
	if err := s.ReplaceSelectedCells(want); err != nil {
		t.Fatalf("ReplaceSelectedCells: %v", err)
	}

	got, err := s.ListSelectedCells()
	if err != nil {
		t.Fatalf("ListSelectedCells: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListSelectedCells = %v, want %v", got, want)
	}
}

func TestAppendSelectedCellPreservesOrder(t *testing.T) {
	s := openTestStore(t)

	annotations := []string{"first", "second", "third"}
	for _, a := range annotations {
		if err := s.AppendSelectedCell("12", a); err != nil {
			t.Fatalf("AppendSelectedCell(%q): %v", a, err)
		}
	}

	got, err := s.ListSelectedCells()
	if err != nil {
		t.Fatalf("ListSelectedCells: %v", err)
	}
	if !reflect.DeepEqual(got["12"], annotations) {
		t.Errorf("annotations = %v, want %v", got["12"], annotations)
	}
}

func TestSelectedColumnsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := []string{"Water Heater Condition", "Toilet Model"}
	if err := s.ReplaceSelectedColumns(want); err != nil {
		t.Fatalf("ReplaceSelectedColumns: %v", err)
	}

	got, err := s.ListSelectedColumns()
	if err != nil {
		t.Fatalf("ListSelectedColumns: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListSelectedColumns = %v, want %v", got, want)
	}
}

func TestNotesRoundTrip(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	want := []Note{
		{ID: "n1", Unit: "101", Content: "Tenant reported prior leak", UpdatedAt: now},
		{ID: "n2", Unit: "102", Content: "ok", UpdatedAt: now},
	}
	if err := s.ReplaceNotes(want); err != nil {
		t.Fatalf("ReplaceNotes: %v", err)
	}

	got, err := s.ListNotes()
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListNotes = %v, want %v", got, want)
	}

	n, err := s.GetNoteByUnit("101")
	if err != nil {
		t.Fatalf("GetNoteByUnit: %v", err)
	}
	if n.Content != "Tenant reported prior leak" {
		t.Errorf("GetNoteByUnit content = %q", n.Content)
	}
}

func TestGetNoteByUnitNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetNoteByUnit("999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetNoteByUnit on empty store = %v, want ErrNotFound", err)
	}
}

func TestDeleteAllNotes(t *testing.T) {
	s := openTestStore(t)

	notes := []Note{{ID: "n1", Unit: "7", Content: "x", UpdatedAt: time.Now().UTC()}}
	if err := s.ReplaceNotes(notes); err != nil {
		t.Fatalf("ReplaceNotes: %v", err)
	}
	if err := s.DeleteAllNotes(); err != nil {
		t.Fatalf("DeleteAllNotes: %v", err)
	}

	got, err := s.ListNotes()
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("notes remain after DeleteAllNotes: %v", got)
	}
}
