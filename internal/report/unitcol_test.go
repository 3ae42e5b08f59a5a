package report

import (
	"testing"

	"github.com/fixturelab/plumbline/internal/storage"
)

func TestDetectUnitColumn(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    string
	}{
		{"exact unit", []string{"Notes", "Unit"}, "Unit"},
		{"substring match", []string{"Notes", "Bldg/Unit #"}, "Bldg/Unit #"},
		{"apt beats room", []string{"Room", "Apt"}, "Apt"},
		{"full apartment word", []string{"Floor", "Apartment"}, "Apartment"},
		{"room fallback", []string{"Floor", "Room"}, "Room"},
		{"no match falls back to first", []string{"Floor", "Fixture"}, "Floor"},
		{"empty set", nil, "Unit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectUnitColumn(tt.columns); got != tt.want {
				t.Errorf("DetectUnitColumn(%v) = %q, want %q", tt.columns, got, tt.want)
			}
		})
	}
}

func TestColumnsSorted(t *testing.T) {
	row := storage.Row{"Unit": "1", "Apt": "a", "Notes": "n"}
	got := Columns(row)
	want := []string{"Apt", "Notes", "Unit"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Columns = %v, want %v", got, want)
		}
	}
}
