package ingest

import (
	"reflect"
	"strings"
	"testing"

	"github.com/fixturelab/plumbline/internal/storage"
)

func TestParseCSV(t *testing.T) {
	input := "Unit,Leak Issue Kitchen Faucet,Notes\n" +
		"101,light,ok\n" +
		"102,,tenant absent\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	want := []storage.Row{
		{"Unit": "101", "Leak Issue Kitchen Faucet": "light", "Notes": "ok"},
		{"Unit": "102", "Leak Issue Kitchen Faucet": "", "Notes": "tenant absent"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("ParseCSV = %v, want %v", rows, want)
	}
}

func TestParseCSVRaggedRecords(t *testing.T) {
	input := "Unit,Notes\n101\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if _, ok := rows[0]["Notes"]; ok {
		t.Errorf("short record should leave Notes absent, got %v", rows[0])
	}
	if rows[0]["Unit"] != "101" {
		t.Errorf("Unit = %v, want 101", rows[0]["Unit"])
	}
}

func TestParseCSVEmpty(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseCSV of empty input: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %v, want none", rows)
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("Unit,Notes\n"))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %v, want none", rows)
	}
}
