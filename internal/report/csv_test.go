package report

import (
	"strings"
	"testing"
)

func TestWriteCSV(t *testing.T) {
	notes := []CompiledNote{
		{Unit: "101", Note: "Light leak from kitchen faucet."},
		{Unit: "102", Note: `Tenant said "no access". Follow up`},
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, notes); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := "Unit,Note\n" +
		"101,Light leak from kitchen faucet.\n" +
		"102,\"Tenant said \"\"no access\"\". Follow up\"\n"
	if sb.String() != want {
		t.Errorf("csv = %q, want %q", sb.String(), want)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if sb.String() != "Unit,Note\n" {
		t.Errorf("csv = %q, want header only", sb.String())
	}
}
