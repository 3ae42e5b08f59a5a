// Package ingest turns external material into notes-core inputs: CSV
// spreadsheets into installation rows, and inspection paperwork (web pages,
// PDFs) into per-unit annotation text.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/fixturelab/plumbline/internal/storage"
)

// ParseCSV reads a header-plus-records CSV into installation rows. Ragged
// records are tolerated; short records simply leave trailing columns absent,
// which the compiler treats as missing cells.
func ParseCSV(r io.Reader) ([]storage.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var rows []storage.Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record %d: %w", len(rows)+2, err)
		}

		row := make(storage.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
