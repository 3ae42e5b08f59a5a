package report

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes compiled notes as a two-column CSV with a header row.
func WriteCSV(w io.Writer, notes []CompiledNote) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Unit", "Note"}); err != nil {
		return err
	}
	for _, n := range notes {
		if err := cw.Write([]string{n.Unit, n.Note}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
