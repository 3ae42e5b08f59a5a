package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fixturelab/plumbline/internal/storage"
)

// CompiledNote is the derived per-unit note string, rebuilt from all sources
// on every compilation pass and never persisted directly.
type CompiledNote struct {
	Unit string `json:"unit"`
	Note string `json:"note"`
}

// Input carries every note source for one compilation pass.
type Input struct {
	Rows            []storage.Row
	UnitColumn      string // detected from the first row when empty
	SelectedCells   map[string][]string
	SelectedColumns []string
	StoredNotes     map[string]string
}

type noteParts struct {
	fragments []string
	stored    string
}

// Compile assembles one note string per unit from installation rows, selected
// note columns, cell annotations, and manually edited notes. Units are drawn
// from the union of all sources: an annotation or stored note for a unit with
// no installation row still produces an entry. Fragments that are empty or
// carry an "undefined" placeholder token are dropped, and so is any unit whose
// final note fails the same check. Output is sorted by unit.
func Compile(in Input) []CompiledNote {
	unitColumn := in.UnitColumn
	if unitColumn == "" {
		if len(in.Rows) > 0 {
			unitColumn = DetectUnitColumn(Columns(in.Rows[0]))
		} else {
			unitColumn = DefaultUnitColumn
		}
	}

	parts := make(map[string]*noteParts)
	get := func(unit string) *noteParts {
		p, ok := parts[unit]
		if !ok {
			p = &noteParts{}
			parts[unit] = p
		}
		return p
	}

	for _, row := range in.Rows {
		unit := cellString(row[unitColumn])
		if unit == "" {
			continue
		}
		p := get(unit)

		// Well-known leak columns map through the severity vocabulary.
		for _, fx := range fixtures {
			col, ok := findFixtureColumn(row, fx)
			if !ok {
				continue
			}
			if value := cellString(row[col]); value != "" && !ContainsPlaceholder(value) {
				p.fragments = append(p.fragments, leakSentence(fx.label, value))
			}
		}

		// Selected columns expand to "<column>: <value>", except the leak
		// columns already covered above.
		for _, col := range in.SelectedColumns {
			if isLeakColumn(col) {
				continue
			}
			value := cellString(row[col])
			if value == "" || ContainsPlaceholder(value) || ContainsPlaceholder(col) {
				continue
			}
			p.fragments = append(p.fragments, col+": "+value)
		}
	}

	for unit, annotations := range in.SelectedCells {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}
		p := get(unit)
		for _, a := range annotations {
			a = strings.TrimSpace(a)
			if a == "" || ContainsPlaceholder(a) {
				continue
			}
			p.fragments = append(p.fragments, a)
		}
	}

	for unit, content := range in.StoredNotes {
		unit = strings.TrimSpace(unit)
		if unit == "" || ContainsPlaceholder(content) {
			continue
		}
		get(unit).stored = content
	}

	var compiled []CompiledNote
	for unit, p := range parts {
		var sb strings.Builder
		for _, f := range p.fragments {
			sb.WriteString(f)
			sb.WriteString(". ")
		}
		sb.WriteString(p.stored)

		note := strings.TrimSpace(sb.String())
		if note == "" || ContainsPlaceholder(note) {
			continue
		}
		compiled = append(compiled, CompiledNote{Unit: unit, Note: note})
	}

	sort.Slice(compiled, func(i, j int) bool {
		return CompareUnits(compiled[i].Unit, compiled[j].Unit) < 0
	})
	return compiled
}

// cellString renders a cell value for note text. Missing cells and values
// that are neither string nor number render as empty.
func cellString(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

