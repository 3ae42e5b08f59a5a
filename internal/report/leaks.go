package report

import (
	"strings"

	"github.com/fixturelab/plumbline/internal/storage"
)

// fixture is a well-known leak location whose column values map through the
// severity vocabulary instead of the generic "<column>: <value>" expansion.
type fixture struct {
	label string   // as it appears in the rendered sentence
	match []string // lowercased column-name substrings
}

// Matching order is fixed so leak sentences always render kitchen, bathroom,
// tub.
var fixtures = []fixture{
	{label: "kitchen faucet", match: []string{"kitchen faucet"}},
	{label: "bathroom faucet", match: []string{"bathroom faucet", "bath faucet"}},
	{label: "tub spout", match: []string{"tub spout", "diverter"}},
}

// findFixtureColumn locates the row column carrying fx's leak state, if any.
func findFixtureColumn(row storage.Row, fx fixture) (string, bool) {
	for _, col := range Columns(row) {
		if matchesFixture(col, fx) {
			return col, true
		}
	}
	return "", false
}

func matchesFixture(column string, fx fixture) bool {
	lower := strings.ToLower(column)
	if !strings.Contains(lower, "leak") {
		return false
	}
	for _, m := range fx.match {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// isLeakColumn reports whether a column belongs to any well-known fixture.
func isLeakColumn(column string) bool {
	for _, fx := range fixtures {
		if matchesFixture(column, fx) {
			return true
		}
	}
	return false
}

// leakSentence renders one human-readable leak fragment. "driping" is a known
// misspelling in field data and is tolerated.
func leakSentence(label, value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "light":
		return "Light leak from " + label
	case "moderate":
		return "Moderate leak from " + label
	case "heavy":
		return "Heavy leak from " + label
	case "dripping", "driping":
		return "Dripping leak from " + label
	default:
		return "Leak from " + label
	}
}
