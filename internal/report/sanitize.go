package report

import "strings"

// ContainsPlaceholder reports whether s carries the literal "undefined" token
// in any casing, whole or as a substring. Such values come from upstream
// absent-value stringification and must never reach a rendered report; the
// check runs on every fragment, on stored note content before it is
// persisted, and on the final compiled string.
func ContainsPlaceholder(s string) bool {
	return strings.Contains(strings.ToLower(s), "undefined")
}

