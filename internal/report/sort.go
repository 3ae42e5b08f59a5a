package report

import (
	"strconv"
	"strings"
)

// CompareUnits orders unit identifiers: numerically when both parse as
// integers, numeric units before alphanumeric ones, otherwise case-folded
// lexicographic with a case-sensitive tie-break so the order stays a strict
// total order.
func CompareUnits(a, b string) int {
	ai, aerr := strconv.Atoi(strings.TrimSpace(a))
	bi, berr := strconv.Atoi(strings.TrimSpace(b))

	switch {
	case aerr == nil && berr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return strings.Compare(strings.TrimSpace(a), strings.TrimSpace(b))
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}

	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
