// Package enums holds the string-backed enumerations persisted in the
// database and carried on the wire.
package enums

import (
	"fmt"
	"slices"
)

func known[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

// parse matches raw exactly; values are never case-folded or trimmed.
func parse[T ~string](set []T, raw, what string) (T, error) {
	if v := T(raw); known(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, raw)
}
