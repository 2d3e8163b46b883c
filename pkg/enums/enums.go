// Package enums holds the string-backed states stored in the database and
// carried on the wire.
package enums

import (
	"fmt"
	"slices"
)

func oneOf[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

func parse[T ~string](kind, raw string, set []T) (T, error) {
	if v := T(raw); oneOf(v, set) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
