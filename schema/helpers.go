package schema

import (
	"slices"
	"strings"
)

// NormalizeOwners drops empty and blank handles, then sorts and de-duplicates.
// The result is never nil.
func NormalizeOwners(owners []string) []string {
	out := make([]string, 0, len(owners))
	for _, o := range owners {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// OwnersEqual compares two slices of owners, considering them equal if they contain the same owners
// regardless of order or duplicates
func OwnersEqual(a, b []string) bool {
	return slices.Equal(NormalizeOwners(a), NormalizeOwners(b))
}

// FormatOwners formats owners as "alice, bob", or "(none)" for an empty set
func FormatOwners(owners []string) string {
	if len(owners) == 0 {
		return "(none)"
	}
	return strings.Join(owners, ", ")
}
