package document

import (
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion is a dotted numeric tuple (MAJOR.MINOR[.PATCH...]).
// Ordering is component-wise numeric, not lexicographic: "10.0" > "2.0".
type SchemaVersion string

// Components splits the version into its numeric parts.
func (v SchemaVersion) Components() ([]int, error) {
	raw := strings.Split(string(v), ".")
	if len(raw) == 0 {
		return nil, fmt.Errorf("invalid schema version %q: empty", v)
	}
	out := make([]int, len(raw))
	for i, part := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %q: component %q is not numeric", v, part)
		}
		out[i] = n
	}
	return out, nil
}

// Compare returns -1, 0, or 1 comparing v to other component-wise.
// Missing trailing components are treated as 0 (so "1.0" == "1.0.0").
// An unparsable version compares as less than any parsable one.
func (v SchemaVersion) Compare(other SchemaVersion) int {
	a, errA := v.Components()
	b, errB := other.Components()
	if errA != nil && errB != nil {
		return strings.Compare(string(v), string(other))
	}
	if errA != nil {
		return -1
	}
	if errB != nil {
		return 1
	}
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var ai, bi int
		if i < len(a) {
			ai = a[i]
		}
		if i < len(b) {
			bi = b[i]
		}
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Equal reports whether v and other denote the same version.
func (v SchemaVersion) Equal(other SchemaVersion) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v orders strictly before other.
func (v SchemaVersion) LessThan(other SchemaVersion) bool {
	return v.Compare(other) < 0
}

// GreaterThan reports whether v orders strictly after other.
func (v SchemaVersion) GreaterThan(other SchemaVersion) bool {
	return v.Compare(other) > 0
}
