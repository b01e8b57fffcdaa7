// Package merge implements the kernel's three-way document merge
// (spec.md §4.4): a hybrid semantic-then-structural merge of BASE, MINE,
// and THEIRS document trees, used during re-upgrade when rollback history
// is present.
//
// The two-pass shape (semantic handlers first, then a generic structural
// patch merge over whatever is left) is adapted from the vendored
// beads-merge three-way issue merger this package replaced: that merger
// also split its work into a field-aware pass (tombstones, dependency
// lists) followed by a generic line-level merge. Here the "fields" are
// document tree properties and the generic pass is JSON-path structural
// diffing via tidwall/gjson and tidwall/sjson instead of line diffing.
package merge

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/gloudx/docmigrate/internal/document"
)

// ConflictPolicy names the structural-pass tie-break rule. spec.md §9
// flags this as an open question the source itself disagreed on; §4.4
// locks in Theirs wins, expressed here as the single named constant the
// spec requires.
type ConflictPolicy int

const (
	// ConflictPolicyTheirsWins resolves a same-path conflict between
	// ΔMINE and ΔTHEIRS in favor of THEIRS. This is the only policy the
	// kernel implements; it exists as a named constant (not a literal)
	// so the decision is visible at the call site.
	ConflictPolicyTheirsWins ConflictPolicy = iota
)

// Conflict records a structural-pass path where both sides changed the
// same property to different values. Theirs wins in the result; the
// losing (MINE) value is recorded here for observability only.
type Conflict struct {
	Path        string
	BaseValue   any
	MineValue   any
	TheirsValue any
}

// Result is the outcome of a three-way merge: the composed document plus
// any structural-pass conflicts that were resolved by policy.
type Result struct {
	Merged    document.Tree
	Conflicts []Conflict
}

// Merge3Way merges base, mine, and theirs, all assumed to already be
// lifted to the same target shape by the caller (the runner performs the
// forward-chain lift before calling in; see spec.md §4.4 step 1).
//
// step is the migration step whose `to` shape is the target shape; its
// ClaimedProperties and MergeProperty (if any) drive the semantic pass.
func Merge3Way(base, mine, theirs document.Tree, step document.MigrationStep) (Result, error) {
	handled := make(map[string]bool, len(step.ClaimedProperties))
	semantic := make(document.Tree, len(step.ClaimedProperties))

	for _, prop := range step.ClaimedProperties {
		handled[prop] = true
		if step.MergeProperty == nil {
			continue
		}
		baseVal := base[prop]
		mineVal := mine[prop]
		theirsVal := theirs[prop]
		merged, drop, err := step.MergeProperty(prop, baseVal, mineVal, theirsVal)
		if err != nil {
			return Result{}, fmt.Errorf("merge: semantic handler for %q: %w", prop, err)
		}
		if !drop {
			semantic[prop] = merged
		}
	}

	structural, conflicts, err := structuralMerge(base, mine, theirs, handled)
	if err != nil {
		return Result{}, fmt.Errorf("merge: structural pass: %w", err)
	}

	merged := make(document.Tree, len(semantic)+len(structural))
	for k, v := range structural {
		merged[k] = v
	}
	for k, v := range semantic {
		merged[k] = v
	}
	return Result{Merged: merged, Conflicts: conflicts}, nil
}

// structuralMerge performs the patch-based three-way merge over every
// top-level property not claimed by a semantic handler. Per spec.md §4.4
// ("array merging is by structural diff over element indices"), it
// recurses into nested objects by key and arrays by element index rather
// than replacing a whole property the moment any part of it differs: two
// non-overlapping edits to the same container (MINE touches one field or
// index, THEIRS a different one) both survive. A path only becomes a
// leaf — resolved wholesale by the conflict policy — once it bottoms out
// at a scalar, or the three sides disagree on whether it's even an
// object, an array, or something else.
func structuralMerge(base, mine, theirs document.Tree, handled map[string]bool) (document.Tree, []Conflict, error) {
	baseJSON, err := document.EncodeWire(base, document.Meta{})
	if err != nil {
		return nil, nil, err
	}
	mineJSON, err := document.EncodeWire(mine, document.Meta{})
	if err != nil {
		return nil, nil, err
	}
	theirsJSON, err := document.EncodeWire(theirs, document.Meta{})
	if err != nil {
		return nil, nil, err
	}

	props := unhandledProperties(base, mine, theirs, handled)

	result := []byte(`{}`)
	var conflicts []Conflict
	for _, prop := range props {
		result, err = mergeAtPath(result, prop, baseJSON, mineJSON, theirsJSON, &conflicts)
		if err != nil {
			return nil, nil, err
		}
	}

	out, _, err := document.DecodeWire(result, "")
	if err != nil {
		return nil, nil, err
	}
	return out, conflicts, nil
}

// mergeAtPath merges the value found at path across base/mine/theirs into
// result. When every side that has anything at path agrees it's an
// object, it recurses per key; when they agree it's an array, it recurses
// per index; otherwise path is a merge leaf, resolved wholesale.
func mergeAtPath(result []byte, path string, baseJSON, mineJSON, theirsJSON []byte, conflicts *[]Conflict) ([]byte, error) {
	baseRes := gjson.GetBytes(baseJSON, path)
	mineRes := gjson.GetBytes(mineJSON, path)
	theirsRes := gjson.GetBytes(theirsJSON, path)

	switch {
	case allExistingSameKind(objectKind, baseRes, mineRes, theirsRes):
		var err error
		for _, key := range unionKeys(baseRes, mineRes, theirsRes) {
			result, err = mergeAtPath(result, path+"."+key, baseJSON, mineJSON, theirsJSON, conflicts)
			if err != nil {
				return nil, err
			}
		}
		return result, nil

	case allExistingSameKind(arrayKind, baseRes, mineRes, theirsRes):
		var err error
		for i, n := 0, maxArrayLen(baseRes, mineRes, theirsRes); i < n; i++ {
			result, err = mergeAtPath(result, fmt.Sprintf("%s.%d", path, i), baseJSON, mineJSON, theirsJSON, conflicts)
			if err != nil {
				return nil, err
			}
		}
		return result, nil

	default:
		return mergeLeaf(result, path, baseRes, mineRes, theirsRes, conflicts)
	}
}

// mergeLeaf resolves a single scalar (or structurally-mismatched) value:
// unchanged passes BASE through, a change on exactly one side wins
// outright, and a change on both sides resolves Theirs-wins with the
// divergence recorded as a Conflict.
func mergeLeaf(result []byte, path string, baseRes, mineRes, theirsRes gjson.Result, conflicts *[]Conflict) ([]byte, error) {
	mineChanged := !jsonEqual(baseRes, mineRes)
	theirsChanged := !jsonEqual(baseRes, theirsRes)

	var chosen gjson.Result
	switch {
	case mineChanged && theirsChanged:
		if !jsonEqual(mineRes, theirsRes) {
			*conflicts = append(*conflicts, Conflict{
				Path:        path,
				BaseValue:   baseRes.Value(),
				MineValue:   mineRes.Value(),
				TheirsValue: theirsRes.Value(),
			})
		}
		chosen = theirsRes // Theirs wins (ConflictPolicyTheirsWins)
	case theirsChanged:
		chosen = theirsRes
	case mineChanged:
		chosen = mineRes
	default:
		chosen = baseRes
	}

	if !chosen.Exists() {
		return result, nil
	}
	raw, err := sjson.SetBytes(result, path, chosen.Value())
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", path, err)
	}
	return raw, nil
}

func jsonEqual(a, b gjson.Result) bool {
	if a.Exists() != b.Exists() {
		return false
	}
	if !a.Exists() {
		return true
	}
	return a.Raw == b.Raw
}

// allExistingSameKind reports whether every gjson.Result that exists among
// results satisfies kind, and at least one does exist: the condition for
// recursing into a path as a container rather than replacing it wholesale
// as a leaf. If the sides disagree on whether a path is an object, an
// array, or something else, there's no sound way to align them by key or
// index, so it falls back to a leaf.
func allExistingSameKind(kind func(gjson.Result) bool, results ...gjson.Result) bool {
	anyExists := false
	for _, r := range results {
		if !r.Exists() {
			continue
		}
		anyExists = true
		if !kind(r) {
			return false
		}
	}
	return anyExists
}

func objectKind(r gjson.Result) bool { return r.IsObject() }
func arrayKind(r gjson.Result) bool  { return r.IsArray() }

// unionKeys returns the union of object keys across every result that
// exists and is an object, in first-seen order (base, then mine, then
// theirs) for deterministic recursion order.
func unionKeys(results ...gjson.Result) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range results {
		if !r.Exists() || !r.IsObject() {
			continue
		}
		r.ForEach(func(key, _ gjson.Result) bool {
			k := key.String()
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
			return true
		})
	}
	return keys
}

// maxArrayLen returns the longest array length across every result that
// exists and is an array; every index below it is defined by at least one
// side, so recursing over [0, maxArrayLen) never visits an index absent
// from all three.
func maxArrayLen(results ...gjson.Result) int {
	max := 0
	for _, r := range results {
		if !r.Exists() || !r.IsArray() {
			continue
		}
		if n := len(r.Array()); n > max {
			max = n
		}
	}
	return max
}

// unhandledProperties is the union of top-level keys across all three
// trees, excluding those claimed by a semantic handler, in a stable order
// (base order first, then mine-only, then theirs-only) for deterministic
// output.
func unhandledProperties(base, mine, theirs document.Tree, handled map[string]bool) []string {
	seen := make(map[string]bool)
	var props []string
	add := func(t document.Tree) {
		for k := range t {
			if handled[k] || seen[k] || k == "_meta" {
				continue
			}
			seen[k] = true
			props = append(props, k)
		}
	}
	add(base)
	add(mine)
	add(theirs)
	return props
}
