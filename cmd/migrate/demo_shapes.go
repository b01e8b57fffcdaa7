package main

import (
	"fmt"

	"github.com/gloudx/docmigrate/internal/document"
	"github.com/gloudx/docmigrate/internal/registry"
)

// Shape/step registration is host-supplied: the kernel itself never knows
// about "pkg_conf" or any other doc_type. The reference CLI ships the
// worked example from spec.md section 3 (pkg_conf@1.0 -> pkg_conf@2.0, the
// timeout rename and plugins list-to-map step) so plan-upgrade and migrate
// are runnable against real files without a separate host program.
const (
	pkgConfV1 document.ShapeID = "pkg_conf@1.0"
	pkgConfV2 document.ShapeID = "pkg_conf@2.0"
)

func registerBuiltinShapes(reg *registry.Registry) error {
	if err := reg.RegisterShape(document.Shape{ID: pkgConfV1, DocType: "pkg_conf", SchemaVersion: "1.0"}); err != nil {
		return err
	}
	if err := reg.RegisterShape(document.Shape{ID: pkgConfV2, DocType: "pkg_conf", SchemaVersion: "2.0"}); err != nil {
		return err
	}
	return reg.RegisterStep(document.MigrationStep{
		From:              pkgConfV1,
		To:                pkgConfV2,
		Apply:             pkgConfV1ToV2,
		Reverse:           pkgConfV2ToV1,
		ClaimedProperties: []string{"plugins"},
		MergeProperty:     mergePluginsProperty,
	})
}

func pkgConfV1ToV2(in document.Tree) (document.Tree, error) {
	out := document.CloneTree(in)

	if timeout, ok := out["timeout"]; ok {
		out["execution_timeout"] = timeout
		delete(out, "timeout")
	}

	if rawList, ok := out["plugins"].([]any); ok {
		pluginMap := make(map[string]any, len(rawList))
		for _, p := range rawList {
			name, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("pkg_conf v1->v2: plugins entry is not a string: %v", p)
			}
			pluginMap[name] = map[string]any{"enabled": true}
		}
		out["plugins"] = pluginMap
	}

	if _, ok := out["reporting"]; !ok {
		out["reporting"] = map[string]any{"format": "json"}
	}

	return out, nil
}

func pkgConfV2ToV1(in document.Tree) (document.Tree, error) {
	out := document.CloneTree(in)

	if timeout, ok := out["execution_timeout"]; ok {
		out["timeout"] = timeout
		delete(out, "execution_timeout")
	}

	if pluginMap, ok := out["plugins"].(map[string]any); ok {
		list := make([]any, 0, len(pluginMap))
		for name := range pluginMap {
			list = append(list, name)
		}
		out["plugins"] = list
	}

	delete(out, "reporting")
	return out, nil
}

// mergePluginsProperty implements the S2 worked example's semantic handler:
// plugins is a list in v1 and a map in v2, so structural JSON-path diffing
// sees them as unrelated replacements. The handler reconciles plugin names
// across BASE/MINE/THEIRS directly instead: THEIRS's entries are kept as
// they are, names MINE removed relative to BASE are dropped, and names MINE
// added are included as enabled.
func mergePluginsProperty(_ string, base, mine, theirs any) (any, bool, error) {
	baseSet := pluginNames(base)
	mineSet := pluginNames(mine)

	result := make(map[string]any)
	if theirsMap, ok := theirs.(map[string]any); ok {
		for name, entry := range theirsMap {
			result[name] = entry
		}
	} else {
		for name := range pluginNames(theirs) {
			result[name] = map[string]any{"enabled": true}
		}
	}
	for name := range baseSet {
		if !mineSet[name] {
			delete(result, name)
		}
	}
	for name := range mineSet {
		if _, ok := result[name]; !ok && !baseSet[name] {
			result[name] = map[string]any{"enabled": true}
		}
	}
	if len(result) == 0 {
		return nil, true, nil
	}
	return result, false, nil
}

func pluginNames(v any) map[string]bool {
	out := make(map[string]bool)
	switch x := v.(type) {
	case map[string]any:
		for k := range x {
			out[k] = true
		}
	case []any:
		for _, e := range x {
			if name, ok := e.(string); ok {
				out[name] = true
			}
		}
	}
	return out
}
