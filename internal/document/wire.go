package document

import (
	"encoding/json"
	"fmt"
)

// metaKey is the top-level member carrying doc_type/schema_version.
const metaKey = "_meta"

// DefaultSchemaVersion is assumed when a persisted document carries no
// _meta member at all (spec.md §6).
const DefaultSchemaVersion SchemaVersion = "1.0"

// DecodeWire parses a persisted JSON document, extracting _meta into Meta
// and stripping it from the returned data. Absent _meta is tolerated: the
// doc_type is taken from fallbackDocType (the host's target shape) and the
// version defaults to "1.0".
func DecodeWire(raw []byte, fallbackDocType string) (Tree, Meta, error) {
	var data Tree
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, Meta{}, fmt.Errorf("document: decode wire form: %w", err)
	}
	if data == nil {
		data = Tree{}
	}

	metaRaw, ok := data[metaKey]
	if !ok {
		return data, Meta{DocType: fallbackDocType, SchemaVersion: DefaultSchemaVersion}, nil
	}

	metaMap, ok := metaRaw.(map[string]any)
	if !ok {
		return nil, Meta{}, fmt.Errorf("document: %s member is not an object", metaKey)
	}
	docType, _ := metaMap["DocType"].(string)
	version, _ := metaMap["SchemaVersion"].(string)
	if docType == "" {
		docType = fallbackDocType
	}
	if version == "" {
		version = string(DefaultSchemaVersion)
	}

	delete(data, metaKey)
	return data, Meta{DocType: docType, SchemaVersion: SchemaVersion(version)}, nil
}

// EncodeWire reattaches _meta at the top level and serializes to JSON.
// The input tree is not mutated; a shallow copy carries the extra member.
func EncodeWire(data Tree, meta Meta) ([]byte, error) {
	out := make(Tree, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out[metaKey] = map[string]any{
		"DocType":       meta.DocType,
		"SchemaVersion": string(meta.SchemaVersion),
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("document: encode wire form: %w", err)
	}
	return raw, nil
}

// CloneTree performs a deep copy of a decoded tree (maps/slices need
// independent copies before in-place structural-merge mutation).
func CloneTree(t Tree) Tree {
	if t == nil {
		return nil
	}
	return cloneValue(t).(Tree)
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
