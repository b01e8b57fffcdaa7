package document

import "testing"

func TestDecodeWireWithMeta(t *testing.T) {
	raw := []byte(`{"_meta":{"DocType":"PkgConf","SchemaVersion":"1.0"},"timeout":30}`)
	data, meta, err := DecodeWire(raw, "ignored")
	if err != nil {
		t.Fatalf("DecodeWire: %v", err)
	}
	if meta.DocType != "PkgConf" || meta.SchemaVersion != "1.0" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if _, ok := data["_meta"]; ok {
		t.Fatalf("_meta should be stripped from data")
	}
	if data["timeout"] != float64(30) {
		t.Fatalf("timeout not preserved: %+v", data)
	}
}

func TestDecodeWireWithoutMeta(t *testing.T) {
	raw := []byte(`{"timeout":30}`)
	_, meta, err := DecodeWire(raw, "PkgConf")
	if err != nil {
		t.Fatalf("DecodeWire: %v", err)
	}
	if meta.DocType != "PkgConf" || meta.SchemaVersion != DefaultSchemaVersion {
		t.Fatalf("unexpected inferred meta: %+v", meta)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data := Tree{"timeout": float64(30)}
	meta := Meta{DocType: "PkgConf", SchemaVersion: "1.0"}
	raw, err := EncodeWire(data, meta)
	if err != nil {
		t.Fatalf("EncodeWire: %v", err)
	}
	gotData, gotMeta, err := DecodeWire(raw, "")
	if err != nil {
		t.Fatalf("DecodeWire: %v", err)
	}
	if gotMeta != meta {
		t.Fatalf("meta mismatch: %+v vs %+v", gotMeta, meta)
	}
	if !TreesEqual(data, gotData) {
		t.Fatalf("data mismatch: %+v vs %+v", data, gotData)
	}
}

func TestCloneTreeIsIndependent(t *testing.T) {
	data := Tree{"plugins": []any{"auth", "logging"}}
	clone := CloneTree(data)
	clone["plugins"].([]any)[0] = "changed"
	if data["plugins"].([]any)[0] != "auth" {
		t.Fatalf("clone mutated original")
	}
}
