package registry

import (
	"errors"
	"testing"

	"github.com/gloudx/docmigrate/internal/document"
)

func shape(id document.ShapeID, docType string, version string) document.Shape {
	return document.Shape{ID: id, DocType: docType, SchemaVersion: document.SchemaVersion(version)}
}

func TestRegisterShapeDuplicateKeyFails(t *testing.T) {
	r := New()
	if err := r.RegisterShape(shape("pkgconf-v1", "PkgConf", "1.0")); err != nil {
		t.Fatalf("RegisterShape: %v", err)
	}
	err := r.RegisterShape(shape("pkgconf-v1-again", "PkgConf", "1.0"))
	var cfgErr *document.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestRegisterShapeDuplicateIDFails(t *testing.T) {
	r := New()
	if err := r.RegisterShape(shape("pkgconf-v1", "PkgConf", "1.0")); err != nil {
		t.Fatalf("RegisterShape: %v", err)
	}
	err := r.RegisterShape(shape("pkgconf-v1", "PkgConf", "2.0"))
	var cfgErr *document.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestRegisterStepUnknownShapeFails(t *testing.T) {
	r := New()
	if err := r.RegisterShape(shape("pkgconf-v1", "PkgConf", "1.0")); err != nil {
		t.Fatalf("RegisterShape: %v", err)
	}
	err := r.RegisterStep(document.MigrationStep{From: "pkgconf-v1", To: "pkgconf-v2"})
	var cfgErr *document.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestShapeForAndLatestVersion(t *testing.T) {
	r := New()
	r.RegisterShape(shape("pkgconf-v1", "PkgConf", "1.0"))
	r.RegisterShape(shape("pkgconf-v2", "PkgConf", "2.0"))

	id, err := r.ShapeFor("PkgConf", "1.0")
	if err != nil || id != "pkgconf-v1" {
		t.Fatalf("ShapeFor: got (%v, %v)", id, err)
	}

	latest, ok := r.LatestVersion("PkgConf")
	if !ok || latest != "2.0" {
		t.Fatalf("LatestVersion: got (%v, %v)", latest, ok)
	}

	if _, err := r.ShapeFor("PkgConf", "9.9"); !errors.Is(err, document.ErrNoSuchShape) {
		t.Fatalf("expected ErrNoSuchShape, got %v", err)
	}
}

func TestFindPathDirectChain(t *testing.T) {
	r := New()
	r.RegisterShape(shape("v1", "PkgConf", "1.0"))
	r.RegisterShape(shape("v2", "PkgConf", "2.0"))
	r.RegisterShape(shape("v3", "PkgConf", "3.0"))

	step12 := document.MigrationStep{From: "v1", To: "v2"}
	step23 := document.MigrationStep{From: "v2", To: "v3"}
	r.RegisterStep(step12)
	r.RegisterStep(step23)

	path, err := r.FindPath("v1", "v3")
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) != 2 || path[0].To != "v2" || path[1].To != "v3" {
		t.Fatalf("unexpected path: %+v", path)
	}
}

func TestFindPathSameShapeIsEmpty(t *testing.T) {
	r := New()
	r.RegisterShape(shape("v1", "PkgConf", "1.0"))
	path, err := r.FindPath("v1", "v1")
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) != 0 {
		t.Fatalf("expected empty path, got %+v", path)
	}
}

func TestFindPathNoRouteFails(t *testing.T) {
	r := New()
	r.RegisterShape(shape("v1", "PkgConf", "1.0"))
	r.RegisterShape(shape("v2", "PkgConf", "2.0"))

	_, err := r.FindPath("v1", "v2")
	if !errors.Is(err, document.ErrNoMigrationPath) {
		t.Fatalf("expected ErrNoMigrationPath, got %v", err)
	}
}

func TestFindPathPrefersShorterRoute(t *testing.T) {
	r := New()
	for _, id := range []document.ShapeID{"v1", "v2", "v3", "v4"} {
		r.RegisterShape(shape(id, "PkgConf", string(id)))
	}
	// Long chain registered first, direct shortcut registered second.
	r.RegisterStep(document.MigrationStep{From: "v1", To: "v2"})
	r.RegisterStep(document.MigrationStep{From: "v2", To: "v3"})
	r.RegisterStep(document.MigrationStep{From: "v3", To: "v4"})
	r.RegisterStep(document.MigrationStep{From: "v1", To: "v4"})

	path, err := r.FindPath("v1", "v4")
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) != 1 || path[0].To != "v4" {
		t.Fatalf("expected direct shortcut, got %+v", path)
	}
}

func TestRegisteredDocTypes(t *testing.T) {
	r := New()
	r.RegisterShape(shape("pkgconf-v1", "PkgConf", "1.0"))
	r.RegisterShape(shape("user-v1", "User", "1.0"))

	got := r.RegisteredDocTypes()
	if len(got) != 2 || got[0] != "PkgConf" || got[1] != "User" {
		t.Fatalf("unexpected doc types: %v", got)
	}
}
