// Package registry holds the two relations that drive migration:
// (doc_type, version) -> shape, and (shape_from, shape_to) -> step.
//
// Grounded on gloudx-ues/lexicon/lexicon_registry.go's LexiconRegistry,
// generalized from the host's IPLD-schema-plus-blockstore registry to a
// pure in-memory, read-mostly map built once at configuration time (the
// kernel never persists or compiles schemas itself — see spec.md §9 on
// "reflection-based type discovery" becoming explicit typed registration).
package registry

import (
	"container/list"
	"fmt"
	"sort"
	"sync"

	"github.com/gloudx/docmigrate/internal/document"
)

type shapeKey struct {
	docType string
	version document.SchemaVersion
}

// Registry is the immutable-after-setup map of shapes and steps.
// Reads are safe for any number of concurrent goroutines once setup
// (registration) has finished; setup itself is also safe via mu, but
// concurrent registration with concurrent reads is not a supported use
// (spec.md §5: "built once during configuration, then immutable").
type Registry struct {
	mu sync.RWMutex

	shapesByKey map[shapeKey]document.ShapeID
	shapesByID  map[document.ShapeID]document.Shape
	versions    map[string][]document.SchemaVersion // doc_type -> sorted versions
	edges       map[document.ShapeID][]edge          // adjacency for BFS, in registration order
	docTypes    map[string]struct{}
}

type edge struct {
	to   document.ShapeID
	step document.MigrationStep
	seq  int // registration order, for deterministic tie-breaking
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		shapesByKey: make(map[shapeKey]document.ShapeID),
		shapesByID:  make(map[document.ShapeID]document.Shape),
		versions:    make(map[string][]document.SchemaVersion),
		edges:       make(map[document.ShapeID][]edge),
		docTypes:    make(map[string]struct{}),
	}
}

// RegisterShape adds a shape declaration. Registering the same
// (doc_type, version) twice is a fatal configuration error, as is
// registering the same ShapeID twice with a different identity.
func (r *Registry) RegisterShape(shape document.Shape) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := shapeKey{docType: shape.DocType, version: shape.SchemaVersion}
	if existing, ok := r.shapesByKey[key]; ok {
		return &document.ConfigurationError{Reason: fmt.Sprintf(
			"doc_type %q version %q already registered as shape %q", shape.DocType, shape.SchemaVersion, existing)}
	}
	if _, ok := r.shapesByID[shape.ID]; ok {
		return &document.ConfigurationError{Reason: fmt.Sprintf("shape id %q already registered", shape.ID)}
	}

	r.shapesByKey[key] = shape.ID
	r.shapesByID[shape.ID] = shape
	r.docTypes[shape.DocType] = struct{}{}
	r.versions[shape.DocType] = insertSorted(r.versions[shape.DocType], shape.SchemaVersion)
	return nil
}

func insertSorted(versions []document.SchemaVersion, v document.SchemaVersion) []document.SchemaVersion {
	versions = append(versions, v)
	sort.Slice(versions, func(i, j int) bool { return versions[i].LessThan(versions[j]) })
	return versions
}

// RegisterStep adds a migration step between two already-registered shapes.
func (r *Registry) RegisterStep(step document.MigrationStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.shapesByID[step.From]; !ok {
		return &document.ConfigurationError{Reason: fmt.Sprintf("step references unknown shape %q", step.From)}
	}
	if _, ok := r.shapesByID[step.To]; !ok {
		return &document.ConfigurationError{Reason: fmt.Sprintf("step references unknown shape %q", step.To)}
	}

	seq := 0
	for _, es := range r.edges {
		seq += len(es)
	}
	r.edges[step.From] = append(r.edges[step.From], edge{to: step.To, step: step, seq: seq})
	return nil
}

// ShapeFor resolves a (doc_type, version) pair to its registered shape.
func (r *Registry) ShapeFor(docType string, version document.SchemaVersion) (document.ShapeID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.shapesByKey[shapeKey{docType: docType, version: version}]
	if !ok {
		return "", fmt.Errorf("%w: %s@%s", document.ErrNoSuchShape, docType, version)
	}
	return id, nil
}

// LatestVersion returns the highest registered version for a doc_type.
func (r *Registry) LatestVersion(docType string) (document.SchemaVersion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.versions[docType]
	if len(versions) == 0 {
		return "", false
	}
	return versions[len(versions)-1], true
}

// RegisteredDocTypes returns the set of doc_types with at least one shape.
func (r *Registry) RegisteredDocTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.docTypes))
	for dt := range r.docTypes {
		out = append(out, dt)
	}
	sort.Strings(out)
	return out
}

// FindPath runs a breadth-first search over registered steps to find the
// shortest chain from -> to. Ties are broken by registration order.
// FindPath(x, x) always returns an empty, non-nil slice.
func (r *Registry) FindPath(from, to document.ShapeID) ([]document.MigrationStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if from == to {
		return []document.MigrationStep{}, nil
	}

	type node struct {
		id   document.ShapeID
		path []document.MigrationStep
	}
	visited := map[document.ShapeID]bool{from: true}
	queue := list.New()
	queue.PushBack(node{id: from, path: nil})

	for queue.Len() > 0 {
		front := queue.Remove(queue.Front()).(node)

		// Sort outgoing edges by registration order for deterministic
		// tie-breaking, as spec.md §4.1 requires.
		outs := append([]edge(nil), r.edges[front.id]...)
		sort.Slice(outs, func(i, j int) bool { return outs[i].seq < outs[j].seq })

		for _, e := range outs {
			if visited[e.to] {
				continue
			}
			nextPath := append(append([]document.MigrationStep(nil), front.path...), e.step)
			if e.to == to {
				return nextPath, nil
			}
			visited[e.to] = true
			queue.PushBack(node{id: e.to, path: nextPath})
		}
	}

	return nil, fmt.Errorf("%w: from %s to %s", document.ErrNoMigrationPath, from, to)
}
