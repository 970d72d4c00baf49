package smbc

import (
	"fmt"
	"sync"
)

// handleKind selects which native close operation applies to a handle.
type handleKind uint8

const (
	kindFile handleKind = iota + 1
	kindDir
)

func (k handleKind) String() string {
	switch k {
	case kindFile:
		return "file"
	case kindDir:
		return "directory"
	default:
		return "unknown"
	}
}

// handleRegistry maps native resource identifiers to their canonical
// wrapper objects. At most one live wrapper exists per identifier;
// interning an identifier that is already live returns the existing
// wrapper. Entries are removed explicitly when a wrapper closes, so a
// closed-and-reopened identifier always maps to a fresh wrapper.
//
// The registry is the one structure shared across goroutines regardless
// of the context's sync/async mode, so it carries its own lock.
type handleRegistry struct {
	mu      sync.Mutex
	entries map[HandleID]*registryEntry
}

type registryEntry struct {
	kind  handleKind
	owner *Context
	file  *File
	dir   *Dir
}

// internFile returns the canonical *File for id, constructing one if the
// identifier is not live. A live entry whose kind or owning context
// conflicts with this call means the engine reused an identifier while
// conflicting metadata was supplied; that is a fatal logic error.
func (r *handleRegistry) internFile(id HandleID, owner *Context) *File {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		r.checkEntry(e, id, kindFile, owner)
		return e.file
	}

	f := &File{ctx: owner, id: id, readChunk: defaultReadChunk}
	r.register(id, &registryEntry{kind: kindFile, owner: owner, file: f})
	return f
}

// internDir is the directory analogue of internFile.
func (r *handleRegistry) internDir(id HandleID, owner *Context) *Dir {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		r.checkEntry(e, id, kindDir, owner)
		return e.dir
	}

	d := &Dir{ctx: owner, id: id}
	r.register(id, &registryEntry{kind: kindDir, owner: owner, dir: d})
	return d
}

func (r *handleRegistry) register(id HandleID, e *registryEntry) {
	if r.entries == nil {
		r.entries = make(map[HandleID]*registryEntry)
	}
	r.entries[id] = e
}

func (r *handleRegistry) checkEntry(e *registryEntry, id HandleID, kind handleKind, owner *Context) {
	if e.kind != kind {
		panic(&LogicError{Reason: fmt.Sprintf(
			"handle %d is live as a %s but was interned as a %s", id, e.kind, kind)})
	}
	if e.owner != owner {
		panic(&LogicError{Reason: fmt.Sprintf(
			"handle %d is live under a different context", id)})
	}
}

// release removes id from the registry. Releasing an identifier that is
// not registered is a no-op; close is idempotent.
func (r *handleRegistry) release(id HandleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// count returns the number of live entries.
func (r *handleRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
