package store

import (
	"sync"
	"time"

	"github.com/op/go-logging"
)

var dirLog = logging.MustGetLogger("store")

// Directory is the flat, case-sensitive namespace of named byte files
// an index lives in: list/exists/length/mtime/touch/delete/rename plus
// create/open streams. Two files with the same name cannot coexist, and
// rename over an existing destination atomically replaces it.
type Directory interface {
	List() ([]string, error)
	Exists(name string) bool
	Length(name string) (int64, error)
	ModTime(name string) (time.Time, error)
	Touch(name string) error
	Delete(name string) error
	Rename(from, to string) error

	Create(name string) (Writer, error)
	// Open returns a Reader over name. When shared is true the
	// directory may return a cached handle (one per name); when false
	// it always returns a fresh stream with an independent cursor, as
	// required for concurrent phrase/positional decoding over the same
	// compound-file sub-range.
	Open(name string, shared bool) (Reader, error)

	// Lock exposes the directory's read/write coordination. Every opened index holds a read-lock reference for its
	// lifetime; the writer holds the write lock across a commit.
	Lock() *LockManager

	// Close flushes and closes every cached shared handle.
	Close() error
}

// RAMDirectory is the in-memory Directory implementation: a map of name
// to memFile. Used by tests and by the canonical-sample-index fixtures
// in internal/lucenetest as a plain in-memory directory, without any
// randomized-throttling behavior.
type RAMDirectory struct {
	mu    sync.RWMutex
	files map[string]*memFile
	mtime map[string]time.Time
	locks *LockManager
}

func NewRAMDirectory() *RAMDirectory {
	d := &RAMDirectory{
		files: make(map[string]*memFile),
		mtime: make(map[string]time.Time),
	}
	d.locks = newLockManager(d)
	return d
}

func (d *RAMDirectory) List() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	return names, nil
}

func (d *RAMDirectory) Exists(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.files[name]
	return ok
}

func (d *RAMDirectory) Length(name string) (int64, error) {
	d.mu.RLock()
	f, ok := d.files[name]
	d.mu.RUnlock()
	if !ok {
		return 0, New(Runtime, "file %s does not exist", name)
	}
	return f.size(), nil
}

func (d *RAMDirectory) ModTime(name string) (time.Time, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.mtime[name]
	if !ok {
		return time.Time{}, New(Runtime, "file %s does not exist", name)
	}
	return t, nil
}

func (d *RAMDirectory) Touch(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.files[name]; !ok {
		return New(Runtime, "file %s does not exist", name)
	}
	d.mtime[name] = nowFunc()
	return nil
}

func (d *RAMDirectory) Delete(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.files[name]; !ok {
		return New(Runtime, "file %s does not exist", name)
	}
	delete(d.files, name)
	delete(d.mtime, name)
	return nil
}

func (d *RAMDirectory) Rename(from, to string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.files[from]
	if !ok {
		return New(Runtime, "file %s does not exist", from)
	}
	// Renaming over an existing destination atomically replaces it: we
	// simply overwrite the map entry under the lock.
	d.files[to] = f
	d.mtime[to] = nowFunc()
	delete(d.files, from)
	delete(d.mtime, from)
	return nil
}

func (d *RAMDirectory) Create(name string) (Writer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := &memFile{}
	d.files[name] = f
	d.mtime[name] = nowFunc()
	return newMemWriter(f), nil
}

func (d *RAMDirectory) Open(name string, shared bool) (Reader, error) {
	d.mu.RLock()
	f, ok := d.files[name]
	d.mu.RUnlock()
	if !ok {
		return nil, New(Runtime, "file %s does not exist", name)
	}
	return newMemReader(f), nil
}

func (d *RAMDirectory) Lock() *LockManager { return d.locks }

func (d *RAMDirectory) Close() error { return nil }

// nowFunc is a seam for deterministic tests; production code always
// uses time.Now.
var nowFunc = time.Now
