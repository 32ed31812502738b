package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FSDirectory is the filesystem-backed Directory implementation: one
// real file per logical name, plus a per-process cache of shared read
// handles so large merges don't exhaust OS file descriptors, with an
// explicit Purge(name) escape hatch for evicting a cached handle
// without touching the file it backs.
type FSDirectory struct {
	path string

	mu     sync.Mutex
	cached map[string]*fsReader
	locks  *LockManager
}

func OpenFSDirectory(path string) (*FSDirectory, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, Wrap(err, Runtime, "creating directory %s", path)
	}
	d := &FSDirectory{path: path, cached: make(map[string]*fsReader)}
	d.locks = newLockManager(d)
	return d, nil
}

func (d *FSDirectory) full(name string) string {
	return filepath.Join(d.path, name)
}

func (d *FSDirectory) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, Wrap(err, Runtime, "listing %s", d.path)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *FSDirectory) Exists(name string) bool {
	_, err := os.Stat(d.full(name))
	return err == nil
}

func (d *FSDirectory) Length(name string) (int64, error) {
	fi, err := os.Stat(d.full(name))
	if err != nil {
		return 0, Wrap(err, Runtime, "stat %s", name)
	}
	return fi.Size(), nil
}

func (d *FSDirectory) ModTime(name string) (time.Time, error) {
	fi, err := os.Stat(d.full(name))
	if err != nil {
		return time.Time{}, Wrap(err, Runtime, "stat %s", name)
	}
	return fi.ModTime(), nil
}

func (d *FSDirectory) Touch(name string) error {
	now := nowFunc()
	return os.Chtimes(d.full(name), now, now)
}

// Delete removes name and invalidates any cached shared handle for it.
func (d *FSDirectory) Delete(name string) error {
	d.purgeLocked(name)
	if err := os.Remove(d.full(name)); err != nil {
		return Wrap(err, Runtime, "deleting %s", name)
	}
	return nil
}

// Rename atomically replaces to with from's contents (os.Rename already
// gives POSIX atomic-replace semantics) and invalidates both names'
// cached handles.
func (d *FSDirectory) Rename(from, to string) error {
	d.purgeLocked(from)
	d.purgeLocked(to)
	if err := os.Rename(d.full(from), d.full(to)); err != nil {
		return Wrap(err, Runtime, "renaming %s to %s", from, to)
	}
	return nil
}

func (d *FSDirectory) Create(name string) (Writer, error) {
	f, err := os.OpenFile(d.full(name), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, Wrap(err, Runtime, "creating %s", name)
	}
	return newFSWriter(f), nil
}

// Open returns a Reader over name. Shared readers are cached one handle
// per name; callers must not close a shared handle themselves — Close
// flushes and closes every cached handle. Non-shared readers always get
// a fresh *os.File with an independent cursor.
func (d *FSDirectory) Open(name string, shared bool) (Reader, error) {
	size, err := d.Length(name)
	if err != nil {
		return nil, err
	}
	if shared {
		d.mu.Lock()
		defer d.mu.Unlock()
		if r, ok := d.cached[name]; ok {
			return r, nil
		}
		f, err := os.Open(d.full(name))
		if err != nil {
			return nil, Wrap(err, Runtime, "opening %s", name)
		}
		r := newFSReader(f, 0, size, true)
		d.cached[name] = r
		return r, nil
	}
	f, err := os.Open(d.full(name))
	if err != nil {
		return nil, Wrap(err, Runtime, "opening %s", name)
	}
	return newFSReader(f, 0, size, true), nil
}

// Purge evicts and closes the cached shared handle for name, if any,
// without deleting the underlying file, to avoid exhausting
// descriptors during large merges.
func (d *FSDirectory) Purge(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purgeLockedNoLock(name)
}

func (d *FSDirectory) purgeLocked(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purgeLockedNoLock(name)
}

func (d *FSDirectory) purgeLockedNoLock(name string) {
	if r, ok := d.cached[name]; ok {
		r.Close()
		delete(d.cached, name)
	}
}

func (d *FSDirectory) Lock() *LockManager { return d.locks }

func (d *FSDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for name, r := range d.cached {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.cached, name)
	}
	return firstErr
}
