package store

import (
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/op/go-logging"
)

var lockLog = logging.MustGetLogger("store")

// LockManager coordinates the two logical locks held per directory: a
// shared, reference-counted read lock held for the lifetime of every
// open index, and an exclusive write lock held by the writer across
// any mutation of the segments_N file or segment-file deletions.
// Reworked from core/store/directory.go's Lock interface as a lockfile
// with owner-PID recovery rather than a platform-specific flock.
type LockManager struct {
	dir Directory

	mu       sync.Mutex
	readRefs int
}

func newLockManager(dir Directory) *LockManager {
	return &LockManager{dir: dir}
}

const (
	readLockName  = "read.lock"
	writeLockName = "write.lock"
)

// AcquireRead increments the shared read-lock reference count, creating
// the on-disk lockfile on the first acquire. ReleaseRead must be called
// exactly once per AcquireRead.
func (m *LockManager) AcquireRead() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readRefs == 0 {
		if err := m.writePidLock(readLockName); err != nil {
			return err
		}
	}
	m.readRefs++
	return nil
}

func (m *LockManager) ReleaseRead() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readRefs == 0 {
		return New(Runtime, "read lock released without a matching acquire")
	}
	m.readRefs--
	if m.readRefs == 0 {
		return m.dir.Delete(readLockName)
	}
	return nil
}

// AcquireWrite obtains the exclusive write lock, stealing a stale
// lockfile left by a dead process (identified by the PID recorded
// inside it). Returns a Runtime error — "Can't obtain exclusive index
// lock" — on contention with a live owner, matching
// literal error text so callers can retry or fail on it.
func (m *LockManager) AcquireWrite() error {
	if exists, pid := m.lockOwner(writeLockName); exists {
		if processAlive(pid) {
			return New(Runtime, "Can't obtain exclusive index lock")
		}
		lockLog.Warningf("stealing write lock held by dead process %d", pid)
	}
	return m.writePidLock(writeLockName)
}

func (m *LockManager) ReleaseWrite() error {
	return m.dir.Delete(writeLockName)
}

func (m *LockManager) writePidLock(name string) error {
	w, err := m.dir.Create(name)
	if err != nil {
		return Wrap(err, Runtime, "creating lockfile %s", name)
	}
	if err := w.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (m *LockManager) lockOwner(name string) (exists bool, pid int) {
	if !m.dir.Exists(name) {
		return false, 0
	}
	r, err := m.dir.Open(name, false)
	if err != nil {
		return true, -1
	}
	defer r.Close()
	raw, err := r.ReadString()
	if err != nil {
		return true, -1
	}
	pid, err = strconv.Atoi(raw)
	if err != nil {
		return true, -1
	}
	return true, pid
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// WithWriteLock runs fn while holding the exclusive write lock,
// releasing it (even on panic) before returning. Any AcquireWrite error
// is returned directly without invoking fn.
func (m *LockManager) WithWriteLock(fn func() error) error {
	if err := m.AcquireWrite(); err != nil {
		return err
	}
	defer func() {
		if err := m.ReleaseWrite(); err != nil {
			lockLog.Warningf("releasing write lock: %v", err)
		}
	}()
	return fn()
}

// pollSegmentsGen implements the generation-witness retry loop: sleep
// 50ms between reads of segments.gen up to 10 times until the two
// recorded generations agree.
func pollSegmentsGen(read func() (gen, repeat int64, err error)) (int64, error) {
	const (
		maxAttempts = 10
		interval    = 50 * time.Millisecond
	)
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		gen, repeat, err := read()
		if err == nil && gen == repeat {
			return gen, nil
		}
		lastErr = err
		time.Sleep(interval)
	}
	if lastErr != nil {
		return 0, Wrap(lastErr, Runtime, "Index is under processing now")
	}
	return 0, New(Runtime, "Index is under processing now")
}
