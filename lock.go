package columndb

// OS-level file locking used to enforce the single-process-writer
// non-goal: Open acquires an exclusive flock on a LOCK file under
// db_prefix so that a second process opening the same prefix waits for
// the first to release it instead of corrupting blob rotation state.
//
// fileLock wraps flock(2) / LockFileEx with a mutex that guards the file
// handle's lifetime. The mutex is held for the entire duration of the
// flock syscall so that Fd() cannot race with Close() on the same
// *os.File.
//
// Clearing the handle (setFile(nil), or release, which clears it the
// same way under mu) blocks until any in-flight flock completes, then
// makes subsequent Lock/Unlock calls no-ops. setFile(f) installs a
// handle and restores normal operation.
import (
	"os"
	"sync"
)

// LockMode selects shared (read) or exclusive (write) locking.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// fileLock coordinates OS-level file locks with safe handle teardown.
// The mu field serializes flock syscalls against setFile so that a
// concurrent Close cannot invalidate the fd mid-syscall.
type fileLock struct {
	mu sync.Mutex
	f  *os.File
}

// Lock acquires a shared or exclusive flock. Returns nil immediately if
// the handle has been cleared via setFile(nil).
func (l *fileLock) Lock(mode LockMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.lock(mode)
}

// Unlock releases the flock. Returns nil immediately if the handle has
// been cleared via setFile(nil).
func (l *fileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.unlock()
}

// setFile swaps the underlying file handle. Passing nil drains any
// in-flight flock (blocks until the mutex is available) and disables
// further locking. release clears the handle the same way inline
// before closing the fd.
func (l *fileLock) setFile(f *os.File) {
	l.mu.Lock()
	l.f = f
	l.mu.Unlock()
}

// acquireEngineLock opens (creating if needed) prefix/LOCK and takes an
// exclusive flock on it, blocking until it is available. It is called once from
// Open; the returned fileLock is released by Close.
func acquireEngineLock(prefix string) (*fileLock, error) {
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return nil, Class.Wrap(err)
	}
	f, err := os.OpenFile(prefix+"/LOCK", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	l := &fileLock{}
	l.setFile(f)
	if err := l.Lock(LockExclusive); err != nil {
		_ = f.Close()
		return nil, Class.Wrap(err)
	}
	return l, nil
}

func (l *fileLock) release() error {
	err := l.Unlock()
	l.mu.Lock()
	f := l.f
	l.f = nil
	l.mu.Unlock()
	if f != nil {
		_ = f.Close()
	}
	return err
}
