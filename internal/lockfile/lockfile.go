// Package lockfile enforces SparkQ's single-writer-process invariant
// (spec §6.3): only one sparkqd process may hold a given database file
// open at a time, enforced with an advisory flock(2) on a sidecar file
// rather than relying on SQLite's own busy-timeout alone.
package lockfile

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Lock holds an acquired advisory file lock. Release releases it.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) dbPath+".lock" and takes a
// non-blocking exclusive flock on it. If another process already holds
// it, the returned error names the lockfile as locked by another sparkqd
// process.
func Acquire(dbPath string) (*Lock, error) {
	path := dbPath + ".lock"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open lockfile")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s is locked by another sparkqd process", path)
		}
		return nil, errors.Wrap(err, "flock lockfile")
	}
	return &Lock{f: f}, nil
}

// Release drops the flock and closes the sidecar file. It does not
// remove the file — the next Acquire reuses it.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return errors.Wrap(err, "unlock lockfile")
	}
	return l.f.Close()
}
