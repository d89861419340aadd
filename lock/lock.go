package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"ybctl/model"
)

// Lock is an advisory exclusive lock scoped to one data directory. The lock
// file sits next to the directory rather than inside it so that destroy can
// remove the directory while holding the lock.
type Lock struct {
	fl *flock.Flock
}

func Path(dataDir string) string {
	return filepath.Clean(dataDir) + ".lock"
}

// Acquire takes the lock without blocking. A concurrent holder is reported
// as a precondition failure.
func Acquire(dataDir string) (*Lock, error) {
	path := Path(dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("lock dir: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, model.Preconditionf("another ybctl is operating on %s (lock %s held)", dataDir, path)
	}
	return &Lock{fl: fl}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
