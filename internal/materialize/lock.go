package materialize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"bidsify/internal/errs"
)

// LockFileName is created at the destination root while a real run writes.
const LockFileName = ".bidsify.lock"

// acquireLock takes an exclusive lock on the destination tree. The returned
// release func is safe to call once.
func acquireLock(destRoot string) (func() error, error) {
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrTransfer, "materialize", "create destination", destRoot, err)
	}
	lockPath := filepath.Join(destRoot, LockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errs.Wrap(errs.ErrLocked, "materialize", "acquire lock",
			fmt.Sprintf("another bidsify run is writing to %s", destRoot), nil)
	}
	return func() error {
		if err := lock.Unlock(); err != nil {
			return err
		}
		return os.Remove(lockPath)
	}, nil
}
