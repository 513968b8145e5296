package world

import (
	"fmt"
	"os"
	"path/filepath"
)

// sessionLockFile is the name of the file in the world directory that is
// locked while a Level has the world open.
const sessionLockFile = "session.lock"

// sessionLock is an exclusive lock on the session lock file of a world
// directory, held for the lifetime of a Level.
type sessionLock struct {
	f *os.File
}

// acquireSessionLock opens the session lock file in the directory passed and
// locks it. ErrSessionLocked is returned if another Level holds the lock.
func acquireSessionLock(dir string) (*sessionLock, error) {
	f, err := os.OpenFile(filepath.Join(dir, sessionLockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session lock: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &sessionLock{f: f}, nil
}

// release unlocks and closes the session lock file.
func (s *sessionLock) release() error {
	if err := unlockFile(s.f); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("release session lock: %w", err)
	}
	return s.f.Close()
}
