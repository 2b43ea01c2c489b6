package fsstore

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// ErrLocked is returned by AcquireLock when another live process holds
// the lock on this memory_base_path.
var ErrLocked = errors.New("fsstore: memory_base_path is locked by another process")

// AcquireLock creates the base path's .lock file exclusively, recording
// the current PID. Two sessions on the same path are not supported;
// a stale lock left by a process that no longer exists is cleaned up
// automatically.
func (s *Store) AcquireLock() error {
	path := s.LockPath()

	if data, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && pid > 0 {
			if processAlive(pid) {
				return ErrLocked
			}
		}
		// Stale lock: owning process is gone.
		_ = os.Remove(path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrLocked
		}
		return fmt.Errorf("fsstore: acquire lock: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	return err
}

// ReleaseLock removes the lock file. Called on session Close().
func (s *Store) ReleaseLock() error {
	err := os.Remove(s.LockPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Windows FindProcess fails for a PID with no process, and Signal
	// cannot probe liveness, so a process that was found counts as alive.
	if runtime.GOOS == "windows" {
		return true
	}
	// On Unix, FindProcess always succeeds; Signal(0) is the standard
	// liveness probe without actually sending a signal.
	return proc.Signal(syscallSig0()) == nil
}
