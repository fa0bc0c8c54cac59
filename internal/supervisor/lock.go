package supervisor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// ErrAlreadyRunning means a live agent instance holds the lock.
var ErrAlreadyRunning = errors.New("supervisor: another instance is running")

// Lock is a pid-file based single-instance guard. A lock left behind by
// a dead process is reclaimed, not treated as held.
type Lock struct {
	path string
	pid  int
}

// Acquire takes the lock at path or fails with ErrAlreadyRunning.
func Acquire(path string) (*Lock, error) {
	if raw, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil && pid > 0 {
			alive, err := process.PidExists(int32(pid))
			if err == nil && alive && pid != os.Getpid() {
				return nil, fmt.Errorf("%w: pid %d", ErrAlreadyRunning, pid)
			}
		}
		log.Info().Str("path", path).Msg("reclaiming stale lock")
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return nil, fmt.Errorf("supervisor: write lock %s: %w", path, err)
	}
	return &Lock{path: path, pid: pid}, nil
}

// Release removes the lock only if this process still owns it.
func (l *Lock) Release() {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	if pid, err := strconv.Atoi(strings.TrimSpace(string(raw))); err != nil || pid != l.pid {
		return
	}
	if err := os.Remove(l.path); err != nil {
		log.Debug().Err(err).Msg("lock removal failed")
	}
}
