package procs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// GopsutilHost is the production Host backed by gopsutil.
type GopsutilHost struct{}

func (GopsutilHost) Processes() ([]Process, error) {
	list, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("procs: enumerate: %w", err)
	}
	out := make([]Process, 0, len(list))
	for _, p := range list {
		// Partial failure is normal: processes vanish and deny access
		// mid-enumeration.
		name, err := p.Name()
		if err != nil {
			continue
		}
		var rss uint64
		if mem, err := p.MemoryInfo(); err == nil && mem != nil {
			rss = mem.RSS
		}
		out = append(out, Process{PID: p.Pid, Name: name, RSS: rss})
	}
	return out, nil
}

func (GopsutilHost) ProcessName(pid int32) (string, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return "", fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	name, err := p.Name()
	if err != nil {
		return "", mapHostError(pid, err)
	}
	return name, nil
}

func (GopsutilHost) Terminate(pid int32, grace time.Duration) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	if err := p.Terminate(); err != nil {
		return mapHostError(pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		running, err := p.IsRunning()
		if err != nil || !running {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := p.Kill(); err != nil {
		return mapHostError(pid, err)
	}
	return nil
}

func mapHostError(pid int32, err error) error {
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	if errors.Is(err, os.ErrPermission) ||
		strings.Contains(strings.ToLower(err.Error()), "access") {
		return fmt.Errorf("%w: pid %d", ErrAccessDenied, pid)
	}
	// Anything unrecognized stays generic; reporting it as a
	// permission problem would mislead the operator.
	return fmt.Errorf("procs: pid %d: %w", pid, err)
}
