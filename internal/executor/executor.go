// Package executor runs operator shell commands under a hard timeout,
// behind a substring denylist, and normalizes the output encoding.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrCommandBlocked = errors.New("executor: command blocked")
	ErrTimeout        = errors.New("executor: command timed out")
)

// baseDenyPatterns are matched case-insensitively as substrings against
// the raw command line. The list is a tripwire for the obviously
// destructive, not a sandbox.
var baseDenyPatterns = []string{
	"format",
	"del /f /s /q",
	"rmdir /s /q",
	"rm -rf /",
	"mkfs",
}

type Config struct {
	Timeout time.Duration
	// WorkDir is the working directory for every command, normally the
	// operator home.
	WorkDir string
	// DenyPatterns extends the built-in denylist.
	DenyPatterns []string
}

func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second}
}

// Result carries the merged, decoded output of a finished command.
// A non-zero exit code is an outcome, not an error.
type Result struct {
	Output   string
	ExitCode int
	Elapsed  time.Duration
}

type Executor struct {
	cfg  Config
	deny []string
}

func New(cfg Config) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	deny := make([]string, 0, len(baseDenyPatterns)+len(cfg.DenyPatterns))
	for _, p := range append(append([]string{}, baseDenyPatterns...), cfg.DenyPatterns...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			deny = append(deny, p)
		}
	}
	return &Executor{cfg: cfg, deny: deny}
}

// Blocked reports whether the command matches the denylist.
func (e *Executor) Blocked(command string) bool {
	lowered := strings.ToLower(command)
	for _, p := range e.deny {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// Run executes the command through the platform shell. Blocked commands
// never spawn a process. Stderr is appended to stdout under a divider so
// the operator sees both streams in order.
func (e *Executor) Run(ctx context.Context, command string) (Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{}, fmt.Errorf("executor: empty command")
	}
	if e.Blocked(command) {
		log.Warn().Str("command", command).Msg("command blocked by denylist")
		return Result{}, ErrCommandBlocked
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	cmd := shellCommand(ctx, command)
	cmd.Dir = e.cfg.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		log.Warn().Str("command", command).Dur("elapsed", elapsed).Msg("command timed out")
		return Result{Elapsed: elapsed}, fmt.Errorf("%w after %s", ErrTimeout, e.cfg.Timeout)
	}

	res := Result{
		Output:  mergeStreams(stdout.Bytes(), stderr.Bytes()),
		Elapsed: elapsed,
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Result{}, fmt.Errorf("executor: run %q: %w", command, runErr)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	log.Debug().Str("command", command).Int("exit", res.ExitCode).Dur("elapsed", elapsed).Msg("command finished")
	return res, nil
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

func mergeStreams(stdout, stderr []byte) string {
	out := strings.TrimRight(decodeOutput(stdout), "\r\n")
	errText := strings.TrimRight(decodeOutput(stderr), "\r\n")
	switch {
	case out == "":
		return errText
	case errText == "":
		return out
	default:
		return out + "\n--- errors ---\n" + errText
	}
}
