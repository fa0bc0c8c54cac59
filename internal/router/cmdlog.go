package router

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	cmdlogSizeLimit   = 10 << 20
	cmdlogKeepLines   = 1000
	cmdlogOutputChars = 200
)

// CommandLog is an append-only audit trail of executed shell commands.
// Once the file passes the size limit it is rewritten with only the
// most recent lines. Best-effort: logging failures never block a
// command.
type CommandLog struct {
	mu   sync.Mutex
	path string
}

// NewCommandLog returns a disabled log when dir is empty.
func NewCommandLog(dir string) *CommandLog {
	if dir == "" {
		return &CommandLog{}
	}
	return &CommandLog{path: filepath.Join(dir, "commands.log")}
}

// Append records one execution attempt: outcome (ok, blocked, timeout,
// error), exit code and a truncated single-line slice of the output.
func (c *CommandLog) Append(command, outcome string, exitCode int, output string) {
	if c == nil || c.path == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rotate()
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		log.Debug().Err(err).Msg("command log open failed")
		return
	}
	defer f.Close()
	line := fmt.Sprintf("%s\t%s\texit=%d\t%s\t%s\n",
		time.Now().Format(time.RFC3339), outcome, exitCode,
		flattenLine(command), truncate(flattenLine(output), cmdlogOutputChars))
	if _, err := f.WriteString(line); err != nil {
		log.Debug().Err(err).Msg("command log write failed")
	}
}

func flattenLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func (c *CommandLog) rotate() {
	fi, err := os.Stat(c.path)
	if err != nil || fi.Size() <= cmdlogSizeLimit {
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > cmdlogKeepLines {
		lines = lines[len(lines)-cmdlogKeepLines:]
	}
	if err := os.WriteFile(c.path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		log.Debug().Err(err).Msg("command log rotate failed")
	}
}
