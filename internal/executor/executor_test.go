package executor

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/danmuck/hostctl/internal/testutil/testlog"
)

func TestBlockedNeverSpawns(t *testing.T) {
	testlog.Start(t)

	e := New(Config{Timeout: time.Second})
	start := time.Now()
	_, err := e.Run(context.Background(), `DEL /F /S /Q C:\`)
	if !errors.Is(err, ErrCommandBlocked) {
		t.Fatalf("expected ErrCommandBlocked, got %v", err)
	}
	// A blocked command returns without shelling out.
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("blocked command took too long, likely spawned")
	}
}

func TestDenylistExtension(t *testing.T) {
	testlog.Start(t)

	e := New(Config{Timeout: time.Second, DenyPatterns: []string{"dd if="}})
	if !e.Blocked("sudo DD IF=/dev/zero of=/dev/sda") {
		t.Fatalf("configured pattern not matched")
	}
	if e.Blocked("echo hello") {
		t.Fatalf("benign command blocked")
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("sh semantics")
	}

	e := New(Config{Timeout: 5 * time.Second})
	res, err := e.Run(context.Background(), "echo out; echo err 1>&2; exit 3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Fatalf("streams not merged: %q", res.Output)
	}
	if !strings.Contains(res.Output, "--- errors ---") {
		t.Fatalf("missing divider: %q", res.Output)
	}
}

func TestRunTimeout(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("sh semantics")
	}

	e := New(Config{Timeout: 100 * time.Millisecond})
	_, err := e.Run(context.Background(), "sleep 5")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRunRejectsEmpty(t *testing.T) {
	testlog.Start(t)

	e := New(Config{Timeout: time.Second})
	if _, err := e.Run(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestDecodeOutputFallback(t *testing.T) {
	testlog.Start(t)

	if got := decodeOutput([]byte("plain utf-8 ✓")); got != "plain utf-8 ✓" {
		t.Fatalf("utf-8 passthrough broken: %q", got)
	}

	// cp866-encoded Cyrillic must decode through the fallback chain.
	enc, err := charmap.CodePage866.NewEncoder().String("Отказано в доступе")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	got := decodeOutput([]byte(enc))
	if !strings.Contains(got, "Отказано") {
		t.Fatalf("legacy code page not recovered: %q", got)
	}
	if strings.ContainsRune(got, '\uFFFD') {
		t.Fatalf("replacement runes leaked: %q", got)
	}
}
