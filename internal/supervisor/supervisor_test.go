package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/danmuck/hostctl/internal/testutil/testlog"
	"github.com/danmuck/hostctl/internal/transport"
)

type scriptedTransport struct {
	// script entries are either []transport.Event or error.
	script []any
	calls  int
}

func (s *scriptedTransport) Receive(context.Context) ([]transport.Event, error) {
	if s.calls >= len(s.script) {
		return nil, context.Canceled
	}
	step := s.script[s.calls]
	s.calls++
	if err, ok := step.(error); ok {
		return nil, err
	}
	return step.([]transport.Event), nil
}

func (s *scriptedTransport) Send(int64, string, transport.Keyboard) error    { return nil }
func (s *scriptedTransport) SendCode(int64, string) error                    { return nil }
func (s *scriptedTransport) Edit(int64, int, string, transport.Keyboard) error { return nil }
func (s *scriptedTransport) Ack(string, string) error                        { return nil }
func (s *scriptedTransport) SendDocument(int64, string, string) error        { return nil }
func (s *scriptedTransport) SendPhoto(int64, string, []byte, string) error   { return nil }
func (s *scriptedTransport) Download(transport.Document) (io.ReadCloser, error) {
	return nil, errors.New("unused")
}

func fastConfig() Config {
	return Config{
		ConflictWait:  time.Millisecond,
		TransportWait: time.Millisecond,
		RetryWait:     time.Millisecond,
	}
}

func TestRunDispatchesEvents(t *testing.T) {
	testlog.Start(t)

	tr := &scriptedTransport{script: []any{
		[]transport.Event{{Text: "one"}, {Text: "two"}},
	}}
	var got []string
	s := New(tr, func(_ context.Context, ev transport.Event) {
		got = append(got, ev.Text)
	}, fastConfig())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("events not dispatched in order: %v", got)
	}
}

func TestRunStopsOnAuthFailure(t *testing.T) {
	testlog.Start(t)

	tr := &scriptedTransport{script: []any{
		fmt.Errorf("%w: poll", transport.ErrUnauthorized),
		[]transport.Event{{Text: "never"}},
	}}
	s := New(tr, func(context.Context, transport.Event) {
		t.Fatalf("handler reached after fatal error")
	}, fastConfig())
	if err := s.Run(context.Background()); !errors.Is(err, transport.ErrUnauthorized) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if tr.calls != 1 {
		t.Fatalf("poll retried after fatal error: %d calls", tr.calls)
	}
}

func TestRunRecoversFromConflict(t *testing.T) {
	testlog.Start(t)

	tr := &scriptedTransport{script: []any{
		fmt.Errorf("%w: poll", transport.ErrConflict),
		[]transport.Event{{Text: "after"}},
	}}
	var got []string
	s := New(tr, func(_ context.Context, ev transport.Event) {
		got = append(got, ev.Text)
	}, fastConfig())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 1 || got[0] != "after" {
		t.Fatalf("loop did not resume after conflict: %v", got)
	}
}

func TestClassifyTiers(t *testing.T) {
	testlog.Start(t)

	cfg := Config{ConflictWait: 30 * time.Second, TransportWait: 10 * time.Second, RetryWait: 5 * time.Second}
	s := New(&scriptedTransport{}, nil, cfg)

	class, wait := s.classify(fmt.Errorf("%w: x", transport.ErrConflict))
	if class != "conflict" || wait != cfg.ConflictWait {
		t.Fatalf("conflict tier wrong: %s %v", class, wait)
	}
	class, wait = s.classify(&net.OpError{Op: "dial", Err: errors.New("refused")})
	if class != "transport" || wait != cfg.TransportWait {
		t.Fatalf("transport tier wrong: %s %v", class, wait)
	}
	class, wait = s.classify(errors.New("surprise"))
	if class != "unexpected" || wait != cfg.RetryWait {
		t.Fatalf("unexpected tier wrong: %s %v", class, wait)
	}
}

func TestStopFlag(t *testing.T) {
	testlog.Start(t)

	tr := &scriptedTransport{script: []any{
		[]transport.Event{{Text: "a"}, {Text: "b"}},
	}}
	var got int
	var s *Supervisor
	s = New(tr, func(context.Context, transport.Event) {
		got++
		s.Stop()
	}, fastConfig())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != 1 {
		t.Fatalf("stop flag ignored mid-batch: %d events handled", got)
	}
}

func TestNextDelayGrowsAndCaps(t *testing.T) {
	testlog.Start(t)

	base := 10 * time.Second
	if d := NextDelay(base, 0, nil); d != base {
		t.Fatalf("attempt 0: %v", d)
	}
	if d := NextDelay(base, 1, nil); d != 2*base {
		t.Fatalf("attempt 1: %v", d)
	}
	if d := NextDelay(base, 10, nil); d != 5*base {
		t.Fatalf("cap not applied: %v", d)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		d := NextDelay(base, 2, rng)
		if d < 32*time.Second || d > 48*time.Second {
			t.Fatalf("jitter outside ±20%%: %v", d)
		}
	}
}

func TestLockAcquireAndReclaim(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "agent.lock")
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock: %v", err)
	}
	if raw2 := strconv.Itoa(os.Getpid()); string(raw) != raw2 {
		t.Fatalf("lock holds %q, want own pid", raw)
	}
	l.Release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("lock not removed on release")
	}

	// A lock naming a dead pid is reclaimed.
	if err := os.WriteFile(path, []byte("999999"), 0o600); err != nil {
		t.Fatalf("seed stale lock: %v", err)
	}
	l, err = Acquire(path)
	if err != nil {
		t.Fatalf("stale lock not reclaimed: %v", err)
	}
	l.Release()
}

func TestLockReleaseLeavesForeignLock(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "agent.lock")
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// Another instance overwrote the lock; release must not delete it.
	if err := os.WriteFile(path, []byte("12345"), 0o600); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	l.Release()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("foreign lock removed: %v", err)
	}
}
