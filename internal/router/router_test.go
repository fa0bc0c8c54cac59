package router

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/hostctl/internal/browser"
	"github.com/danmuck/hostctl/internal/executor"
	"github.com/danmuck/hostctl/internal/hostops"
	"github.com/danmuck/hostctl/internal/procs"
	"github.com/danmuck/hostctl/internal/session"
	"github.com/danmuck/hostctl/internal/testutil/testlog"
	"github.com/danmuck/hostctl/internal/transport"
)

const operatorID = int64(42)

type sentMsg struct {
	chatID int64
	text   string
	kb     transport.Keyboard
}

type fakeTransport struct {
	sent         []sentMsg
	codeSends    []sentMsg
	edits        []sentMsg
	acks         []string
	docs         []string
	photos       []string
	downloadBody string
	codeErr      error
}

func (f *fakeTransport) Receive(context.Context) ([]transport.Event, error) { return nil, nil }

func (f *fakeTransport) Send(chatID int64, text string, kb transport.Keyboard) error {
	f.sent = append(f.sent, sentMsg{chatID, text, kb})
	return nil
}

func (f *fakeTransport) SendCode(chatID int64, text string) error {
	if f.codeErr != nil {
		return f.codeErr
	}
	f.codeSends = append(f.codeSends, sentMsg{chatID: chatID, text: text})
	return nil
}

func (f *fakeTransport) Edit(chatID int64, _ int, text string, kb transport.Keyboard) error {
	f.edits = append(f.edits, sentMsg{chatID, text, kb})
	return nil
}

func (f *fakeTransport) Ack(callbackID, _ string) error {
	f.acks = append(f.acks, callbackID)
	return nil
}

func (f *fakeTransport) SendDocument(_ int64, path, _ string) error {
	f.docs = append(f.docs, path)
	return nil
}

func (f *fakeTransport) SendPhoto(_ int64, name string, _ []byte, _ string) error {
	f.photos = append(f.photos, name)
	return nil
}

func (f *fakeTransport) Download(transport.Document) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.downloadBody)), nil
}

type fakeHost struct {
	procs      []procs.Process
	names      map[int32]string
	terminated []int32
}

func (h *fakeHost) Processes() ([]procs.Process, error) { return h.procs, nil }

func (h *fakeHost) ProcessName(pid int32) (string, error) {
	if name, ok := h.names[pid]; ok {
		return name, nil
	}
	return "", procs.ErrNotFound
}

func (h *fakeHost) Terminate(pid int32, _ time.Duration) error {
	h.terminated = append(h.terminated, pid)
	return nil
}

type spyPower struct {
	calls []string
	err   error
}

func (p *spyPower) ScheduleShutdown(time.Duration) error {
	p.calls = append(p.calls, "shutdown")
	return p.err
}

func (p *spyPower) ScheduleReboot(time.Duration) error {
	p.calls = append(p.calls, "reboot")
	return p.err
}

func (p *spyPower) Cancel() error {
	p.calls = append(p.calls, "cancel")
	return p.err
}

type spyDesktop struct{ calls []string }

func (d *spyDesktop) Lock() error { d.calls = append(d.calls, "lock"); return nil }
func (d *spyDesktop) Volume(hostops.VolumeAction) error {
	d.calls = append(d.calls, "volume")
	return nil
}

type harness struct {
	router  *Router
	tr      *fakeTransport
	host    *fakeHost
	power   *spyPower
	desktop *spyDesktop
	dataDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tr := &fakeTransport{downloadBody: "payload"}
	host := &fakeHost{
		procs: []procs.Process{{PID: 100, Name: "notepad.exe", RSS: 50 << 20}},
		names: map[int32]string{100: "notepad.exe", 200: "lsass.exe"},
	}
	power := &spyPower{}
	desktop := &spyDesktop{}
	home := t.TempDir()
	dataDir := t.TempDir()
	r := New(Config{
		OperatorID:      operatorID,
		ShutdownDelay:   60 * time.Second,
		MessageMaxChars: 4000,
		DataDir:         dataDir,
	}, Deps{
		Transport: tr,
		Session:   session.New(home),
		Inventory: procs.New(host, nil, procs.DefaultConfig()),
		Browser:   browser.New(browser.DefaultConfig()),
		Executor:  executor.New(executor.Config{Timeout: 5 * time.Second, WorkDir: home}),
		Power:     power,
		Desktop:   desktop,
		Capture:   func() ([]byte, error) { return []byte("png"), nil },
	})
	return &harness{router: r, tr: tr, host: host, power: power, desktop: desktop, dataDir: dataDir}
}

func callback(token string) transport.Event {
	return transport.Event{SenderID: operatorID, ChatID: operatorID, MessageID: 1, Token: token, CallbackID: "cb"}
}

func TestUnauthorizedMessageGetsRefusal(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), transport.Event{SenderID: 666, ChatID: 666, Text: "whoami"})
	if len(h.tr.sent) != 1 || !strings.Contains(h.tr.sent[0].text, "denied") {
		t.Fatalf("expected a refusal message, got %+v", h.tr.sent)
	}
}

func TestUnauthorizedCallbackIsSilent(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	ev := callback("main_menu")
	ev.SenderID = 666
	h.router.HandleEvent(context.Background(), ev)
	if len(h.tr.sent)+len(h.tr.edits)+len(h.tr.acks) != 0 {
		t.Fatalf("unauthorized callback produced output: %+v %+v %+v", h.tr.sent, h.tr.edits, h.tr.acks)
	}
}

func TestUnknownTokenDroppedSilently(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), callback("proc_kill_bogus"))
	if len(h.tr.sent)+len(h.tr.edits)+len(h.tr.acks) != 0 {
		t.Fatalf("malformed token produced output")
	}
}

func TestMainMenuCallbackEdits(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), callback("main_menu"))
	if len(h.tr.acks) != 1 {
		t.Fatalf("callback not acknowledged")
	}
	if len(h.tr.edits) != 1 || len(h.tr.edits[0].kb) == 0 {
		t.Fatalf("menu not rendered in place: %+v", h.tr.edits)
	}
}

func TestKillProtectedNeverTerminates(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), callback("proc_kill_200")) // lsass.exe
	if len(h.host.terminated) != 0 {
		t.Fatalf("protected process reached Terminate: %v", h.host.terminated)
	}
	if len(h.tr.edits) != 1 || !strings.Contains(h.tr.edits[0].text, "protected") {
		t.Fatalf("operator not told about protection: %+v", h.tr.edits)
	}
}

func TestKillRefreshesProcessView(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), callback("proc_list_apps"))
	h.router.HandleEvent(context.Background(), callback("proc_kill_100"))
	if len(h.host.terminated) != 1 || h.host.terminated[0] != 100 {
		t.Fatalf("terminate not called: %v", h.host.terminated)
	}
	last := h.tr.edits[len(h.tr.edits)-1]
	if !strings.Contains(last.text, "Applications") {
		t.Fatalf("view not refreshed after kill: %q", last.text)
	}
}

func TestShutdownRequiresConfirmation(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), callback("shutdown"))
	if len(h.power.calls) != 0 {
		t.Fatalf("shutdown scheduled without confirmation")
	}
	h.router.HandleEvent(context.Background(), callback("shutdown_confirm"))
	if len(h.power.calls) != 1 || h.power.calls[0] != "shutdown" {
		t.Fatalf("confirmation did not schedule: %v", h.power.calls)
	}
}

func TestCancelCommand(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), transport.Event{
		SenderID: operatorID, ChatID: operatorID, Command: "cancel",
	})
	if len(h.power.calls) != 1 || h.power.calls[0] != "cancel" {
		t.Fatalf("cancel not forwarded: %v", h.power.calls)
	}
}

func TestScreenshotSendsPhoto(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), callback("screenshot"))
	if len(h.tr.photos) != 1 {
		t.Fatalf("screenshot not sent: %+v", h.tr.photos)
	}
}

func TestShellTextExecutes(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("sh semantics")
	}

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), transport.Event{
		SenderID: operatorID, ChatID: operatorID, Text: "echo hostctl-test",
	})
	if len(h.tr.codeSends) != 1 || !strings.Contains(h.tr.codeSends[0].text, "hostctl-test") {
		t.Fatalf("command output not relayed as a code block: %+v", h.tr.codeSends)
	}
}

func TestShellOutputFallsBackToPlain(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("sh semantics")
	}

	h := newHarness(t)
	h.tr.codeErr = errors.New("can't parse entities")
	h.router.HandleEvent(context.Background(), transport.Event{
		SenderID: operatorID, ChatID: operatorID, Text: "echo plain-road",
	})
	if len(h.tr.sent) != 1 || !strings.Contains(h.tr.sent[0].text, "plain-road") {
		t.Fatalf("formatting rejection did not fall back to plain text: %+v", h.tr.sent)
	}
}

func TestBlockedCommandRefused(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), transport.Event{
		SenderID: operatorID, ChatID: operatorID, Text: "rm -rf / --no-preserve-root",
	})
	if len(h.tr.sent) != 1 || !strings.Contains(h.tr.sent[0].text, "denylist") {
		t.Fatalf("blocked command not refused: %+v", h.tr.sent)
	}
}

func TestDocumentWithoutTargetPrompts(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), transport.Event{
		SenderID: operatorID, ChatID: operatorID,
		Document: &transport.Document{FileID: "f1", FileName: "a.bin", Size: 3},
	})
	if len(h.tr.sent) != 1 || !strings.Contains(h.tr.sent[0].text, "destination") {
		t.Fatalf("missing-target prompt absent: %+v", h.tr.sent)
	}
}

func TestUploadFlow(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	dest := t.TempDir()
	h.router.d.Session.SetUploadTarget(operatorID, dest)

	h.router.HandleEvent(context.Background(), transport.Event{
		SenderID: operatorID, ChatID: operatorID,
		Document: &transport.Document{FileID: "f1", FileName: "payload.bin", Size: 7},
	})
	if len(h.tr.sent) != 1 || !strings.Contains(h.tr.sent[0].text, "payload.bin") {
		t.Fatalf("confirmation prompt absent: %+v", h.tr.sent)
	}

	h.router.HandleEvent(context.Background(), callback("upload_confirm"))
	last := h.tr.edits[len(h.tr.edits)-1]
	if !strings.Contains(last.text, "Saved to") || !strings.Contains(last.text, dest) {
		t.Fatalf("upload not saved: %q", last.text)
	}

	// A second confirm has nothing staged.
	h.router.HandleEvent(context.Background(), callback("upload_confirm"))
	last = h.tr.edits[len(h.tr.edits)-1]
	if !strings.Contains(last.text, "Nothing") {
		t.Fatalf("stale confirm not rejected: %q", last.text)
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.d.Capture = func() ([]byte, error) { panic("boom") }
	h.router.HandleEvent(context.Background(), callback("screenshot"))
	// Reaching here is the assertion; the loop must survive.
	h.router.HandleEvent(context.Background(), callback("main_menu"))
	if len(h.tr.edits) == 0 {
		t.Fatalf("router dead after panic")
	}
}

func TestHandlerPanicReportedToOperator(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.d.Capture = func() ([]byte, error) {
		panic("capture driver exploded with a very long diagnostic nobody should see in full")
	}
	h.router.HandleEvent(context.Background(), callback("screenshot"))
	if len(h.tr.edits) != 1 {
		t.Fatalf("handler failure produced no operator-visible report: %+v", h.tr.edits)
	}
	got := h.tr.edits[0].text
	if !strings.HasPrefix(got, "Error: ") {
		t.Fatalf("report not marked as an error: %q", got)
	}
	if strings.Contains(got, "nobody should see") {
		t.Fatalf("report not truncated: %q", got)
	}
}

func TestPowerAckPrecedesAction(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.power.err = errors.New("shutdown utility missing")
	h.router.HandleEvent(context.Background(), callback("shutdown_confirm"))
	// The acknowledgement must land even though the OS action failed
	// after it.
	if len(h.tr.edits) != 1 || !strings.Contains(h.tr.edits[0].text, "Shutdown in") {
		t.Fatalf("acknowledgement missing or late: %+v", h.tr.edits)
	}
	if len(h.tr.sent) != 1 || !strings.Contains(h.tr.sent[0].text, "failed") {
		t.Fatalf("schedule failure not reported: %+v", h.tr.sent)
	}
}

func TestEmptyTextGetsUsageHint(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), transport.Event{
		SenderID: operatorID, ChatID: operatorID, Text: "  ",
	})
	if len(h.tr.sent) != 1 || !strings.Contains(h.tr.sent[0].text, "/start") {
		t.Fatalf("empty text did not get a usage hint: %+v", h.tr.sent)
	}
	if strings.Contains(h.tr.sent[0].text, "failed") {
		t.Fatalf("empty text reached the executor: %q", h.tr.sent[0].text)
	}
}

func TestBlockedCommandIsLogged(t *testing.T) {
	testlog.Start(t)

	h := newHarness(t)
	h.router.HandleEvent(context.Background(), transport.Event{
		SenderID: operatorID, ChatID: operatorID, Text: "rm -rf / --no-preserve-root",
	})
	data, err := os.ReadFile(filepath.Join(h.dataDir, "commands.log"))
	if err != nil {
		t.Fatalf("command log missing: %v", err)
	}
	if !strings.Contains(string(data), "blocked") || !strings.Contains(string(data), "rm -rf /") {
		t.Fatalf("blocked outcome not recorded: %q", data)
	}
}
