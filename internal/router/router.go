// Package router turns operator events into handler calls. It owns the
// authorization boundary, the callback-token dispatch and the panic
// recovery around every handler.
package router

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hostctl/internal/action"
	"github.com/danmuck/hostctl/internal/browser"
	"github.com/danmuck/hostctl/internal/executor"
	"github.com/danmuck/hostctl/internal/hostops"
	"github.com/danmuck/hostctl/internal/observability"
	"github.com/danmuck/hostctl/internal/procs"
	"github.com/danmuck/hostctl/internal/session"
	"github.com/danmuck/hostctl/internal/transport"
)

// PowerController schedules host power transitions.
type PowerController interface {
	ScheduleShutdown(time.Duration) error
	ScheduleReboot(time.Duration) error
	Cancel() error
}

// DesktopController covers session lock and volume keys.
type DesktopController interface {
	Lock() error
	Volume(hostops.VolumeAction) error
}

type Config struct {
	// OperatorID is the only sender whose events are handled.
	OperatorID      int64
	ShutdownDelay   time.Duration
	MessageMaxChars int
	// DataDir holds the command log; empty disables it.
	DataDir string
}

// Deps carries the router's collaborators. Everything is an interface
// or a struct the tests can fake.
type Deps struct {
	Transport transport.Transport
	Session   *session.State
	Inventory *procs.Inventory
	Browser   *browser.Browser
	Executor  *executor.Executor
	Power     PowerController
	Desktop   DesktopController
	// Capture returns a PNG of the primary display.
	Capture func() ([]byte, error)
}

type Router struct {
	cfg    Config
	d      Deps
	cmdlog *CommandLog
}

func New(cfg Config, d Deps) *Router {
	if cfg.MessageMaxChars <= 0 {
		cfg.MessageMaxChars = 4000
	}
	if cfg.ShutdownDelay <= 0 {
		cfg.ShutdownDelay = 60 * time.Second
	}
	return &Router{cfg: cfg, d: d, cmdlog: NewCommandLog(cfg.DataDir)}
}

// HandleEvent processes one operator event. It never returns an error
// and never panics: a handler failure is reported to the operator (or
// logged) and the loop moves on.
func (r *Router) HandleEvent(ctx context.Context, ev transport.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("token", ev.Token).Msg("handler panicked")
			observability.EventsTotal.WithLabelValues(eventKind(ev), "panic").Inc()
			r.reportFailure(ev, rec)
		}
	}()

	if ev.SenderID != r.cfg.OperatorID {
		observability.EventsTotal.WithLabelValues(eventKind(ev), "denied").Inc()
		log.Warn().Int64("sender", ev.SenderID).Msg("event from unauthorized sender")
		// A stray message gets a refusal; a stray button press gets
		// nothing at all, not even an acknowledgement.
		if !ev.IsCallback() {
			r.send(ev.ChatID, "Access denied.", nil)
		}
		return
	}

	switch {
	case ev.IsCallback():
		r.handleCallback(ctx, ev)
	case ev.Document != nil:
		r.handleDocument(ctx, ev)
	case ev.Command != "":
		r.handleCommand(ctx, ev)
	default:
		r.handleShellText(ctx, ev)
	}
}

func (r *Router) handleCallback(ctx context.Context, ev transport.Event) {
	act, err := action.Parse(ev.Token)
	if err != nil {
		// Unknown or malformed tokens drop silently.
		log.Debug().Str("token", ev.Token).Msg("unparseable callback token dropped")
		observability.EventsTotal.WithLabelValues("callback", "dropped").Inc()
		return
	}
	r.ack(ev.CallbackID, "")
	observability.EventsTotal.WithLabelValues("callback", "ok").Inc()

	switch act.Verb {
	case action.VerbMainMenu:
		r.edit(ev, mainMenuText(), mainMenuKeyboard())
	case action.VerbScreenshot:
		r.screenshot(ev)
	case action.VerbShutdown:
		r.edit(ev, fmt.Sprintf("Shut down the host in %s?", r.cfg.ShutdownDelay), confirmKeyboard("Shut down", "shutdown_confirm"))
	case action.VerbShutdownConfirm:
		r.powerTransition(ev, false)
	case action.VerbReboot:
		r.edit(ev, fmt.Sprintf("Reboot the host in %s?", r.cfg.ShutdownDelay), confirmKeyboard("Reboot", "reboot_confirm"))
	case action.VerbRebootConfirm:
		r.powerTransition(ev, true)
	case action.VerbLockScreen:
		r.reportOp(ev, "Screen locked.", r.d.Desktop.Lock())
	case action.VerbVolumeMenu:
		r.edit(ev, "Volume control", volumeKeyboard())
	case action.VerbVolumeMute:
		r.reportOp(ev, "Muted.", r.d.Desktop.Volume(hostops.VolumeMute))
	case action.VerbVolumeUp:
		r.reportOp(ev, "Volume up.", r.d.Desktop.Volume(hostops.VolumeUp))
	case action.VerbVolumeDown:
		r.reportOp(ev, "Volume down.", r.d.Desktop.Volume(hostops.VolumeDown))
	case action.VerbProcMenu:
		r.edit(ev, "Processes", procMenuKeyboard())
	case action.VerbProcList:
		r.showProcPage(ev, act.Category, 0)
	case action.VerbProcPage:
		r.showProcPage(ev, act.Category, act.Page)
	case action.VerbProcKill:
		r.killProcess(ev, act.PID)
	case action.VerbFileManager:
		r.showListing(ev, r.d.Session.CurrentDir(), 0)
	case action.VerbFileNav:
		r.showListing(ev, act.Path, 0)
	case action.VerbFilePage:
		r.showListing(ev, act.Path, act.Page)
	case action.VerbFileDir:
		r.showDirMenu(ev, act.Path)
	case action.VerbFileInfo:
		r.showFileInfo(ev, act.Path)
	case action.VerbFileDownload:
		r.offerDownload(ev, act.Path)
	case action.VerbFileDownloadConfirm:
		r.sendFile(ev, act.Path)
	case action.VerbFileZip:
		r.offerArchive(ev, act.Path)
	case action.VerbFileZipConfirm:
		r.sendArchive(ev, act.Path)
	case action.VerbFileUpload:
		r.armUpload(ev, act.Path)
	case action.VerbUploadConfirm:
		r.confirmUpload(ctx, ev)
	case action.VerbUploadCancel:
		r.cancelUpload(ev)
	default:
		log.Debug().Str("token", ev.Token).Msg("verb without handler dropped")
	}
}

func (r *Router) handleCommand(ctx context.Context, ev transport.Event) {
	observability.EventsTotal.WithLabelValues("command", "ok").Inc()
	switch ev.Command {
	case "start", "menu":
		r.send(ev.ChatID, mainMenuText(), mainMenuKeyboard())
	case "cancel":
		r.sendOp(ev.ChatID, "Pending shutdown cancelled.", r.d.Power.Cancel())
	case "cmd":
		r.runShell(ctx, ev.ChatID, ev.CommandArgs)
	case "help":
		r.send(ev.ChatID, helpText(), nil)
	default:
		r.send(ev.ChatID, "Unknown command. /help lists what I understand.", nil)
	}
}

// handleShellText treats plain operator text as a shell command.
// Stickers and media arrive as empty text and get a usage hint instead.
func (r *Router) handleShellText(ctx context.Context, ev transport.Event) {
	observability.EventsTotal.WithLabelValues("message", "ok").Inc()
	if strings.TrimSpace(ev.Text) == "" {
		r.send(ev.ChatID, helpText(), nil)
		return
	}
	r.runShell(ctx, ev.ChatID, ev.Text)
}

// reportFailure tells the operator a handler crashed, with a truncated
// reason. A button must never die silently after its acknowledgement.
func (r *Router) reportFailure(ev transport.Event, rec any) {
	if ev.SenderID != r.cfg.OperatorID {
		return
	}
	msg := "Error: " + truncate(fmt.Sprint(rec), 50)
	if ev.IsCallback() {
		r.edit(ev, msg, backKeyboard())
		return
	}
	r.send(ev.ChatID, msg, nil)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func eventKind(ev transport.Event) string {
	switch {
	case ev.IsCallback():
		return "callback"
	case ev.Document != nil:
		return "document"
	case ev.Command != "":
		return "command"
	default:
		return "message"
	}
}

// send, edit and ack log transport failures instead of propagating
// them; there is nobody upstream to hand the error to.
func (r *Router) send(chatID int64, text string, kb transport.Keyboard) {
	if err := r.d.Transport.Send(chatID, text, kb); err != nil {
		log.Warn().Err(err).Msg("send failed")
	}
}

func (r *Router) edit(ev transport.Event, text string, kb transport.Keyboard) {
	if err := r.d.Transport.Edit(ev.ChatID, ev.MessageID, text, kb); err != nil {
		log.Warn().Err(err).Msg("edit failed")
	}
}

func (r *Router) ack(callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := r.d.Transport.Ack(callbackID, text); err != nil {
		log.Debug().Err(err).Msg("callback ack failed")
	}
}

// reportOp edits the message with either the success text or the error.
func (r *Router) reportOp(ev transport.Event, okText string, err error) {
	if err != nil {
		if errors.Is(err, hostops.ErrUnsupported) {
			r.edit(ev, "Not supported on this host.", backKeyboard())
			return
		}
		r.edit(ev, "Failed: "+err.Error(), backKeyboard())
		return
	}
	r.edit(ev, okText, backKeyboard())
}

// sendOp is reportOp for command-message contexts.
func (r *Router) sendOp(chatID int64, okText string, err error) {
	if err != nil {
		r.send(chatID, "Failed: "+err.Error(), nil)
		return
	}
	r.send(chatID, okText, nil)
}

func (r *Router) screenshot(ev transport.Event) {
	if r.d.Capture == nil {
		r.reportOp(ev, "", hostops.ErrUnsupported)
		return
	}
	data, err := r.d.Capture()
	if err != nil {
		r.reportOp(ev, "", err)
		return
	}
	stamp := time.Now().Format("2006-01-02_15-04-05")
	if err := r.d.Transport.SendPhoto(ev.ChatID, "screen_"+stamp+".png", data, "Screen at "+stamp); err != nil {
		log.Warn().Err(err).Msg("screenshot send failed")
	}
}

func (r *Router) powerTransition(ev transport.Event, reboot bool) {
	verb := "Shutdown"
	if reboot {
		verb = "Reboot"
	}
	// Acknowledge before touching the OS: the transition may cut the
	// connection, and the operator must know it was accepted.
	r.edit(ev, fmt.Sprintf("%s in %s. Send /cancel to abort.", verb, r.cfg.ShutdownDelay), nil)

	var err error
	if reboot {
		err = r.d.Power.ScheduleReboot(r.cfg.ShutdownDelay)
	} else {
		err = r.d.Power.ScheduleShutdown(r.cfg.ShutdownDelay)
	}
	if err != nil {
		r.send(ev.ChatID, verb+" failed: "+err.Error(), nil)
	}
}

func (r *Router) runShell(ctx context.Context, chatID int64, command string) {
	res, err := r.d.Executor.Run(ctx, command)
	switch {
	case errors.Is(err, executor.ErrCommandBlocked):
		observability.CommandsTotal.WithLabelValues("blocked").Inc()
		r.cmdlog.Append(command, "blocked", 0, "")
		r.send(chatID, "Command refused: it matches the denylist.", nil)
		return
	case errors.Is(err, executor.ErrTimeout):
		observability.CommandsTotal.WithLabelValues("timeout").Inc()
		r.cmdlog.Append(command, "timeout", 0, "")
		r.send(chatID, "Command timed out.", nil)
		return
	case err != nil:
		observability.CommandsTotal.WithLabelValues("error").Inc()
		r.cmdlog.Append(command, "error", 0, err.Error())
		r.send(chatID, "Command failed: "+err.Error(), nil)
		return
	}
	observability.CommandsTotal.WithLabelValues("ok").Inc()
	r.cmdlog.Append(command, "ok", res.ExitCode, res.Output)

	if res.Output == "" {
		r.send(chatID, fmt.Sprintf("Command finished with exit code %d.", res.ExitCode), nil)
		return
	}
	if len(res.Output) > r.cfg.MessageMaxChars {
		r.sendAsFile(chatID, res.Output)
		return
	}
	// Monospace rendering first; output that happens to look like
	// markup can be rejected, and plain text always goes through.
	if err := r.d.Transport.SendCode(chatID, res.Output); err != nil {
		log.Debug().Err(err).Msg("formatted send rejected, falling back to plain")
		r.send(chatID, res.Output, nil)
	}
}

// sendAsFile ships oversized command output as a text attachment.
func (r *Router) sendAsFile(chatID int64, out string) {
	tmp, err := os.CreateTemp("", "output-*.txt")
	if err != nil {
		log.Warn().Err(err).Msg("output spill failed")
		r.send(chatID, out[:r.cfg.MessageMaxChars], nil)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(out); err != nil {
		tmp.Close()
		log.Warn().Err(err).Msg("output spill write failed")
		return
	}
	tmp.Close()
	if err := r.d.Transport.SendDocument(chatID, tmp.Name(), "Command output"); err != nil {
		log.Warn().Err(err).Msg("output document send failed")
	}
}
