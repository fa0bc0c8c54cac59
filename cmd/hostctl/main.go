// Command hostctl runs the remote-administration agent: it connects to
// the chat transport, takes the single-instance lock and serves the
// operator until the credential is revoked or the process is stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hostctl/internal/browser"
	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/executor"
	"github.com/danmuck/hostctl/internal/hostops"
	"github.com/danmuck/hostctl/internal/logging"
	"github.com/danmuck/hostctl/internal/observability"
	"github.com/danmuck/hostctl/internal/procs"
	"github.com/danmuck/hostctl/internal/router"
	"github.com/danmuck/hostctl/internal/session"
	"github.com/danmuck/hostctl/internal/supervisor"
	"github.com/danmuck/hostctl/internal/transport"
)

func main() {
	logging.ConfigureRuntime()

	opts := parseFlags()
	tun, err := loadTunables(opts)
	if err != nil {
		fatal("", err)
	}
	dataDir, err := resolveDataDir(tun.DataDir)
	if err != nil {
		fatal("", err)
	}

	creds, err := config.LoadCredentials(opts.credentialsPath)
	if err != nil {
		fatal(dataDir, err)
	}

	lock, err := supervisor.Acquire(filepath.Join(dataDir, "agent.lock"))
	if err != nil {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			log.Info().Msg("another instance is already serving, exiting")
			return
		}
		fatal(dataDir, err)
	}
	defer lock.Release()

	observability.Register()
	observability.Serve(tun.MetricsAddr)

	tr, err := transport.NewTelegram(creds.Token)
	if err != nil {
		fatal(dataDir, err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = dataDir
	}

	desktop := hostops.Desktop{}
	r := router.New(router.Config{
		OperatorID:      creds.ChatID,
		ShutdownDelay:   tun.ShutdownDelay,
		MessageMaxChars: tun.MessageMaxChars,
		DataDir:         dataDir,
	}, router.Deps{
		Transport: tr,
		Session:   session.New(home),
		Inventory: procs.New(procs.GopsutilHost{}, desktop, procs.Config{
			PageSize:    tun.ProcPageSize,
			SnapshotTTL: tun.SnapshotTTL,
			WindowTTL:   tun.WindowTTL,
		}),
		Browser: browser.New(browser.Config{
			PageSize:         tun.FilePageSize,
			MaxTransferBytes: tun.MaxTransferBytes,
		}),
		Executor: executor.New(executor.Config{
			Timeout:      tun.CommandTimeout,
			WorkDir:      home,
			DenyPatterns: tun.DenyPatterns,
		}),
		Power:   hostops.NewPower(),
		Desktop: desktop,
		Capture: hostops.CaptureScreen,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifyStartup(tr, creds.ChatID, dataDir)

	sup := supervisor.New(tr, r.HandleEvent, supervisor.Config{
		ConflictWait:  tun.ConflictWait,
		TransportWait: tun.TransportWait,
		RetryWait:     tun.RetryWait,
	})
	if err := sup.Run(ctx); err != nil {
		fatal(dataDir, err)
	}
	log.Info().Msg("agent stopped")
}

// notifyStartup implements the restart notice. The first run creates a
// flag file silently; any later start finds the flag, meaning the host
// came back from a reboot or crash, and tells the operator. Best
// effort; the loop starts regardless.
func notifyStartup(tr transport.Transport, chatID int64, dataDir string) {
	flag := filepath.Join(dataDir, "reboot.flag")
	if _, err := os.Stat(flag); err != nil {
		if werr := os.WriteFile(flag, []byte(time.Now().Format(time.RFC3339)), 0o600); werr != nil {
			log.Warn().Err(werr).Msg("reboot flag write failed")
		}
		return
	}
	hostname, _ := os.Hostname()
	msg := fmt.Sprintf("%s is back online at %s. Send /start for the menu.",
		hostname, time.Now().Format("2006-01-02 15:04:05"))
	if err := tr.Send(chatID, msg, nil); err != nil {
		log.Warn().Err(err).Msg("restart notice failed")
	}
}

// fatal records the failure where an operator without chat access can
// find it, then exits.
func fatal(dataDir string, err error) {
	log.Error().Err(err).Msg("fatal")
	if dataDir != "" {
		line := fmt.Sprintf("%s\t%v\n", time.Now().Format(time.RFC3339), err)
		f, ferr := os.OpenFile(filepath.Join(dataDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if ferr == nil {
			f.WriteString(line)
			f.Close()
		}
	}
	os.Exit(1)
}
