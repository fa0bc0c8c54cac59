package router

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hostctl/internal/observability"
	"github.com/danmuck/hostctl/internal/procs"
	"github.com/danmuck/hostctl/internal/transport"
)

func (r *Router) showProcPage(ev transport.Event, cat procs.Category, page int) {
	pg, err := r.d.Inventory.List(cat, page)
	if err != nil {
		r.edit(ev, "Process listing failed: "+err.Error(), backKeyboard())
		return
	}
	r.d.Session.SetLastProcessView(cat, pg.Page)
	r.edit(ev, procPageText(cat, pg), procPageKeyboard(cat, pg))
}

func (r *Router) killProcess(ev transport.Event, pid int32) {
	name, err := r.d.Inventory.Kill(pid)
	switch {
	case errors.Is(err, procs.ErrProtected):
		observability.KillsTotal.WithLabelValues("protected").Inc()
		r.edit(ev, "That process is protected and will not be terminated.", backKeyboard())
		return
	case errors.Is(err, procs.ErrNotFound):
		observability.KillsTotal.WithLabelValues("gone").Inc()
		// Already gone; fall through to a refreshed view.
	case errors.Is(err, procs.ErrAccessDenied):
		observability.KillsTotal.WithLabelValues("denied").Inc()
		r.edit(ev, "Access denied terminating that process.", backKeyboard())
		return
	case err != nil:
		observability.KillsTotal.WithLabelValues("error").Inc()
		r.edit(ev, "Terminate failed: "+err.Error(), backKeyboard())
		return
	default:
		observability.KillsTotal.WithLabelValues("ok").Inc()
		log.Info().Int32("pid", pid).Str("name", name).Msg("process terminated by operator")
	}

	// Show the view the operator was on, rebuilt from a fresh snapshot.
	cat, page := r.d.Session.LastProcessView()
	r.showProcPage(ev, cat, page)
}
