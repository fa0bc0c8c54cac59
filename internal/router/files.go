package router

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hostctl/internal/action"
	"github.com/danmuck/hostctl/internal/browser"
	"github.com/danmuck/hostctl/internal/observability"
	"github.com/danmuck/hostctl/internal/session"
	"github.com/danmuck/hostctl/internal/transport"
)

func (r *Router) showListing(ev transport.Event, dir string, page int) {
	l, err := r.d.Browser.List(dir, page)
	if err != nil {
		r.edit(ev, "Cannot open "+dir+": "+err.Error(), backKeyboard())
		return
	}
	r.d.Session.SetCurrentDir(l.Dir)
	r.edit(ev, listingText(l), listingKeyboard(l))
}

// showDirMenu offers the directory-level operations for one entry.
func (r *Router) showDirMenu(ev transport.Event, dir string) {
	kb := transport.Keyboard{}
	if tok, ok := action.NavToken(dir); ok {
		kb = append(kb, []transport.Button{{Label: "Open", Token: tok}})
	}
	if tok, ok := action.ZipToken(dir); ok {
		kb = append(kb, []transport.Button{{Label: "Download as zip", Token: tok}})
	}
	if tok, ok := action.UploadToken(dir); ok {
		kb = append(kb, []transport.Button{{Label: "Upload a file here", Token: tok}})
	}
	kb = append(kb, []transport.Button{{Label: "Back", Token: "file_manager"}})
	r.edit(ev, dir, kb)
}

func (r *Router) showFileInfo(ev transport.Event, path string) {
	e, err := r.d.Browser.Info(path)
	if err != nil {
		r.edit(ev, "Cannot stat "+path+": "+err.Error(), backKeyboard())
		return
	}
	kb := transport.Keyboard{}
	if !e.IsDir {
		if tok, ok := action.DownloadToken(path); ok {
			kb = append(kb, []transport.Button{{Label: "Download", Token: tok}})
		}
	}
	if tok, ok := action.NavToken(filepath.Dir(path)); ok {
		kb = append(kb, []transport.Button{{Label: "Back", Token: tok}})
	}
	r.edit(ev, entryInfoText(e), kb)
}

// offerDownload runs the early size gate and asks for confirmation.
func (r *Router) offerDownload(ev transport.Event, path string) {
	e, err := r.d.Browser.CheckDownload(path)
	if err != nil {
		r.reportTransferError(ev, err)
		return
	}
	kb := transport.Keyboard{}
	if tok, ok := action.DownloadConfirmToken(path); ok {
		kb = append(kb, []transport.Button{{Label: "Yes, send it", Token: tok}})
	}
	if tok, ok := action.NavToken(filepath.Dir(path)); ok {
		kb = append(kb, []transport.Button{{Label: "Cancel", Token: tok}})
	}
	r.edit(ev, fmt.Sprintf("Send %s (%s)?", e.Name, sizeText(e.Size)), kb)
}

// sendFile re-checks the gate and ships the file. The file may have
// grown between confirmation and now.
func (r *Router) sendFile(ev transport.Event, path string) {
	if _, err := r.d.Browser.CheckDownload(path); err != nil {
		observability.TransfersTotal.WithLabelValues("download", "refused").Inc()
		r.reportTransferError(ev, err)
		return
	}
	r.edit(ev, "Sending "+filepath.Base(path)+"…", nil)
	if err := r.d.Transport.SendDocument(ev.ChatID, path, ""); err != nil {
		observability.TransfersTotal.WithLabelValues("download", "error").Inc()
		r.send(ev.ChatID, "Transfer failed: "+err.Error(), nil)
		return
	}
	observability.TransfersTotal.WithLabelValues("download", "ok").Inc()
}

func (r *Router) offerArchive(ev transport.Event, dir string) {
	kb := transport.Keyboard{}
	if tok, ok := action.ZipConfirmToken(dir); ok {
		kb = append(kb, []transport.Button{{Label: "Yes, archive it", Token: tok}})
	}
	if tok, ok := action.NavToken(dir); ok {
		kb = append(kb, []transport.Button{{Label: "Cancel", Token: tok}})
	}
	r.edit(ev, "Archive "+dir+" and send the zip?", kb)
}

func (r *Router) sendArchive(ev transport.Event, dir string) {
	r.edit(ev, "Archiving "+dir+"…", nil)
	path, cleanup, err := r.d.Browser.Archive(dir)
	if err != nil {
		observability.TransfersTotal.WithLabelValues("archive", "refused").Inc()
		r.reportTransferErrorToChat(ev.ChatID, err)
		return
	}
	defer cleanup()
	if err := r.d.Transport.SendDocument(ev.ChatID, path, filepath.Base(dir)+".zip"); err != nil {
		observability.TransfersTotal.WithLabelValues("archive", "error").Inc()
		r.send(ev.ChatID, "Transfer failed: "+err.Error(), nil)
		return
	}
	observability.TransfersTotal.WithLabelValues("archive", "ok").Inc()
}

// armUpload remembers the destination; the document arrives as a
// separate event.
func (r *Router) armUpload(ev transport.Event, dir string) {
	r.d.Session.SetUploadTarget(ev.ChatID, dir)
	r.edit(ev, "Send the file as a document; it will be saved to "+dir+".", nil)
}

func (r *Router) handleDocument(_ context.Context, ev transport.Event) {
	doc := ev.Document
	dir, ok := r.d.Session.UploadTarget(ev.ChatID)
	if !ok {
		r.send(ev.ChatID, "Pick a destination directory in the file manager first.", nil)
		return
	}
	if err := r.d.Browser.ValidateUpload(dir, doc.Size); err != nil {
		observability.TransfersTotal.WithLabelValues("upload", "refused").Inc()
		r.d.Session.ClearUploadTarget(ev.ChatID)
		r.reportTransferErrorToChat(ev.ChatID, err)
		return
	}
	r.d.Session.SetPendingUpload(ev.ChatID, sessionPending(dir, doc))
	kb := transport.Keyboard{
		{{Label: "Save it", Token: "upload_confirm"}},
		{{Label: "Discard", Token: "upload_cancel"}},
	}
	r.send(ev.ChatID, fmt.Sprintf("Save %s (%s) to %s?", doc.FileName, sizeText(doc.Size), dir), kb)
}

func (r *Router) confirmUpload(_ context.Context, ev transport.Event) {
	up, ok := r.d.Session.TakePendingUpload(ev.ChatID)
	if !ok {
		r.edit(ev, "Nothing is waiting to be saved.", backKeyboard())
		return
	}
	r.d.Session.ClearUploadTarget(ev.ChatID)

	if err := r.d.Browser.ValidateUpload(up.Dir, up.Size); err != nil {
		observability.TransfersTotal.WithLabelValues("upload", "refused").Inc()
		r.reportTransferError(ev, err)
		return
	}
	body, err := r.d.Transport.Download(transport.Document{FileID: up.FileID, FileName: up.FileName, Size: up.Size})
	if err != nil {
		observability.TransfersTotal.WithLabelValues("upload", "error").Inc()
		r.edit(ev, "Fetching the file failed: "+err.Error(), backKeyboard())
		return
	}
	defer body.Close()
	dest, err := r.d.Browser.SaveUpload(up.Dir, up.FileName, body)
	if err != nil {
		observability.TransfersTotal.WithLabelValues("upload", "error").Inc()
		r.reportTransferError(ev, err)
		return
	}
	observability.TransfersTotal.WithLabelValues("upload", "ok").Inc()
	log.Info().Str("dest", dest).Msg("upload completed")
	r.edit(ev, "Saved to "+dest+".", backKeyboard())
}

func (r *Router) cancelUpload(ev transport.Event) {
	r.d.Session.TakePendingUpload(ev.ChatID)
	r.d.Session.ClearUploadTarget(ev.ChatID)
	r.edit(ev, "Upload discarded.", backKeyboard())
}

func (r *Router) reportTransferError(ev transport.Event, err error) {
	r.edit(ev, transferErrorText(err), backKeyboard())
}

func (r *Router) reportTransferErrorToChat(chatID int64, err error) {
	r.send(chatID, transferErrorText(err), nil)
}

func sessionPending(dir string, doc *transport.Document) session.PendingUpload {
	return session.PendingUpload{
		Dir:      dir,
		FileID:   doc.FileID,
		FileName: doc.FileName,
		Size:     doc.Size,
	}
}

func transferErrorText(err error) string {
	switch {
	case errors.Is(err, browser.ErrTooLarge):
		return "Refused: that exceeds the transfer size limit."
	case errors.Is(err, browser.ErrNoFiles):
		return "Refused: there are no readable files to archive."
	case errors.Is(err, browser.ErrTooManyFiles):
		return "Refused: that tree has too many files to archive."
	default:
		return "Failed: " + err.Error()
	}
}
