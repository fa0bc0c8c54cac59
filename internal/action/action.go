// Package action defines the callback token grammar: a verb prefix plus
// encoded arguments, bounded to the transport's 64-byte callback limit.
//
// Tokens are decoded exactly once, at the router boundary, into a tagged
// Action; handlers receive typed arguments, never raw strings.
package action

import (
	"errors"
	"strconv"
	"strings"

	"github.com/danmuck/hostctl/internal/pathtoken"
	"github.com/danmuck/hostctl/internal/procs"
)

// MaxTokenLen is the transport's hard callback-data bound. Any longer
// token is invalid; any control whose token would exceed it is omitted.
const MaxTokenLen = 64

var ErrUnknownToken = errors.New("action: unknown token")

// Verb is the closed set of operations a token can request.
type Verb int

const (
	VerbUnknown Verb = iota
	VerbMainMenu
	VerbScreenshot
	VerbShutdown
	VerbShutdownConfirm
	VerbReboot
	VerbRebootConfirm
	VerbLockScreen
	VerbVolumeMenu
	VerbVolumeMute
	VerbVolumeUp
	VerbVolumeDown
	VerbFileManager
	VerbProcMenu
	VerbProcList
	VerbProcKill
	VerbProcPage
	VerbFileNav
	VerbFilePage
	VerbFileDir
	VerbFileInfo
	VerbFileDownloadConfirm
	VerbFileDownload
	VerbFileZipConfirm
	VerbFileZip
	VerbFileUpload
	VerbUploadConfirm
	VerbUploadCancel
)

// Action is the decoded form of one token.
type Action struct {
	Verb     Verb
	Category procs.Category
	Page     int
	PID      int32
	Path     string
}

var exactVerbs = map[string]Action{
	"main_menu":        {Verb: VerbMainMenu},
	"screenshot":       {Verb: VerbScreenshot},
	"shutdown":         {Verb: VerbShutdown},
	"shutdown_confirm": {Verb: VerbShutdownConfirm},
	"reboot":           {Verb: VerbReboot},
	"reboot_confirm":   {Verb: VerbRebootConfirm},
	"lock_screen":      {Verb: VerbLockScreen},
	"volume_control":   {Verb: VerbVolumeMenu},
	"volume_mute":      {Verb: VerbVolumeMute},
	"volume_up":        {Verb: VerbVolumeUp},
	"volume_down":      {Verb: VerbVolumeDown},
	"file_manager":     {Verb: VerbFileManager},
	"proc_menu":        {Verb: VerbProcMenu},
	"proc_list_apps":   {Verb: VerbProcList, Category: procs.CategoryApps},
	"proc_list_bg":     {Verb: VerbProcList, Category: procs.CategoryBackground},
	"proc_list_sys":    {Verb: VerbProcList, Category: procs.CategorySystem},
	"upload_confirm":   {Verb: VerbUploadConfirm},
	"upload_cancel":    {Verb: VerbUploadCancel},
}

// pathPrefixes map parameterized verbs whose argument is one encoded
// path. Ordered longest-first so file_dl_confirm_ wins over file_dl_.
var pathPrefixes = []struct {
	prefix string
	verb   Verb
}{
	{"file_dl_confirm_", VerbFileDownloadConfirm},
	{"file_zip_confirm_", VerbFileZipConfirm},
	{"file_info_", VerbFileInfo},
	{"file_nav_", VerbFileNav},
	{"file_dir_", VerbFileDir},
	{"file_dl_", VerbFileDownload},
	{"file_zip_", VerbFileZip},
	{"file_up_", VerbFileUpload},
}

// Parse decodes a raw callback token. Oversized, unmatched or
// undecodable input yields ErrUnknownToken; Parse never panics.
func Parse(raw string) (Action, error) {
	if raw == "" || len(raw) > MaxTokenLen {
		return Action{}, ErrUnknownToken
	}
	if act, ok := exactVerbs[raw]; ok {
		return act, nil
	}

	if rest, ok := strings.CutPrefix(raw, "proc_kill_"); ok {
		pid, err := strconv.ParseInt(rest, 10, 32)
		if err != nil || pid < 0 {
			return Action{}, ErrUnknownToken
		}
		return Action{Verb: VerbProcKill, PID: int32(pid)}, nil
	}

	if rest, ok := strings.CutPrefix(raw, "proc_pg_"); ok {
		return parseProcPage(rest)
	}

	if rest, ok := strings.CutPrefix(raw, "file_pg_"); ok {
		return parseFilePage(rest)
	}

	for _, entry := range pathPrefixes {
		rest, ok := strings.CutPrefix(raw, entry.prefix)
		if !ok {
			continue
		}
		path := pathtoken.Decode(rest)
		if path == "" {
			return Action{}, ErrUnknownToken
		}
		return Action{Verb: entry.verb, Path: path}, nil
	}

	return Action{}, ErrUnknownToken
}

// proc_pg_<category>_<page>
func parseProcPage(rest string) (Action, error) {
	rawCat, rawPage, ok := strings.Cut(rest, "_")
	if !ok {
		return Action{}, ErrUnknownToken
	}
	cat, ok := procs.ParseCategory(rawCat)
	if !ok {
		return Action{}, ErrUnknownToken
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 0 {
		return Action{}, ErrUnknownToken
	}
	return Action{Verb: VerbProcPage, Category: cat, Page: page}, nil
}

// file_pg_<page>_<encoded-dir>
func parseFilePage(rest string) (Action, error) {
	rawPage, encoded, ok := strings.Cut(rest, "_")
	if !ok {
		return Action{}, ErrUnknownToken
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 0 {
		return Action{}, ErrUnknownToken
	}
	path := pathtoken.Decode(encoded)
	if path == "" {
		return Action{}, ErrUnknownToken
	}
	return Action{Verb: VerbFilePage, Path: path, Page: page}, nil
}
