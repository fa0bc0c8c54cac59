package router

import (
	"fmt"
	"strings"

	"github.com/danmuck/hostctl/internal/action"
	"github.com/danmuck/hostctl/internal/browser"
	"github.com/danmuck/hostctl/internal/procs"
	"github.com/danmuck/hostctl/internal/transport"
)

func mainMenuText() string {
	return "hostctl — pick an action"
}

func mainMenuKeyboard() transport.Keyboard {
	return transport.Keyboard{
		{{Label: "📸 Screenshot", Token: "screenshot"}, {Label: "🔒 Lock screen", Token: "lock_screen"}},
		{{Label: "📂 Files", Token: "file_manager"}, {Label: "⚙️ Processes", Token: "proc_menu"}},
		{{Label: "🔊 Volume", Token: "volume_control"}},
		{{Label: "⏻ Shut down", Token: "shutdown"}, {Label: "↻ Reboot", Token: "reboot"}},
	}
}

func helpText() string {
	return strings.Join([]string{
		"/start — show the menu",
		"/cmd <command> — run a shell command",
		"/cancel — abort a pending shutdown or reboot",
		"Any other text runs as a shell command too.",
	}, "\n")
}

func backKeyboard() transport.Keyboard {
	return transport.Keyboard{{{Label: "Menu", Token: "main_menu"}}}
}

// confirmKeyboard pairs the destructive action with a way out.
func confirmKeyboard(label, token string) transport.Keyboard {
	return transport.Keyboard{
		{{Label: label, Token: token}},
		{{Label: "Cancel", Token: "main_menu"}},
	}
}

func volumeKeyboard() transport.Keyboard {
	return transport.Keyboard{
		{{Label: "🔊 Up", Token: "volume_up"}, {Label: "🔉 Down", Token: "volume_down"}},
		{{Label: "🔇 Mute", Token: "volume_mute"}},
		{{Label: "Menu", Token: "main_menu"}},
	}
}

func procMenuKeyboard() transport.Keyboard {
	return transport.Keyboard{
		{{Label: "Applications", Token: "proc_list_apps"}},
		{{Label: "Background", Token: "proc_list_bg"}},
		{{Label: "System", Token: "proc_list_sys"}},
		{{Label: "Menu", Token: "main_menu"}},
	}
}

func categoryTitle(cat procs.Category) string {
	switch cat {
	case procs.CategoryApps:
		return "Applications"
	case procs.CategoryBackground:
		return "Background processes"
	case procs.CategorySystem:
		return "System processes"
	default:
		return "Processes"
	}
}

func procPageText(cat procs.Category, pg procs.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %d total", categoryTitle(cat), pg.Total)
	if pg.TotalPages > 1 {
		fmt.Fprintf(&b, " (page %d/%d)", pg.Page+1, pg.TotalPages)
	}
	b.WriteString("\nTap a process to terminate it.")
	return b.String()
}

func procPageKeyboard(cat procs.Category, pg procs.Page) transport.Keyboard {
	kb := transport.Keyboard{}
	for _, rec := range pg.Records {
		tok, ok := action.KillToken(rec.PID)
		if !ok {
			continue
		}
		label := fmt.Sprintf("%s (%d) — %.0f MB", rec.Name, rec.PID, rec.MemMB)
		kb = append(kb, []transport.Button{{Label: label, Token: tok}})
	}
	var nav []transport.Button
	if pg.Page > 0 {
		if tok, ok := action.ProcPageToken(cat, pg.Page-1); ok {
			nav = append(nav, transport.Button{Label: "⬅️", Token: tok})
		}
	}
	if pg.Page+1 < pg.TotalPages {
		if tok, ok := action.ProcPageToken(cat, pg.Page+1); ok {
			nav = append(nav, transport.Button{Label: "➡️", Token: tok})
		}
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	kb = append(kb, []transport.Button{{Label: "Back", Token: "proc_menu"}})
	return kb
}

func listingText(l browser.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 %s — %d entries", l.Dir, l.Total)
	if l.TotalPages > 1 {
		fmt.Fprintf(&b, " (page %d/%d)", l.Page+1, l.TotalPages)
	}
	return b.String()
}

func listingKeyboard(l browser.Listing) transport.Keyboard {
	kb := transport.Keyboard{}
	for _, e := range l.Entries {
		if e.IsDir {
			row := []transport.Button{}
			if tok, ok := action.NavToken(e.Path); ok {
				row = append(row, transport.Button{Label: "📁 " + e.Name, Token: tok})
			}
			if tok, ok := action.DirToken(e.Path); ok {
				row = append(row, transport.Button{Label: "⋯", Token: tok})
			}
			if len(row) > 0 {
				kb = append(kb, row)
			}
			continue
		}
		// Entries whose encoded path exceeds the token bound are
		// listed without a control rather than with a broken one.
		if tok, ok := action.InfoToken(e.Path); ok {
			kb = append(kb, []transport.Button{{Label: "📄 " + e.Name, Token: tok}})
		}
	}

	var nav []transport.Button
	if l.Page > 0 {
		if tok, ok := action.FilePageToken(l.Dir, l.Page-1); ok {
			nav = append(nav, transport.Button{Label: "⬅️", Token: tok})
		}
	}
	if l.Page+1 < l.TotalPages {
		if tok, ok := action.FilePageToken(l.Dir, l.Page+1); ok {
			nav = append(nav, transport.Button{Label: "➡️", Token: tok})
		}
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}

	var bottom []transport.Button
	if l.Parent != "" {
		if tok, ok := action.NavToken(l.Parent); ok {
			bottom = append(bottom, transport.Button{Label: "⬆️ Up", Token: tok})
		}
	}
	if tok, ok := action.ZipToken(l.Dir); ok {
		bottom = append(bottom, transport.Button{Label: "🗜 Zip", Token: tok})
	}
	if tok, ok := action.UploadToken(l.Dir); ok {
		bottom = append(bottom, transport.Button{Label: "⬆ Upload", Token: tok})
	}
	bottom = append(bottom, transport.Button{Label: "Menu", Token: "main_menu"})
	kb = append(kb, bottom)
	return kb
}

func entryInfoText(e browser.Entry) string {
	kind := "File"
	if e.IsDir {
		kind = "Directory"
	}
	return fmt.Sprintf("%s: %s\nPath: %s\nSize: %s\nModified: %s",
		kind, e.Name, e.Path, sizeText(e.Size), e.ModTime.Format("2006-01-02 15:04:05"))
}

// sizeText renders a byte count the way a human reads it.
func sizeText(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
