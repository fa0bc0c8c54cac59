// Package procs maintains the host process inventory: a TTL-cached
// snapshot of every process classified into display categories, with a
// guarded termination path.
//
// Classification is advisory only. The safety boundary for termination is
// solely the protected-PID and critical-name denylist.
package procs

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("procs: process not found")
	ErrAccessDenied = errors.New("procs: access denied")
	ErrProtected    = errors.New("procs: protected process")
)

// Category groups processes for display.
type Category string

const (
	CategoryApps       Category = "apps"
	CategoryBackground Category = "bg"
	CategorySystem     Category = "sys"
)

func ParseCategory(raw string) (Category, bool) {
	switch Category(strings.TrimSpace(raw)) {
	case CategoryApps:
		return CategoryApps, true
	case CategoryBackground:
		return CategoryBackground, true
	case CategorySystem:
		return CategorySystem, true
	default:
		return "", false
	}
}

// Process is one raw enumeration result.
type Process struct {
	PID  int32
	Name string
	RSS  uint64
}

// Record is a classified inventory entry.
type Record struct {
	PID      int32
	Name     string
	MemMB    float64
	Category Category
}

// Host abstracts process enumeration and termination so the inventory can
// be exercised against fakes.
type Host interface {
	// Processes enumerates every visible process. Individual processes
	// that vanish or deny access mid-enumeration are skipped, not errors.
	Processes() ([]Process, error)
	// ProcessName resolves a live process name. Returns ErrNotFound or
	// ErrAccessDenied (possibly wrapped).
	ProcessName(pid int32) (string, error)
	// Terminate asks the process to exit, escalating to a hard kill after
	// the grace period.
	Terminate(pid int32, grace time.Duration) error
}

// WindowProber reports the set of PIDs owning a visible, titled top-level
// window. Expensive; the inventory caches its result separately.
type WindowProber interface {
	VisiblePIDs() (map[int32]struct{}, error)
}

// protectedPIDs are kernel-owned pseudo processes that must never be
// terminated regardless of name or ownership.
var protectedPIDs = map[int32]struct{}{0: {}, 4: {}}

// criticalNames is the non-negotiable termination denylist.
var criticalNames = map[string]struct{}{
	"csrss.exe":    {},
	"winlogon.exe": {},
	"services.exe": {},
	"lsass.exe":    {},
	"smss.exe":     {},
}

// systemNames classifies well-known system processes by exact name.
var systemNames = map[string]struct{}{
	"svchost.exe": {}, "csrss.exe": {}, "winlogon.exe": {}, "services.exe": {},
	"lsass.exe": {}, "dwm.exe": {}, "smss.exe": {}, "System": {}, "Registry": {},
	"conhost.exe": {}, "wininit.exe": {}, "spoolsv.exe": {}, "SearchIndexer.exe": {},
	"taskhost.exe": {}, "WmiPrvSE.exe": {}, "audiodg.exe": {}, "fontdrvhost.exe": {},
	"RuntimeBroker.exe": {}, "dllhost.exe": {}, "WmiApSrv.exe": {}, "lsm.exe": {},
	"SppExtComObj.exe": {}, "MsMpEng.exe": {}, "SecurityHealthService.exe": {},
}

// appKeywords classifies common consumer applications by substring.
var appKeywords = []string{
	"chrome", "firefox", "edge", "opera", "brave", "vivaldi",
	"code", "notepad", "wordpad", "mspaint", "calc", "explorer.exe",
	"steam", "discord", "spotify", "telegram", "whatsapp",
	"vlc", "winrar", "7zfm", "acrobat", "photoshop", "illustrator",
	"excel", "word", "powerpoint", "outlook", "onenote",
	"skype", "zoom", "teams", "slack",
}

// IsProtected reports whether termination of this pid/name pair is
// unconditionally refused.
func IsProtected(pid int32, name string) bool {
	if _, ok := protectedPIDs[pid]; ok {
		return true
	}
	_, ok := criticalNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// classify assigns a category: exact system name, then app keyword, then
// the visible-window probe, defaulting to background.
func classify(name string, pid int32, visible map[int32]struct{}) Category {
	lower := strings.ToLower(name)
	if _, ok := systemNames[name]; ok {
		return CategorySystem
	}
	if strings.Contains(lower, "system") {
		return CategorySystem
	}
	for _, keyword := range appKeywords {
		if strings.Contains(lower, keyword) {
			return CategoryApps
		}
	}
	if _, ok := visible[pid]; ok {
		return CategoryApps
	}
	return CategoryBackground
}
