package procs

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hostctl/internal/ttlcache"
)

// Config holds inventory tunables.
type Config struct {
	PageSize    int
	SnapshotTTL time.Duration
	WindowTTL   time.Duration
	KillGrace   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PageSize:    20,
		SnapshotTTL: 5 * time.Second,
		WindowTTL:   10 * time.Second,
		KillGrace:   3 * time.Second,
	}
}

// Snapshot is one full classified enumeration, sorted by resident memory
// descending within each category.
type Snapshot map[Category][]Record

// Page is one rendered slice of a category.
type Page struct {
	Records    []Record
	Page       int
	TotalPages int
	Total      int
}

// Inventory serves categorized process pages from a TTL-cached snapshot
// and owns the guarded kill path.
type Inventory struct {
	host   Host
	prober WindowProber
	cfg    Config

	snapshot *ttlcache.Cache[Snapshot]
	windows  *ttlcache.Cache[map[int32]struct{}]
}

func New(host Host, prober WindowProber, cfg Config) *Inventory {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = DefaultConfig().SnapshotTTL
	}
	if cfg.WindowTTL <= 0 {
		cfg.WindowTTL = DefaultConfig().WindowTTL
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultConfig().KillGrace
	}
	return &Inventory{
		host:     host,
		prober:   prober,
		cfg:      cfg,
		snapshot: ttlcache.New[Snapshot](cfg.SnapshotTTL),
		windows:  ttlcache.New[map[int32]struct{}](cfg.WindowTTL),
	}
}

// List returns the requested category page. Out-of-range pages clamp to
// the last valid page.
func (inv *Inventory) List(cat Category, page int) (Page, error) {
	snap, err := inv.snapshot.GetOrFill(inv.collect)
	if err != nil {
		return Page{}, err
	}

	records := snap[cat]
	total := len(records)
	totalPages := (total + inv.cfg.PageSize - 1) / inv.cfg.PageSize

	if page < 0 {
		page = 0
	}
	if totalPages > 0 && page >= totalPages {
		page = totalPages - 1
	}

	start := page * inv.cfg.PageSize
	end := start + inv.cfg.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Records:    records[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

// Kill terminates a process after the protection checks. It returns the
// process name for the acknowledgement. Every outcome that implies the
// snapshot drifted from reality invalidates both caches.
func (inv *Inventory) Kill(pid int32) (string, error) {
	if _, ok := protectedPIDs[pid]; ok {
		return "", fmt.Errorf("%w: pid %d", ErrProtected, pid)
	}

	name, err := inv.host.ProcessName(pid)
	if err != nil {
		inv.Invalidate()
		return "", err
	}
	if IsProtected(pid, name) {
		return "", fmt.Errorf("%w: %s", ErrProtected, name)
	}

	if err := inv.host.Terminate(pid, inv.cfg.KillGrace); err != nil {
		inv.Invalidate()
		return "", err
	}

	log.Info().Int32("pid", pid).Str("name", name).Msg("procs.Inventory.Kill terminated")
	inv.Invalidate()
	return name, nil
}

// Invalidate drops the process snapshot and the visible-window set
// atomically with respect to the single worker.
func (inv *Inventory) Invalidate() {
	inv.snapshot.Invalidate()
	inv.windows.Invalidate()
}

// collect performs a full enumeration and classification pass.
func (inv *Inventory) collect() (Snapshot, error) {
	visible := inv.visiblePIDs()

	list, err := inv.host.Processes()
	if err != nil {
		return nil, err
	}

	snap := Snapshot{
		CategoryApps:       nil,
		CategoryBackground: nil,
		CategorySystem:     nil,
	}
	for _, p := range list {
		rec := Record{
			PID:      p.PID,
			Name:     p.Name,
			MemMB:    float64(p.RSS) / (1024 * 1024),
			Category: classify(p.Name, p.PID, visible),
		}
		snap[rec.Category] = append(snap[rec.Category], rec)
	}
	for cat := range snap {
		records := snap[cat]
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].MemMB > records[j].MemMB
		})
	}
	return snap, nil
}

// visiblePIDs returns the cached window-owner set. Probe failure degrades
// to an empty set: classification is advisory.
func (inv *Inventory) visiblePIDs() map[int32]struct{} {
	if inv.prober == nil {
		return nil
	}
	visible, err := inv.windows.GetOrFill(inv.prober.VisiblePIDs)
	if err != nil {
		log.Debug().Err(err).Msg("procs.Inventory.visiblePIDs probe failed")
		return nil
	}
	return visible
}
