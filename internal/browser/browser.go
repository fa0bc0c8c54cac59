// Package browser implements the remote filesystem view: directory
// listings with pagination, per-entry metadata, and the size-gated
// download, archive and upload paths.
package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotDir   = errors.New("browser: not a directory")
	ErrTooLarge = errors.New("browser: exceeds transfer limit")
	ErrNoFiles  = errors.New("browser: nothing to archive")
)

type Config struct {
	PageSize         int
	MaxTransferBytes int64
	// MaxArchiveFiles bounds a zip walk; huge trees are refused rather
	// than archived for minutes.
	MaxArchiveFiles int
}

func DefaultConfig() Config {
	return Config{
		PageSize:         20,
		MaxTransferBytes: 1 << 30,
		MaxArchiveFiles:  10000,
	}
}

// Entry is one row of a listing. Size and ModTime are zero for entries
// whose metadata could not be read; the entry still lists.
type Entry struct {
	Name    string
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

type Listing struct {
	Dir string
	// Parent is empty when Dir is a filesystem root.
	Parent     string
	Entries    []Entry
	Page       int
	TotalPages int
	Total      int
}

type Browser struct {
	cfg Config
}

func New(cfg Config) *Browser {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxTransferBytes <= 0 {
		cfg.MaxTransferBytes = def.MaxTransferBytes
	}
	if cfg.MaxArchiveFiles <= 0 {
		cfg.MaxArchiveFiles = def.MaxArchiveFiles
	}
	return &Browser{cfg: cfg}
}

// List returns one page of dir. Directories sort before files, both
// case-insensitively; an out-of-range page clamps to the last one.
func (b *Browser) List(dir string, page int) (Listing, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("browser: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Listing{}, fmt.Errorf("%w: %s", ErrNotDir, dir)
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("browser: read %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		e := Entry{
			Name:  de.Name(),
			Path:  filepath.Join(dir, de.Name()),
			IsDir: de.IsDir(),
		}
		if fi, err := de.Info(); err == nil {
			e.Size = fi.Size()
			e.ModTime = fi.ModTime()
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	total := len(entries)
	totalPages := (total + b.cfg.PageSize - 1) / b.cfg.PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	lo := page * b.cfg.PageSize
	hi := lo + b.cfg.PageSize
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}

	parent := filepath.Dir(dir)
	if parent == dir {
		parent = ""
	}
	return Listing{
		Dir:        dir,
		Parent:     parent,
		Entries:    entries[lo:hi],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

// Info resolves a single path for the detail view.
func (b *Browser) Info(path string) (Entry, error) {
	path = filepath.Clean(path)
	fi, err := os.Stat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("browser: stat %s: %w", path, err)
	}
	return Entry{
		Name:    filepath.Base(path),
		Path:    path,
		IsDir:   fi.IsDir(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}, nil
}

// CheckDownload gates a file transfer against the size limit. Called
// both when offering the confirmation and again right before sending;
// the file may change in between.
func (b *Browser) CheckDownload(path string) (Entry, error) {
	e, err := b.Info(path)
	if err != nil {
		return Entry{}, err
	}
	if e.IsDir {
		return Entry{}, fmt.Errorf("browser: %s is a directory", path)
	}
	if e.Size > b.cfg.MaxTransferBytes {
		return Entry{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, e.Size)
	}
	return e, nil
}
