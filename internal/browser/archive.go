package browser

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ErrTooManyFiles marks a directory tree too wide to archive.
var ErrTooManyFiles = errors.New("browser: too many files to archive")

// Archive zips dir into a temp file and returns its path with a cleanup
// func. Unreadable entries are skipped; the running uncompressed total
// aborts the walk as soon as it passes the transfer limit, and the
// finished zip is checked once more since compression is not guaranteed
// to shrink anything.
func (b *Browser) Archive(dir string) (string, func(), error) {
	dir = filepath.Clean(dir)
	tmp, err := os.CreateTemp("", "hostctl-*.zip")
	if err != nil {
		return "", nil, fmt.Errorf("browser: create archive: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	zw := zip.NewWriter(tmp)
	var total int64
	var count int
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug().Str("path", path).Err(err).Msg("archive: skipping unreadable entry")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		total += info.Size()
		if total > b.cfg.MaxTransferBytes {
			return fmt.Errorf("%w: tree exceeds %d bytes", ErrTooLarge, b.cfg.MaxTransferBytes)
		}
		f, err := os.Open(path)
		if err != nil {
			log.Debug().Str("path", path).Err(err).Msg("archive: skipping unreadable file")
			total -= info.Size()
			return nil
		}
		defer f.Close()

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("browser: archive entry %s: %w", rel, err)
		}
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("browser: archive copy %s: %w", rel, err)
		}
		count++
		if count > b.cfg.MaxArchiveFiles {
			return fmt.Errorf("%w: more than %d files", ErrTooManyFiles, b.cfg.MaxArchiveFiles)
		}
		return nil
	})
	if walkErr != nil {
		cleanup()
		return "", nil, walkErr
	}
	if count == 0 {
		cleanup()
		return "", nil, fmt.Errorf("%w: %s", ErrNoFiles, dir)
	}
	if err := zw.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("browser: finalize archive: %w", err)
	}
	fi, err := tmp.Stat()
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("browser: stat archive: %w", err)
	}
	if fi.Size() > b.cfg.MaxTransferBytes {
		cleanup()
		return "", nil, fmt.Errorf("%w: archive is %d bytes", ErrTooLarge, fi.Size())
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("browser: close archive: %w", err)
	}
	log.Info().Str("dir", dir).Int("files", count).Int64("bytes", fi.Size()).Msg("directory archived")
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
