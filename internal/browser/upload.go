package browser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ValidateUpload gates an incoming document before any bytes move.
func (b *Browser) ValidateUpload(dir string, size int64) error {
	if size > b.cfg.MaxTransferBytes {
		return fmt.Errorf("%w: upload is %d bytes", ErrTooLarge, size)
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("browser: stat %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDir, dir)
	}
	return nil
}

// SaveUpload streams the document into dir under a sanitized name,
// never replacing an existing file. The write goes through a temp file
// in the same directory so a dropped connection leaves no partial file
// under the final name.
func (b *Browser) SaveUpload(dir, name string, r io.Reader) (string, error) {
	name = sanitizeName(name)
	if name == "" {
		return "", fmt.Errorf("browser: unusable upload name")
	}
	dest := uniquePath(filepath.Join(filepath.Clean(dir), name))

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("browser: stage upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, b.cfg.MaxTransferBytes+1))
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("browser: write upload: %w", err)
	}
	if n > b.cfg.MaxTransferBytes {
		tmp.Close()
		return "", fmt.Errorf("%w: upload stream", ErrTooLarge)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("browser: close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("browser: place upload: %w", err)
	}
	log.Info().Str("dest", dest).Int64("bytes", n).Msg("upload saved")
	return dest, nil
}

// sanitizeName strips any path component from a remote-supplied name.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, `/`))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// uniquePath appends " (n)" before the extension until the path is free.
func uniquePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}
