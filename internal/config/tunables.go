package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type tunablesFile struct {
	ProcPageSize     int      `toml:"proc_page_size"`
	FilePageSize     int      `toml:"file_page_size"`
	ShutdownDelay    string   `toml:"shutdown_delay"`
	CommandTimeout   string   `toml:"command_timeout"`
	MessageMaxChars  int      `toml:"message_max_chars"`
	MaxTransferBytes int64    `toml:"max_transfer_bytes"`
	SnapshotTTL      string   `toml:"snapshot_ttl"`
	WindowTTL        string   `toml:"window_ttl"`
	DenyPatterns     []string `toml:"deny_patterns"`
	DataDir          string   `toml:"data_dir"`
	MetricsAddr      string   `toml:"metrics_addr"`
	ConflictWait     string   `toml:"conflict_wait"`
	TransportWait    string   `toml:"transport_wait"`
	RetryWait        string   `toml:"retry_wait"`
}

// LoadTunables merges the TOML file over the defaults. Only keys the
// file actually defines override.
func LoadTunables(path string) (Tunables, error) {
	cfg := DefaultTunables()

	var raw tunablesFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Tunables{}, fmt.Errorf("config: load tunables (%s): %w", path, err)
	}

	if meta.IsDefined("proc_page_size") {
		cfg.ProcPageSize = raw.ProcPageSize
	}
	if meta.IsDefined("file_page_size") {
		cfg.FilePageSize = raw.FilePageSize
	}
	if meta.IsDefined("shutdown_delay") {
		if cfg.ShutdownDelay, err = parseDuration("shutdown_delay", raw.ShutdownDelay); err != nil {
			return Tunables{}, err
		}
	}
	if meta.IsDefined("command_timeout") {
		if cfg.CommandTimeout, err = parseDuration("command_timeout", raw.CommandTimeout); err != nil {
			return Tunables{}, err
		}
	}
	if meta.IsDefined("message_max_chars") {
		cfg.MessageMaxChars = raw.MessageMaxChars
	}
	if meta.IsDefined("max_transfer_bytes") {
		cfg.MaxTransferBytes = raw.MaxTransferBytes
	}
	if meta.IsDefined("snapshot_ttl") {
		if cfg.SnapshotTTL, err = parseDuration("snapshot_ttl", raw.SnapshotTTL); err != nil {
			return Tunables{}, err
		}
	}
	if meta.IsDefined("window_ttl") {
		if cfg.WindowTTL, err = parseDuration("window_ttl", raw.WindowTTL); err != nil {
			return Tunables{}, err
		}
	}
	if meta.IsDefined("deny_patterns") {
		cfg.DenyPatterns = normalizePatterns(raw.DenyPatterns)
	}
	if meta.IsDefined("data_dir") {
		cfg.DataDir = strings.TrimSpace(raw.DataDir)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("conflict_wait") {
		if cfg.ConflictWait, err = parseDuration("conflict_wait", raw.ConflictWait); err != nil {
			return Tunables{}, err
		}
	}
	if meta.IsDefined("transport_wait") {
		if cfg.TransportWait, err = parseDuration("transport_wait", raw.TransportWait); err != nil {
			return Tunables{}, err
		}
	}
	if meta.IsDefined("retry_wait") {
		if cfg.RetryWait, err = parseDuration("retry_wait", raw.RetryWait); err != nil {
			return Tunables{}, err
		}
	}

	if err := ValidateTunables(cfg); err != nil {
		return Tunables{}, err
	}
	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", key, err)
	}
	return d, nil
}

func normalizePatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
