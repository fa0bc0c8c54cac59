package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danmuck/hostctl/internal/config"
)

type options struct {
	credentialsPath string
	tunablesPath    string
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.credentialsPath, "config", defaultCredentialsPath(), "path to the credentials JSON")
	flag.StringVar(&opts.tunablesPath, "tunables", "", "path to an optional tunables TOML")
	flag.Parse()
	return opts
}

func defaultCredentialsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "hostctl", "config.json")
	}
	return "config.json"
}

// loadTunables returns defaults when no file is given; a named file
// that fails to load is an error rather than a silent fallback.
func loadTunables(opts options) (config.Tunables, error) {
	if opts.tunablesPath == "" {
		return config.DefaultTunables(), nil
	}
	return config.LoadTunables(opts.tunablesPath)
}

// resolveDataDir picks the agent state directory and makes sure it
// exists.
func resolveDataDir(configured string) (string, error) {
	dir := configured
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve data dir: %w", err)
		}
		dir = filepath.Join(base, "hostctl")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return dir, nil
}
