// Package config loads the agent configuration: a required credentials
// JSON (token + operator chat id, written at install time) and an
// optional TOML tunables file layered over compiled defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var (
	ErrMissingToken    = errors.New("config: missing token")
	ErrMissingOperator = errors.New("config: missing operator chat id")
)

// Credentials identify the bot and the single authorized operator.
// Immutable at runtime. Field names match the installed config.json.
type Credentials struct {
	Token  string `json:"TOKEN"`
	ChatID int64  `json:"CHAT_ID"`
}

func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("config: load credentials (%s): %w", path, err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("config: parse credentials (%s): %w", path, err)
	}
	if err := ValidateCredentials(creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func ValidateCredentials(creds Credentials) error {
	if strings.TrimSpace(creds.Token) == "" {
		return ErrMissingToken
	}
	if creds.ChatID == 0 {
		return ErrMissingOperator
	}
	return nil
}

// Tunables are the operational knobs. Every field has a working default;
// the TOML file overrides only what it defines.
type Tunables struct {
	ProcPageSize     int
	FilePageSize     int
	ShutdownDelay    time.Duration
	CommandTimeout   time.Duration
	MessageMaxChars  int
	MaxTransferBytes int64
	SnapshotTTL      time.Duration
	WindowTTL        time.Duration
	DenyPatterns     []string
	DataDir          string
	MetricsAddr      string

	// Poll loop degradation tiers.
	ConflictWait  time.Duration
	TransportWait time.Duration
	RetryWait     time.Duration
}

func DefaultTunables() Tunables {
	return Tunables{
		ProcPageSize:     20,
		FilePageSize:     20,
		ShutdownDelay:    60 * time.Second,
		CommandTimeout:   30 * time.Second,
		MessageMaxChars:  4000,
		MaxTransferBytes: 1 << 30, // 1 GiB
		SnapshotTTL:      5 * time.Second,
		WindowTTL:        10 * time.Second,
		DataDir:          "",
		MetricsAddr:      "",
		ConflictWait:     30 * time.Second,
		TransportWait:    10 * time.Second,
		RetryWait:        5 * time.Second,
	}
}

func ValidateTunables(t Tunables) error {
	if t.ProcPageSize <= 0 {
		return fmt.Errorf("config: proc_page_size must be positive")
	}
	if t.FilePageSize < 20 || t.FilePageSize > 30 {
		return fmt.Errorf("config: file_page_size must be within 20..30")
	}
	if t.CommandTimeout <= 0 {
		return fmt.Errorf("config: command_timeout must be positive")
	}
	if t.MessageMaxChars <= 0 {
		return fmt.Errorf("config: message_max_chars must be positive")
	}
	if t.MaxTransferBytes <= 0 {
		return fmt.Errorf("config: max_transfer_bytes must be positive")
	}
	return nil
}
