// Package hostops wraps the platform-specific host operations: window
// probing, session lock, volume keys, power transitions and screen
// capture. Callers hold the interfaces; the build picks the implementation.
package hostops

import "errors"

// ErrUnsupported marks an operation the current platform cannot perform.
// Handlers report it to the operator instead of failing silently.
var ErrUnsupported = errors.New("hostops: not supported on this platform")

// VolumeAction selects a volume key press.
type VolumeAction int

const (
	VolumeUp VolumeAction = iota
	VolumeDown
	VolumeMute
)

// Desktop provides the local desktop operations. Stateless; every call
// hits the OS directly.
type Desktop struct{}

// VisiblePIDs reports the PIDs owning a visible, titled top-level window.
func (Desktop) VisiblePIDs() (map[int32]struct{}, error) {
	return visiblePIDs()
}

// Lock locks the interactive session without ending it.
func (Desktop) Lock() error {
	return lockSession()
}

// Volume presses the given volume key once.
func (Desktop) Volume(action VolumeAction) error {
	return pressVolumeKey(action)
}
