//go:build !windows

package hostops

// Window probing is a desktop-shell concept; elsewhere the classifier
// simply sees no windowed processes.
func visiblePIDs() (map[int32]struct{}, error) {
	return map[int32]struct{}{}, nil
}

func lockSession() error {
	return ErrUnsupported
}

func pressVolumeKey(VolumeAction) error {
	return ErrUnsupported
}
