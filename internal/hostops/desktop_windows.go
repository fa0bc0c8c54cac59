//go:build windows

package hostops

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procLockWorkStation          = user32.NewProc("LockWorkStation")
	procKeybdEvent               = user32.NewProc("keybd_event")
)

const (
	vkVolumeMute = 0xAD
	vkVolumeDown = 0xAE
	vkVolumeUp   = 0xAF

	keyeventfKeyUp = 0x0002
)

// visiblePIDs walks the top-level windows and keeps the PIDs behind
// visible, titled ones. Enumeration continues past individual windows
// that refuse introspection.
func visiblePIDs() (map[int32]struct{}, error) {
	pids := make(map[int32]struct{})
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return 1
		}
		if length, _, _ := procGetWindowTextLengthW.Call(hwnd); length == 0 {
			return 1
		}
		var pid uint32
		procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid))) //nolint:errcheck
		if pid != 0 {
			pids[int32(pid)] = struct{}{}
		}
		return 1
	})
	if ret, _, err := procEnumWindows.Call(cb, 0); ret == 0 {
		return nil, fmt.Errorf("hostops: enum windows: %w", err)
	}
	return pids, nil
}

func lockSession() error {
	if ret, _, err := procLockWorkStation.Call(); ret == 0 {
		return fmt.Errorf("hostops: lock workstation: %w", err)
	}
	return nil
}

// pressVolumeKey synthesizes a media key press; the mixer applies its
// own step size.
func pressVolumeKey(action VolumeAction) error {
	var vk uintptr
	switch action {
	case VolumeUp:
		vk = vkVolumeUp
	case VolumeDown:
		vk = vkVolumeDown
	case VolumeMute:
		vk = vkVolumeMute
	default:
		return fmt.Errorf("hostops: unknown volume action %d", action)
	}
	procKeybdEvent.Call(vk, 0, 0, 0)              //nolint:errcheck
	procKeybdEvent.Call(vk, 0, keyeventfKeyUp, 0) //nolint:errcheck
	return nil
}
