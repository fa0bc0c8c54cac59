package hostops

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/kbinani/screenshot"
)

// CaptureScreen grabs the primary display and returns it PNG-encoded.
func CaptureScreen() ([]byte, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, ErrUnsupported
	}
	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return nil, fmt.Errorf("hostops: capture display: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("hostops: encode capture: %w", err)
	}
	return buf.Bytes(), nil
}
