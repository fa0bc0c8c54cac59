package executor

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodeOutput normalizes raw process output to UTF-8. Console tools on
// localized hosts still emit legacy OEM/ANSI code pages; UTF-8 is tried
// first, then cp866 and cp1251, with latin-1 as the lossless fallback.
func decodeOutput(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	for _, cm := range []*charmap.Charmap{charmap.CodePage866, charmap.Windows1251} {
		decoded, err := cm.NewDecoder().Bytes(raw)
		if err == nil && !strings.ContainsRune(string(decoded), utf8.RuneError) {
			return string(decoded)
		}
	}
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	return string(decoded)
}
