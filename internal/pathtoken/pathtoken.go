// Package pathtoken encodes filesystem paths into a transport-safe token
// alphabet so they can ride inside callback action tokens.
//
// The standard base64 alphabet is deliberate: its characters are disjoint
// from the '_' verb separator and from decimal page/pid arguments, so a
// decoded token can always be split unambiguously.
package pathtoken

import "encoding/base64"

// Encode returns the opaque token form of path. Empty input yields an
// empty token; Encode never fails.
func Encode(path string) string {
	if path == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(path))
}

// Decode reverses Encode. Malformed or empty input yields an empty
// string; Decode never fails.
func Decode(token string) string {
	if token == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return ""
	}
	return string(raw)
}
