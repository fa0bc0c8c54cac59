package supervisor

import (
	"errors"
	"net"
	"net/url"
	"syscall"
)

// isNetworkErr recognizes connectivity-level failures that deserve the
// shorter transport wait rather than the generic retry tier.
func isNetworkErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}
