// Package loopback restricts the local websocket endpoints to clients on
// the same host.
package loopback

import (
	"net"
	"net/http"
	"strings"
)

// Remote reports whether an http.Request RemoteAddr is a loopback address.
func Remote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Allow writes 403 and returns false unless r comes from loopback.
func Allow(rw http.ResponseWriter, r *http.Request) bool {
	if Remote(r.RemoteAddr) {
		return true
	}
	http.Error(rw, "forbidden", http.StatusForbidden)
	return false
}
