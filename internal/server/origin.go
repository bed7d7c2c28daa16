package server

import (
	"net/http"
	"net/url"
	"strings"
)

// sameOrigin accepts push upgrades from pages served by this server. Clients
// that send no Origin header (non-browser tools) are accepted.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	requestHost := r.Host
	if requestHost == "" {
		requestHost = r.URL.Host
	}

	return normalizeHost(originURL.Host) == normalizeHost(requestHost)
}

// normalizeHost treats localhost, 127.0.0.1 and ::1 as equivalent and keeps the port.
func normalizeHost(host string) string {
	name, port := host, ""
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.HasSuffix(host, "]") {
		name, port = host[:idx], host[idx+1:]
	}

	switch strings.ToLower(name) {
	case "localhost", "127.0.0.1", "[::1]":
		name = "localhost"
	default:
		name = strings.ToLower(name)
	}
	if port == "" {
		return name
	}
	return name + ":" + port
}
