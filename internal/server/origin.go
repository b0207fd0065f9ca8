// Package server normalizes and validates the Origin header on WebSocket
// upgrade requests against the configured allow-list.
package server

import (
	"log"
	"net/http"
	"net/url"
	"strings"
)

// normalizeOrigins canonicalizes the configured allow-list, dropping blank
// and malformed entries. The second result reports whether a "*" wildcard
// was present.
func normalizeOrigins(origins []string) ([]string, bool) {
	var (
		normalized []string
		allowAll   bool
	)

	for _, raw := range origins {
		switch trimmed := strings.TrimSpace(raw); {
		case trimmed == "":
		case trimmed == "*":
			allowAll = true
		default:
			if canonical, ok := normalizeOrigin(trimmed); ok {
				normalized = append(normalized, canonical)
			} else {
				log.Printf("Ignoring invalid origin in configuration: %q", raw)
			}
		}
	}

	return normalized, allowAll
}

// normalizeOrigin reduces an origin to lowercase scheme://host form.
func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// checkOrigin is the upgrader's origin policy. Browsers always send an
// Origin header on WebSocket requests; requests without one are refused
// rather than trusted.
func checkOrigin(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		log.Printf("Blocked WebSocket connection without an Origin header")
		return false
	}

	canonical, ok := normalizeOrigin(header)
	if !ok {
		log.Printf("Blocked WebSocket connection from malformed origin: %q", header)
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}
	if _, allowed := allowedOrigins[canonical]; allowed {
		return true
	}

	log.Printf("Blocked WebSocket connection from disallowed origin: %q", header)
	return false
}
