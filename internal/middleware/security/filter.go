// Package security provides request filtering and body size middleware.
package security

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Config holds the configuration for security middleware
type Config struct {
	// FilterEnabled enables the scanner filter
	FilterEnabled bool
	// MaxBodySizeMB is the maximum request body size in megabytes
	MaxBodySizeMB int
}

// probePaths are never filtered.
var probePaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
}

// blockedPrefixes are path prefixes seen in scanner traffic. Nothing the API
// serves starts with any of them.
var blockedPrefixes = []string{
	"/.php",
	"/wp-admin",
	"/wp-includes",
	"/wp-content",
	"/wp-login",
	"/.git/",
	"/.env",
	"/.aws",
	"/web-inf/",
	"/cgi-bin/",
	"/admin/",
	"/phpmyadmin",
	"/phpinfo",
	"/shell",
	"/config.",
	"/.htaccess",
	"/.htpasswd",
	"/server-status",
	"/xmlrpc.php",
	"/actuator",
}

// blockedFragments are traversal and injection markers matched anywhere in the path.
var blockedFragments = []string{
	"../",
	"..\\",
	"..%2f",
	"..%5c",
	"%2e%2e/",
	"%00",
	"\x00",
}

// FilterMiddleware rejects requests whose path matches a known scanner probe
// or traversal pattern with a generic 400.
func FilterMiddleware(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !probePaths[r.URL.Path] && suspicious(r.URL) {
				writeDetail(w, http.StatusBadRequest, "Invalid request")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// suspicious checks the decoded path, the raw path and the raw path after
// one more round of unescaping.
func suspicious(u *url.URL) bool {
	candidates := []string{strings.ToLower(u.Path)}

	raw := u.EscapedPath()
	candidates = append(candidates, strings.ToLower(raw))
	if decoded, err := url.PathUnescape(raw); err == nil {
		candidates = append(candidates, strings.ToLower(decoded))
	}

	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(candidates[0], prefix) {
			return true
		}
	}
	for _, c := range candidates {
		for _, frag := range blockedFragments {
			if strings.Contains(c, frag) {
				return true
			}
		}
	}
	return false
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
