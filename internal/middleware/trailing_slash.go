// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strings"
)

// StripTrailingSlash redirects GET and HEAD requests for paths with a
// trailing slash to their canonical form (HTTP 301). Other methods are
// served unchanged so request bodies are never lost. The root path and
// prefix-mounted trees such as /uploads/ are excluded.
func StripTrailingSlash(exclude ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/" || !strings.HasSuffix(path, "/") ||
				(r.Method != http.MethodGet && r.Method != http.MethodHead) {
				next.ServeHTTP(w, r)
				return
			}
			for _, prefix := range exclude {
				if strings.HasPrefix(path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			newURL := strings.TrimRight(path, "/")
			if newURL == "" || strings.HasPrefix(newURL, "//") {
				// "//host" would redirect off-site.
				next.ServeHTTP(w, r)
				return
			}
			if r.URL.RawQuery != "" {
				newURL += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, newURL, http.StatusMovedPermanently)
		})
	}
}
