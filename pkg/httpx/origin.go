package httpx

import (
	"net/http"
	"strings"
)

// OriginMiddleware rejects requests whose Origin header is not in the allow
// list. An empty allow list disables the check. Matching is case-insensitive
// and ignores a single trailing slash.
func OriginMiddleware(allowed []string, onReject http.Handler) Middleware {
	want := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		want[normalizeOrigin(o)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			origin := normalizeOrigin(r.Header.Get("Origin"))
			if _, ok := want[origin]; !ok {
				onReject.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			w.Header().Set("Vary", "Origin")
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeOrigin(o string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(o)), "/")
}
