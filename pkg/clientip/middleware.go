package clientip

import "net/http"

// Middleware resolves the client address with FromRequest and stores it in
// the request context.
func Middleware(headers ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := FromRequest(r, headers...)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ip)))
		})
	}
}

// Allow rejects requests whose client address (from the context, or
// RemoteAddr when Middleware did not run) is outside networks. Rejected
// requests are passed to deny, or answered 403 when deny is nil.
// An empty networks list allows everything.
func Allow(networks Networks, deny http.Handler) func(http.Handler) http.Handler {
	if deny == nil {
		deny = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
	return func(next http.Handler) http.Handler {
		if len(networks) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := FromContext(r.Context())
			if !ip.IsValid() {
				ip = FromRequest(r)
			}
			if !networks.Contains(ip) {
				deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
