package middleware

import "net/http"

// APICSP allows nothing: the API serves JSON only.
const APICSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders sets the response hardening headers. HSTS is only sent
// when the site is served over https.
func SecurityHeaders(https bool, csp string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp != "" {
				h.Set("Content-Security-Policy", csp)
			}
			if https {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
