package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/logger"
	"github.com/Pack144/packman-sub000/shared/middleware/ratelimiter"
	"github.com/Pack144/packman-sub000/shared/utils"
)

// KeyFunc picks the rate limiting key of a request.
type KeyFunc func(r *http.Request) (string, error)

func RateLimit(l *ratelimiter.KeyedLimiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, err := key(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !l.Allow(k) {
				logger.Log.Warn("rate limit exceeded", "path", r.URL.Path, "key", k)
				http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ByIP keys on the TCP peer address. Forwarding headers are not trusted.
func ByIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) == nil {
		return "", errors.BadRequest(fmt.Sprintf("invalid IP address: %s", ip))
	}
	return ip, nil
}
