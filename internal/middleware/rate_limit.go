package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/alumni-onboard/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	// IPConfig decides which forwarding headers are trusted when keying
	// by client IP. Nil keys by RemoteAddr only.
	IPConfig *pkghttp.IPConfig
}

// DefaultAuthRateLimit returns the limit for signup and login (10 requests per minute)
func DefaultAuthRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 10, IPConfig: ipConfig}
}

// DefaultSendRateLimit returns the limit for endpoints that text or mail
// a member (5 requests per minute)
func DefaultSendRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 5, IPConfig: ipConfig}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests")
		}),
	)
}
