package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/stationkit/stationkit/internal/api/models"
)

// RateLimit is a request budget per client IP.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

var (
	// QueryRateLimit applies to catalog lookups and filters (120 req/min).
	QueryRateLimit = RateLimit{Requests: 120, Window: time.Minute}

	// HeavyRateLimit applies to SQL queries and interpolation, which fetch
	// value series or build a database per call (20 req/min).
	HeavyRateLimit = RateLimit{Requests: 20, Window: time.Minute}
)

// RateLimitByIP limits requests per client IP and answers with a 429
// problem once the budget is spent.
func RateLimitByIP(cfg RateLimit) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(cfg.Window.Seconds()))
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			models.NewTooManyRequests(GetRequestID(r.Context()), "rate limit exceeded, retry later").
				WithInstance(r.URL.Path).
				Write(w)
		}),
	)
}
