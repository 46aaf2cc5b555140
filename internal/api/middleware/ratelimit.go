package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/venter/internal/api/response"
	"github.com/kiranshivaraju/venter/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
)

// RateLimit counts requests per caller in fixed one-minute windows held in
// Redis. Callers are identified by organisation and username, so a user
// holding several API keys still gets one budget.
type RateLimit struct {
	cache  cache.Cache
	budget int
}

// NewRateLimit creates a RateLimit allowing perMinute requests per caller.
func NewRateLimit(c cache.Cache, perMinute int) *RateLimit {
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, budget: perMinute}
}

// Limit must run after Authenticate. Requests without an actor pass through.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		used, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(actor.OrganisationID, actor.Username), rateWindow)
		if err != nil {
			// Fail open.
			slog.Warn("rate limit counter unavailable", "organisation", actor.Organisation, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		rl.writeHeaders(w, used)
		if used > int64(rl.budget) {
			slog.Info("rate limit exceeded", "organisation", actor.Organisation, "username", actor.Username, "count", used)
			w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimit) writeHeaders(w http.ResponseWriter, used int64) {
	remaining := max(rl.budget-int(used), 0)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.budget))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateWindow).Unix(), 10))
}
