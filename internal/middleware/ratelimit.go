package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow     int           // Requests allowed per session, or per address without one
	AddrRequestsPerWindow int           // Requests allowed per address across all sessions; 0 means 4x RequestsPerWindow
	Window                time.Duration // Time window for rate limiting
	KeyPrefix             string        // Redis key prefix
}

func (c RateLimitConfig) addrLimit() int64 {
	if c.AddrRequestsPerWindow > 0 {
		return int64(c.AddrRequestsPerWindow)
	}
	return 4 * int64(c.RequestsPerWindow)
}

// fixedWindow increments every key, starting its window on the first hit, and
// returns count and milliseconds left for each key in order.
var fixedWindow = redis.NewScript(`
local out = {}
for _, key in ipairs(KEYS) do
	local count = redis.call("INCR", key)
	if count == 1 then
		redis.call("PEXPIRE", key, ARGV[1])
	end
	table.insert(out, count)
	table.insert(out, redis.call("PTTL", key))
end
return out
`)

type windowHit struct {
	key   string
	limit int64
	count int64
	ttl   time.Duration
}

func (h windowHit) remaining() int64 {
	if h.count >= h.limit {
		return 0
	}
	return h.limit - h.count
}

func hitWindows(ctx context.Context, rdb *redis.Client, hits []windowHit, window time.Duration) error {
	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = h.key
	}

	res, err := fixedWindow.Run(ctx, rdb, keys, window.Milliseconds()).Int64Slice()
	if err != nil {
		return err
	}
	if len(res) != 2*len(hits) {
		return fmt.Errorf("unexpected rate limit reply %v", res)
	}

	for i := range hits {
		hits[i].count = res[2*i]
		hits[i].ttl = time.Duration(res[2*i+1]) * time.Millisecond
		if hits[i].ttl <= 0 {
			hits[i].ttl = window
		}
	}
	return nil
}

// clientAddr is the remote host without its port. RealIP has already
// replaced RemoteAddr when a proxy header is present.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware implements a fixed-window limiter on Redis. Every
// request counts against its address; a session token adds a per-session
// window on top, so rotating tokens cannot lift the address budget. Redis
// failures let the request through.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientAddr(r)
			hits := []windowHit{{
				key:   config.KeyPrefix + ":addr:" + addr,
				limit: int64(config.RequestsPerWindow),
			}}
			if sessionID, ok := GetSessionID(r.Context()); ok {
				hits[0].limit = config.addrLimit()
				hits = append(hits, windowHit{
					key:   config.KeyPrefix + ":session:" + sessionID,
					limit: int64(config.RequestsPerWindow),
				})
			}

			if err := hitWindows(r.Context(), redisClient, hits, config.Window); err != nil {
				logger.Error("Rate limit check failed, letting request through",
					zap.Error(err),
					zap.String("addr", addr),
				)
				next.ServeHTTP(w, r)
				return
			}

			// Headers describe an exceeded window, else the one with least left
			tightest := hits[0]
			for _, h := range hits[1:] {
				if tightest.count > tightest.limit {
					break
				}
				if h.count > h.limit || h.remaining() < tightest.remaining() {
					tightest = h
				}
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(tightest.limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(tightest.remaining(), 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(tightest.ttl).Unix(), 10))

			if tightest.count > tightest.limit {
				logger.Warn("Rate limit exceeded",
					zap.String("key", tightest.key),
					zap.Int64("count", tightest.count),
					zap.Int64("limit", tightest.limit),
				)

				w.Header().Set("Retry-After", strconv.Itoa(int((tightest.ttl+time.Second-1)/time.Second)))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
