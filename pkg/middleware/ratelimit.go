package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/taskhive/taskhive/pkg/observability"
)

// RateLimitConfig bounds requests per client within a rolling window
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// LoginRateLimitConfig is the default credential-endpoint limit: 10
// attempts per minute per client IP.
func LoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
	}
}

// RateLimiter is a Redis-backed fixed-window counter shared across
// instances. Redis failures fail open: losing throttling is cheaper than
// losing logins.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	prefix string
	logger *observability.Logger
}

// NewRateLimiter creates a Redis-backed rate limiter
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig, prefix string, logger *observability.Logger) *RateLimiter {
	if config.RequestsPerWindow <= 0 {
		config = LoginRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &RateLimiter{redis: redisClient, config: config, prefix: prefix, logger: logger}
}

// Allow counts one request against the key and reports whether it is under
// the limit. The counter and its expiry are set in one pipeline so the
// window starts with the first request.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), nil
}

// TTL returns the time until the window for the key resets
func (rl *RateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Result()
}

// Reset clears the counter for a key
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// Handler throttles requests per client IP
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := "ip:" + clientIP(r)

		allowed, err := rl.Allow(ctx, key)
		if err != nil {
			rl.logger.WithError(err).Warn("rate limiter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			rl.tooManyRequests(ctx, w, key)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) tooManyRequests(ctx context.Context, w http.ResponseWriter, key string) {
	retryAfter := rl.config.WindowDuration.Seconds()
	if ttl, err := rl.TTL(ctx, key); err == nil && ttl > 0 {
		retryAfter = ttl.Seconds()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error":"rate limit exceeded","retry_after":%.0f}`, retryAfter)
}
