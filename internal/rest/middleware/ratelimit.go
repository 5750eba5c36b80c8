package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/alumnity/alumnity/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter applies a per-source-IP token bucket ahead of signature
// verification on the webhook endpoint. Limiters are held in a TTL
// cache so idle sources do not accumulate.
type RateLimiter struct {
	limiters *cache.Cache
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(cfg *config.Configuration) *RateLimiter {
	return &RateLimiter{
		limiters: cache.New(10*time.Minute, 15*time.Minute),
		rps:      rate.Limit(cfg.Webhook.RateLimitRPS),
		burst:    cfg.Webhook.RateLimitBurst,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	if cached, found := rl.limiters.Get(ip); found {
		return cached.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.limiters.SetDefault(ip, limiter)
	return limiter
}

// Middleware rejects over-limit sources with 429 and a retry-after hint
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiterFor(c.ClientIP())
		if !limiter.Allow() {
			retryAfter := int(math.Ceil(1 / float64(rl.rps)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: ErrorDetail{Display: "Too many requests, slow down"},
			})
			return
		}
		c.Next()
	}
}
