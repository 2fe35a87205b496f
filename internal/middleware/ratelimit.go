package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cardkiosk/cardkiosk/internal/modules/serializer"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ClaimRateLimit limits claim attempts per claimant identity using a fixed
// one-minute window counter in Redis. Fails open when Redis is unreachable:
// correctness of claiming never depends on the limiter.
func ClaimRateLimit(rdb *redis.Client, perMinute int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || perMinute <= 0 {
			c.Next()
			return
		}

		claimant := c.GetString(ClaimantKey)
		if claimant == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:claim:%s:%d", claimant, window)

		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Sugar().Warnw("rate limit counter unavailable", "err", err)
			c.Next()
			return
		}
		if n == 1 {
			rdb.Expire(ctx, key, time.Minute)
		}

		if n > int64(perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				serializer.Err(http.StatusTooManyRequests, "too many claim attempts, slow down", nil))
			return
		}
		c.Next()
	}
}
