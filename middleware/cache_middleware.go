package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextyou21/planner-backend/cache"
	"github.com/nextyou21/planner-backend/utils"
	"go.uber.org/zap"
)

type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// CachedResponse serves GET responses from redis, keyed per user and path.
func CachedResponse(ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		user, ok := CurrentUser(c)
		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("resp:%d:%s?%s", user.ID, c.Request.URL.Path, c.Request.URL.RawQuery)
		var cached string
		if err := cache.Get(key, &cached); err == nil && cached != "" {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json", []byte(cached))
			c.Abort()
			return
		}

		blw := &bodyLogWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := cache.Set(key, blw.body.String(), ttl); err != nil {
				utils.Logger.Warn("cache_set_failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

// InvalidateUserCache drops cached responses for one user after a mutation.
func InvalidateUserCache(userID uint) {
	if err := cache.DeletePattern(fmt.Sprintf("resp:%d:*", userID)); err != nil {
		utils.Logger.Warn("cache_invalidate_failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// RateLimitMiddleware limits requests per client IP in a fixed window.
func RateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s", c.ClientIP())
		count, err := cache.IncrementCounter(key, window)
		if err != nil {
			c.Next()
			return
		}
		if count > int64(limit) {
			utils.ErrorCount.WithLabelValues("rate_limit", "too_many_requests").Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
