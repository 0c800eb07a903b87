package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/market-backoffice/internal/dto"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

// RateLimitMiddleware ограничивает число изменяющих запросов.
// Ключ: администратор, если он уже известен, иначе IP.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := c.ClientIP()
		if admin := CurrentAdmin(c); admin != nil {
			key = "admin:" + admin.ID.String()
		}

		lctx, err := instance.Get(c, key)
		if err != nil {
			AbortWithError(c, apperror.Wrap(err, apperror.ErrCodeInternal, "rate limiter failed"))
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", lctx.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", lctx.Reset))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.Fail("RATE_LIMITED", "слишком много запросов, попробуйте позже"))
			return
		}

		c.Next()
	}
}

// MutatingOnly применяет mw только к изменяющим методам.
func MutatingOnly(mw gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			mw(c)
		}
	}
}
