package api

import (
	"net/http"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/gin-gonic/gin"
)

func (a *API) rateLimitRead() gin.HandlerFunc {
	return a.rateLimit("read", a.rateLimiter.config.ReadRequestsPerMin)
}

func (a *API) rateLimitWrite() gin.HandlerFunc {
	return a.rateLimit("write", a.rateLimiter.config.WriteRequestsPerMin)
}

// rateLimit keys budgets by client IP. The operator header is unverified
// and does not get a budget of its own.
func (a *API) rateLimit(class string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := class + ":ip:" + c.ClientIP()

		if !a.rateLimiter.Allow(key, limit) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errors.ErrRateLimited.ToResponse())
			return
		}
		c.Next()
	}
}
