package middleware

import (
	"Harbor/internal/pkg/ratelimit"
	"Harbor/internal/pkg/response"
	"Harbor/internal/service"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware 按客户端 IP 对 REST 请求限流
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.Error(c, service.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
