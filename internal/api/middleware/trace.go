package middleware

import (
	"Harbor/internal/pkg/logger"
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceMiddleware 为每个请求派发追踪 ID，贯穿 REST、WS 升级与服务层日志
// 客户端可通过 X-Trace-ID 透传自己的 ID，做端到端排查
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := inboundTraceID(c)

		c.Set(logger.TraceIDKey, traceID)
		ctx := context.WithValue(c.Request.Context(), logger.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Trace-ID", traceID)
		c.Next()
	}
}

// inboundTraceID 取客户端带来的追踪 ID，兼容网关常用的 X-Request-ID
func inboundTraceID(c *gin.Context) string {
	if id := c.GetHeader("X-Trace-ID"); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
