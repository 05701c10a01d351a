package middleware

import (
	"time"

	"reprise/logger"

	"github.com/gin-gonic/gin"
)

// Logging returns a middleware that logs each request through the
// structured logger
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("clientIP", c.ClientIP()))
	}
}
