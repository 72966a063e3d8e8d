package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dinetap/dinein-app/utils"
)

// PaymentRateLimiter throttles the payment lock/unlock endpoints. A runaway
// client retry loop must not hammer the lock transaction.
func PaymentRateLimiter() gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Every(time.Second), 10)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(429, gin.H{
				"error":   "Too many requests",
				"message": "Please wait before making another payment request",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// LogPaymentRequest logs payment lock/unlock request details
func LogPaymentRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		utils.InfoLogger.Printf(
			"Payment Request - Method: %s, Path: %s, Status: %d, Duration: %v",
			method, path, status, duration,
		)
	}
}
