package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/novapay/gateway/metrics"
)

// Metrics records HTTP request count, latency, and error-rate metrics to
// CloudWatch, adapted from the teacher's MetricsMiddleware. Emission is
// asynchronous so a slow CloudWatch call never adds to request latency.
func Metrics(client *metrics.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !client.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		dims := map[string]string{
			"Method": method,
			"Path":   path,
			"Status": statusRange(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.RecordCount(ctx, metrics.MetricHTTPRequests, dims)
			_ = client.RecordLatency(ctx, metrics.MetricHTTPLatency, duration, dims)
			if status >= 400 {
				_ = client.RecordCount(ctx, metrics.MetricHTTPErrors, dims)
				if status < 500 {
					_ = client.RecordCount(ctx, metrics.MetricHTTP4xx, dims)
				} else {
					_ = client.RecordCount(ctx, metrics.MetricHTTP5xx, dims)
				}
			}
		}()
	}
}

func statusRange(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
