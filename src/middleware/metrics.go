package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute ルートに一致しなかったリクエストのラベル
const unmatchedRoute = "unmatched"

// HTTPRecorder HTTPリクエストのメトリクス記録先
type HTTPRecorder interface {
	RecordHTTPRequest(method, route, status string, duration time.Duration)
}

// MetricsMiddleware リクエスト数とレイテンシを記録するmiddleware
// ラベルにはパスではなくルートのテンプレートを使う
func MetricsMiddleware(recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		recorder.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
