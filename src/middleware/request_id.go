package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader リクエストIDのヘッダー名
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey gin.Context上のリクエストIDのキー
	RequestIDKey = "request_id"
)

// RequestIDMiddleware リクエストごとにIDを付与するmiddleware
// 受信したX-Request-IDがUUIDであればそれを引き継ぐ
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID gin.ContextからリクエストIDを取得
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
