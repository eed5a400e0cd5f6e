package middleware

import (
	"net/http"
	"slices"
	"strconv"

	"memo-api/src/config"
	"memo-api/src/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const wildcardOrigin = "*"

// CORSMiddleware 設定されたオリジンにのみクロスオリジンアクセスを許可するmiddleware
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowAll := slices.Contains(cfg.AllowedOrigins, wildcardOrigin)
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		preflight := c.Request.Method == http.MethodOptions

		fields := logrus.Fields{
			"method": c.Request.Method,
			"origin": origin,
			"uri":    c.Request.RequestURI,
		}

		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", wildcardOrigin)
		case origin != "" && slices.Contains(cfg.AllowedOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		case origin != "":
			// 許可されていないオリジンにはCORSヘッダーを返さない
			logger.WithFields(fields).Debug("許可されていないオリジンからのリクエスト")
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", maxAge)

		if preflight {
			logger.WithFields(fields).Debug("CORSプリフライトリクエストを処理しました")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
