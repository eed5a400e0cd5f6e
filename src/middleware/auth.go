package middleware

import (
	"net/http"
	"strings"

	"memo-api/src/interface/handler"
	"memo-api/src/logger"
	"memo-api/src/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SubjectKey 認証済みトークンのsubjectを保持するキー
const SubjectKey = "subject"

// AuthMiddleware Bearerトークンを検証するmiddleware
func AuthMiddleware(jwtService service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := logrus.Fields{
			"request_id": GetRequestID(c),
			"client_ip":  c.ClientIP(),
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.WithFields(fields).Warn("認証失敗: Authorizationヘッダーがありません")
			abortUnauthorized(c, "Authorization header required")
			return
		}

		// Bearer tokenの形式をチェック
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			logger.WithFields(fields).Warn("認証失敗: Bearer tokenの形式が正しくありません")
			abortUnauthorized(c, "Invalid authorization format")
			return
		}
		if strings.TrimSpace(token) == "" {
			logger.WithFields(fields).Warn("認証失敗: tokenが空です")
			abortUnauthorized(c, "Token is empty")
			return
		}

		subject, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			fields["error"] = err.Error()
			logger.WithFields(fields).Warn("認証失敗: 無効なJWTトークン")
			abortUnauthorized(c, "Invalid token")
			return
		}

		c.Set(SubjectKey, subject)

		fields["subject"] = subject
		logger.WithFields(fields).Debug("認証成功")
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, handler.ErrorResponseDTO{
		Error:   "Unauthorized",
		Message: message,
	})
}
