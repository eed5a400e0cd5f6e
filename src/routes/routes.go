package routes

import (
	"context"
	"net/http"
	"time"

	"memo-api/src/config"
	"memo-api/src/interface/handler"
	"memo-api/src/logger"
	"memo-api/src/middleware"
	"memo-api/src/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// healthTimeout ヘルスチェック時のストレージ疎通確認のタイムアウト
const healthTimeout = 2 * time.Second

// MetricsProvider HTTPメトリクスの記録と公開
type MetricsProvider interface {
	middleware.HTTPRecorder
	Handler() http.Handler
}

// Dependencies ルーター構築に必要なコンポーネント
type Dependencies struct {
	MemoHandler *handler.MemoHandler
	// Metrics nilの場合は /metrics を公開しない
	Metrics MetricsProvider
	// JWTService nilの場合は認証なしで /api/memos を公開する
	JWTService service.JWTService
	// HealthCheck nilの場合はストレージの疎通確認を省略する
	HealthCheck func(ctx context.Context) error
	// CORS 未設定の場合はデフォルト（全オリジン許可）を使う
	CORS config.CORSConfig
}

// NewRouter ミドルウェアとルートを設定したgin.Engineを作成
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())

	SetupRoutes(r, deps)
	return r
}

// SetupRoutes sets up all API routes
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	r.NoRoute(func(c *gin.Context) {
		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"uri":       c.Request.RequestURI,
			"client_ip": c.ClientIP(),
		}).Warn("404: ルートが見つかりません")
		c.JSON(http.StatusNotFound, handler.ErrorResponseDTO{Error: "Route not found"})
	})

	r.NoMethod(func(c *gin.Context) {
		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"uri":       c.Request.RequestURI,
			"client_ip": c.ClientIP(),
		}).Warn("405: サポートされていないメソッド")
		c.JSON(http.StatusMethodNotAllowed, handler.ErrorResponseDTO{Error: "Method not allowed"})
	})

	// グローバルmiddlewareを適用
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	if deps.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	corsConfig := deps.CORS
	if len(corsConfig.AllowedOrigins) == 0 {
		corsConfig = config.DefaultConfig().CORS
	}
	r.Use(middleware.CORSMiddleware(corsConfig))

	// 認証が不要なパブリックルート
	r.GET("/health", healthHandler(deps.HealthCheck))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	memos := r.Group("/api/memos")
	if deps.JWTService != nil {
		memos.Use(middleware.AuthMiddleware(deps.JWTService))
	}
	{
		memoHandler := deps.MemoHandler
		memos.POST("", memoHandler.CreateMemo)           // POST /api/memos
		memos.GET("", memoHandler.ListMemos)             // GET /api/memos
		memos.GET("/:id", memoHandler.GetMemo)           // GET /api/memos/:id
		memos.PUT("/:id", memoHandler.UpdateMemo)        // PUT /api/memos/:id
		memos.PATCH("/:id", memoHandler.UpdateMemoTitle) // PATCH /api/memos/:id
		memos.DELETE("/:id", memoHandler.DeleteMemo)     // DELETE /api/memos/:id
	}
}

// healthHandler ヘルスチェック用のエンドポイント
func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.WithField("endpoint", "/health").Debug("ヘルスチェックエンドポイントにアクセス")

		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()

			if err := check(ctx); err != nil {
				logger.Log.WithError(err).Error("ヘルスチェックに失敗")
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "UNAVAILABLE",
					"timestamp": time.Now().Format(time.RFC3339),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
