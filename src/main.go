package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memo-api/src/config"
	"memo-api/src/database"
	"memo-api/src/domain"
	"memo-api/src/infrastructure/memory"
	"memo-api/src/infrastructure/observability"
	"memo-api/src/infrastructure/repository"
	"memo-api/src/infrastructure/resilience"
	"memo-api/src/interface/handler"
	"memo-api/src/logger"
	"memo-api/src/routes"
	"memo-api/src/service"
	"memo-api/src/storage"
	"memo-api/src/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	driverMemory     = "memory"
	metricsNamespace = "memo_api"
	startupTimeout   = 30 * time.Second
)

func main() {
	issueToken := flag.String("issue-token", "", "指定したsubjectのアクセストークンを発行して終了")
	flag.Parse()

	// 設定を読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		token, err := service.NewJWTService(cfg.Auth).GenerateAccessToken(*issueToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "トークンの発行に失敗: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// ロガーを初期化
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.Directory); err != nil {
		panic(fmt.Sprintf("ロガーの初期化に失敗: %v", err))
	}

	if err := run(cfg); err != nil {
		logger.Log.WithError(err).Error("アプリケーションが異常終了しました")
		logger.CloseLogger()
		os.Exit(1)
	}
	logger.CloseLogger()
}

func run(cfg *config.Config) error {
	logger.Log.Info("アプリケーションを開始しています")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewCollector(metricsNamespace)

	repo, healthCheck, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	if cfg.Breaker.Enabled {
		repo = resilience.NewBreakerMemoRepository(repo, resilience.CircuitBreakerConfig{
			Name:             "memo-repository",
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MinRequests:      cfg.Breaker.MinRequests,
		}, logger.Log, metrics.SetBreakerState)
	}
	repo = observability.NewMetricsMemoRepository(repo, metrics)

	memoUsecase := usecase.NewMemoUsecase(repo)
	memoHandler := handler.NewMemoHandler(memoUsecase, logger.Log)

	deps := routes.Dependencies{
		MemoHandler: memoHandler,
		Metrics:     metrics,
		HealthCheck: healthCheck,
		CORS:        cfg.CORS,
	}
	if cfg.Auth.Enabled {
		deps.JWTService = service.NewJWTService(cfg.Auth)
		logger.Log.Info("メモAPIの認証を有効化しました")
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(deps)

	// S3アップローダーを初期化（設定が有効な場合）
	uploader, uploadDone := startLogUploader(ctx, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.WithField("port", cfg.Server.Port).Info("サーバーを開始します")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	case <-ctx.Done():
		logger.Log.Info("シャットダウンシグナルを受信しました")
	}
	// 定期アップロードも停止させる
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("グレースフルシャットダウンに失敗")
	}

	if uploader != nil {
		<-uploadDone
		// 最後のログアップロードを実行
		logger.Log.Info("最後のログアップロードを実行中...")
		logger.CloseLogger()
		if _, err := uploader.UploadOldLogs(shutdownCtx, cfg.Log.Directory, 0); err != nil {
			logger.Log.WithError(err).Error("最後のログアップロードに失敗")
		}
	}

	logger.Log.Info("サーバーを停止しました")
	return nil
}

// openStorage 設定されたドライバーのリポジトリを作成
func openStorage(ctx context.Context, cfg *config.Config) (domain.MemoRepository, func(context.Context) error, func(), error) {
	if cfg.Database.Driver == driverMemory {
		logger.Log.Warn("インメモリストレージを使用します（再起動でデータは失われます）")
		return memory.NewMemoRepository(logger.Log), nil, func() {}, nil
	}

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	db, err := database.NewDB(startupCtx, &database.Config{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("データベースへの接続に失敗: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(startupCtx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("マイグレーションに失敗: %w", err)
		}
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Log.WithError(err).Error("データベース接続のクローズに失敗")
		}
	}
	return repository.NewMemoRepository(db, logger.Log), db.Health, closeDB, nil
}

// startLogUploader ログのS3アップロードを開始（無効な場合はnil）
func startLogUploader(ctx context.Context, cfg *config.Config) (*storage.LogUploader, <-chan struct{}) {
	if !cfg.Log.UploadEnabled {
		return nil, nil
	}

	uploader, err := storage.NewLogUploader(&storage.S3Config{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		UseSSL:          cfg.S3.UseSSL,
	}, logger.Log)
	if err != nil {
		logger.Log.WithError(err).Error("S3アップローダーの初期化に失敗")
		return nil, nil
	}
	uploader.SkipActiveFile(logger.GetCurrentLogFile)

	logger.WithFields(logrus.Fields{
		"bucket":   cfg.S3.Bucket,
		"endpoint": cfg.S3.Endpoint,
	}).Info("ログのS3アップロードを有効化しました")

	return uploader, uploader.StartPeriodicUpload(ctx, cfg.Log.Directory, cfg.Log.UploadInterval, cfg.Log.UploadMaxAge)
}
