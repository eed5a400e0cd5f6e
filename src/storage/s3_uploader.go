package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
)

// objectPrefix S3上のログファイルのプレフィックス
const objectPrefix = "logs/"

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
}

// LogUploader ローテーション済みのログファイルをS3に退避する
type LogUploader struct {
	s3Client   s3iface.S3API
	config     *S3Config
	logger     *logrus.Logger
	activeFile func() string
}

// NewLogUploader S3アップローダーを作成
func NewLogUploader(config *S3Config, logger *logrus.Logger) (*LogUploader, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(config.Region),
		Credentials:      credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""),
		DisableSSL:       aws.Bool(!config.UseSSL),
		S3ForcePathStyle: aws.Bool(true), // MinIOなどのS3互換ストレージ用
	}

	// エンドポイントが指定されている場合（MinIOなど）
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("AWSセッションの作成に失敗: %w", err)
	}

	return NewLogUploaderWithClient(s3.New(sess), config, logger), nil
}

// NewLogUploaderWithClient 既存のS3クライアントでアップローダーを作成
func NewLogUploaderWithClient(client s3iface.S3API, config *S3Config, logger *logrus.Logger) *LogUploader {
	return &LogUploader{
		s3Client:   client,
		config:     config,
		logger:     logger,
		activeFile: func() string { return "" },
	}
}

// SkipActiveFile 書き込み中のログファイルをアップロード対象から除外する
func (u *LogUploader) SkipActiveFile(activeFile func() string) {
	u.activeFile = activeFile
}

// UploadLogFile ログファイルをS3にアップロード
func (u *LogUploader) UploadLogFile(ctx context.Context, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}
	defer file.Close()

	fileName := filepath.Base(filePath)
	objectKey := objectPrefix + fileName

	_, err = u.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Bucket),
		Key:         aws.String(objectKey),
		Body:        file,
		ContentType: aws.String("text/plain"),
		Metadata: map[string]*string{
			"upload-time": aws.String(time.Now().Format(time.RFC3339)),
			"source":      aws.String("memo-api"),
		},
	})
	if err != nil {
		return fmt.Errorf("S3アップロードに失敗: %w", err)
	}

	u.logger.WithFields(logrus.Fields{
		"file":   fileName,
		"bucket": u.config.Bucket,
		"key":    objectKey,
	}).Info("ログファイルをS3にアップロードしました")

	return nil
}

// UploadOldLogs maxAgeより古いログファイルをアップロードして削除し、件数を返す
func (u *LogUploader) UploadOldLogs(ctx context.Context, logDir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return 0, fmt.Errorf("ログディレクトリの読み取りに失敗: %w", err)
	}

	cutoffTime := time.Now().Add(-maxAge)
	active := filepath.Base(u.activeFile())
	uploaded := 0

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") || entry.Name() == active {
			continue
		}

		filePath := filepath.Join(logDir, entry.Name())
		fileInfo, err := entry.Info()
		if err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ファイル情報の取得に失敗")
			continue
		}

		if !fileInfo.ModTime().Before(cutoffTime) {
			continue
		}

		u.logger.WithFields(logrus.Fields{
			"file":    entry.Name(),
			"modTime": fileInfo.ModTime(),
			"cutoff":  cutoffTime,
		}).Info("古いログファイルをアップロード中")

		if err := u.UploadLogFile(ctx, filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ログファイルのアップロードに失敗")
			continue
		}
		uploaded++

		// アップロード済みのローカルファイルを削除
		if err := os.Remove(filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ローカルファイルの削除に失敗")
		}
	}

	return uploaded, nil
}

// StartPeriodicUpload ctxがキャンセルされるまで定期的にアップロードする
func (u *LogUploader) StartPeriodicUpload(ctx context.Context, logDir string, interval, maxAge time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				u.logger.Info("定期的なログアップロードを停止しました")
				return
			case <-ticker.C:
				u.logger.Debug("定期的なログアップロードを開始")
				if _, err := u.UploadOldLogs(ctx, logDir, maxAge); err != nil {
					u.logger.WithError(err).Error("定期的なログアップロードに失敗")
				}
			}
		}
	}()

	u.logger.WithFields(logrus.Fields{
		"interval": interval,
		"maxAge":   maxAge,
	}).Info("定期的なログアップロードを開始しました")

	return done
}
