package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// Log InitLogger前でも使えるように標準出力のロガーで初期化しておく
	Log          = logrus.New()
	currentFile  *os.File
	logDirectory = "logs"
	mu           sync.Mutex
)

// InitLogger ロガーを初期化し、ファイル出力を設定
func InitLogger(level, directory string) error {
	mu.Lock()
	defer mu.Unlock()

	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("不正なログレベル %q: %w", level, err)
	}

	if directory != "" {
		logDirectory = directory
	}

	Log = logrus.New()
	Log.SetLevel(parsedLevel)

	// JSON形式でログを出力
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	// ログディレクトリを作成
	if err := os.MkdirAll(logDirectory, 0755); err != nil {
		return fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
	}

	// 新しいログファイルを作成
	if err := rotateLogFile(); err != nil {
		return fmt.Errorf("ログファイルの作成に失敗: %w", err)
	}

	// 標準出力とファイルの両方に出力
	Log.SetOutput(io.MultiWriter(os.Stdout, currentFile))

	Log.WithField("level", parsedLevel.String()).Info("ロガーが初期化されました")
	return nil
}

// rotateLogFile 新しいログファイルを作成
func rotateLogFile() error {
	// 既存のファイルを閉じる
	if currentFile != nil {
		currentFile.Close()
		currentFile = nil
	}

	// 新しいファイル名を生成（タイムスタンプ付き）
	filename := fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(logDirectory, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	currentFile = file
	Log.WithField("file", path).Info("新しいログファイルを作成しました")
	return nil
}

// GetCurrentLogFile 現在のログファイルパスを取得
func GetCurrentLogFile() string {
	mu.Lock()
	defer mu.Unlock()

	if currentFile != nil {
		return currentFile.Name()
	}
	return ""
}

// GetLogDirectory ログ出力先ディレクトリを取得
func GetLogDirectory() string {
	mu.Lock()
	defer mu.Unlock()
	return logDirectory
}

// CloseLogger ロガーを終了
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if currentFile != nil {
		Log.Info("ログファイルを閉じます")
		Log.SetOutput(os.Stdout)
		currentFile.Close()
		currentFile = nil
	}
}

// WithFields フィールド付きログエントリを作成
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

// WithField フィールド付きログエントリを作成（単一フィールド）
func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}
