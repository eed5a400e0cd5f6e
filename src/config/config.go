package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"memo-api/src/validator"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config アプリケーション設定
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	S3       S3Config       `yaml:"s3"`
	Auth     AuthConfig     `yaml:"auth"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig データベース設定
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" validate:"oneof=postgres pgx memory"`
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host" validate:"required_without=URL"`
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// LogConfig ログ設定
type LogConfig struct {
	Level          string        `yaml:"level" validate:"oneof=debug info warn error"`
	Directory      string        `yaml:"directory" validate:"required"`
	UploadEnabled  bool          `yaml:"upload_enabled"`
	UploadMaxAge   time.Duration `yaml:"upload_max_age"`
	UploadInterval time.Duration `yaml:"upload_interval" validate:"gt=0"`
}

// S3Config S3設定
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// AuthConfig 認証設定（有効な場合は /api/memos にBearerトークンが必要）
type AuthConfig struct {
	Enabled      bool          `yaml:"enabled"`
	JWTSecret    string        `yaml:"jwt_secret" validate:"required_if=Enabled true"`
	JWTExpiresIn time.Duration `yaml:"jwt_expires_in"`
	Issuer       string        `yaml:"issuer"`
}

// BreakerConfig ストレージ呼び出しのサーキットブレーカー設定
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// CORSConfig ブラウザからのクロスオリジンアクセス設定
type CORSConfig struct {
	// AllowedOrigins "*" を含む場合はすべてのオリジンを許可
	AllowedOrigins []string      `yaml:"allowed_origins" validate:"min=1,dive,required"`
	MaxAge         time.Duration `yaml:"max_age" validate:"gte=0"`
}

// DefaultConfig デフォルト値の設定
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "memo_user",
			Password:        "memo_password",
			DBName:          "memo_db",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Log: LogConfig{
			Level:          "info",
			Directory:      "logs",
			UploadEnabled:  false,
			UploadMaxAge:   24 * time.Hour,
			UploadInterval: 1 * time.Hour,
		},
		S3: S3Config{
			Endpoint:        "http://localhost:9000", // MinIO用のデフォルト
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			Region:          "us-east-1",
			Bucket:          "memo-api-logs",
			UseSSL:          false,
		},
		Auth: AuthConfig{
			Enabled:      false,
			JWTExpiresIn: 1 * time.Hour,
			Issuer:       "memo-api",
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			MaxAge:         24 * time.Hour,
		},
	}
}

// LoadConfig 設定を読み込み
// 優先順位: デフォルト値 < CONFIG_FILE (YAML) < .env < 環境変数
func LoadConfig() (*Config, error) {
	// .envファイルは任意（既存の環境変数は上書きしない）
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Validate 設定値を検証
func (c *Config) Validate() error {
	if err := validator.NewCustomValidator().Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// loadFile YAMLファイルの値で上書き
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv 環境変数で上書き
func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.ShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getIntEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getDurationEnv("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)
	c.Database.AutoMigrate = getBoolEnv("DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Directory = getEnv("LOG_DIRECTORY", c.Log.Directory)
	c.Log.UploadEnabled = getBoolEnv("LOG_UPLOAD_ENABLED", c.Log.UploadEnabled)
	c.Log.UploadMaxAge = getDurationEnv("LOG_UPLOAD_MAX_AGE", c.Log.UploadMaxAge)
	c.Log.UploadInterval = getDurationEnv("LOG_UPLOAD_INTERVAL", c.Log.UploadInterval)

	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", c.S3.AccessKeyID)
	c.S3.SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", c.S3.SecretAccessKey)
	c.S3.Region = getEnv("S3_REGION", c.S3.Region)
	c.S3.Bucket = getEnv("S3_BUCKET", c.S3.Bucket)
	c.S3.UseSSL = getBoolEnv("S3_USE_SSL", c.S3.UseSSL)

	c.Auth.Enabled = getBoolEnv("AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWTExpiresIn = getDurationEnv("JWT_EXPIRES_IN", c.Auth.JWTExpiresIn)
	c.Auth.Issuer = getEnv("JWT_ISSUER", c.Auth.Issuer)

	c.Breaker.Enabled = getBoolEnv("BREAKER_ENABLED", c.Breaker.Enabled)
	c.Breaker.MaxRequests = getUint32Env("BREAKER_MAX_REQUESTS", c.Breaker.MaxRequests)
	c.Breaker.Interval = getDurationEnv("BREAKER_INTERVAL", c.Breaker.Interval)
	c.Breaker.Timeout = getDurationEnv("BREAKER_TIMEOUT", c.Breaker.Timeout)
	c.Breaker.FailureThreshold = getFloatEnv("BREAKER_FAILURE_THRESHOLD", c.Breaker.FailureThreshold)
	c.Breaker.MinRequests = getUint32Env("BREAKER_MIN_REQUESTS", c.Breaker.MinRequests)

	c.CORS.AllowedOrigins = getListEnv("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.CORS.MaxAge = getDurationEnv("CORS_MAX_AGE", c.CORS.MaxAge)
}

// getEnv 環境変数を取得（デフォルト値付き）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv 環境変数をboolで取得
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv 環境変数をintで取得
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv カンマ区切りの環境変数をスライスで取得
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func getUint32Env(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(parsed)
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv 環境変数をtime.Durationで取得
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
