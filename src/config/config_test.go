package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memo-api/src/config"
	"memo-api/src/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// .envを読み込まないように一時ディレクトリで実行
	chdir(t, t.TempDir())

	t.Run("デフォルト値でのconfig読み込み", func(t *testing.T) {
		cfg, err := config.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.True(t, cfg.Database.AutoMigrate)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "logs", cfg.Log.Directory)
		assert.False(t, cfg.Log.UploadEnabled)
		assert.Equal(t, 24*time.Hour, cfg.Log.UploadMaxAge)
		assert.Equal(t, "memo-api-logs", cfg.S3.Bucket)
		assert.False(t, cfg.Auth.Enabled)
		assert.True(t, cfg.Breaker.Enabled)
		assert.Equal(t, 0.8, cfg.Breaker.FailureThreshold)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, 24*time.Hour, cfg.CORS.MaxAge)

		assert.NoError(t, cfg.Validate())
	})

	t.Run("環境変数でのconfig上書き", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("DB_DRIVER", "pgx")
		t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/memos")
		t.Setenv("DB_MAX_OPEN_CONNS", "5")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_UPLOAD_INTERVAL", "30m")
		t.Setenv("S3_USE_SSL", "true")
		t.Setenv("AUTH_ENABLED", "true")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("BREAKER_MIN_REQUESTS", "10")
		t.Setenv("BREAKER_FAILURE_THRESHOLD", "0.5")
		t.Setenv("CORS_ALLOWED_ORIGINS", " http://app.example.com, ,http://admin.example.com ")
		t.Setenv("CORS_MAX_AGE", "10m")

		cfg, err := config.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "pgx", cfg.Database.Driver)
		assert.Equal(t, "postgres://u:p@db:5432/memos", cfg.Database.URL)
		assert.Equal(t, 5, cfg.Database.MaxOpenConns)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, 30*time.Minute, cfg.Log.UploadInterval)
		assert.True(t, cfg.S3.UseSSL)
		assert.True(t, cfg.Auth.Enabled)
		assert.Equal(t, "secret", cfg.Auth.JWTSecret)
		assert.Equal(t, uint32(10), cfg.Breaker.MinRequests)
		assert.Equal(t, 0.5, cfg.Breaker.FailureThreshold)
		assert.Equal(t, []string{"http://app.example.com", "http://admin.example.com"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, 10*time.Minute, cfg.CORS.MaxAge)

		assert.NoError(t, cfg.Validate())
	})

	t.Run("不正な環境変数でのフォールバック", func(t *testing.T) {
		t.Setenv("DB_PORT", "not-a-number")
		t.Setenv("LOG_UPLOAD_ENABLED", "maybe")
		t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "soon")
		t.Setenv("CORS_ALLOWED_ORIGINS", " , ")

		cfg, err := config.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 5432, cfg.Database.Port)
		assert.False(t, cfg.Log.UploadEnabled)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	})
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "7070"
  shutdown_timeout: 3s
database:
  driver: memory
log:
  level: warn
breaker:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)

	t.Run("YAMLファイルの値で上書き", func(t *testing.T) {
		cfg, err := config.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "7070", cfg.Server.Port)
		assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "memory", cfg.Database.Driver)
		assert.Equal(t, "warn", cfg.Log.Level)
		assert.False(t, cfg.Breaker.Enabled)
		// ファイルにない項目はデフォルト値のまま
		assert.Equal(t, "localhost", cfg.Database.Host)
	})

	t.Run("環境変数がファイルより優先", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "6060")

		cfg, err := config.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "6060", cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Database.Driver)
	})

	t.Run(".envファイルの読み込み", func(t *testing.T) {
		envPath := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("LOG_LEVEL=error\n"), 0o600))
		t.Cleanup(func() {
			os.Remove(envPath)
			os.Unsetenv("LOG_LEVEL")
		})

		cfg, err := config.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Log.Level)
	})

	t.Run("存在しないファイル", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.yaml"))

		_, err := config.LoadConfig()
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(cfg *config.Config)
		tag    string
	}{
		{
			name:   "未対応のドライバー",
			mutate: func(cfg *config.Config) { cfg.Database.Driver = "mysql" },
			tag:    "oneof",
		},
		{
			name:   "不正なログレベル",
			mutate: func(cfg *config.Config) { cfg.Log.Level = "trace" },
			tag:    "oneof",
		},
		{
			name:   "数値でないポート",
			mutate: func(cfg *config.Config) { cfg.Server.Port = "http" },
			tag:    "numeric",
		},
		{
			name:   "認証有効時のシークレット未設定",
			mutate: func(cfg *config.Config) { cfg.Auth.Enabled = true },
			tag:    "required_if",
		},
		{
			name:   "しきい値の範囲外",
			mutate: func(cfg *config.Config) { cfg.Breaker.FailureThreshold = 1.5 },
			tag:    "lte",
		},
		{
			name:   "許可オリジンが空",
			mutate: func(cfg *config.Config) { cfg.CORS.AllowedOrigins = nil },
			tag:    "min",
		},
		{
			name:   "空文字のオリジン",
			mutate: func(cfg *config.Config) { cfg.CORS.AllowedOrigins = []string{""} },
			tag:    "required",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var validationErrors validator.ValidationErrors
			require.True(t, errors.As(err, &validationErrors))
			require.Len(t, validationErrors.Errors, 1)
			assert.Equal(t, tc.tag, validationErrors.Errors[0].Tag)
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
