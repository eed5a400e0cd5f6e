package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres" // lib/pq
	DriverPGX      = "pgx"      // jackc/pgx stdlib
)

// DB represents the database connection
type DB struct {
	*sql.DB
	logger *logrus.Logger
}

// Config represents database configuration
type Config struct {
	Driver          string
	URL             string // 設定されている場合は個別の接続パラメータより優先
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds a keyword/value connection string understood by both lib/pq and pgx
func (c *Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func (c *Config) driverName() (string, error) {
	switch c.Driver {
	case "", DriverPostgres:
		return DriverPostgres, nil
	case DriverPGX:
		return DriverPGX, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", c.Driver)
	}
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, config *Config, logger *logrus.Logger) (*DB, error) {
	driver, err := config.driverName()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 接続をテスト
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 接続プールの設定
	db.SetMaxOpenConns(orDefault(config.MaxOpenConns, 25))
	db.SetMaxIdleConns(orDefault(config.MaxIdleConns, 25))
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	logger.WithFields(logrus.Fields{
		"driver": driver,
		"host":   config.Host,
		"dbname": config.DBName,
	}).Info("データベースに接続しました")

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("データベース接続を閉じています")
	return db.DB.Close()
}

// Health checks database health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}

// WithTx runs fn inside a transaction. fn's error triggers a rollback;
// a nil return commits.
func (db *DB) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.WithError(rbErr).Error("トランザクションのロールバックに失敗")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
