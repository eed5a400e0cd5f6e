package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"memo-api/src/database"
	"memo-api/src/domain"

	"github.com/sirupsen/logrus"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxIsolation is the isolation level used by WithinTx.
// The row lock taken by UPDATE is held until commit, so READ COMMITTED already
// keeps a concurrent DELETE from removing the row before it is re-read.
const TxIsolation = sql.LevelReadCommitted

// MemoRepository implements domain.MemoRepository on PostgreSQL
type MemoRepository struct {
	db     *database.DB
	q      querier
	inTx   bool
	logger *logrus.Logger
}

// NewMemoRepository creates a new memo repository
func NewMemoRepository(db *database.DB, logger *logrus.Logger) *MemoRepository {
	return &MemoRepository{
		db:     db,
		q:      db,
		logger: logger,
	}
}

// Insert creates a new memo and returns it with the assigned ID
func (r *MemoRepository) Insert(ctx context.Context, memo *domain.Memo) (*domain.Memo, error) {
	query := `
		INSERT INTO memos (title, contents)
		VALUES ($1, $2)
		RETURNING id, title, contents`

	created := &domain.Memo{}
	err := r.q.QueryRowContext(ctx, query, memo.Title, memo.Contents).
		Scan(&created.ID, &created.Title, &created.Contents)
	if err != nil {
		r.logger.WithError(err).Error("メモの作成に失敗")
		return nil, fmt.Errorf("failed to create memo: %w", err)
	}

	r.logger.WithField("memo_id", created.ID).Info("メモを作成しました")
	return created, nil
}

// FindAll retrieves every memo ordered by ID
func (r *MemoRepository) FindAll(ctx context.Context) ([]domain.Memo, error) {
	query := `SELECT id, title, contents FROM memos ORDER BY id ASC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		r.logger.WithError(err).Error("メモリストの取得に失敗")
		return nil, fmt.Errorf("failed to list memos: %w", err)
	}
	defer rows.Close()

	memos := []domain.Memo{}
	for rows.Next() {
		var memo domain.Memo
		if err := rows.Scan(&memo.ID, &memo.Title, &memo.Contents); err != nil {
			r.logger.WithError(err).Error("メモのスキャンに失敗")
			return nil, fmt.Errorf("failed to scan memo: %w", err)
		}
		memos = append(memos, memo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return memos, nil
}

// FindByID retrieves a memo by ID
func (r *MemoRepository) FindByID(ctx context.Context, id int64) (*domain.Memo, error) {
	query := `SELECT id, title, contents FROM memos WHERE id = $1`

	memo := &domain.Memo{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(&memo.ID, &memo.Title, &memo.Contents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMemoNotFound
		}
		r.logger.WithError(err).WithField("memo_id", id).Error("メモの取得に失敗")
		return nil, fmt.Errorf("failed to get memo: %w", err)
	}

	return memo, nil
}

// UpdateFull replaces title and contents
func (r *MemoRepository) UpdateFull(ctx context.Context, id int64, title, contents string) (int64, error) {
	return r.exec(ctx, "update", id,
		`UPDATE memos SET title = $1, contents = $2 WHERE id = $3`,
		title, contents, id)
}

// UpdateTitle replaces only the title
func (r *MemoRepository) UpdateTitle(ctx context.Context, id int64, title string) (int64, error) {
	return r.exec(ctx, "update title", id,
		`UPDATE memos SET title = $1 WHERE id = $2`,
		title, id)
}

// Delete deletes a memo
func (r *MemoRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec(ctx, "delete", id, `DELETE FROM memos WHERE id = $1`, id)
}

// WithinTx runs fn on a repository bound to one transaction.
// Calls made on a repository that is already inside a transaction join it.
func (r *MemoRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.MemoRepository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}

	return r.db.WithTx(ctx, &sql.TxOptions{Isolation: TxIsolation}, func(tx *sql.Tx) error {
		return fn(ctx, &MemoRepository{
			db:     r.db,
			q:      tx,
			inTx:   true,
			logger: r.logger,
		})
	})
}

// exec runs a conditional write and returns the affected row count
func (r *MemoRepository) exec(ctx context.Context, op string, id int64, query string, args ...any) (int64, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"memo_id":   id,
			"operation": op,
		}).Error("メモの書き込みに失敗")
		return 0, fmt.Errorf("failed to %s memo: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"memo_id":       id,
		"operation":     op,
		"rows_affected": rowsAffected,
	}).Info("メモを更新しました")
	return rowsAffected, nil
}
