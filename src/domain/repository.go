package domain

import "context"

// MemoRepository defines the interface for memo data operations.
// Conditional writes report the number of affected rows; 0 means the ID does not exist.
type MemoRepository interface {
	Insert(ctx context.Context, memo *Memo) (*Memo, error)
	FindAll(ctx context.Context) ([]Memo, error)
	FindByID(ctx context.Context, id int64) (*Memo, error)
	UpdateFull(ctx context.Context, id int64, title, contents string) (int64, error)
	UpdateTitle(ctx context.Context, id int64, title string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)

	// WithinTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo MemoRepository) error) error
}
