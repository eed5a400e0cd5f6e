package usecase

import (
	"context"
	"errors"
	"fmt"

	"memo-api/src/domain"
)

var (
	ErrMemoNotFound = domain.ErrMemoNotFound
	ErrInvalidInput = errors.New("The title and content are required values.")
)

// NotFoundError 指定IDのメモが存在しない
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Does not exist id = %d", e.ID)
}

// Is lets errors.Is match ErrMemoNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrMemoNotFound
}

// CreateMemoRequest represents input for creating a memo
type CreateMemoRequest struct {
	Title    string
	Contents string
}

// UpdateMemoRequest represents input for updating a memo.
// A nil field means the client did not send it (absent or JSON null).
type UpdateMemoRequest struct {
	Title    *string
	Contents *string
}

// MemoUsecase defines the interface for memo business logic
type MemoUsecase interface {
	CreateMemo(ctx context.Context, req CreateMemoRequest) (*domain.Memo, error)
	ListMemos(ctx context.Context) ([]domain.Memo, error)
	GetMemo(ctx context.Context, id int64) (*domain.Memo, error)
	UpdateMemo(ctx context.Context, id int64, req UpdateMemoRequest) (*domain.Memo, error)
	UpdateMemoTitle(ctx context.Context, id int64, req UpdateMemoRequest) (*domain.Memo, error)
	DeleteMemo(ctx context.Context, id int64) error
}

type memoUsecase struct {
	memoRepo domain.MemoRepository
}

// NewMemoUsecase creates a new memo usecase
func NewMemoUsecase(memoRepo domain.MemoRepository) MemoUsecase {
	return &memoUsecase{
		memoRepo: memoRepo,
	}
}

// CreateMemo creates a new memo. Input is stored as-is.
func (u *memoUsecase) CreateMemo(ctx context.Context, req CreateMemoRequest) (*domain.Memo, error) {
	return u.memoRepo.Insert(ctx, domain.NewMemo(req.Title, req.Contents))
}

// ListMemos returns every stored memo
func (u *memoUsecase) ListMemos(ctx context.Context) ([]domain.Memo, error) {
	memos, err := u.memoRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if memos == nil {
		memos = []domain.Memo{}
	}
	return memos, nil
}

// GetMemo retrieves a memo by ID
func (u *memoUsecase) GetMemo(ctx context.Context, id int64) (*domain.Memo, error) {
	memo, err := u.memoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, id)
	}
	return memo, nil
}

// UpdateMemo replaces both title and contents
func (u *memoUsecase) UpdateMemo(ctx context.Context, id int64, req UpdateMemoRequest) (*domain.Memo, error) {
	if req.Title == nil || req.Contents == nil {
		return nil, ErrInvalidInput
	}

	return u.updateThenRead(ctx, id, func(ctx context.Context, repo domain.MemoRepository) (int64, error) {
		return repo.UpdateFull(ctx, id, *req.Title, *req.Contents)
	})
}

// UpdateMemoTitle replaces only the title.
// Contents must be absent; a request carrying contents is rejected.
func (u *memoUsecase) UpdateMemoTitle(ctx context.Context, id int64, req UpdateMemoRequest) (*domain.Memo, error) {
	if req.Title == nil || req.Contents != nil {
		return nil, ErrInvalidInput
	}

	return u.updateThenRead(ctx, id, func(ctx context.Context, repo domain.MemoRepository) (int64, error) {
		return repo.UpdateTitle(ctx, id, *req.Title)
	})
}

// DeleteMemo permanently removes a memo
func (u *memoUsecase) DeleteMemo(ctx context.Context, id int64) error {
	affected, err := u.memoRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// updateThenRead 更新と再取得を同一トランザクション内で実行
func (u *memoUsecase) updateThenRead(
	ctx context.Context,
	id int64,
	update func(ctx context.Context, repo domain.MemoRepository) (int64, error),
) (*domain.Memo, error) {
	var updated *domain.Memo

	err := u.memoRepo.WithinTx(ctx, func(ctx context.Context, repo domain.MemoRepository) error {
		affected, err := update(ctx, repo)
		if err != nil {
			return err
		}
		if affected == 0 {
			return &NotFoundError{ID: id}
		}

		memo, err := repo.FindByID(ctx, id)
		if err != nil {
			return translateNotFound(err, id)
		}
		updated = memo
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// translateNotFound converts the repository's not-found signal into a NotFoundError
func translateNotFound(err error, id int64) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	if errors.Is(err, domain.ErrMemoNotFound) {
		return &NotFoundError{ID: id}
	}
	return err
}
