package domain

import "errors"

var (
	// ErrMemoNotFound is returned by FindByID when no memo has the given ID
	ErrMemoNotFound = errors.New("memo not found")

	// ErrStorageUnavailable ストレージへの呼び出しがサーキットブレーカーで遮断された
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
)
