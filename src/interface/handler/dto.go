package handler

import "memo-api/src/domain"

// CreateMemoRequestDTO represents HTTP request for creating a memo.
// Missing fields are stored as empty strings.
type CreateMemoRequestDTO struct {
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

// UpdateMemoRequestDTO represents HTTP request for updating a memo.
// An absent key and JSON null both decode to nil.
type UpdateMemoRequestDTO struct {
	Title    *string `json:"title"`
	Contents *string `json:"contents"`
}

// MemoResponseDTO represents HTTP response for a memo
type MemoResponseDTO struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

// ErrorResponseDTO represents HTTP error response
type ErrorResponseDTO struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toMemoResponseDTO(memo *domain.Memo) MemoResponseDTO {
	return MemoResponseDTO{
		ID:       memo.ID,
		Title:    memo.Title,
		Contents: memo.Contents,
	}
}

func toMemoResponseDTOs(memos []domain.Memo) []MemoResponseDTO {
	result := make([]MemoResponseDTO, len(memos))
	for i := range memos {
		result[i] = toMemoResponseDTO(&memos[i])
	}
	return result
}
