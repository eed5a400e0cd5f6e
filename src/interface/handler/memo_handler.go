package handler

import (
	"context"
	"errors"
	"net/http"

	"memo-api/src/domain"
	"memo-api/src/usecase"
	"memo-api/src/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MemoHandler handles HTTP requests for memo operations
type MemoHandler struct {
	memoUsecase usecase.MemoUsecase
	validator   *validator.CustomValidator
	logger      *logrus.Logger
}

// NewMemoHandler creates a new memo handler
func NewMemoHandler(memoUsecase usecase.MemoUsecase, logger *logrus.Logger) *MemoHandler {
	return &MemoHandler{
		memoUsecase: memoUsecase,
		validator:   validator.NewCustomValidator(),
		logger:      logger,
	}
}

// CreateMemo creates a new memo
func (h *MemoHandler) CreateMemo(c *gin.Context) {
	var req CreateMemoRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("リクエストのバインドに失敗")
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	memo, err := h.memoUsecase.CreateMemo(c.Request.Context(), usecase.CreateMemoRequest{
		Title:    req.Title,
		Contents: req.Contents,
	})
	if err != nil {
		h.respondError(c, err, "Failed to create memo", 0)
		return
	}

	h.logger.WithField("memo_id", memo.ID).Info("メモを作成しました")
	c.JSON(http.StatusCreated, toMemoResponseDTO(memo))
}

// ListMemos returns all memos
func (h *MemoHandler) ListMemos(c *gin.Context) {
	memos, err := h.memoUsecase.ListMemos(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to get memos", 0)
		return
	}

	c.JSON(http.StatusOK, toMemoResponseDTOs(memos))
}

// GetMemo retrieves a memo by ID
func (h *MemoHandler) GetMemo(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	memo, err := h.memoUsecase.GetMemo(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get memo", id)
		return
	}

	c.JSON(http.StatusOK, toMemoResponseDTO(memo))
}

// UpdateMemo replaces title and contents of an existing memo
func (h *MemoHandler) UpdateMemo(c *gin.Context) {
	h.update(c, "メモを更新しました", h.memoUsecase.UpdateMemo)
}

// UpdateMemoTitle replaces only the title of an existing memo
func (h *MemoHandler) UpdateMemoTitle(c *gin.Context) {
	h.update(c, "メモのタイトルを更新しました", h.memoUsecase.UpdateMemoTitle)
}

// DeleteMemo deletes a memo
func (h *MemoHandler) DeleteMemo(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.memoUsecase.DeleteMemo(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to delete memo", id)
		return
	}

	h.logger.WithField("memo_id", id).Info("メモを削除しました")
	c.Status(http.StatusNoContent)
}

type updateFunc func(ctx context.Context, id int64, req usecase.UpdateMemoRequest) (*domain.Memo, error)

func (h *MemoHandler) update(c *gin.Context, message string, apply updateFunc) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateMemoRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).WithField("memo_id", id).Warn("リクエストのバインドに失敗")
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	memo, err := apply(c.Request.Context(), id, usecase.UpdateMemoRequest{
		Title:    req.Title,
		Contents: req.Contents,
	})
	if err != nil {
		h.respondError(c, err, "Failed to update memo", id)
		return
	}

	h.logger.WithField("memo_id", id).Info(message)
	c.JSON(http.StatusOK, toMemoResponseDTO(memo))
}

// parseID パスパラメータのIDを検証
func (h *MemoHandler) parseID(c *gin.Context) (int64, bool) {
	id, err := h.validator.ValidateID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid memo ID",
			Message: err.Error(),
		})
		return 0, false
	}
	return id, true
}

// respondError usecaseのエラーをHTTPステータスに変換
func (h *MemoHandler) respondError(c *gin.Context, err error, title string, id int64) {
	entry := h.logger.WithError(err)
	if c.Param("id") != "" {
		entry = entry.WithField("memo_id", id)
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		entry.Warn("不正な入力")
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{Error: title, Message: err.Error()})
	case errors.Is(err, usecase.ErrMemoNotFound):
		entry.Warn("メモが見つかりません")
		c.JSON(http.StatusNotFound, ErrorResponseDTO{Error: title, Message: err.Error()})
	case errors.Is(err, domain.ErrStorageUnavailable):
		entry.Error("ストレージが利用できません")
		c.JSON(http.StatusServiceUnavailable, ErrorResponseDTO{Error: title, Message: domain.ErrStorageUnavailable.Error()})
	default:
		// ストレージの詳細はクライアントに返さない
		entry.Error("メモの処理に失敗")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponseDTO{Error: title})
	}
}
