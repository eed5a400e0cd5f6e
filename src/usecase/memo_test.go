package usecase_test

import (
	"context"
	"errors"
	"testing"

	"memo-api/src/domain"
	"memo-api/src/infrastructure/memory"
	"memo-api/src/usecase"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMemoRepository は domain.MemoRepository のモック実装
type MockMemoRepository struct {
	mock.Mock
}

func (m *MockMemoRepository) Insert(ctx context.Context, memo *domain.Memo) (*domain.Memo, error) {
	args := m.Called(ctx, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memo), args.Error(1)
}

func (m *MockMemoRepository) FindAll(ctx context.Context) ([]domain.Memo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Memo), args.Error(1)
}

func (m *MockMemoRepository) FindByID(ctx context.Context, id int64) (*domain.Memo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memo), args.Error(1)
}

func (m *MockMemoRepository) UpdateFull(ctx context.Context, id int64, title, contents string) (int64, error) {
	args := m.Called(ctx, id, title, contents)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMemoRepository) UpdateTitle(ctx context.Context, id int64, title string) (int64, error) {
	args := m.Called(ctx, id, title)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMemoRepository) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// WithinTx はトランザクション開始を記録し、同じモックでfnを実行する
func (m *MockMemoRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.MemoRepository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

func strPtr(s string) *string {
	return &s
}

func TestMemoUsecase_CreateMemo(t *testing.T) {
	tests := []struct {
		name      string
		request   usecase.CreateMemoRequest
		mockSetup func(*MockMemoRepository)
		wantErr   error
		wantID    int64
	}{
		{
			name:    "successful creation",
			request: usecase.CreateMemoRequest{Title: "A", Contents: "B"},
			mockSetup: func(m *MockMemoRepository) {
				m.On("Insert", mock.Anything, &domain.Memo{Title: "A", Contents: "B"}).
					Return(&domain.Memo{ID: 1, Title: "A", Contents: "B"}, nil)
			},
			wantID: 1,
		},
		{
			name:    "empty fields are stored as-is",
			request: usecase.CreateMemoRequest{},
			mockSetup: func(m *MockMemoRepository) {
				m.On("Insert", mock.Anything, &domain.Memo{}).
					Return(&domain.Memo{ID: 7}, nil)
			},
			wantID: 7,
		},
		{
			name:    "storage failure propagates",
			request: usecase.CreateMemoRequest{Title: "A", Contents: "B"},
			mockSetup: func(m *MockMemoRepository) {
				m.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Memo")).
					Return(nil, errors.New("connection refused"))
			},
			wantErr: errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockMemoRepository)
			tt.mockSetup(mockRepo)

			uc := usecase.NewMemoUsecase(mockRepo)
			memo, err := uc.CreateMemo(context.Background(), tt.request)

			if tt.wantErr != nil {
				assert.EqualError(t, err, tt.wantErr.Error())
				assert.Nil(t, memo)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, memo.ID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestMemoUsecase_ListMemos(t *testing.T) {
	t.Run("nil from repository becomes empty slice", func(t *testing.T) {
		mockRepo := new(MockMemoRepository)
		mockRepo.On("FindAll", mock.Anything).Return(nil, nil)

		memos, err := usecase.NewMemoUsecase(mockRepo).ListMemos(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, memos)
		assert.Empty(t, memos)
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo := new(MockMemoRepository)
		mockRepo.On("FindAll", mock.Anything).Return(nil, errors.New("db down"))

		memos, err := usecase.NewMemoUsecase(mockRepo).ListMemos(context.Background())
		assert.Error(t, err)
		assert.Nil(t, memos)
	})
}

func TestMemoUsecase_GetMemo(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mockRepo := new(MockMemoRepository)
		mockRepo.On("FindByID", mock.Anything, int64(3)).Return(&domain.Memo{ID: 3, Title: "t"}, nil)

		memo, err := usecase.NewMemoUsecase(mockRepo).GetMemo(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "t", memo.Title)
	})

	t.Run("not found carries the id", func(t *testing.T) {
		mockRepo := new(MockMemoRepository)
		mockRepo.On("FindByID", mock.Anything, int64(3)).Return(nil, domain.ErrMemoNotFound)

		_, err := usecase.NewMemoUsecase(mockRepo).GetMemo(context.Background(), 3)
		assert.ErrorIs(t, err, usecase.ErrMemoNotFound)

		var nf *usecase.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, int64(3), nf.ID)
		assert.Equal(t, "Does not exist id = 3", err.Error())
	})

	t.Run("other errors are not classified", func(t *testing.T) {
		mockRepo := new(MockMemoRepository)
		mockRepo.On("FindByID", mock.Anything, int64(3)).Return(nil, errors.New("timeout"))

		_, err := usecase.NewMemoUsecase(mockRepo).GetMemo(context.Background(), 3)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, usecase.ErrMemoNotFound)
	})
}

func TestMemoUsecase_UpdateMemo(t *testing.T) {
	tests := []struct {
		name      string
		request   usecase.UpdateMemoRequest
		mockSetup func(*MockMemoRepository)
		wantErr   error
	}{
		{
			name:      "title absent",
			request:   usecase.UpdateMemoRequest{Contents: strPtr("D")},
			mockSetup: func(m *MockMemoRepository) {},
			wantErr:   usecase.ErrInvalidInput,
		},
		{
			name:      "contents absent",
			request:   usecase.UpdateMemoRequest{Title: strPtr("C")},
			mockSetup: func(m *MockMemoRepository) {},
			wantErr:   usecase.ErrInvalidInput,
		},
		{
			name:      "both absent",
			request:   usecase.UpdateMemoRequest{},
			mockSetup: func(m *MockMemoRepository) {},
			wantErr:   usecase.ErrInvalidInput,
		},
		{
			name:    "no rows affected",
			request: usecase.UpdateMemoRequest{Title: strPtr("C"), Contents: strPtr("D")},
			mockSetup: func(m *MockMemoRepository) {
				m.On("WithinTx", mock.Anything).Return(nil)
				m.On("UpdateFull", mock.Anything, int64(1), "C", "D").Return(int64(0), nil)
			},
			wantErr: usecase.ErrMemoNotFound,
		},
		{
			name:    "updated and re-read",
			request: usecase.UpdateMemoRequest{Title: strPtr("C"), Contents: strPtr("D")},
			mockSetup: func(m *MockMemoRepository) {
				m.On("WithinTx", mock.Anything).Return(nil)
				m.On("UpdateFull", mock.Anything, int64(1), "C", "D").Return(int64(1), nil)
				m.On("FindByID", mock.Anything, int64(1)).Return(&domain.Memo{ID: 1, Title: "C", Contents: "D"}, nil)
			},
		},
		{
			name:    "row vanished before re-read",
			request: usecase.UpdateMemoRequest{Title: strPtr("C"), Contents: strPtr("D")},
			mockSetup: func(m *MockMemoRepository) {
				m.On("WithinTx", mock.Anything).Return(nil)
				m.On("UpdateFull", mock.Anything, int64(1), "C", "D").Return(int64(1), nil)
				m.On("FindByID", mock.Anything, int64(1)).Return(nil, domain.ErrMemoNotFound)
			},
			wantErr: usecase.ErrMemoNotFound,
		},
		{
			name:    "transaction cannot start",
			request: usecase.UpdateMemoRequest{Title: strPtr("C"), Contents: strPtr("D")},
			mockSetup: func(m *MockMemoRepository) {
				m.On("WithinTx", mock.Anything).Return(domain.ErrStorageUnavailable)
			},
			wantErr: domain.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockMemoRepository)
			tt.mockSetup(mockRepo)

			memo, err := usecase.NewMemoUsecase(mockRepo).UpdateMemo(context.Background(), 1, tt.request)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, memo)
			} else {
				require.NoError(t, err)
				assert.Equal(t, &domain.Memo{ID: 1, Title: "C", Contents: "D"}, memo)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestMemoUsecase_UpdateMemoTitle(t *testing.T) {
	tests := []struct {
		name      string
		request   usecase.UpdateMemoRequest
		mockSetup func(*MockMemoRepository)
		wantErr   error
	}{
		{
			name:      "title absent",
			request:   usecase.UpdateMemoRequest{},
			mockSetup: func(m *MockMemoRepository) {},
			wantErr:   usecase.ErrInvalidInput,
		},
		{
			name:      "contents present is rejected",
			request:   usecase.UpdateMemoRequest{Title: strPtr("C"), Contents: strPtr("D")},
			mockSetup: func(m *MockMemoRepository) {},
			wantErr:   usecase.ErrInvalidInput,
		},
		{
			name:      "empty contents is still present",
			request:   usecase.UpdateMemoRequest{Title: strPtr("C"), Contents: strPtr("")},
			mockSetup: func(m *MockMemoRepository) {},
			wantErr:   usecase.ErrInvalidInput,
		},
		{
			name:    "no rows affected",
			request: usecase.UpdateMemoRequest{Title: strPtr("C")},
			mockSetup: func(m *MockMemoRepository) {
				m.On("WithinTx", mock.Anything).Return(nil)
				m.On("UpdateTitle", mock.Anything, int64(1), "C").Return(int64(0), nil)
			},
			wantErr: usecase.ErrMemoNotFound,
		},
		{
			name:    "title updated",
			request: usecase.UpdateMemoRequest{Title: strPtr("C")},
			mockSetup: func(m *MockMemoRepository) {
				m.On("WithinTx", mock.Anything).Return(nil)
				m.On("UpdateTitle", mock.Anything, int64(1), "C").Return(int64(1), nil)
				m.On("FindByID", mock.Anything, int64(1)).Return(&domain.Memo{ID: 1, Title: "C", Contents: "B"}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockMemoRepository)
			tt.mockSetup(mockRepo)

			memo, err := usecase.NewMemoUsecase(mockRepo).UpdateMemoTitle(context.Background(), 1, tt.request)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, memo)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "C", memo.Title)
				assert.Equal(t, "B", memo.Contents)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestMemoUsecase_DeleteMemo(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		mockRepo := new(MockMemoRepository)
		mockRepo.On("Delete", mock.Anything, int64(5)).Return(int64(1), nil)

		assert.NoError(t, usecase.NewMemoUsecase(mockRepo).DeleteMemo(context.Background(), 5))
	})

	t.Run("missing", func(t *testing.T) {
		mockRepo := new(MockMemoRepository)
		mockRepo.On("Delete", mock.Anything, int64(5)).Return(int64(0), nil)

		err := usecase.NewMemoUsecase(mockRepo).DeleteMemo(context.Background(), 5)
		assert.ErrorIs(t, err, usecase.ErrMemoNotFound)
		assert.Equal(t, "Does not exist id = 5", err.Error())
	})

	t.Run("storage error", func(t *testing.T) {
		mockRepo := new(MockMemoRepository)
		mockRepo.On("Delete", mock.Anything, int64(5)).Return(int64(0), errors.New("db down"))

		err := usecase.NewMemoUsecase(mockRepo).DeleteMemo(context.Background(), 5)
		assert.EqualError(t, err, "db down")
	})
}

// 以下はインメモリリポジトリを使った振る舞いの確認

func newMemoryUsecase() (usecase.MemoUsecase, *memory.MemoRepository) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	repo := memory.NewMemoRepository(logger)
	return usecase.NewMemoUsecase(repo), repo
}

func TestMemoUsecase_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	uc, _ := newMemoryUsecase()

	created, err := uc.CreateMemo(ctx, usecase.CreateMemoRequest{Title: "A", Contents: "B"})
	require.NoError(t, err)

	got, err := uc.GetMemo(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "B", got.Contents)
}

func TestMemoUsecase_ListAfterCreates(t *testing.T) {
	ctx := context.Background()
	uc, _ := newMemoryUsecase()

	inputs := []usecase.CreateMemoRequest{
		{Title: "t1", Contents: "c1"},
		{Title: "t2", Contents: "c2"},
		{Title: "t3", Contents: "c3"},
	}
	for _, in := range inputs {
		_, err := uc.CreateMemo(ctx, in)
		require.NoError(t, err)
	}

	memos, err := uc.ListMemos(ctx)
	require.NoError(t, err)
	require.Len(t, memos, len(inputs))
	for i, in := range inputs {
		assert.Equal(t, in.Title, memos[i].Title)
		assert.Equal(t, in.Contents, memos[i].Contents)
	}
}

func TestMemoUsecase_InvalidUpdateDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	uc, _ := newMemoryUsecase()
	created, _ := uc.CreateMemo(ctx, usecase.CreateMemoRequest{Title: "A", Contents: "B"})

	_, err := uc.UpdateMemo(ctx, created.ID, usecase.UpdateMemoRequest{Title: strPtr("C")})
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)

	// 存在しないIDでも入力検証が先
	_, err = uc.UpdateMemo(ctx, 999, usecase.UpdateMemoRequest{Contents: strPtr("D")})
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)

	got, _ := uc.GetMemo(ctx, created.ID)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "B", got.Contents)
}

func TestMemoUsecase_UpdateMissingDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	uc, _ := newMemoryUsecase()
	_, _ = uc.CreateMemo(ctx, usecase.CreateMemoRequest{Title: "A", Contents: "B"})

	_, err := uc.UpdateMemo(ctx, 999, usecase.UpdateMemoRequest{Title: strPtr("C"), Contents: strPtr("D")})
	assert.ErrorIs(t, err, usecase.ErrMemoNotFound)

	memos, _ := uc.ListMemos(ctx)
	require.Len(t, memos, 1)
	assert.Equal(t, "A", memos[0].Title)
}

func TestMemoUsecase_ExampleLifecycle(t *testing.T) {
	ctx := context.Background()
	uc, _ := newMemoryUsecase()

	created, err := uc.CreateMemo(ctx, usecase.CreateMemoRequest{Title: "A", Contents: "B"})
	require.NoError(t, err)
	assert.Equal(t, &domain.Memo{ID: 1, Title: "A", Contents: "B"}, created)

	updated, err := uc.UpdateMemo(ctx, 1, usecase.UpdateMemoRequest{Title: strPtr("C"), Contents: strPtr("D")})
	require.NoError(t, err)
	assert.Equal(t, &domain.Memo{ID: 1, Title: "C", Contents: "D"}, updated)

	titled, err := uc.UpdateMemoTitle(ctx, 1, usecase.UpdateMemoRequest{Title: strPtr("E")})
	require.NoError(t, err)
	assert.Equal(t, &domain.Memo{ID: 1, Title: "E", Contents: "D"}, titled)

	require.NoError(t, uc.DeleteMemo(ctx, 1))

	_, err = uc.GetMemo(ctx, 1)
	assert.ErrorIs(t, err, usecase.ErrMemoNotFound)

	// 削除の繰り返しは常に同じ失敗
	for i := 0; i < 3; i++ {
		err = uc.DeleteMemo(ctx, 1)
		assert.ErrorIs(t, err, usecase.ErrMemoNotFound)
	}
	memos, _ := uc.ListMemos(ctx)
	assert.Empty(t, memos)
}
