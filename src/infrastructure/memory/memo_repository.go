// Package memory provides an in-process domain.MemoRepository.
// It backs the service when DB_DRIVER=memory and serves as the fake in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"memo-api/src/domain"

	"github.com/sirupsen/logrus"
)

type memoStore struct {
	memos  map[int64]domain.Memo
	nextID int64
}

// undoEntry 行の変更前の状態（existed=false は行が存在しなかったことを示す）
type undoEntry struct {
	memo    domain.Memo
	existed bool
}

// MemoRepository keeps memos in a map guarded by a RWMutex
type MemoRepository struct {
	mu     sync.RWMutex
	store  memoStore
	logger *logrus.Logger
}

// NewMemoRepository creates an empty in-memory repository
func NewMemoRepository(logger *logrus.Logger) *MemoRepository {
	return &MemoRepository{
		store:  memoStore{memos: make(map[int64]domain.Memo), nextID: 1},
		logger: logger,
	}
}

func (r *MemoRepository) Insert(ctx context.Context, memo *domain.Memo) (*domain.Memo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.insert(memo, r.logger), nil
}

func (r *MemoRepository) FindAll(ctx context.Context) ([]domain.Memo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.findAll(), nil
}

func (r *MemoRepository) FindByID(ctx context.Context, id int64) (*domain.Memo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.findByID(id)
}

func (r *MemoRepository) UpdateFull(ctx context.Context, id int64, title, contents string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.update(id, func(m *domain.Memo) {
		m.Title = title
		m.Contents = contents
	}), nil
}

func (r *MemoRepository) UpdateTitle(ctx context.Context, id int64, title string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.update(id, func(m *domain.Memo) {
		m.Title = title
	}), nil
}

func (r *MemoRepository) Delete(ctx context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.delete(id), nil
}

// WithinTx holds the write lock for the duration of fn.
// On error only the rows touched by fn are restored.
func (r *MemoRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.MemoRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &txRepository{
		store:  &r.store,
		nextID: r.store.nextID,
		undo:   make(map[int64]undoEntry),
		logger: r.logger,
	}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		r.logger.WithError(err).Debug("MemoryRepo: トランザクションをロールバックしました")
		return err
	}
	return nil
}

// txRepository operates on a store whose lock is already held.
// undo keeps one entry per touched ID: the row as it was before the first change.
type txRepository struct {
	store  *memoStore
	nextID int64
	undo   map[int64]undoEntry
	logger *logrus.Logger
}

func (t *txRepository) remember(id int64) {
	if _, ok := t.undo[id]; ok {
		return
	}
	m, existed := t.store.memos[id]
	t.undo[id] = undoEntry{memo: m, existed: existed}
}

func (t *txRepository) rollback() {
	for id, entry := range t.undo {
		if entry.existed {
			t.store.memos[id] = entry.memo
		} else {
			delete(t.store.memos, id)
		}
	}
	t.store.nextID = t.nextID
}

func (t *txRepository) Insert(ctx context.Context, memo *domain.Memo) (*domain.Memo, error) {
	t.remember(t.store.nextID)
	return t.store.insert(memo, t.logger), nil
}

func (t *txRepository) FindAll(ctx context.Context) ([]domain.Memo, error) {
	return t.store.findAll(), nil
}

func (t *txRepository) FindByID(ctx context.Context, id int64) (*domain.Memo, error) {
	return t.store.findByID(id)
}

func (t *txRepository) UpdateFull(ctx context.Context, id int64, title, contents string) (int64, error) {
	t.remember(id)
	return t.store.update(id, func(m *domain.Memo) {
		m.Title = title
		m.Contents = contents
	}), nil
}

func (t *txRepository) UpdateTitle(ctx context.Context, id int64, title string) (int64, error) {
	t.remember(id)
	return t.store.update(id, func(m *domain.Memo) {
		m.Title = title
	}), nil
}

func (t *txRepository) Delete(ctx context.Context, id int64) (int64, error) {
	t.remember(id)
	return t.store.delete(id), nil
}

// WithinTx joins the enclosing transaction
func (t *txRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.MemoRepository) error) error {
	return fn(ctx, t)
}

func (s *memoStore) insert(memo *domain.Memo, logger *logrus.Logger) *domain.Memo {
	stored := domain.Memo{
		ID:       s.nextID,
		Title:    memo.Title,
		Contents: memo.Contents,
	}
	s.memos[stored.ID] = stored
	s.nextID++

	logger.WithField("memo_id", stored.ID).Debug("MemoryRepo: メモを作成しました")
	return &stored
}

func (s *memoStore) findAll() []domain.Memo {
	memos := make([]domain.Memo, 0, len(s.memos))
	for _, m := range s.memos {
		memos = append(memos, m)
	}
	// 挿入順（ID昇順）で返す
	sort.Slice(memos, func(i, j int) bool { return memos[i].ID < memos[j].ID })
	return memos
}

func (s *memoStore) findByID(id int64) (*domain.Memo, error) {
	m, ok := s.memos[id]
	if !ok {
		return nil, domain.ErrMemoNotFound
	}
	return &m, nil
}

func (s *memoStore) update(id int64, apply func(m *domain.Memo)) int64 {
	m, ok := s.memos[id]
	if !ok {
		return 0
	}
	apply(&m)
	s.memos[id] = m
	return 1
}

func (s *memoStore) delete(id int64) int64 {
	if _, ok := s.memos[id]; !ok {
		return 0
	}
	delete(s.memos, id)
	return 1
}
