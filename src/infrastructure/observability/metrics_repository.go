package observability

import (
	"context"
	"errors"
	"time"

	"memo-api/src/domain"
)

// MetricsMemoRepository is a decorator that records Prometheus metrics
// for every MemoRepository call.
type MetricsMemoRepository struct {
	inner   domain.MemoRepository
	metrics *Collector
}

// NewMetricsMemoRepository wraps inner with metrics collection
func NewMetricsMemoRepository(inner domain.MemoRepository, metrics *Collector) *MetricsMemoRepository {
	return &MetricsMemoRepository{
		inner:   inner,
		metrics: metrics,
	}
}

func (r *MetricsMemoRepository) Insert(ctx context.Context, memo *domain.Memo) (*domain.Memo, error) {
	start := time.Now()
	created, err := r.inner.Insert(ctx, memo)
	r.record("insert", err, start)
	if err == nil {
		r.metrics.MemosCreated.Inc()
	}
	return created, err
}

func (r *MetricsMemoRepository) FindAll(ctx context.Context) ([]domain.Memo, error) {
	start := time.Now()
	memos, err := r.inner.FindAll(ctx)
	r.record("find_all", err, start)
	return memos, err
}

func (r *MetricsMemoRepository) FindByID(ctx context.Context, id int64) (*domain.Memo, error) {
	start := time.Now()
	memo, err := r.inner.FindByID(ctx, id)
	r.record("find_by_id", err, start)
	return memo, err
}

func (r *MetricsMemoRepository) UpdateFull(ctx context.Context, id int64, title, contents string) (int64, error) {
	start := time.Now()
	affected, err := r.inner.UpdateFull(ctx, id, title, contents)
	r.record("update_full", err, start)
	return affected, err
}

func (r *MetricsMemoRepository) UpdateTitle(ctx context.Context, id int64, title string) (int64, error) {
	start := time.Now()
	affected, err := r.inner.UpdateTitle(ctx, id, title)
	r.record("update_title", err, start)
	return affected, err
}

func (r *MetricsMemoRepository) Delete(ctx context.Context, id int64) (int64, error) {
	start := time.Now()
	affected, err := r.inner.Delete(ctx, id)
	r.record("delete", err, start)
	if err == nil && affected > 0 {
		r.metrics.MemosDeleted.Add(float64(affected))
	}
	return affected, err
}

// WithinTx instruments the transaction and the calls made inside it
func (r *MetricsMemoRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.MemoRepository) error) error {
	start := time.Now()
	err := r.inner.WithinTx(ctx, func(ctx context.Context, tx domain.MemoRepository) error {
		return fn(ctx, &MetricsMemoRepository{inner: tx, metrics: r.metrics})
	})
	r.record("transaction", err, start)
	return err
}

// record treats a miss as a successful lookup
func (r *MetricsMemoRepository) record(op string, err error, start time.Time) {
	if errors.Is(err, domain.ErrMemoNotFound) {
		err = nil
	}
	r.metrics.RecordDBOperation(op, err, time.Since(start))
}
