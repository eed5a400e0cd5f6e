package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memo-api/src/domain"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// ReadyToTrip threshold
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breaker
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// StateObserver receives breaker state transitions (0 closed, 1 half-open, 2 open)
type StateObserver func(name string, state float64)

// BreakerMemoRepository guards a MemoRepository with a circuit breaker.
// Domain outcomes such as a missing memo do not count as failures.
type BreakerMemoRepository struct {
	inner  domain.MemoRepository
	cb     *gobreaker.CircuitBreaker
	logger *logrus.Logger
}

// NewBreakerMemoRepository wraps inner with a circuit breaker
func NewBreakerMemoRepository(inner domain.MemoRepository, config CircuitBreakerConfig, logger *logrus.Logger, observe StateObserver) *BreakerMemoRepository {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("サーキットブレーカーの状態が変化しました")
			if observe != nil {
				observe(name, stateValue(to))
			}
		},
		IsSuccessful: isSuccessful,
	})

	if observe != nil {
		observe(config.Name, stateValue(gobreaker.StateClosed))
	}

	return &BreakerMemoRepository{
		inner:  inner,
		cb:     cb,
		logger: logger,
	}
}

// State returns the current breaker state
func (r *BreakerMemoRepository) State() gobreaker.State {
	return r.cb.State()
}

func (r *BreakerMemoRepository) Insert(ctx context.Context, memo *domain.Memo) (*domain.Memo, error) {
	return execute(r, func() (*domain.Memo, error) { return r.inner.Insert(ctx, memo) })
}

func (r *BreakerMemoRepository) FindAll(ctx context.Context) ([]domain.Memo, error) {
	return execute(r, func() ([]domain.Memo, error) { return r.inner.FindAll(ctx) })
}

func (r *BreakerMemoRepository) FindByID(ctx context.Context, id int64) (*domain.Memo, error) {
	return execute(r, func() (*domain.Memo, error) { return r.inner.FindByID(ctx, id) })
}

func (r *BreakerMemoRepository) UpdateFull(ctx context.Context, id int64, title, contents string) (int64, error) {
	return execute(r, func() (int64, error) { return r.inner.UpdateFull(ctx, id, title, contents) })
}

func (r *BreakerMemoRepository) UpdateTitle(ctx context.Context, id int64, title string) (int64, error) {
	return execute(r, func() (int64, error) { return r.inner.UpdateTitle(ctx, id, title) })
}

func (r *BreakerMemoRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return execute(r, func() (int64, error) { return r.inner.Delete(ctx, id) })
}

// WithinTx counts the whole transaction as one breaker request.
// Calls inside the transaction go straight to the inner repository.
func (r *BreakerMemoRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.MemoRepository) error) error {
	_, err := execute(r, func() (struct{}, error) {
		return struct{}{}, r.inner.WithinTx(ctx, fn)
	})
	return err
}

func execute[T any](r *BreakerMemoRepository, call func() (T, error)) (T, error) {
	result, err := r.cb.Execute(func() (interface{}, error) {
		return call()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		r.logger.WithError(err).Warn("サーキットブレーカーによりストレージ呼び出しを遮断")
		var zero T
		return zero, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	// 元のエラーをそのまま返す
	v, _ := result.(T)
	return v, err
}

// isSuccessful treats domain outcomes and caller cancellation as non-failures
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrMemoNotFound) || errors.Is(err, context.Canceled) {
		return true
	}
	return false
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
