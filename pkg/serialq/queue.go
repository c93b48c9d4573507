// Package serialq реализует очередь с единственным обработчиком: все
// операции выполняются строго по одной в порядке поступления, а результат
// доставляется вызывающему через Future или колбэки на его Executor.
package serialq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"goods_market/pkg/contextx"
	"goods_market/pkg/logx"
)

const (
	defaultCapacity      = 1024
	defaultSubmitTimeout = 5 * time.Second
	defaultSlowThreshold = time.Second
)

var (
	ErrQueueFull    = errors.New("serialq: queue is full")
	ErrQueueClosed  = errors.New("serialq: queue is closed")
	ErrForceStopped = errors.New("serialq: queue was force stopped")
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type task struct {
	ctx      context.Context
	name     string
	enqueued time.Time
	run      func(ctx context.Context)
	fail     func(err error)
}

type Queue struct {
	name          string
	tasks         chan task
	submitTimeout time.Duration
	slowThreshold time.Duration
	executor      Executor

	mu      sync.RWMutex
	closed  bool
	started bool
	forced  atomic.Bool
	done    chan struct{}
}

type Option func(*Queue)

func WithCapacity(capacity int) Option {
	return func(q *Queue) {
		if capacity > 0 {
			q.tasks = make(chan task, capacity)
		}
	}
}

// WithSubmitTimeout задаёт, сколько Submit может ждать места в очереди,
// прежде чем вернуть ErrQueueFull.
func WithSubmitTimeout(timeout time.Duration) Option {
	return func(q *Queue) {
		q.submitTimeout = timeout
	}
}

// WithSlowThreshold задаёт порог, после которого операция логируется как
// медленная. Операция при этом не прерывается.
func WithSlowThreshold(threshold time.Duration) Option {
	return func(q *Queue) {
		q.slowThreshold = threshold
	}
}

// WithExecutor задаёт контекст исполнения колбэков по умолчанию.
func WithExecutor(executor Executor) Option {
	return func(q *Queue) {
		q.executor = executor
	}
}

func New(name string, opts ...Option) *Queue {
	q := &Queue{
		name:          name,
		tasks:         make(chan task, defaultCapacity),
		submitTimeout: defaultSubmitTimeout,
		slowThreshold: defaultSlowThreshold,
		executor:      GoExecutor,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

func (q *Queue) Name() string {
	return q.name
}

// Start запускает единственную горутину-обработчик. Повторные вызовы ничего
// не делают.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}

	q.started = true

	go q.loop(ctx)

	logger(ctx).Info("queue started", slog.String(logx.FieldQueue, q.name))
}

// Shutdown перестаёт принимать новые операции и дожидается выполнения уже
// поставленных. Если ctx истекает раньше, оставшиеся в очереди операции
// завершаются с ErrForceStopped, а выполняющаяся дорабатывает сама.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
	}

	if !q.started {
		q.started = true
		q.forced.Store(true)

		go q.loop(ctx)
	}

	q.mu.Unlock()

	select {
	case <-q.done:
		logger(ctx).Info("queue drained", slog.String(logx.FieldQueue, q.name))

		return nil
	case <-ctx.Done():
		q.forced.Store(true)

		logger(ctx).Warn("queue force stopped", slog.String(logx.FieldQueue, q.name), slog.Int("pending", len(q.tasks)))

		return fmt.Errorf("serialq: drain %s: %w", q.name, ctx.Err())
	}
}

func (q *Queue) enqueue(ctx context.Context, t task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		queueRejected.WithLabelValues(q.name, "closed").Inc()

		return ErrQueueClosed
	}

	select {
	case q.tasks <- t:
		queueDepth.WithLabelValues(q.name).Inc()

		return nil
	default:
	}

	timer := time.NewTimer(q.submitTimeout)
	defer timer.Stop()

	select {
	case q.tasks <- t:
		queueDepth.WithLabelValues(q.name).Inc()

		return nil
	case <-timer.C:
		queueRejected.WithLabelValues(q.name, "full").Inc()

		return ErrQueueFull
	case <-ctx.Done():
		return fmt.Errorf("serialq: submit %s: %w", t.name, ctx.Err())
	}
}

func (q *Queue) loop(ctx context.Context) {
	defer close(q.done)

	for t := range q.tasks {
		queueDepth.WithLabelValues(q.name).Dec()

		if q.forced.Load() {
			t.fail(ErrForceStopped)

			continue
		}

		q.execute(t)
	}

	logger(ctx).Info("queue stopped", slog.String(logx.FieldQueue, q.name))
}

func (q *Queue) execute(t task) {
	ctx := context.WithoutCancel(t.ctx)
	start := time.Now()

	t.run(ctx)

	elapsed := time.Since(start)
	operationDuration.WithLabelValues(q.name, t.name).Observe(elapsed.Seconds())

	if q.slowThreshold > 0 && elapsed > q.slowThreshold {
		slowOperations.WithLabelValues(q.name).Inc()

		logger(ctx).Warn(
			"slow queue operation",
			slog.String(logx.FieldQueue, q.name),
			slog.String(logx.FieldOperation, t.name),
			slog.Int64(logx.FieldDurationMs, elapsed.Milliseconds()),
			slog.Int64("wait-ms", start.Sub(t.enqueued).Milliseconds()),
		)
	}
}

// Submit ставит операцию в очередь и возвращает Future с её результатом.
// Операция получает контекст без отмены: начавшись, она выполняется до конца.
func Submit[T any](
	ctx context.Context,
	q *Queue,
	name string,
	op func(ctx context.Context) (T, error),
) (*Future[T], error) {
	future := newFuture[T]()

	t := task{
		ctx:      ctx,
		name:     name,
		enqueued: time.Now(),
		run: func(ctx context.Context) {
			value, err := safeRun(ctx, name, op)
			future.resolve(value, err)
		},
		fail: func(err error) {
			var zero T
			future.resolve(zero, err)
		},
	}

	if err := q.enqueue(ctx, t); err != nil {
		return nil, err
	}

	return future, nil
}

// SubmitCallback ставит операцию в очередь и вызывает onSuccess или
// onFailure на executor'е очереди. Ошибка постановки тоже уходит в
// onFailure и возвращается.
func SubmitCallback[T any](
	ctx context.Context,
	q *Queue,
	name string,
	op func(ctx context.Context) (T, error),
	onSuccess func(T),
	onFailure func(error),
) error {
	future, err := Submit(ctx, q, name, op)
	if err != nil {
		if onFailure != nil {
			q.executor.Execute(func() { onFailure(err) })
		}

		return err
	}

	future.Then(q.executor, onSuccess, onFailure)

	return nil
}

// Do ставит операцию в очередь и ждёт результата.
func Do[T any](
	ctx context.Context,
	q *Queue,
	name string,
	op func(ctx context.Context) (T, error),
) (T, error) {
	future, err := Submit(ctx, q, name, op)
	if err != nil {
		var zero T
		return zero, err
	}

	return future.Wait(ctx)
}

func safeRun[T any](ctx context.Context, name string, op func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("serialq: operation %s panicked: %v", name, rec)
		}
	}()

	return op(ctx)
}
