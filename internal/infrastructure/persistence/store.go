package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

// errRollback откатывает транзакцию без ошибки для вызывающего: метод
// репозитория сам превращает его в отказ (0 или false).
var errRollback = errors.New("persistence: rollback requested")

type contextKeyTx struct{}

func txFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(contextKeyTx{}).(*sqlx.Tx)
	return tx, ok
}

type Option func(*base)

// WithClock подменяет источник времени (дата дневного лимита, updated_at).
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

type base struct {
	db  *sqlx.DB
	now func() time.Time
}

func newBase(db *sqlx.DB, opts ...Option) base {
	b := base{db: db, now: time.Now}

	for _, opt := range opts {
		opt(&b)
	}

	return b
}

// conn возвращает транзакцию из контекста, если она есть.
func (b base) conn(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}

	return b.db
}

// withTx выполняет fn в транзакции. Если в контексте уже есть транзакция,
// fn выполняется в ней, а фиксацией управляет её владелец.
func (b base) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(tx)
	}

	return b.begin(ctx, fn)
}

func (b base) begin(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return apperr.WrapError(
				fmt.Errorf("%w; rollback: %v", err, rbErr),
				errcodes.StoreError,
				"transaction failed",
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to commit")
	}
	return nil
}

// Store открывает транзакции, охватывающие несколько репозиториев.
type Store struct {
	base
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{base: newBase(db)}
}

// WithinTx выполняет fn в одной транзакции: репозитории, вызванные с
// переданным в fn контекстом, работают в ней. Ошибка fn откатывает всё.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	return s.begin(ctx, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, contextKeyTx{}, tx))
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to ping store")
	}
	return nil
}
