// Package shop продаёт и скупает товары каталога: склад, лимиты покупок и
// оркестрация покупки с откатом.
package shop

import (
	"context"
	"errors"
	"time"

	"goods_market/internal/domain"
	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/value"
	"goods_market/pkg/apperr"
	"goods_market/pkg/contextx"
	"goods_market/pkg/errcodes"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type CatalogStore interface {
	List(ctx context.Context) ([]entity.CatalogEntry, error)
	Upsert(ctx context.Context, e *entity.CatalogEntry) (int, error)
	Save(ctx context.Context, e *entity.CatalogEntry) error
	ReduceStock(ctx context.Context, id string, amount int) (entity.StockChange, error)
	IncreaseStock(ctx context.Context, id string, amount int) (entity.StockChange, error)
	SetStock(ctx context.Context, id string, stock int) error
	Delete(ctx context.Context, id string) error
	Stocks(ctx context.Context) (map[string]int, error)
}

type LimitStore interface {
	Today() string
	TryIncrementDaily(ctx context.Context, actorID, entryID string, amount, limit int) (bool, error)
	TryIncrementLifetime(ctx context.Context, actorID, entryID string, amount, limit int) (bool, error)
	Daily(ctx context.Context, actorID, entryID string) (entity.DailyLimit, error)
	Lifetime(ctx context.Context, actorID, entryID string) (entity.LifetimeLimit, error)
	ResetLifetime(ctx context.Context, actorID, entryID string) (int64, error)
	DeleteDailyBefore(ctx context.Context, cutoff string) (int64, error)
}

type RecordStore interface {
	LogTransaction(ctx context.Context, rec entity.TransactionRecord) error
	ListTransactions(ctx context.Context, actorID string, limit int) ([]entity.TransactionRecord, error)
	DeleteTransactionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteDrawsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TxRunner открывает транзакцию, общую для всех хранилищ, вызванных с
// переданным в fn контекстом.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Wallet interface {
	Balance(ctx context.Context, actorID string) (int64, error)
	Withdraw(ctx context.Context, actorID string, amount int64) (bool, error)
	Deposit(ctx context.Context, actorID string, amount int64) (bool, error)
}

type StockPublisher interface {
	PublishStock(ctx context.Context, change entity.StockChange) error
}

type DeliverySink interface {
	Deliver(ctx context.Context, actor entity.Actor, d entity.Delivery) error
}

func reject(messages value.Messages, code errcodes.ErrorCode, args map[string]string) *apperr.AppError {
	return apperr.NewError(code, messages.Render(code, args))
}

// publicMessage текст для игрока: для отказов берётся сообщение ошибки,
// внутренние ошибки не раскрываются.
func publicMessage(messages value.Messages, err error) string {
	if domain.IsRejection(err) {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			return appErr.Message
		}
	}

	code, ok := apperr.GetCode(err)
	if ok && (code == errcodes.QueueFull || code == errcodes.QueueClosed || code == errcodes.EconomyUnavailable ||
		code == errcodes.TimeoutExceeded) {
		return messages.Render(code, nil)
	}

	return messages.Render(errcodes.StoreError, nil)
}
