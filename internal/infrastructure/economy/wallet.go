// Package economy подключает внешние балансы игроков: монеты и очки.
// Операции с балансом не входят в транзакции хранилища и компенсируются
// вызывающим кодом.
package economy

import (
	"context"

	"goods_market/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Wallet interface {
	Balance(ctx context.Context, actorID string) (int64, error)
	// Withdraw списывает amount; false означает, что денег не хватило.
	Withdraw(ctx context.Context, actorID string, amount int64) (bool, error)
	Deposit(ctx context.Context, actorID string, amount int64) (bool, error)
}
