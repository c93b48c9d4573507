package economy

import (
	"context"

	"goods_market/internal/domain"
	"goods_market/pkg/serialq"
)

// Account пропускает все обращения к кошельку через отдельную очередь, чтобы
// медленный сервис баланса не задерживал операции со складом.
type Account struct {
	wallet Wallet
	queue  *serialq.Queue
}

func NewAccount(wallet Wallet, queue *serialq.Queue) *Account {
	return &Account{wallet: wallet, queue: queue}
}

func (a *Account) Balance(ctx context.Context, actorID string) (int64, error) {
	balance, err := serialq.Do(ctx, a.queue, "balance", func(ctx context.Context) (int64, error) {
		return a.wallet.Balance(ctx, actorID)
	})

	return balance, domain.WrapQueueError(err)
}

func (a *Account) Withdraw(ctx context.Context, actorID string, amount int64) (bool, error) {
	ok, err := serialq.Do(ctx, a.queue, "withdraw", func(ctx context.Context) (bool, error) {
		return a.wallet.Withdraw(ctx, actorID, amount)
	})

	return ok, domain.WrapQueueError(err)
}

func (a *Account) Deposit(ctx context.Context, actorID string, amount int64) (bool, error) {
	ok, err := serialq.Do(ctx, a.queue, "deposit", func(ctx context.Context) (bool, error) {
		return a.wallet.Deposit(ctx, actorID, amount)
	})

	return ok, domain.WrapQueueError(err)
}
