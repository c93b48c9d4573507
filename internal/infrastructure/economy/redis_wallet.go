package economy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/logx"
)

// withdrawScript атомарно проверяет баланс и списывает сумму. Возвращает -1,
// если денег не хватает.
const withdrawScript = `
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if balance < amount then
	return -1
end
return redis.call('DECRBY', KEYS[1], amount)
`

type redisBalances interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// RedisWallet хранит балансы в ключах <prefix><actorID>.
type RedisWallet struct {
	client redisBalances
	prefix string
}

func NewRedisWallet(client redisBalances, prefix string) *RedisWallet {
	return &RedisWallet{client: client, prefix: prefix}
}

func (w *RedisWallet) key(actorID string) string {
	return w.prefix + actorID
}

func (w *RedisWallet) Balance(ctx context.Context, actorID string) (int64, error) {
	balance, err := w.client.Get(ctx, w.key(actorID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.WrapError(err, errcodes.EconomyUnavailable, "failed to read balance")
	}

	return balance, nil
}

func (w *RedisWallet) Withdraw(ctx context.Context, actorID string, amount int64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}

	left, err := w.client.Eval(ctx, withdrawScript, []string{w.key(actorID)}, amount).Int64()
	if err != nil {
		return false, apperr.WrapError(err, errcodes.EconomyUnavailable, "failed to withdraw")
	}

	if left < 0 {
		logger(ctx).Info("withdraw rejected",
			slog.String(logx.FieldActorID, actorID),
			slog.Int64(logx.FieldAmount, amount),
		)

		return false, nil
	}

	return true, nil
}

func (w *RedisWallet) Deposit(ctx context.Context, actorID string, amount int64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}

	if err := w.client.IncrBy(ctx, w.key(actorID), amount).Err(); err != nil {
		return false, apperr.WrapError(err, errcodes.EconomyUnavailable, "failed to deposit")
	}

	return true, nil
}
