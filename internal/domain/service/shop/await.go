package shop

import (
	"context"
	"time"

	"goods_market/pkg/serialq"
)

const defaultResultGrace = 10 * time.Second

// await ждёт результата операции, уже принятой очередью. После отмены ctx
// операция всё равно выполнится, поэтому ожидание продолжается ещё grace.
// settled=false значит, что итог вызывающему неизвестен.
func await[T any](ctx context.Context, future *serialq.Future[T], grace time.Duration) (T, bool, error) {
	select {
	case <-future.Done():
	case <-ctx.Done():
		timer := time.NewTimer(grace)
		defer timer.Stop()

		select {
		case <-future.Done():
		case <-timer.C:
			var zero T
			return zero, false, ctx.Err()
		}
	}

	value, err := future.Wait(context.Background())

	return value, true, err
}
