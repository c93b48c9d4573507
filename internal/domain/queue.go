package domain

import (
	"errors"

	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/serialq"
)

// WrapQueueError переводит ошибки постановки в очередь в доменные коды.
// Остальные ошибки возвращаются как есть.
func WrapQueueError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, serialq.ErrQueueFull):
		return apperr.WrapError(err, errcodes.QueueFull, "queue is full")
	case errors.Is(err, serialq.ErrQueueClosed), errors.Is(err, serialq.ErrForceStopped):
		return apperr.WrapError(err, errcodes.QueueClosed, "queue is closed")
	default:
		return err
	}
}
