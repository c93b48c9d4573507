package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/application/modules"
)

const TypeCleanup = "shop:cleanup"

type Cleaner interface {
	CleanupOlderThan(ctx context.Context, days int) (entity.CleanupResult, error)
}

type cleanupPayload struct {
	Days int `json:"days"`
}

func NewCleanupTask(days int) (*asynq.Task, error) {
	payload, err := jsoniter.Marshal(cleanupPayload{Days: days})
	if err != nil {
		return nil, fmt.Errorf("worker.NewCleanupTask: %w", err)
	}

	return asynq.NewTask(TypeCleanup, payload), nil
}

// CleanupHandler удаляет журналы старше срока хранения из задачи.
type CleanupHandler struct {
	cleaner Cleaner
}

func NewCleanupHandler(cleaner Cleaner) *CleanupHandler {
	return &CleanupHandler{cleaner: cleaner}
}

func (h *CleanupHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload cleanupPayload
	if err := jsoniter.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal cleanup payload: %w: %w", err, asynq.SkipRetry)
	}

	result, err := h.cleaner.CleanupOlderThan(ctx, payload.Days)
	if err != nil {
		return fmt.Errorf("cleanupHandler.Handle: %w", err)
	}

	logger(ctx).Info("scheduled cleanup finished",
		slog.Int("days", payload.Days),
		slog.Int64("transactions", result.Transactions),
		slog.Int64("draws", result.Draws),
		slog.Int64("daily-limits", result.DailyLimits),
	)

	return nil
}

func (h *CleanupHandler) AsynqHandler() modules.AsynqHandler {
	return modules.AsynqHandler{Pattern: TypeCleanup, Handle: h.Handle}
}
