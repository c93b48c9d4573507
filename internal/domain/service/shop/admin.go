package shop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"goods_market/internal/domain"
	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/logx"
	"goods_market/pkg/serialq"
)

const day = 24 * time.Hour

// AdminService операции администратора над складом, лимитами и журналами.
type AdminService struct {
	ledger  *Ledger
	tx      TxRunner
	records RecordStore
	now     func() time.Time
}

func NewAdminService(ledger *Ledger, tx TxRunner, records RecordStore) *AdminService {
	return &AdminService{
		ledger:  ledger,
		tx:      tx,
		records: records,
		now:     time.Now,
	}
}

func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

// ResetStock перезаписывает позицию значением из конфига, включая остаток.
func (s *AdminService) ResetStock(ctx context.Context, entryID string) (int, error) {
	def, ok := s.ledger.catalog.Definition(entryID)
	if !ok {
		return 0, errEntryNotFound(entryID)
	}

	if err := s.ledger.Overwrite(ctx, def); err != nil {
		return 0, fmt.Errorf("shop.ResetStock: %w", err)
	}

	logger(ctx).Info("stock reset",
		slog.String(logx.FieldEntryID, entryID),
		slog.Int(logx.FieldStock, def.Stock),
	)

	return def.Stock, nil
}

func (s *AdminService) SetStock(ctx context.Context, entryID string, stock int) error {
	if stock < entity.UnlimitedStock {
		return apperr.NewError(errcodes.ValidationError, "stock must be -1 (unlimited) or non-negative")
	}

	if err := s.ledger.Set(ctx, entryID, stock); err != nil {
		return fmt.Errorf("shop.SetStock: %w", err)
	}

	logger(ctx).Info("stock set",
		slog.String(logx.FieldEntryID, entryID),
		slog.Int(logx.FieldStock, stock),
	)

	return nil
}

func (s *AdminService) DeleteEntry(ctx context.Context, entryID string) error {
	if err := s.ledger.Remove(ctx, entryID); err != nil {
		return fmt.Errorf("shop.DeleteEntry: %w", err)
	}

	logger(ctx).Info("entry deleted", slog.String(logx.FieldEntryID, entryID))

	return nil
}

// CleanupOlderThan удаляет журналы и дневные счётчики старше days дней
// одной транзакцией.
func (s *AdminService) CleanupOlderThan(ctx context.Context, days int) (entity.CleanupResult, error) {
	if days <= 0 {
		return entity.CleanupResult{}, apperr.NewError(errcodes.ValidationError, "days must be positive")
	}

	cutoff := s.now().Add(-time.Duration(days) * day)

	result, err := serialq.Do(ctx, s.ledger.queue, "cleanup", func(ctx context.Context) (entity.CleanupResult, error) {
		var result entity.CleanupResult

		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error

			if result.Transactions, err = s.records.DeleteTransactionsBefore(ctx, cutoff); err != nil {
				return err
			}

			if result.Draws, err = s.records.DeleteDrawsBefore(ctx, cutoff); err != nil {
				return err
			}

			result.DailyLimits, err = s.ledger.limits.DeleteDailyBefore(ctx, cutoff.Format(entity.DateLayout))

			return err
		})

		return result, err
	})
	if err != nil {
		return entity.CleanupResult{}, fmt.Errorf("shop.CleanupOlderThan: %w", domain.WrapQueueError(err))
	}

	logger(ctx).Info("cleanup completed",
		slog.Int("days", days),
		slog.Int64("transactions", result.Transactions),
		slog.Int64("draws", result.Draws),
		slog.Int64("daily-limits", result.DailyLimits),
	)

	return result, nil
}

// ResetPlayerLimit сбрасывает пожизненный счётчик; пустой entryID сбрасывает
// все позиции игрока.
func (s *AdminService) ResetPlayerLimit(ctx context.Context, actorID, entryID string) (int64, error) {
	removed, err := serialq.Do(ctx, s.ledger.queue, "reset-player-limit", func(ctx context.Context) (int64, error) {
		return s.ledger.limits.ResetLifetime(ctx, actorID, entryID)
	})
	if err != nil {
		return 0, fmt.Errorf("shop.ResetPlayerLimit: %w", domain.WrapQueueError(err))
	}

	return removed, nil
}

// Reload перечитывает определения каталога, сохраняя остатки.
func (s *AdminService) Reload(ctx context.Context, defs []entity.CatalogEntry) error {
	if err := s.ledger.Load(ctx, defs); err != nil {
		return fmt.Errorf("shop.Reload: %w", err)
	}

	return nil
}
