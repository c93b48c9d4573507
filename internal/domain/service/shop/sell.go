package shop

import (
	"context"
	"log/slog"
	"math"

	"github.com/rs/xid"
	"github.com/samber/lo"

	"goods_market/internal/domain"
	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/logx"
	"goods_market/pkg/serialq"
)

// Sell скупает предметы по цене продажи каталога. Если зачислить монеты не
// удалось, все предметы возвращаются игроку в Skipped.
func (s *PurchaseService) Sell(ctx context.Context, actor entity.Actor, items []entity.SellItem) (entity.SellResult, error) {
	future, err := serialq.Submit(ctx, s.queue, "sell", func(ctx context.Context) (entity.SellResult, error) {
		return s.sell(ctx, actor, items)
	})
	if err != nil {
		return entity.SellResult{}, domain.WrapQueueError(err)
	}

	result, settled, err := await(ctx, future, s.resultGrace)
	if !settled {
		return entity.SellResult{Pending: true}, s.pending(ctx, actor, "sell", err)
	}

	return result, domain.WrapQueueError(err)
}

func (s *PurchaseService) sell(ctx context.Context, actor entity.Actor, items []entity.SellItem) (entity.SellResult, error) {
	var (
		result  entity.SellResult
		entries = make(map[string]entity.CatalogEntry, len(items))
	)

	for _, item := range items {
		entry, ok := s.ledger.catalog.Get(item.EntryID)
		if !ok || !entry.CanSell() || item.Amount <= 0 {
			result.Skipped = append(result.Skipped, item)
			continue
		}

		if overflows(entry.SellPrice, item.Amount) {
			return entity.SellResult{}, reject(s.messages, errcodes.ValidationError, map[string]string{"reason": "amount too large"})
		}

		entries[entry.ID] = entry
		reward := entry.SellPrice * int64(item.Amount)

		if reward > math.MaxInt64-result.TotalReward {
			return entity.SellResult{}, reject(s.messages, errcodes.ValidationError, map[string]string{"reason": "amount too large"})
		}

		result.Sold = append(result.Sold, entity.SoldItem{
			EntryID: entry.ID,
			ItemKey: entry.ItemKey,
			Amount:  item.Amount,
			Reward:  reward,
		})
		result.TotalReward += reward
	}

	if len(result.Sold) == 0 {
		salesTotal.WithLabelValues(errcodes.NothingToSell.String()).Inc()

		return result, reject(s.messages, errcodes.NothingToSell, nil)
	}

	ok, err := s.coins.Deposit(ctx, actor.ID, result.TotalReward)
	if err != nil || !ok {
		if err == nil {
			err = apperr.NewError(errcodes.EconomyUnavailable, s.messages.Render(errcodes.EconomyUnavailable, nil))
		}

		logger(ctx).Warn("sell credit failed, items returned",
			slog.String(logx.FieldActorID, actor.ID),
			slog.Int64(logx.FieldAmount, result.TotalReward),
			logx.Error(err),
		)

		result.Skipped = append(result.Skipped, lo.Map(result.Sold, func(item entity.SoldItem, _ int) entity.SellItem {
			return entity.SellItem{EntryID: item.EntryID, Amount: item.Amount}
		})...)
		result.Sold = nil
		result.TotalReward = 0

		salesTotal.WithLabelValues(errcodes.EconomyUnavailable.String()).Inc()

		return result, err
	}

	for _, item := range result.Sold {
		if s.restockOnSell && !entries[item.EntryID].IsUnlimited() {
			if err := s.ledger.Increase(ctx, item.EntryID, item.Amount); err != nil {
				logger(ctx).Error("restock after sell failed",
					slog.String(logx.FieldEntryID, item.EntryID),
					slog.Int(logx.FieldAmount, item.Amount),
					logx.Error(err),
				)
			}
		}

		s.logTransaction(ctx, entity.TransactionRecord{
			ID:        xid.New().String(),
			ActorID:   actor.ID,
			ActorName: actor.Name,
			EntryID:   item.EntryID,
			ItemKey:   item.ItemKey,
			Amount:    item.Amount,
			Price:     item.Reward,
			Type:      entity.TransactionSell,
			CreatedAt: s.now(),
		})
	}

	salesTotal.WithLabelValues(resultSuccess).Inc()

	logger(ctx).Info("sell completed",
		slog.String(logx.FieldActorID, actor.ID),
		slog.Int("items", len(result.Sold)),
		slog.Int64(logx.FieldAmount, result.TotalReward),
	)

	return result, nil
}

// History последние покупки и продажи игрока.
func (s *PurchaseService) History(ctx context.Context, actorID string, limit int) ([]entity.TransactionRecord, error) {
	return s.records.ListTransactions(ctx, actorID, limit)
}
