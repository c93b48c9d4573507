package shop

import (
	"context"
	"fmt"
	"log/slog"

	"goods_market/internal/domain"
	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/logx"
	"goods_market/pkg/serialq"
)

// Ledger склад и лимиты покупок. Все изменения идут через одну очередь
// хранилища, зеркало каталога обновляется значением из той же транзакции.
type Ledger struct {
	store     CatalogStore
	limits    LimitStore
	queue     *serialq.Queue
	catalog   *Catalog
	publisher StockPublisher
}

func NewLedger(
	store CatalogStore,
	limits LimitStore,
	queue *serialq.Queue,
	catalog *Catalog,
) *Ledger {
	return &Ledger{
		store:   store,
		limits:  limits,
		queue:   queue,
		catalog: catalog,
	}
}

// WithPublisher рассылает изменения остатков другим процессам.
func (l *Ledger) WithPublisher(publisher StockPublisher) *Ledger {
	l.publisher = publisher
	return l
}

func (l *Ledger) Catalog() *Catalog {
	return l.catalog
}

func (l *Ledger) Queue() *serialq.Queue {
	return l.queue
}

// Reduce списывает amount единиц и возвращает реально списанное
// количество; 0 означает отказ без частичного выполнения.
func (l *Ledger) Reduce(ctx context.Context, entryID string, amount int) (int, error) {
	change, err := serialq.Do(ctx, l.queue, "reduce-stock", func(ctx context.Context) (entity.StockChange, error) {
		change, err := l.store.ReduceStock(ctx, entryID, amount)
		if err != nil {
			return change, err
		}

		if change.Reserved > 0 {
			l.Apply(ctx, change)
		}

		return change, nil
	})
	if err != nil {
		return 0, domain.WrapQueueError(err)
	}

	return change.Reserved, nil
}

func (l *Ledger) Increase(ctx context.Context, entryID string, amount int) error {
	_, err := serialq.Do(ctx, l.queue, "increase-stock", func(ctx context.Context) (entity.StockChange, error) {
		change, err := l.store.IncreaseStock(ctx, entryID, amount)
		if err != nil {
			return change, err
		}

		l.Apply(ctx, change)

		return change, nil
	})

	return domain.WrapQueueError(err)
}

func (l *Ledger) TryIncrementDaily(ctx context.Context, actorID, entryID string, amount, limit int) (bool, error) {
	ok, err := serialq.Do(ctx, l.queue, "increment-daily", func(ctx context.Context) (bool, error) {
		return l.limits.TryIncrementDaily(ctx, actorID, entryID, amount, limit)
	})

	return ok, domain.WrapQueueError(err)
}

func (l *Ledger) TryIncrementLifetime(ctx context.Context, actorID, entryID string, amount, limit int) (bool, error) {
	ok, err := serialq.Do(ctx, l.queue, "increment-lifetime", func(ctx context.Context) (bool, error) {
		return l.limits.TryIncrementLifetime(ctx, actorID, entryID, amount, limit)
	})

	return ok, domain.WrapQueueError(err)
}

// Set задаёт остаток напрямую.
func (l *Ledger) Set(ctx context.Context, entryID string, stock int) error {
	_, err := serialq.Do(ctx, l.queue, "set-stock", func(ctx context.Context) (struct{}, error) {
		if err := l.store.SetStock(ctx, entryID, stock); err != nil {
			return struct{}{}, err
		}

		l.Apply(ctx, entity.StockChange{EntryID: entryID, Stock: stock})

		return struct{}{}, nil
	})

	return domain.WrapQueueError(err)
}

// Overwrite сохраняет позицию целиком, включая остаток.
func (l *Ledger) Overwrite(ctx context.Context, entry entity.CatalogEntry) error {
	_, err := serialq.Do(ctx, l.queue, "save-entry", func(ctx context.Context) (struct{}, error) {
		if err := l.store.Save(ctx, &entry); err != nil {
			return struct{}{}, err
		}

		l.catalog.Put(entry)
		l.publish(ctx, entity.StockChange{EntryID: entry.ID, Stock: entry.Stock})

		return struct{}{}, nil
	})

	return domain.WrapQueueError(err)
}

func (l *Ledger) Remove(ctx context.Context, entryID string) error {
	_, err := serialq.Do(ctx, l.queue, "delete-entry", func(ctx context.Context) (struct{}, error) {
		if err := l.store.Delete(ctx, entryID); err != nil {
			return struct{}{}, err
		}

		l.catalog.Remove(entryID)

		return struct{}{}, nil
	})

	return domain.WrapQueueError(err)
}

// Load синхронизирует определения из конфига с хранилищем. Остатки уже
// существующих позиций сохраняются.
func (l *Ledger) Load(ctx context.Context, defs []entity.CatalogEntry) error {
	entries, err := serialq.Do(ctx, l.queue, "load-catalog", func(ctx context.Context) ([]entity.CatalogEntry, error) {
		entries := make([]entity.CatalogEntry, 0, len(defs))

		for _, def := range defs {
			stock, err := l.store.Upsert(ctx, &def)
			if err != nil {
				return nil, fmt.Errorf("upsert %s: %w", def.ID, err)
			}

			def.Stock = stock
			entries = append(entries, def)
		}

		return entries, nil
	})
	if err != nil {
		return domain.WrapQueueError(err)
	}

	l.catalog.SetDefinitions(defs)
	l.catalog.Replace(entries)

	logger(ctx).Info("catalog loaded", slog.Int("entries", len(entries)))

	return nil
}

// RefreshAll перечитывает остатки из хранилища, чтобы процессы с общим
// хранилищем сходились.
func (l *Ledger) RefreshAll(ctx context.Context) error {
	stocks, err := serialq.Do(ctx, l.queue, "refresh-stock", func(ctx context.Context) (map[string]int, error) {
		return l.store.Stocks(ctx)
	})
	if err != nil {
		return domain.WrapQueueError(err)
	}

	for id, stock := range stocks {
		l.catalog.SetStock(id, stock)
	}

	return nil
}

// Apply обновляет зеркало после фиксации изменения и рассылает его.
func (l *Ledger) Apply(ctx context.Context, change entity.StockChange) {
	l.catalog.SetStock(change.EntryID, change.Stock)
	l.publish(ctx, change)
}

// ApplyRemote принимает изменение, сделанное другим процессом.
func (l *Ledger) ApplyRemote(change entity.StockChange) {
	l.catalog.SetStock(change.EntryID, change.Stock)
}

func (l *Ledger) publish(ctx context.Context, change entity.StockChange) {
	if l.publisher == nil {
		return
	}

	if err := l.publisher.PublishStock(ctx, change); err != nil {
		logger(ctx).Warn("failed to publish stock change",
			slog.String(logx.FieldEntryID, change.EntryID),
			slog.Int(logx.FieldStock, change.Stock),
			logx.Error(err),
		)
	}
}

func errEntryNotFound(entryID string) error {
	return apperr.NewError(errcodes.EntryNotFound, fmt.Sprintf("entry %s not found", entryID))
}
