// Package worker фоновые задачи магазина: синхронизация зеркала остатков и
// ежедневная очистка журналов.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"goods_market/pkg/contextx"
	"goods_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const defaultSyncInterval = 30 * time.Second

type StockRefresher interface {
	RefreshAll(ctx context.Context) error
}

// StockSync периодически перечитывает остатки из хранилища, чтобы процессы
// с общим хранилищем сходились даже при потерянных pub/sub сообщениях.
type StockSync struct {
	refresher StockRefresher
	interval  time.Duration

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
}

func NewStockSync(refresher StockRefresher) *StockSync {
	return &StockSync{
		refresher: refresher,
		interval:  defaultSyncInterval,
	}
}

func (w *StockSync) WithInterval(interval time.Duration) *StockSync {
	if interval > 0 {
		w.interval = interval
	}

	return w
}

func (w *StockSync) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("stock sync is already running")
	}

	syncCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.isRunning = true

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			w.isRunning = false
			w.cancelFunc = nil
			w.mu.Unlock()
		}()

		if err := w.Run(syncCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger(ctx).Error("stock sync stopped", logx.Error(err))
		}
	}()

	return nil
}

func (w *StockSync) Stop() {
	w.mu.Lock()

	if !w.isRunning {
		w.mu.Unlock()
		return
	}

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *StockSync) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.isRunning
}

func (w *StockSync) Run(ctx context.Context) error {
	logger(ctx).Info("stock sync started", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger(ctx).Info("stock sync stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.refresher.RefreshAll(ctx); err != nil {
				logger(ctx).Error("failed to refresh stock", logx.Error(err))
			}
		}
	}
}
