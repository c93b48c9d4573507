package shop

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/samber/lo"

	"goods_market/internal/domain"
	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/value"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/logx"
	"goods_market/pkg/serialq"
)

const resultSuccess = "success"

type payment struct {
	coins  int64
	points int64
}

// PurchaseService оркестрирует покупку и продажу. Каждая покупка одна
// операция в очереди покупок; склад, списание и лимиты фиксируются одной
// транзакцией хранилища.
type PurchaseService struct {
	ledger   *Ledger
	tx       TxRunner
	records  RecordStore
	coins    Wallet
	points   Wallet
	delivery DeliverySink
	queue    *serialq.Queue

	messages      value.Messages
	restockOnSell bool
	resultGrace   time.Duration
	now           func() time.Time
}

func NewPurchaseService(
	ledger *Ledger,
	tx TxRunner,
	records RecordStore,
	coins Wallet,
	points Wallet,
	delivery DeliverySink,
	queue *serialq.Queue,
) *PurchaseService {
	return &PurchaseService{
		ledger:   ledger,
		tx:       tx,
		records:  records,
		coins:    coins,
		points:   points,
		delivery: delivery,
		queue:    queue,
		messages:    value.Messages{},
		resultGrace: defaultResultGrace,
		now:         time.Now,
	}
}

func (s *PurchaseService) WithMessages(messages value.Messages) *PurchaseService {
	s.messages = messages
	return s
}

// WithRestockOnSell возвращает проданные игроком товары на склад.
func (s *PurchaseService) WithRestockOnSell(enabled bool) *PurchaseService {
	s.restockOnSell = enabled
	return s
}

// WithResultGrace сколько ещё ждать результата операции, когда вызывающий
// уже перестал ждать.
func (s *PurchaseService) WithResultGrace(grace time.Duration) *PurchaseService {
	s.resultGrace = grace
	return s
}

func (s *PurchaseService) WithClock(now func() time.Time) *PurchaseService {
	s.now = now
	return s
}

func (s *PurchaseService) Buy(
	ctx context.Context,
	actor entity.Actor,
	entryID string,
	amount int,
) (entity.PurchaseResult, error) {
	future, err := serialq.Submit(ctx, s.queue, "buy", func(ctx context.Context) (entity.PurchaseResult, error) {
		return s.buy(ctx, actor, entryID, amount)
	})
	if err != nil {
		return s.notQueued(entryID, amount, err)
	}

	result, settled, err := await(ctx, future, s.resultGrace)
	if !settled {
		// Операция уже в очереди и выполнится: это не отказ.
		err = s.pending(ctx, actor, "buy", err)

		return entity.PurchaseResult{
			EntryID: entryID,
			Amount:  amount,
			State:   entity.PurchasePending,
			Message: publicMessage(s.messages, err),
		}, err
	}

	if err != nil && result.State == "" {
		return s.notQueued(entryID, amount, err)
	}

	return result, err
}

func (s *PurchaseService) notQueued(entryID string, amount int, err error) (entity.PurchaseResult, error) {
	err = domain.WrapQueueError(err)

	return entity.PurchaseResult{
		EntryID: entryID,
		Amount:  amount,
		State:   entity.PurchaseRejected,
		Message: publicMessage(s.messages, err),
	}, err
}

// pending ошибка для операции, итог которой не дождались.
func (s *PurchaseService) pending(ctx context.Context, actor entity.Actor, operation string, err error) error {
	logger(ctx).Warn("operation result pending",
		slog.String(logx.FieldActorID, actor.ID),
		slog.String(logx.FieldOperation, operation),
		logx.Error(err),
	)

	return apperr.WrapError(err, errcodes.TimeoutExceeded, s.messages.Render(errcodes.TimeoutExceeded, nil))
}

func (s *PurchaseService) buy(
	ctx context.Context,
	actor entity.Actor,
	entryID string,
	amount int,
) (entity.PurchaseResult, error) {
	result := entity.PurchaseResult{EntryID: entryID, Amount: amount, State: entity.PurchaseReceived}

	entry, err := s.check(ctx, actor, entryID, amount)
	if err != nil {
		return s.rejected(ctx, actor, result, err)
	}

	result.ItemKey = entry.ItemKey
	result.State = entity.PurchaseConditionsChecked

	cost := entry.BuyPrice * int64(amount)
	points := entry.BuyPoints * int64(amount)

	if err := s.verifyFunds(ctx, actor.ID, cost, points); err != nil {
		return s.rejected(ctx, actor, result, err)
	}

	result.State = entity.PurchaseFundsVerified

	var (
		change entity.StockChange
		paid   payment
	)

	// Склад меняется на очереди хранилища, как пополнение и правки админа,
	// поэтому зеркало каталога получает остатки в порядке фиксации.
	_, err = serialq.Do(ctx, s.ledger.queue, "commit-purchase", func(ctx context.Context) (struct{}, error) {
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error

			change, err = s.ledger.store.ReduceStock(ctx, entryID, amount)
			if err != nil {
				return err
			}

			if change.Reserved == 0 {
				return reject(s.messages, errcodes.InsufficientStock, map[string]string{"entry": entryID})
			}

			result.State = entity.PurchaseStockReserved

			if change.Reserved != amount {
				cost = entry.BuyPrice * int64(change.Reserved)
				points = entry.BuyPoints * int64(change.Reserved)

				if err := s.verifyFunds(ctx, actor.ID, cost, points); err != nil {
					return err
				}
			}

			if err := s.charge(ctx, actor.ID, cost, points, &paid); err != nil {
				return err
			}

			result.State = entity.PurchaseFundsDeducted

			if err := s.recordLimits(ctx, actor.ID, entry, change.Reserved); err != nil {
				return err
			}

			result.State = entity.PurchaseLimitsRecorded

			return nil
		})
		if err != nil {
			return struct{}{}, err
		}

		s.ledger.Apply(ctx, change)

		return struct{}{}, nil
	})
	if err != nil {
		err = domain.WrapQueueError(err)
		s.refund(ctx, actor.ID, paid)

		if domain.IsRejection(err) {
			return s.rejected(ctx, actor, result, err)
		}

		return s.failed(ctx, actor, result, err)
	}

	result.Amount = change.Reserved
	result.Cost = cost
	result.Points = points

	s.deliver(ctx, actor, entry, change.Reserved)
	result.State = entity.PurchaseDelivered

	txType := entity.TransactionBuy
	if cost == 0 && points > 0 {
		txType = entity.TransactionBuyPoints
	}

	s.logTransaction(ctx, entity.TransactionRecord{
		ID:        xid.New().String(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		EntryID:   entry.ID,
		ItemKey:   entry.ItemKey,
		Amount:    change.Reserved,
		Price:     cost,
		Points:    points,
		Type:      txType,
		CreatedAt: s.now(),
	})
	result.State = entity.PurchaseLogged

	result.Success = true
	result.Message = s.messages.Text(value.MessagePurchased, map[string]string{
		"amount": strconv.Itoa(change.Reserved),
		"item":   entry.ItemKey,
		"cost":   strconv.FormatInt(cost, 10),
	})

	purchasesTotal.WithLabelValues(resultSuccess).Inc()

	logger(ctx).Info("purchase completed",
		slog.String(logx.FieldActorID, actor.ID),
		slog.String(logx.FieldEntryID, entry.ID),
		slog.Int(logx.FieldAmount, change.Reserved),
		slog.Int64(logx.FieldCost, cost),
		slog.Int64(logx.FieldPoints, points),
		slog.Int(logx.FieldStock, change.Stock),
	)

	return result, nil
}

// check бесплатные проверки до любых обращений к балансу и складу, плюс
// чтение лимитов для понятного сообщения об остатке квоты.
func (s *PurchaseService) check(
	ctx context.Context,
	actor entity.Actor,
	entryID string,
	amount int,
) (entity.CatalogEntry, error) {
	entry, ok := s.ledger.catalog.Get(entryID)
	if !ok {
		return entry, reject(s.messages, errcodes.EntryNotFound, map[string]string{"entry": entryID})
	}

	if !entry.CanBuy() {
		return entry, reject(s.messages, errcodes.EntryDisabled, map[string]string{"entry": entryID})
	}

	if amount <= 0 {
		return entry, reject(s.messages, errcodes.ValidationError, map[string]string{"reason": "amount must be positive"})
	}

	if overflows(entry.BuyPrice, amount) || overflows(entry.BuyPoints, amount) {
		return entry, reject(s.messages, errcodes.ValidationError, map[string]string{"reason": "amount too large"})
	}

	if reason := value.FirstFailed(entry.Conditions, actor.HasPermission); reason != "" {
		return entry, reject(s.messages, errcodes.ConditionNotMet, map[string]string{"reason": reason})
	}

	if !entry.IsUnlimited() && entry.Stock < amount {
		return entry, reject(s.messages, errcodes.InsufficientStock, map[string]string{"entry": entryID})
	}

	remaining, err := s.remaining(ctx, actor.ID, entry)
	if err != nil {
		return entry, err
	}

	if remaining >= 0 && remaining < amount {
		return entry, reject(s.messages, errcodes.LimitExceeded, map[string]string{"remaining": strconv.Itoa(remaining)})
	}

	return entry, nil
}

// overflows сообщает, что price*amount не помещается в int64.
func overflows(price int64, amount int) bool {
	return price > 0 && int64(amount) > math.MaxInt64/price
}

// remaining наименьший остаток дневной и пожизненной квоты; -1 без лимитов.
func (s *PurchaseService) remaining(ctx context.Context, actorID string, entry entity.CatalogEntry) (int, error) {
	remaining := -1

	if entry.HasDailyLimit() {
		usage, err := s.ledger.limits.Daily(ctx, actorID, entry.ID)
		if err != nil {
			return 0, err
		}

		remaining = usage.Remaining(entry.DailyLimit, s.ledger.limits.Today())
	}

	if entry.HasPlayerLimit() {
		usage, err := s.ledger.limits.Lifetime(ctx, actorID, entry.ID)
		if err != nil {
			return 0, err
		}

		lifetime := usage.Remaining(entry.PlayerLimit)
		if remaining < 0 || lifetime < remaining {
			remaining = lifetime
		}
	}

	return remaining, nil
}

func (s *PurchaseService) verifyFunds(ctx context.Context, actorID string, cost, points int64) error {
	if cost > 0 {
		balance, err := s.coins.Balance(ctx, actorID)
		if err != nil {
			return err
		}

		if balance < cost {
			return reject(s.messages, errcodes.InsufficientFunds, map[string]string{
				"cost":    strconv.FormatInt(cost, 10),
				"balance": strconv.FormatInt(balance, 10),
			})
		}
	}

	if points > 0 {
		balance, err := s.points.Balance(ctx, actorID)
		if err != nil {
			return err
		}

		if balance < points {
			return reject(s.messages, errcodes.InsufficientPoints, map[string]string{
				"points":  strconv.FormatInt(points, 10),
				"balance": strconv.FormatInt(balance, 10),
			})
		}
	}

	return nil
}

// charge списывает монеты, затем очки. Списанное записывается в paid, чтобы
// вызывающий мог вернуть его при откате.
func (s *PurchaseService) charge(ctx context.Context, actorID string, cost, points int64, paid *payment) error {
	if cost > 0 {
		ok, err := s.coins.Withdraw(ctx, actorID, cost)
		if err != nil {
			return err
		}

		if !ok {
			return s.verifyFundsOrReject(ctx, actorID, cost, 0, errcodes.InsufficientFunds)
		}

		paid.coins = cost
	}

	if points > 0 {
		ok, err := s.points.Withdraw(ctx, actorID, points)
		if err != nil {
			return err
		}

		if !ok {
			return s.verifyFundsOrReject(ctx, actorID, 0, points, errcodes.InsufficientPoints)
		}

		paid.points = points
	}

	return nil
}

// verifyFundsOrReject строит отказ с актуальным балансом, когда списание не
// прошло после успешной проверки.
func (s *PurchaseService) verifyFundsOrReject(
	ctx context.Context,
	actorID string,
	cost, points int64,
	code errcodes.ErrorCode,
) error {
	if err := s.verifyFunds(ctx, actorID, cost, points); err != nil {
		return err
	}

	return reject(s.messages, code, map[string]string{
		"cost":    strconv.FormatInt(cost, 10),
		"points":  strconv.FormatInt(points, 10),
		"balance": "0",
	})
}

func (s *PurchaseService) recordLimits(ctx context.Context, actorID string, entry entity.CatalogEntry, amount int) error {
	ok, err := s.ledger.limits.TryIncrementDaily(ctx, actorID, entry.ID, amount, entry.DailyLimit)
	if err != nil {
		return err
	}

	if ok {
		ok, err = s.ledger.limits.TryIncrementLifetime(ctx, actorID, entry.ID, amount, entry.PlayerLimit)
		if err != nil {
			return err
		}
	}

	if !ok {
		remaining, err := s.remaining(ctx, actorID, entry)
		if err != nil {
			return err
		}

		return reject(s.messages, errcodes.LimitExceeded, map[string]string{"remaining": strconv.Itoa(max(remaining, 0))})
	}

	return nil
}

// refund компенсирует списание после отката. Неудачный возврат требует
// ручной сверки.
func (s *PurchaseService) refund(ctx context.Context, actorID string, paid payment) {
	compensate(ctx, s.coins, actorID, paid.coins, "coins")
	compensate(ctx, s.points, actorID, paid.points, "points")
}

func compensate(ctx context.Context, wallet Wallet, actorID string, amount int64, currency string) {
	if amount <= 0 {
		return
	}

	ok, err := wallet.Deposit(ctx, actorID, amount)
	if err == nil && ok {
		return
	}

	logger(ctx).Error("refund failed",
		slog.String(logx.FieldActorID, actorID),
		slog.Int64(logx.FieldAmount, amount),
		slog.String("currency", currency),
		slog.Bool(logx.FieldReconcile, true),
		logx.Error(err),
	)
}

func (s *PurchaseService) deliver(ctx context.Context, actor entity.Actor, entry entity.CatalogEntry, amount int) {
	replacer := strings.NewReplacer("{actor}", actor.Name, "{amount}", strconv.Itoa(amount))

	delivery := entity.Delivery{
		ItemKey:  entry.ItemKey,
		Amount:   amount,
		GiveItem: entry.GiveItem,
		Commands: lo.Map(entry.Commands, func(c string, _ int) string { return replacer.Replace(c) }),
		Source:   "shop:" + entry.ID,
	}

	if err := s.delivery.Deliver(ctx, actor, delivery); err != nil {
		logger(ctx).Error("delivery failed",
			slog.String(logx.FieldActorID, actor.ID),
			slog.String(logx.FieldEntryID, entry.ID),
			slog.Int(logx.FieldAmount, amount),
			slog.Bool(logx.FieldReconcile, true),
			logx.Error(err),
		)
	}
}

// logTransaction пишет аудит асинхронно через очередь хранилища.
func (s *PurchaseService) logTransaction(ctx context.Context, rec entity.TransactionRecord) {
	_ = serialq.SubmitCallback(ctx, s.ledger.queue, "log-transaction",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.records.LogTransaction(ctx, rec)
		},
		nil,
		func(err error) {
			logger(ctx).Error("failed to log transaction",
				slog.String(logx.FieldActorID, rec.ActorID),
				slog.String(logx.FieldEntryID, rec.EntryID),
				logx.Error(err),
			)
		},
	)
}

func (s *PurchaseService) rejected(
	ctx context.Context,
	actor entity.Actor,
	result entity.PurchaseResult,
	err error,
) (entity.PurchaseResult, error) {
	code, _ := apperr.GetCode(err)

	result.State = entity.PurchaseRejected
	result.Message = publicMessage(s.messages, err)

	purchasesTotal.WithLabelValues(code.String()).Inc()

	logger(ctx).Info("purchase rejected",
		slog.String(logx.FieldActorID, actor.ID),
		slog.String(logx.FieldEntryID, result.EntryID),
		slog.String(logx.FieldCode, code.String()),
	)

	return result, err
}

func (s *PurchaseService) failed(
	ctx context.Context,
	actor entity.Actor,
	result entity.PurchaseResult,
	err error,
) (entity.PurchaseResult, error) {
	logger(ctx).Error("purchase rolled back",
		slog.String(logx.FieldActorID, actor.ID),
		slog.String(logx.FieldEntryID, result.EntryID),
		slog.String(logx.FieldState, string(result.State)),
		logx.Error(err),
	)

	result.State = entity.PurchaseFailedRolledBack
	result.Message = publicMessage(s.messages, err)

	purchasesTotal.WithLabelValues("failed").Inc()

	return result, err
}
