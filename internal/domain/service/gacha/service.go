// Package gacha крутит автоматы с гарантией (pity): выбор награды,
// счётчики гарантии и отложенная выдача после анимации.
package gacha

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/xid"
	"github.com/samber/lo"

	"goods_market/internal/domain"
	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/value"
	"goods_market/pkg/apperr"
	"goods_market/pkg/contextx"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/logx"
	"goods_market/pkg/serialq"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	tenDraws = 10

	// pendingGrace сколько незавершённая прокрутка живёт в реестре после
	// окончания анимации.
	pendingGrace = time.Minute
)

type PityStore interface {
	Counters(ctx context.Context, actorID, machineID string) (entity.PityCounters, error)
	SaveCounters(ctx context.Context, actorID, machineID string, counters entity.PityCounters) error
}

type DrawStore interface {
	LogDraws(ctx context.Context, recs []entity.DrawRecord) error
	ListDraws(ctx context.Context, actorID string, limit int) ([]entity.DrawRecord, error)
}

type Wallet interface {
	Balance(ctx context.Context, actorID string) (int64, error)
	Withdraw(ctx context.Context, actorID string, amount int64) (bool, error)
	Deposit(ctx context.Context, actorID string, amount int64) (bool, error)
}

type DeliverySink interface {
	Deliver(ctx context.Context, actor entity.Actor, d entity.Delivery) error
}

type Announcer interface {
	Announce(ctx context.Context, text string) error
}

type drawState int

const (
	statePending drawState = iota
	stateDelivered
	stateCancelled
)

// pendingDraw оплаченная прокрутка, ожидающая выдачи.
type pendingDraw struct {
	mu       sync.Mutex
	state    drawState
	actor    entity.Actor
	machine  *entity.GachaMachine
	result   entity.DrawResult
	draws    []PityResult
	counters entity.PityCounters
	timer    *time.Timer
}

func (p *pendingDraw) isPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state == statePending
}

type Service struct {
	machines  *Machines
	selector  *Selector
	pity      PityStore
	records   DrawStore
	coins     Wallet
	delivery  DeliverySink
	queue     *serialq.Queue
	announcer Announcer
	messages  value.Messages
	pending   *cache.Cache
	slots     *slotLocks
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewService(
	machines *Machines,
	selector *Selector,
	pity PityStore,
	records DrawStore,
	coins Wallet,
	delivery DeliverySink,
	queue *serialq.Queue,
) *Service {
	return &Service{
		machines:  machines,
		selector:  selector,
		pity:      pity,
		records:   records,
		coins:     coins,
		delivery:  delivery,
		queue:     queue,
		messages:  value.Messages{},
		pending:   cache.New(pendingGrace, pendingGrace),
		slots:     newSlotLocks(),
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// WithAnnouncer рассылает всем игрокам редкие выигрыши.
func (s *Service) WithAnnouncer(announcer Announcer) *Service {
	s.announcer = announcer
	return s
}

func (s *Service) WithMessages(messages value.Messages) *Service {
	s.messages = messages
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Machines() *Machines {
	return s.machines
}

func (s *Service) RollOnce(ctx context.Context, actor entity.Actor, machineID string) (entity.DrawResult, error) {
	return s.roll(ctx, actor, machineID, 1)
}

// RollTen десять прокруток одним платежом; счётчики гарантии сохраняются
// один раз итоговым значением.
func (s *Service) RollTen(ctx context.Context, actor entity.Actor, machineID string) (entity.DrawResult, error) {
	return s.roll(ctx, actor, machineID, tenDraws)
}

func (s *Service) roll(ctx context.Context, actor entity.Actor, machineID string, n int) (entity.DrawResult, error) {
	machine, ok := s.machines.Get(machineID)
	if !ok {
		return entity.DrawResult{}, s.reject(errcodes.MachineNotFound, map[string]string{"machine": machineID})
	}

	if len(machine.Rewards()) == 0 {
		return entity.DrawResult{}, apperr.WrapError(errEmptyPool(machineID), errcodes.ConfigurationError,
			s.messages.Render(errcodes.ConfigurationError, nil))
	}

	// Прокрутки одного игрока на одном автомате идут по одной: предыдущая
	// выдаётся и сохраняет счётчики до того, как следующая их прочитает.
	unlock := s.slots.lock(slotKey(actor.ID, machineID))
	defer unlock()

	s.completeSlot(ctx, actor.ID, machineID)

	cost := machine.Cost() * int64(n)

	if err := s.charge(ctx, actor.ID, cost); err != nil {
		return entity.DrawResult{}, err
	}

	counters, err := serialq.Do(ctx, s.queue, "get-pity", func(ctx context.Context) (entity.PityCounters, error) {
		return s.pity.Counters(ctx, actor.ID, machineID)
	})
	if err != nil {
		s.refund(ctx, actor.ID, cost)
		return entity.DrawResult{}, fmt.Errorf("gacha.roll: %w", domain.WrapQueueError(err))
	}

	draws, next, err := s.selector.RollBatch(machine, counters, n)
	if err != nil {
		s.refund(ctx, actor.ID, cost)
		return entity.DrawResult{}, fmt.Errorf("gacha.roll: %w", err)
	}

	delay := machine.Timings().Total(n)

	p := &pendingDraw{
		actor:    actor,
		machine:  machine,
		draws:    draws,
		counters: next,
		result: entity.DrawResult{
			DrawID:    xid.New().String(),
			MachineID: machineID,
			Rewards:   lo.Map(draws, func(d PityResult, _ int) entity.RewardEntry { return d.Reward }),
			TriggeredRules: lo.FilterMap(draws, func(d PityResult, _ int) (string, bool) {
				if d.Triggered == nil {
					return "", false
				}

				return d.Triggered.Hash(), true
			}),
			Cost:      cost,
			DeliverAt: s.now().Add(delay),
		},
	}

	s.pending.Set(drawKey(p.result.DrawID), p, delay+pendingGrace)
	s.pending.Set(slotKey(actor.ID, machineID), p, delay+pendingGrace)

	// Выдача не зависит от запроса: игрок может отключиться до конца анимации.
	bg := context.WithoutCancel(ctx)

	p.mu.Lock()
	p.timer = s.afterFunc(delay, func() {
		if err := s.complete(bg, p); err != nil && !apperr.HasCode(err, errcodes.DrawAlreadyDelivered) {
			logger(bg).Error("scheduled delivery failed",
				slog.String(logx.FieldDrawID, p.result.DrawID),
				logx.Error(err),
			)
		}
	})
	p.mu.Unlock()

	logger(ctx).Info("draw rolled",
		slog.String(logx.FieldActorID, actor.ID),
		slog.String(logx.FieldMachineID, machineID),
		slog.String(logx.FieldDrawID, p.result.DrawID),
		slog.Int("draws", n),
		slog.Int64(logx.FieldCost, cost),
	)

	return p.result, nil
}

func (s *Service) charge(ctx context.Context, actorID string, cost int64) error {
	if cost <= 0 {
		return nil
	}

	balance, err := s.coins.Balance(ctx, actorID)
	if err != nil {
		return fmt.Errorf("gacha.charge: %w", err)
	}

	insufficient := func(balance int64) error {
		return s.reject(errcodes.InsufficientFunds, map[string]string{
			"cost":    strconv.FormatInt(cost, 10),
			"balance": strconv.FormatInt(balance, 10),
		})
	}

	if balance < cost {
		return insufficient(balance)
	}

	ok, err := s.coins.Withdraw(ctx, actorID, cost)
	if err != nil {
		return fmt.Errorf("gacha.charge: %w", err)
	}

	if !ok {
		return insufficient(0)
	}

	return nil
}

func (s *Service) refund(ctx context.Context, actorID string, amount int64) {
	if amount <= 0 {
		return
	}

	ok, err := s.coins.Deposit(ctx, actorID, amount)
	if err == nil && ok {
		return
	}

	logger(ctx).Error("gacha refund failed",
		slog.String(logx.FieldActorID, actorID),
		slog.Int64(logx.FieldAmount, amount),
		slog.Bool(logx.FieldReconcile, true),
		logx.Error(err),
	)
}

// Complete выдаёт прокрутку, не дожидаясь конца анимации.
func (s *Service) Complete(ctx context.Context, actorID, drawID string) (entity.DrawResult, error) {
	p, err := s.lookup(actorID, drawID)
	if err != nil {
		return entity.DrawResult{}, err
	}

	if err := s.complete(ctx, p); err != nil {
		return entity.DrawResult{}, err
	}

	return p.result, nil
}

// Cancel отменяет невыданную прокрутку и возвращает её стоимость. Счётчики
// гарантии при этом не меняются.
func (s *Service) Cancel(ctx context.Context, actorID, drawID string) error {
	p, err := s.lookup(actorID, drawID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateDelivered:
		return s.reject(errcodes.DrawAlreadyDelivered, map[string]string{"draw": drawID})
	case stateCancelled:
		return s.reject(errcodes.DrawNotFound, map[string]string{"draw": drawID})
	}

	p.state = stateCancelled
	if p.timer != nil {
		p.timer.Stop()
	}

	s.forget(p)
	s.refund(ctx, actorID, p.result.Cost)

	cancelledTotal.Inc()

	logger(ctx).Info("draw cancelled",
		slog.String(logx.FieldActorID, actorID),
		slog.String(logx.FieldDrawID, drawID),
		slog.Int64(logx.FieldAmount, p.result.Cost),
	)

	return nil
}

// Flush выдаёт все ожидающие прокрутки, используется при остановке.
func (s *Service) Flush(ctx context.Context) {
	for key, item := range s.pending.Items() {
		p, ok := item.Object.(*pendingDraw)
		if !ok || key != drawKey(p.result.DrawID) || !p.isPending() {
			continue
		}

		if err := s.complete(ctx, p); err != nil && !apperr.HasCode(err, errcodes.DrawAlreadyDelivered) {
			logger(ctx).Error("flush delivery failed",
				slog.String(logx.FieldDrawID, p.result.DrawID),
				logx.Error(err),
			)
		}
	}
}

// History последние прокрутки игрока.
func (s *Service) History(ctx context.Context, actorID string, limit int) ([]entity.DrawRecord, error) {
	records, err := serialq.Do(ctx, s.queue, "list-draws", func(ctx context.Context) ([]entity.DrawRecord, error) {
		return s.records.ListDraws(ctx, actorID, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("gacha.History: %w", domain.WrapQueueError(err))
	}

	return records, nil
}

func (s *Service) lookup(actorID, drawID string) (*pendingDraw, error) {
	item, ok := s.pending.Get(drawKey(drawID))
	if !ok {
		return nil, s.reject(errcodes.DrawNotFound, map[string]string{"draw": drawID})
	}

	p, ok := item.(*pendingDraw)
	if !ok || p.actor.ID != actorID {
		return nil, s.reject(errcodes.DrawNotFound, map[string]string{"draw": drawID})
	}

	return p, nil
}

func (s *Service) completeSlot(ctx context.Context, actorID, machineID string) {
	item, ok := s.pending.Get(slotKey(actorID, machineID))
	if !ok {
		return
	}

	if p, ok := item.(*pendingDraw); ok {
		_ = s.complete(ctx, p)
	}
}

// complete сохраняет счётчики, выдаёт награды и пишет журнал. Выполняется
// ровно один раз для каждой прокрутки.
func (s *Service) complete(ctx context.Context, p *pendingDraw) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateDelivered:
		return s.reject(errcodes.DrawAlreadyDelivered, map[string]string{"draw": p.result.DrawID})
	case stateCancelled:
		return s.reject(errcodes.DrawNotFound, map[string]string{"draw": p.result.DrawID})
	}

	p.state = stateDelivered
	if p.timer != nil {
		p.timer.Stop()
	}

	machineID := p.machine.ID()

	if p.machine.HasPity() {
		_, err := serialq.Do(ctx, s.queue, "save-pity", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.pity.SaveCounters(ctx, p.actor.ID, machineID, p.counters)
		})
		if err != nil {
			logger(ctx).Error("failed to save pity counters",
				slog.String(logx.FieldActorID, p.actor.ID),
				slog.String(logx.FieldMachineID, machineID),
				slog.Bool(logx.FieldReconcile, true),
				logx.Error(err),
			)
		}
	}

	// Слот освобождается только после сохранения счётчиков.
	s.forget(p)

	records := make([]entity.DrawRecord, 0, len(p.draws))
	perDraw := p.result.Cost / int64(len(p.draws))
	now := s.now()

	for _, draw := range p.draws {
		s.deliver(ctx, p, draw.Reward)

		drawsTotal.WithLabelValues(machineID, string(draw.Reward.Rarity())).Inc()

		var rule string
		if draw.Triggered != nil {
			rule = draw.Triggered.Hash()

			pityTriggeredTotal.WithLabelValues(machineID).Inc()
		}

		records = append(records, entity.DrawRecord{
			ID:        xid.New().String(),
			DrawID:    p.result.DrawID,
			ActorID:   p.actor.ID,
			ActorName: p.actor.Name,
			MachineID: machineID,
			RewardID:  draw.Reward.ID,
			ItemKey:   draw.Reward.ItemKey,
			Amount:    draw.Reward.Amount,
			Cost:      perDraw,
			PityRule:  rule,
			CreatedAt: now,
		})
	}

	s.logDraws(ctx, records)

	logger(ctx).Info("draw delivered",
		slog.String(logx.FieldActorID, p.actor.ID),
		slog.String(logx.FieldMachineID, machineID),
		slog.String(logx.FieldDrawID, p.result.DrawID),
		slog.Int("rewards", len(p.draws)),
	)

	return nil
}

func (s *Service) deliver(ctx context.Context, p *pendingDraw, reward entity.RewardEntry) {
	err := s.delivery.Deliver(ctx, p.actor, entity.Delivery{
		ItemKey:  reward.ItemKey,
		Amount:   reward.Amount,
		GiveItem: true,
		Source:   "gacha:" + p.machine.ID(),
	})
	if err != nil {
		logger(ctx).Error("reward delivery failed",
			slog.String(logx.FieldActorID, p.actor.ID),
			slog.String(logx.FieldDrawID, p.result.DrawID),
			slog.String(logx.FieldRewardID, reward.ID),
			slog.Bool(logx.FieldReconcile, true),
			logx.Error(err),
		)
	}

	if !reward.Broadcast || s.announcer == nil {
		return
	}

	text := s.messages.Text(value.MessageDrawn, map[string]string{
		"actor":   p.actor.Name,
		"item":    reward.ItemKey,
		"amount":  strconv.Itoa(reward.Amount),
		"machine": p.machine.Name(),
		"rarity":  string(reward.Rarity()),
	})

	if err := s.announcer.Announce(ctx, text); err != nil {
		logger(ctx).Warn("failed to announce reward",
			slog.String(logx.FieldRewardID, reward.ID),
			logx.Error(err),
		)
	}
}

func (s *Service) logDraws(ctx context.Context, records []entity.DrawRecord) {
	_ = serialq.SubmitCallback(ctx, s.queue, "log-draws",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.records.LogDraws(ctx, records)
		},
		nil,
		func(err error) {
			logger(ctx).Error("failed to log draws",
				slog.Int("records", len(records)),
				logx.Error(err),
			)
		},
	)
}

// forget освобождает слот автомата. Сама прокрутка остаётся в реестре до
// истечения срока, чтобы повторная отмена получила понятный отказ.
func (s *Service) forget(p *pendingDraw) {
	slot := slotKey(p.actor.ID, p.machine.ID())
	if item, ok := s.pending.Get(slot); ok && item == p {
		s.pending.Delete(slot)
	}
}

func (s *Service) reject(code errcodes.ErrorCode, args map[string]string) error {
	return apperr.NewError(code, s.messages.Render(code, args))
}

func drawKey(drawID string) string {
	return "draw:" + drawID
}

func slotKey(actorID, machineID string) string {
	return "slot:" + actorID + "/" + machineID
}
