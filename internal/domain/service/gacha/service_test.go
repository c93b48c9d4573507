package gacha

import (
	"context"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/serialq"
	"goods_market/pkg/tests"
)

type pityKey struct {
	actorID   string
	machineID string
}

type memPity struct {
	mu       sync.Mutex
	counters map[pityKey]entity.PityCounters
	saves    int
}

func (m *memPity) Counters(_ context.Context, actorID, machineID string) (entity.PityCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return maps.Clone(m.counters[pityKey{actorID, machineID}]), nil
}

func (m *memPity) SaveCounters(_ context.Context, actorID, machineID string, counters entity.PityCounters) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[pityKey{actorID, machineID}] = maps.Clone(counters)
	m.saves++

	return nil
}

func (m *memPity) get(actorID, machineID string) entity.PityCounters {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counters[pityKey{actorID, machineID}]
}

type memDraws struct {
	mu      sync.Mutex
	records []entity.DrawRecord
}

func (m *memDraws) LogDraws(_ context.Context, recs []entity.DrawRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, recs...)

	return nil
}

func (m *memDraws) ListDraws(_ context.Context, actorID string, limit int) ([]entity.DrawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.DrawRecord

	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].ActorID == actorID {
			out = append(out, m.records[i])
		}
	}

	return out, nil
}

func (m *memDraws) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.records)
}

type fakeWallet struct {
	mu       sync.Mutex
	balances map[string]int64
}

func (w *fakeWallet) Balance(_ context.Context, actorID string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.balances[actorID], nil
}

func (w *fakeWallet) Withdraw(_ context.Context, actorID string, amount int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.balances[actorID] < amount {
		return false, nil
	}

	w.balances[actorID] -= amount

	return true, nil
}

func (w *fakeWallet) Deposit(_ context.Context, actorID string, amount int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.balances[actorID] += amount

	return true, nil
}

func (w *fakeWallet) balance(actorID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.balances[actorID]
}

type fakeDelivery struct {
	mu         sync.Mutex
	deliveries []entity.Delivery
}

func (d *fakeDelivery) Deliver(_ context.Context, _ entity.Actor, delivery entity.Delivery) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deliveries = append(d.deliveries, delivery)

	return nil
}

func (d *fakeDelivery) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.deliveries)
}

type fakeAnnouncer struct {
	mu    sync.Mutex
	texts []string
}

func (a *fakeAnnouncer) Announce(_ context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.texts = append(a.texts, text)

	return nil
}

type serviceFixture struct {
	pity      *memPity
	draws     *memDraws
	coins     *fakeWallet
	delivery  *fakeDelivery
	announcer *fakeAnnouncer
	service   *Service
}

var testActor = entity.Actor{ID: "a1", Name: "Steve"} //nolint:gochecknoglobals // skip

// newServiceFixture собирает сервис, у которого анимация никогда не
// заканчивается сама: выдача только через Complete, Flush или новую прокрутку.
func newServiceFixture(t *testing.T, rng RandomSource, machines ...*entity.GachaMachine) *serviceFixture {
	t.Helper()

	q := serialq.New("store")
	q.Start(context.Background())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = q.Shutdown(ctx)
	})

	f := &serviceFixture{
		pity:      &memPity{counters: make(map[pityKey]entity.PityCounters)},
		draws:     &memDraws{},
		coins:     &fakeWallet{balances: map[string]int64{"a1": 1000}},
		delivery:  &fakeDelivery{},
		announcer: &fakeAnnouncer{},
	}

	f.service = NewService(NewMachines(machines...), NewSelector(rng), f.pity, f.draws, f.coins, f.delivery, q).
		WithAnnouncer(f.announcer)
	f.service.afterFunc = func(_ time.Duration, fn func()) *time.Timer {
		return time.AfterFunc(time.Hour, fn)
	}

	return f
}

func pityMachine() *entity.GachaMachine {
	return entity.NewGachaMachine("basic", "Basic", 100, entity.AnimationTimings{Duration: time.Second}, []entity.RewardEntry{
		{ID: "A", ItemKey: "stone", Amount: 1, Probability: 0.5},
		{ID: "B", ItemKey: "iron", Amount: 2, Probability: 0.3},
		{ID: "C", ItemKey: "diamond", Amount: 1, Probability: 0.2, Broadcast: true},
	}, []entity.PityRule{{Threshold: 10, MaxProbability: 0.3}})
}

func TestService_RollOnceComplete(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	ctx := context.Background()
	f := newServiceFixture(t, tests.NewSequence(0.1), pityMachine())

	result, err := f.service.RollOnce(ctx, testActor, "basic")
	rq.NoError(err)
	rq.NotEmpty(result.DrawID)
	rq.Len(result.Rewards, 1)
	rq.Equal("A", result.Rewards[0].ID)
	rq.EqualValues(100, result.Cost)
	rq.EqualValues(900, f.coins.balance("a1"))

	rq.Zero(f.delivery.count())
	rq.Empty(f.pity.get("a1", "basic"))

	_, err = f.service.Complete(ctx, "a1", result.DrawID)
	rq.NoError(err)
	rq.Equal(1, f.delivery.count())
	rq.Equal(entity.PityCounters{"10_0.3": 1}, f.pity.get("a1", "basic"))
	rq.Eventually(func() bool { return f.draws.count() == 1 }, time.Second, 5*time.Millisecond)

	_, err = f.service.Complete(ctx, "a1", result.DrawID)
	rq.True(apperr.HasCode(err, errcodes.DrawAlreadyDelivered))

	err = f.service.Cancel(ctx, "a1", result.DrawID)
	rq.True(apperr.HasCode(err, errcodes.DrawAlreadyDelivered))
	rq.EqualValues(900, f.coins.balance("a1"))

	history, err := f.service.History(ctx, "a1", 10)
	rq.NoError(err)
	rq.Len(history, 1)
	rq.Equal(result.DrawID, history[0].DrawID)
	rq.Equal("A", history[0].RewardID)
}

func TestService_Cancel(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	ctx := context.Background()
	f := newServiceFixture(t, tests.NewSequence(0.1), pityMachine())

	result, err := f.service.RollTen(ctx, testActor, "basic")
	rq.NoError(err)
	rq.EqualValues(0, f.coins.balance("a1"))

	err = f.service.Cancel(ctx, "b2", result.DrawID)
	rq.True(apperr.HasCode(err, errcodes.DrawNotFound))

	rq.NoError(f.service.Cancel(ctx, "a1", result.DrawID))
	rq.EqualValues(1000, f.coins.balance("a1"))
	rq.Zero(f.delivery.count())
	rq.Zero(f.pity.saves)

	err = f.service.Cancel(ctx, "a1", result.DrawID)
	rq.True(apperr.HasCode(err, errcodes.DrawNotFound))

	_, err = f.service.Complete(ctx, "a1", result.DrawID)
	rq.True(apperr.HasCode(err, errcodes.DrawNotFound))
}

func TestService_RollRejections(t *testing.T) {
	t.Parallel()

	empty := entity.NewGachaMachine("empty", "Empty", 10, entity.AnimationTimings{}, nil, nil)

	testCases := []struct {
		name      string
		machineID string
		balance   int64
		roll      func(s *Service, machineID string) error
		wantCode  errcodes.ErrorCode
	}{
		{
			name:      "Unknown machine",
			machineID: "ghost",
			balance:   1000,
			roll:      rollOnce,
			wantCode:  errcodes.MachineNotFound,
		},
		{
			name:      "Empty pool is not charged",
			machineID: "empty",
			balance:   1000,
			roll:      rollOnce,
			wantCode:  errcodes.ConfigurationError,
		},
		{
			name:      "Not enough coins",
			machineID: "basic",
			balance:   99,
			roll:      rollOnce,
			wantCode:  errcodes.InsufficientFunds,
		},
		{
			name:      "Not enough coins for ten",
			machineID: "basic",
			balance:   999,
			roll:      rollTen,
			wantCode:  errcodes.InsufficientFunds,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)

			f := newServiceFixture(t, tests.NewSequence(0.1), pityMachine(), empty)
			f.coins.balances["a1"] = tc.balance

			err := tc.roll(f.service, tc.machineID)
			rq.True(apperr.HasCode(err, tc.wantCode), "got %v", err)
			rq.Equal(tc.balance, f.coins.balance("a1"))
			rq.Zero(f.delivery.count())
		})
	}
}

func rollOnce(s *Service, machineID string) error {
	_, err := s.RollOnce(context.Background(), testActor, machineID)
	return err
}

func rollTen(s *Service, machineID string) error {
	_, err := s.RollTen(context.Background(), testActor, machineID)
	return err
}

func TestService_RollTenThenPity(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	ctx := context.Background()
	f := newServiceFixture(t, tests.NewSequence(0.1), pityMachine())

	ten, err := f.service.RollTen(ctx, testActor, "basic")
	rq.NoError(err)
	rq.Len(ten.Rewards, 10)
	rq.Empty(ten.TriggeredRules)

	for _, r := range ten.Rewards {
		rq.Equal("A", r.ID)
	}

	_, err = f.service.Complete(ctx, "a1", ten.DrawID)
	rq.NoError(err)
	rq.Equal(entity.PityCounters{"10_0.3": 10}, f.pity.get("a1", "basic"))
	rq.Equal(1, f.pity.saves)

	once, err := f.service.RollOnce(ctx, testActor, "basic")
	rq.NoError(err)
	rq.Equal("B", once.Rewards[0].ID)
	rq.Equal([]string{"10_0.3"}, once.TriggeredRules)

	f.service.Flush(ctx)

	rq.Equal(entity.PityCounters{"10_0.3": 0}, f.pity.get("a1", "basic"))
	rq.Equal(11, f.delivery.count())
	rq.Eventually(func() bool { return f.draws.count() == 11 }, time.Second, 5*time.Millisecond)
}

func TestService_NextRollDeliversPending(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	ctx := context.Background()
	f := newServiceFixture(t, tests.NewSequence(0.1), pityMachine())

	first, err := f.service.RollOnce(ctx, testActor, "basic")
	rq.NoError(err)

	_, err = f.service.RollOnce(ctx, testActor, "basic")
	rq.NoError(err)

	rq.Equal(1, f.delivery.count())
	rq.Equal(entity.PityCounters{"10_0.3": 1}, f.pity.get("a1", "basic"))

	err = f.service.Cancel(ctx, "a1", first.DrawID)
	rq.True(apperr.HasCode(err, errcodes.DrawAlreadyDelivered))
}

func TestService_Broadcast(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	ctx := context.Background()
	f := newServiceFixture(t, tests.NewSequence(0.9), pityMachine())

	result, err := f.service.RollOnce(ctx, testActor, "basic")
	rq.NoError(err)
	rq.Equal("C", result.Rewards[0].ID)

	_, err = f.service.Complete(ctx, "a1", result.DrawID)
	rq.NoError(err)

	rq.Equal([]string{"Steve won diamond x 1 from Basic!"}, f.announcer.texts)
}

func TestService_ScheduledDelivery(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	f := newServiceFixture(t, tests.NewSequence(0.1), pityMachine())
	f.service.afterFunc = time.AfterFunc

	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.service.RollOnce(ctx, entity.Actor{ID: "a1", Name: "Steve"}, "basic")
	rq.NoError(err)

	// Игрок отключился, выдача всё равно происходит.
	cancel()

	rq.Eventually(func() bool { return f.delivery.count() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestService_ConcurrentRollsKeepPityProgress(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	const rolls = 8

	ctx := context.Background()
	f := newServiceFixture(t, tests.NewSequence(0.1), pityMachine())

	var wg sync.WaitGroup

	errs := make(chan error, rolls)

	for range rolls {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- rollOnce(f.service, "basic")
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		rq.NoError(err)
	}

	f.service.Flush(ctx)

	rq.Equal(entity.PityCounters{"10_0.3": rolls}, f.pity.get("a1", "basic"))
	rq.Equal(rolls, f.delivery.count())
	rq.EqualValues(1000-rolls*100, f.coins.balance("a1"))
}

func TestSlotLocks(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	locks := newSlotLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock := locks.lock("a1/basic")
			defer unlock()

			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}

	wg.Wait()

	rq.Equal(1, maxSeen)
	rq.Empty(locks.slots)
}
