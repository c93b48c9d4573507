package shop

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/value"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/serialq"
)

func testCatalog() []entity.CatalogEntry {
	return []entity.CatalogEntry{
		{ID: "apple", ItemKey: "minecraft:apple", BuyPrice: 10, SellPrice: 4, Stock: 5, Enabled: true, GiveItem: true,
			Commands: []string{"say {actor} bought {amount}"}},
		{ID: "gem", ItemKey: "minecraft:emerald", BuyPoints: 5, Stock: entity.UnlimitedStock, Enabled: true},
		{ID: "combo", ItemKey: "minecraft:diamond", BuyPrice: 10, BuyPoints: 5, Stock: 3, Enabled: true},
		{ID: "vip", ItemKey: "minecraft:elytra", BuyPrice: 1, Stock: entity.UnlimitedStock, Enabled: true,
			Conditions: []value.Condition{{Kind: value.ConditionHasPermission, Node: "shop.vip"}}},
		{ID: "limited", ItemKey: "minecraft:cake", BuyPrice: 1, Stock: entity.UnlimitedStock, Enabled: true, DailyLimit: 2},
		{ID: "once", ItemKey: "minecraft:totem", BuyPrice: 1, Stock: entity.UnlimitedStock, Enabled: true, PlayerLimit: 1},
		{ID: "off", ItemKey: "minecraft:dirt", BuyPrice: 1, Stock: 10, Enabled: false},
		{ID: "bulk", ItemKey: "minecraft:netherite_block", BuyPrice: math.MaxInt64 / 2, SellPrice: math.MaxInt64 / 2,
			Stock: entity.UnlimitedStock, Enabled: true},
	}
}

func TestPurchaseService_Buy(t *testing.T) {
	t.Parallel()

	actor := entity.Actor{ID: "a1", Name: "Steve"}

	testCases := []struct {
		name       string
		actor      entity.Actor
		entryID    string
		amount     int
		prepare    func(f *fixture)
		wantCode   errcodes.ErrorCode
		wantState  entity.PurchaseState
		wantCoins  int64
		wantPoints int64
		wantStock  map[string]int
	}{
		{
			name:       "Success with coins",
			actor:      actor,
			entryID:    "apple",
			amount:     2,
			wantState:  entity.PurchaseLogged,
			wantCoins:  80,
			wantPoints: 10,
			wantStock:  map[string]int{"apple": 3},
		},
		{
			name:       "Success with points only",
			actor:      actor,
			entryID:    "gem",
			amount:     2,
			wantState:  entity.PurchaseLogged,
			wantCoins:  100,
			wantPoints: 0,
			wantStock:  map[string]int{"gem": entity.UnlimitedStock},
		},
		{
			name:       "Unknown entry",
			actor:      actor,
			entryID:    "nope",
			amount:     1,
			wantCode:   errcodes.EntryNotFound,
			wantState:  entity.PurchaseRejected,
			wantCoins:  100,
			wantPoints: 10,
		},
		{
			name:       "Disabled entry",
			actor:      actor,
			entryID:    "off",
			amount:     1,
			wantCode:   errcodes.EntryDisabled,
			wantState:  entity.PurchaseRejected,
			wantCoins:  100,
			wantPoints: 10,
			wantStock:  map[string]int{"off": 10},
		},
		{
			name:       "Missing permission",
			actor:      actor,
			entryID:    "vip",
			amount:     1,
			wantCode:   errcodes.ConditionNotMet,
			wantState:  entity.PurchaseRejected,
			wantCoins:  100,
			wantPoints: 10,
		},
		{
			name:       "Has permission",
			actor:      entity.Actor{ID: "a1", Name: "Steve", Permissions: []string{"shop.vip"}},
			entryID:    "vip",
			amount:     1,
			wantState:  entity.PurchaseLogged,
			wantCoins:  99,
			wantPoints: 10,
		},
		{
			name:       "Not enough coins leaves stock untouched",
			actor:      actor,
			entryID:    "apple",
			amount:     5,
			prepare:    func(f *fixture) { f.coins.balances["a1"] = 49 },
			wantCode:   errcodes.InsufficientFunds,
			wantState:  entity.PurchaseRejected,
			wantCoins:  49,
			wantPoints: 10,
			wantStock:  map[string]int{"apple": 5},
		},
		{
			name:       "Out of stock",
			actor:      actor,
			entryID:    "apple",
			amount:     6,
			wantCode:   errcodes.InsufficientStock,
			wantState:  entity.PurchaseRejected,
			wantCoins:  100,
			wantPoints: 10,
			wantStock:  map[string]int{"apple": 5},
		},
		{
			name:    "Daily limit reached",
			actor:   actor,
			entryID: "limited",
			amount:  1,
			prepare: func(f *fixture) {
				f.store.daily[limitKey{"a1", "limited"}] = entity.DailyLimit{Count: 2, LastDate: testToday}
			},
			wantCode:   errcodes.LimitExceeded,
			wantState:  entity.PurchaseRejected,
			wantCoins:  100,
			wantPoints: 10,
		},
		{
			name:    "Yesterday's counter does not block",
			actor:   actor,
			entryID: "limited",
			amount:  2,
			prepare: func(f *fixture) {
				f.store.daily[limitKey{"a1", "limited"}] = entity.DailyLimit{Count: 2, LastDate: "2026-10-17"}
			},
			wantState:  entity.PurchaseLogged,
			wantCoins:  98,
			wantPoints: 10,
		},
		{
			name:       "Lifetime limit reached",
			actor:      actor,
			entryID:    "once",
			amount:     1,
			prepare:    func(f *fixture) { f.store.lifetime[limitKey{"a1", "once"}] = 1 },
			wantCode:   errcodes.LimitExceeded,
			wantState:  entity.PurchaseRejected,
			wantCoins:  100,
			wantPoints: 10,
		},
		{
			name:       "Points withdraw fails after coins are taken",
			actor:      actor,
			entryID:    "combo",
			amount:     1,
			prepare:    func(f *fixture) { f.points.withdrawErr = apperr.WrapError(errWalletDown, errcodes.EconomyUnavailable, "down") },
			wantCode:   errcodes.EconomyUnavailable,
			wantState:  entity.PurchaseFailedRolledBack,
			wantCoins:  100,
			wantPoints: 10,
			wantStock:  map[string]int{"combo": 3},
		},
		{
			name:       "Commit failure refunds both currencies",
			actor:      actor,
			entryID:    "combo",
			amount:     2,
			prepare:    func(f *fixture) { f.store.failCommit = true },
			wantCode:   errcodes.StoreError,
			wantState:  entity.PurchaseFailedRolledBack,
			wantCoins:  100,
			wantPoints: 10,
			wantStock:  map[string]int{"combo": 3},
		},
		{
			name:       "Zero amount",
			actor:      actor,
			entryID:    "apple",
			amount:     0,
			wantCode:   errcodes.ValidationError,
			wantState:  entity.PurchaseRejected,
			wantCoins:  100,
			wantPoints: 10,
		},
		{
			name:       "Cost overflows int64",
			actor:      actor,
			entryID:    "bulk",
			amount:     3,
			wantCode:   errcodes.ValidationError,
			wantState:  entity.PurchaseRejected,
			wantCoins:  100,
			wantPoints: 10,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)

			f := newFixture(t, testCatalog()...)
			if tc.prepare != nil {
				tc.prepare(f)
			}

			result, err := f.purchase.Buy(context.Background(), tc.actor, tc.entryID, tc.amount)

			rq.Equal(tc.wantState, result.State)
			rq.NotEmpty(result.Message)

			if tc.wantCode != "" {
				rq.Error(err)
				rq.True(apperr.HasCode(err, tc.wantCode), "got %v", err)
				rq.False(result.Success)
				rq.Zero(f.delivery.count())
			} else {
				rq.NoError(err)
				rq.True(result.Success)
				rq.Equal(tc.amount, result.Amount)
				rq.Equal(1, f.delivery.count())
				rq.Eventually(func() bool { return f.store.transactionCount() == 1 }, time.Second, 5*time.Millisecond)
			}

			rq.Equal(tc.wantCoins, f.coins.balance("a1"))
			rq.Equal(tc.wantPoints, f.points.balance("a1"))

			for id, stock := range tc.wantStock {
				rq.Equal(stock, f.store.stock(id), id)

				mirrored, _ := f.ledger.Catalog().Get(id)
				rq.Equal(stock, mirrored.Stock, id)
			}
		})
	}
}

func TestPurchaseService_BuyDelivery(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	f := newFixture(t, testCatalog()...)

	result, err := f.purchase.Buy(context.Background(), entity.Actor{ID: "a1", Name: "Steve"}, "apple", 2)
	rq.NoError(err)
	rq.Equal("Bought 2 x minecraft:apple for 20", result.Message)
	rq.EqualValues(20, result.Cost)

	rq.Equal([]entity.Delivery{{
		ItemKey:  "minecraft:apple",
		Amount:   2,
		GiveItem: true,
		Commands: []string{"say Steve bought 2"},
		Source:   "shop:apple",
	}}, f.delivery.deliveries)

	rq.Eventually(func() bool { return f.store.transactionCount() == 1 }, time.Second, 5*time.Millisecond)

	history, err := f.purchase.History(context.Background(), "a1", 10)
	rq.NoError(err)
	rq.Len(history, 1)
	rq.Equal(entity.TransactionBuy, history[0].Type)
	rq.EqualValues(20, history[0].Price)

	rq.NotEmpty(f.publisher.changes)
	rq.Equal(entity.StockChange{EntryID: "apple", Reserved: 2, Stock: 3}, f.publisher.changes[len(f.publisher.changes)-1])
}

func TestPurchaseService_BuyLocalizedRejection(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	f := newFixture(t, testCatalog()...)
	f.purchase.WithMessages(value.Messages{"InsufficientStock": "Товар {entry} закончился"})

	result, err := f.purchase.Buy(context.Background(), entity.Actor{ID: "a1"}, "apple", 50)
	rq.Error(err)
	rq.Equal("Товар apple закончился", result.Message)
}

func TestPurchaseService_Sell(t *testing.T) {
	t.Parallel()

	actor := entity.Actor{ID: "a1", Name: "Steve"}

	testCases := []struct {
		name        string
		items       []entity.SellItem
		restock     bool
		depositErr  error
		wantCode    errcodes.ErrorCode
		wantReward  int64
		wantSkipped int
		wantCoins   int64
		wantStock   int
	}{
		{
			name:       "Sell with restock",
			items:      []entity.SellItem{{EntryID: "apple", Amount: 3}},
			restock:    true,
			wantReward: 12,
			wantCoins:  112,
			wantStock:  8,
		},
		{
			name:        "Unsellable items are skipped",
			items:       []entity.SellItem{{EntryID: "apple", Amount: 1}, {EntryID: "gem", Amount: 1}, {EntryID: "nope", Amount: 2}},
			wantReward:  4,
			wantSkipped: 2,
			wantCoins:   104,
			wantStock:   5,
		},
		{
			name:        "Nothing to sell",
			items:       []entity.SellItem{{EntryID: "gem", Amount: 1}},
			wantCode:    errcodes.NothingToSell,
			wantSkipped: 1,
			wantCoins:   100,
			wantStock:   5,
		},
		{
			name:      "Reward overflows int64",
			items:     []entity.SellItem{{EntryID: "bulk", Amount: 3}},
			wantCode:  errcodes.ValidationError,
			wantCoins: 100,
			wantStock: 5,
		},
		{
			name:      "Total reward overflows int64",
			items:     []entity.SellItem{{EntryID: "bulk", Amount: 1}, {EntryID: "bulk", Amount: 1}, {EntryID: "bulk", Amount: 1}},
			wantCode:  errcodes.ValidationError,
			wantCoins: 100,
			wantStock: 5,
		},
		{
			name:        "Credit failure returns items",
			items:       []entity.SellItem{{EntryID: "apple", Amount: 2}},
			restock:     true,
			depositErr:  apperr.WrapError(errWalletDown, errcodes.EconomyUnavailable, "down"),
			wantCode:    errcodes.EconomyUnavailable,
			wantSkipped: 1,
			wantCoins:   100,
			wantStock:   5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)

			f := newFixture(t, testCatalog()...)
			f.purchase.WithRestockOnSell(tc.restock)
			f.coins.depositErr = tc.depositErr

			result, err := f.purchase.Sell(context.Background(), actor, tc.items)
			if tc.wantCode != "" {
				rq.Error(err)
				rq.True(apperr.HasCode(err, tc.wantCode))
			} else {
				rq.NoError(err)
			}

			rq.Equal(tc.wantReward, result.TotalReward)
			rq.Len(result.Skipped, tc.wantSkipped)
			rq.Equal(tc.wantCoins, f.coins.balance("a1"))
			rq.Equal(tc.wantStock, f.store.stock("apple"))
		})
	}
}

// blockQueue занимает очередь, пока не вызван release.
func blockQueue(t *testing.T, f *fixture) func() {
	t.Helper()

	var (
		once    sync.Once
		blocked = make(chan struct{})
	)

	release := func() { once.Do(func() { close(blocked) }) }
	t.Cleanup(release)

	_, err := serialq.Submit(context.Background(), f.purchase.queue, "block", func(context.Context) (struct{}, error) {
		<-blocked
		return struct{}{}, nil
	})
	require.NoError(t, err)

	return release
}

func TestPurchaseService_CallerGivesUpWhileQueued(t *testing.T) {
	t.Parallel()

	actor := entity.Actor{ID: "a1", Name: "Steve"}

	testCases := []struct {
		name      string
		grace     time.Duration
		wantState entity.PurchaseState
		wantCode  errcodes.ErrorCode
	}{
		{
			name:      "Result arrives within grace",
			grace:     5 * time.Second,
			wantState: entity.PurchaseLogged,
		},
		{
			name:      "Result still pending after grace",
			grace:     10 * time.Millisecond,
			wantState: entity.PurchasePending,
			wantCode:  errcodes.TimeoutExceeded,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)

			f := newFixture(t, testCatalog()...)
			f.purchase.WithResultGrace(tc.grace)

			release := blockQueue(t, f)
			time.AfterFunc(100*time.Millisecond, release)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			result, err := f.purchase.Buy(ctx, actor, "apple", 2)
			rq.Equal(tc.wantState, result.State)
			rq.NotEqual(entity.PurchaseRejected, result.State)

			if tc.wantCode != "" {
				rq.True(apperr.HasCode(err, tc.wantCode), "got %v", err)
				rq.NotEmpty(result.Message)
			} else {
				rq.NoError(err)
				rq.True(result.Success)
			}

			// Покупка выполняется в любом случае.
			rq.Eventually(func() bool { return f.delivery.count() == 1 }, time.Second, 5*time.Millisecond)
			rq.Eventually(func() bool { return f.coins.balance("a1") == 80 }, time.Second, 5*time.Millisecond)
		})
	}
}

func TestPurchaseService_SellPendingAfterGrace(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	f := newFixture(t, testCatalog()...)
	f.purchase.WithResultGrace(10 * time.Millisecond)

	release := blockQueue(t, f)
	time.AfterFunc(100*time.Millisecond, release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := f.purchase.Sell(ctx, entity.Actor{ID: "a1"}, []entity.SellItem{{EntryID: "apple", Amount: 1}})
	rq.True(apperr.HasCode(err, errcodes.TimeoutExceeded), "got %v", err)
	rq.True(result.Pending)

	rq.Eventually(func() bool { return f.coins.balance("a1") == 104 }, time.Second, 5*time.Millisecond)
}

func TestPurchaseService_MirrorFollowsStoreUnderAdminChanges(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	f := newFixture(t, testCatalog()...)
	f.coins.balances["a1"] = 1_000_000

	var wg sync.WaitGroup

	for i := range 40 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if i%4 == 0 {
				rq.NoError(f.admin.SetStock(context.Background(), "apple", 5))
				return
			}

			_, _ = f.purchase.Buy(context.Background(), entity.Actor{ID: "a1"}, "apple", 1)
		}()
	}

	wg.Wait()

	mirrored, ok := f.ledger.Catalog().Get("apple")
	rq.True(ok)
	rq.Equal(f.store.stock("apple"), mirrored.Stock)
}
