package shop

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/serialq"
)

const testToday = "2026-10-18"

type limitKey struct {
	actorID string
	entryID string
}

// memStore хранилище в памяти с транзакциями через снимок состояния.
type memStore struct {
	mu           sync.Mutex
	entries      map[string]entity.CatalogEntry
	daily        map[limitKey]entity.DailyLimit
	lifetime     map[limitKey]int
	transactions []entity.TransactionRecord
	draws        []entity.DrawRecord

	failCommit bool
}

type memSnapshot struct {
	entries  map[string]entity.CatalogEntry
	daily    map[limitKey]entity.DailyLimit
	lifetime map[limitKey]int
}

func newMemStore(entries ...entity.CatalogEntry) *memStore {
	s := &memStore{
		entries:  make(map[string]entity.CatalogEntry),
		daily:    make(map[limitKey]entity.DailyLimit),
		lifetime: make(map[limitKey]int),
	}

	for _, e := range entries {
		s.entries[e.ID] = e
	}

	return s
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return memSnapshot{
		entries:  maps.Clone(s.entries),
		daily:    maps.Clone(s.daily),
		lifetime: maps.Clone(s.lifetime),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = snap.entries
	s.daily = snap.daily
	s.lifetime = snap.lifetime
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := s.snapshot()

	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}

	if s.failCommit {
		s.restore(snap)
		return apperr.NewError(errcodes.StoreError, "failed to commit")
	}

	return nil
}

func (s *memStore) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.entries[id].Stock
}

func (s *memStore) List(context.Context) ([]entity.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.CatalogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}

	return out, nil
}

func (s *memStore) Upsert(_ context.Context, e *entity.CatalogEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *e
	if existing, ok := s.entries[e.ID]; ok {
		next.Stock = existing.Stock
	}

	s.entries[e.ID] = next

	return next.Stock, nil
}

func (s *memStore) Save(_ context.Context, e *entity.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.ID] = *e

	return nil
}

func (s *memStore) ReduceStock(_ context.Context, id string, amount int) (entity.StockChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	change := entity.StockChange{EntryID: id}

	e, ok := s.entries[id]
	if !ok || !e.Enabled {
		return change, nil
	}

	change.Stock = e.Stock

	if e.Stock < 0 {
		change.Reserved = amount
		return change, nil
	}

	if e.Stock < amount {
		return change, nil
	}

	e.Stock -= amount
	s.entries[id] = e

	change.Reserved = amount
	change.Stock = e.Stock

	return change, nil
}

func (s *memStore) IncreaseStock(_ context.Context, id string, amount int) (entity.StockChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return entity.StockChange{EntryID: id}, errEntryNotFound(id)
	}

	if e.Stock >= 0 {
		e.Stock += amount
		s.entries[id] = e
	}

	return entity.StockChange{EntryID: id, Reserved: amount, Stock: e.Stock}, nil
}

func (s *memStore) SetStock(_ context.Context, id string, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return errEntryNotFound(id)
	}

	e.Stock = stock
	s.entries[id] = e

	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return errEntryNotFound(id)
	}

	delete(s.entries, id)

	return nil
}

func (s *memStore) Stocks(context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.entries))
	for id, e := range s.entries {
		out[id] = e.Stock
	}

	return out, nil
}

func (s *memStore) Today() string {
	return testToday
}

func (s *memStore) TryIncrementDaily(_ context.Context, actorID, entryID string, amount, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := limitKey{actorID, entryID}
	row, ok := s.daily[key]

	newCount := amount
	if ok && row.LastDate == testToday {
		newCount = row.Count + amount
	}

	if newCount > limit {
		return false, nil
	}

	s.daily[key] = entity.DailyLimit{ActorID: actorID, EntryID: entryID, Count: newCount, LastDate: testToday}

	return true, nil
}

func (s *memStore) TryIncrementLifetime(_ context.Context, actorID, entryID string, amount, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := limitKey{actorID, entryID}
	if s.lifetime[key]+amount > limit {
		return false, nil
	}

	s.lifetime[key] += amount

	return true, nil
}

func (s *memStore) Daily(_ context.Context, actorID, entryID string) (entity.DailyLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.daily[limitKey{actorID, entryID}], nil
}

func (s *memStore) Lifetime(_ context.Context, actorID, entryID string) (entity.LifetimeLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return entity.LifetimeLimit{ActorID: actorID, EntryID: entryID, Count: s.lifetime[limitKey{actorID, entryID}]}, nil
}

func (s *memStore) ResetLifetime(_ context.Context, actorID, entryID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64

	for key := range s.lifetime {
		if key.actorID == actorID && (entryID == "" || key.entryID == entryID) {
			delete(s.lifetime, key)
			removed++
		}
	}

	return removed, nil
}

func (s *memStore) DeleteDailyBefore(_ context.Context, cutoff string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64

	for key, row := range s.daily {
		if row.LastDate < cutoff {
			delete(s.daily, key)
			removed++
		}
	}

	return removed, nil
}

func (s *memStore) LogTransaction(_ context.Context, rec entity.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = append(s.transactions, rec)

	return nil
}

func (s *memStore) ListTransactions(_ context.Context, actorID string, limit int) ([]entity.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.TransactionRecord

	for i := len(s.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if s.transactions[i].ActorID == actorID {
			out = append(out, s.transactions[i])
		}
	}

	return out, nil
}

func (s *memStore) DeleteTransactionsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.transactions[:0]

	for _, rec := range s.transactions {
		if !rec.CreatedAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}

	removed := int64(len(s.transactions) - len(kept))
	s.transactions = kept

	return removed, nil
}

func (s *memStore) DeleteDrawsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.draws[:0]

	for _, rec := range s.draws {
		if !rec.CreatedAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}

	removed := int64(len(s.draws) - len(kept))
	s.draws = kept

	return removed, nil
}

func (s *memStore) transactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.transactions)
}

type fakeWallet struct {
	mu          sync.Mutex
	balances    map[string]int64
	withdrawErr error
	depositErr  error
}

func newFakeWallet(balances map[string]int64) *fakeWallet {
	if balances == nil {
		balances = make(map[string]int64)
	}

	return &fakeWallet{balances: balances}
}

func (w *fakeWallet) Balance(_ context.Context, actorID string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.balances[actorID], nil
}

func (w *fakeWallet) Withdraw(_ context.Context, actorID string, amount int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.withdrawErr != nil {
		return false, w.withdrawErr
	}

	if w.balances[actorID] < amount {
		return false, nil
	}

	w.balances[actorID] -= amount

	return true, nil
}

func (w *fakeWallet) Deposit(_ context.Context, actorID string, amount int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.depositErr != nil {
		return false, w.depositErr
	}

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

type fakePublisher struct {
	mu      sync.Mutex
	changes []entity.StockChange
}

func (p *fakePublisher) PublishStock(_ context.Context, change entity.StockChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.changes = append(p.changes, change)

	return nil
}

func startQueue(t *testing.T, name string) *serialq.Queue {
	t.Helper()

	q := serialq.New(name)
	q.Start(context.Background())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = q.Shutdown(ctx)
	})

	return q
}

type fixture struct {
	store     *memStore
	coins     *fakeWallet
	points    *fakeWallet
	delivery  *fakeDelivery
	publisher *fakePublisher
	ledger    *Ledger
	purchase  *PurchaseService
	admin     *AdminService
}

func newFixture(t *testing.T, entries ...entity.CatalogEntry) *fixture {
	t.Helper()

	store := newMemStore()
	publisher := &fakePublisher{}

	ledger := NewLedger(store, store, startQueue(t, "store"), NewCatalog()).WithPublisher(publisher)
	require.NoError(t, ledger.Load(context.Background(), entries))

	f := &fixture{
		store:     store,
		coins:     newFakeWallet(map[string]int64{"a1": 100}),
		points:    newFakeWallet(map[string]int64{"a1": 10}),
		delivery:  &fakeDelivery{},
		publisher: publisher,
		ledger:    ledger,
	}

	now := func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

	f.purchase = NewPurchaseService(ledger, store, store, f.coins, f.points, f.delivery, startQueue(t, "purchase")).
		WithClock(now)
	f.admin = NewAdminService(ledger, store, store).WithClock(now)

	return f
}

var errWalletDown = errors.New("wallet down") //nolint:gochecknoglobals // skip
