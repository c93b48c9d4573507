package economy

import (
	"context"
	"sync"
)

// MemoryWallet баланс в памяти процесса. Используется симулятором и в
// режиме разработки.
type MemoryWallet struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewMemoryWallet() *MemoryWallet {
	return &MemoryWallet{balances: make(map[string]int64)}
}

func (w *MemoryWallet) Balance(_ context.Context, actorID string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.balances[actorID], nil
}

func (w *MemoryWallet) Withdraw(_ context.Context, actorID string, amount int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.balances[actorID] < amount {
		return false, nil
	}

	w.balances[actorID] -= amount

	return true, nil
}

func (w *MemoryWallet) Deposit(_ context.Context, actorID string, amount int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.balances[actorID] += amount

	return true, nil
}
