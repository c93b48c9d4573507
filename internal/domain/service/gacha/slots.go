package gacha

import "sync"

// slotLocks мьютексы по паре игрок/автомат. Запись удаляется, когда её
// больше никто не ждёт.
type slotLocks struct {
	mu    sync.Mutex
	slots map[string]*slotLock
}

type slotLock struct {
	mu      sync.Mutex
	waiters int
}

func newSlotLocks() *slotLocks {
	return &slotLocks{slots: make(map[string]*slotLock)}
}

// lock захватывает слот и возвращает функцию освобождения.
func (l *slotLocks) lock(key string) func() {
	l.mu.Lock()

	s, ok := l.slots[key]
	if !ok {
		s = &slotLock{}
		l.slots[key] = s
	}

	s.waiters++
	l.mu.Unlock()

	s.mu.Lock()

	return func() {
		s.mu.Unlock()

		l.mu.Lock()
		defer l.mu.Unlock()

		s.waiters--
		if s.waiters == 0 {
			delete(l.slots, key)
		}
	}
}
