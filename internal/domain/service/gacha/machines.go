package gacha

import (
	"cmp"
	"slices"
	"sync"

	"goods_market/internal/domain/entity"
)

// Machines реестр автоматов одного экземпляра сервиса.
type Machines struct {
	mu       sync.RWMutex
	machines map[string]*entity.GachaMachine
}

func NewMachines(machines ...*entity.GachaMachine) *Machines {
	m := &Machines{}
	m.Replace(machines)

	return m
}

func (m *Machines) Get(id string) (*entity.GachaMachine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	machine, ok := m.machines[id]

	return machine, ok
}

func (m *Machines) List() []*entity.GachaMachine {
	m.mu.RLock()
	list := make([]*entity.GachaMachine, 0, len(m.machines))

	for _, machine := range m.machines {
		list = append(list, machine)
	}
	m.mu.RUnlock()

	slices.SortFunc(list, func(a, b *entity.GachaMachine) int {
		return cmp.Compare(a.ID(), b.ID())
	})

	return list
}

// Replace подменяет набор автоматов целиком, незавершённые прокрутки
// держат ссылку на старый автомат.
func (m *Machines) Replace(machines []*entity.GachaMachine) {
	next := make(map[string]*entity.GachaMachine, len(machines))
	for _, machine := range machines {
		next[machine.ID()] = machine
	}

	m.mu.Lock()
	m.machines = next
	m.mu.Unlock()
}
