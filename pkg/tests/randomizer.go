package tests

import (
	"math/rand/v2"
	"sync"
)

// Randomizer воспроизводимый генератор для тестов.
type Randomizer struct {
	Float64 func() float64
	Bool    func() bool
	IntN    func(n int) int
}

func NewRandomizer(seed uint64) Randomizer {
	random := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // for tests

	var mu sync.Mutex

	return Randomizer{
		Float64: func() float64 {
			mu.Lock()
			defer mu.Unlock()

			return random.Float64()
		},
		Bool: func() bool {
			mu.Lock()
			defer mu.Unlock()

			return random.IntN(2) == 0 //nolint:mnd // skip
		},
		IntN: func(n int) int {
			mu.Lock()
			defer mu.Unlock()

			return random.IntN(n)
		},
	}
}

// FloatSource источник, реализующий Float64() поверх Randomizer.
type FloatSource struct {
	Randomizer
}

func (s FloatSource) Float64() float64 {
	return s.Randomizer.Float64()
}

// Sequence источник, возвращающий заданные значения по кругу.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.values[s.next%len(s.values)]
	s.next++

	return v
}
