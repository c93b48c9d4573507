package gacha

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource источник равномерных чисел в [0, 1).
type RandomSource interface {
	Float64() float64
}

type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return rand.Float64() //nolint:gosec
	}

	// 53 бита мантиссы.
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

// DefaultSource криптостойкий источник, безопасен для конкурентного
// использования.
func DefaultSource() RandomSource {
	return cryptoSource{}
}

type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSource воспроизводимый источник для симуляций и тестов.
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} //nolint:gosec
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.r.Float64()
}
