package gacha

import (
	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

// PityResult награда и правило гарантии, если оно сработало.
type PityResult struct {
	Reward    entity.RewardEntry
	Triggered *entity.PityRule
}

type Selector struct {
	rng RandomSource
}

func NewSelector(rng RandomSource) *Selector {
	if rng == nil {
		rng = DefaultSource()
	}

	return &Selector{rng: rng}
}

func errEmptyPool(machineID string) error {
	return apperr.NewError(errcodes.ConfigurationError, "gacha machine "+machineID+" has an empty reward pool")
}

// Roll взвешенный выбор: r в [0, total), первая награда, у которой
// накопленная сумма >= r. Если из-за погрешности ничего не нашлось,
// возвращается последняя.
func (s *Selector) Roll(m *entity.GachaMachine) (entity.RewardEntry, error) {
	rewards := m.Rewards()
	if len(rewards) == 0 {
		return entity.RewardEntry{}, errEmptyPool(m.ID())
	}

	return s.weighted(rewards, m.TotalProbability()), nil
}

func (s *Selector) weighted(rewards []entity.RewardEntry, total float64) entity.RewardEntry {
	r := s.rng.Float64() * total

	var cumulative float64

	for _, reward := range rewards {
		cumulative += reward.Probability
		if cumulative >= r {
			return reward
		}
	}

	return rewards[len(rewards)-1]
}

// PitySubPool награды с вероятностью не выше потолка, в порядке пула.
func PitySubPool(rewards []entity.RewardEntry, maxProbability float64) []entity.RewardEntry {
	pool := make([]entity.RewardEntry, 0, len(rewards))

	for _, r := range rewards {
		if r.Probability <= maxProbability {
			pool = append(pool, r)
		}
	}

	return pool
}

// CheckPityTrigger проверяет правила от большего порога к меньшему и
// возвращает первое, чей счётчик достиг порога.
func CheckPityTrigger(rules []entity.PityRule, counters entity.PityCounters) (entity.PityRule, bool) {
	for _, rule := range rules {
		if counters.Get(rule.Hash()) >= rule.Threshold {
			return rule, true
		}
	}

	return entity.PityRule{}, false
}

// RollWithPity если сработало правило гарантии, выбирает равновероятно из
// его подпула. Пустой подпул означает обычный взвешенный выбор.
func (s *Selector) RollWithPity(m *entity.GachaMachine, counters entity.PityCounters) (PityResult, error) {
	rewards := m.Rewards()
	if len(rewards) == 0 {
		return PityResult{}, errEmptyPool(m.ID())
	}

	if rule, ok := CheckPityTrigger(m.PityRules(), counters); ok {
		if pool := PitySubPool(rewards, rule.MaxProbability); len(pool) > 0 {
			return PityResult{Reward: s.uniform(pool), Triggered: &rule}, nil
		}
	}

	return PityResult{Reward: s.weighted(rewards, m.TotalProbability())}, nil
}

func (s *Selector) uniform(pool []entity.RewardEntry) entity.RewardEntry {
	i := int(s.rng.Float64() * float64(len(pool)))
	if i >= len(pool) {
		i = len(pool) - 1
	}

	return pool[i]
}
