package gacha

import (
	"goods_market/internal/domain/entity"
)

// AdvanceCounters возвращает счётчики после прокрутки: правило, в подпул
// которого попала награда, сбрасывается в 0, остальные увеличиваются на 1.
// Счётчики правил, которых больше нет в автомате, не трогаются.
func AdvanceCounters(rules []entity.PityRule, counters entity.PityCounters, reward entity.RewardEntry) entity.PityCounters {
	next := counters.Clone()

	for _, rule := range rules {
		hash := rule.Hash()

		if rule.Qualifies(reward) {
			next[hash] = 0
		} else {
			next[hash] = counters.Get(hash) + 1
		}
	}

	return next
}

// RollBatch выполняет n прокруток, прокидывая счётчики в памяти. В хранилище
// нужно сохранить только итоговые счётчики.
func (s *Selector) RollBatch(m *entity.GachaMachine, counters entity.PityCounters, n int) ([]PityResult, entity.PityCounters, error) {
	draws := make([]PityResult, 0, n)
	current := counters.Clone()

	for range n {
		res, err := s.RollWithPity(m, current)
		if err != nil {
			return nil, counters, err
		}

		current = AdvanceCounters(m.PityRules(), current, res.Reward)
		draws = append(draws, res)
	}

	return draws, current, nil
}
