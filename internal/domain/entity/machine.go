package entity

import (
	"slices"
	"time"
)

type AnimationTimings struct {
	Duration      time.Duration `json:"duration"`
	SpinInterval  time.Duration `json:"spin_interval"`
	RevealPause   time.Duration `json:"reveal_pause"`
	TenDrawFactor float64       `json:"ten_draw_factor"`
}

// Total сколько длится анимация для серии из n прокруток.
func (t AnimationTimings) Total(n int) time.Duration {
	total := t.Duration + t.RevealPause
	if n > 1 && t.TenDrawFactor > 0 {
		total = time.Duration(float64(total) * t.TenDrawFactor)
	}

	return total
}

// GachaMachine неизменяемый гача-автомат. Для изменения пула создаётся новый
// экземпляр через WithRewards, поэтому знаменатель вероятностей всегда
// соответствует текущему пулу.
type GachaMachine struct {
	id        string
	name      string
	cost      int64
	timings   AnimationTimings
	rewards   []RewardEntry
	pityRules []PityRule
	total     float64
}

func NewGachaMachine(
	id, name string,
	cost int64,
	timings AnimationTimings,
	rewards []RewardEntry,
	pityRules []PityRule,
) *GachaMachine {
	rules := slices.Clone(pityRules)
	SortPityRules(rules)

	m := &GachaMachine{
		id:        id,
		name:      name,
		cost:      cost,
		timings:   timings,
		pityRules: rules,
	}
	m.setRewards(rewards)

	return m
}

func (m *GachaMachine) setRewards(rewards []RewardEntry) {
	m.rewards = slices.Clone(rewards)
	m.total = 0

	for _, r := range m.rewards {
		m.total += r.Probability
	}
}

// WithRewards возвращает копию автомата с другим пулом наград.
func (m *GachaMachine) WithRewards(rewards []RewardEntry) *GachaMachine {
	return NewGachaMachine(m.id, m.name, m.cost, m.timings, rewards, m.pityRules)
}

func (m *GachaMachine) ID() string                { return m.id }
func (m *GachaMachine) Name() string              { return m.name }
func (m *GachaMachine) Cost() int64               { return m.cost }
func (m *GachaMachine) Timings() AnimationTimings { return m.timings }
func (m *GachaMachine) TotalProbability() float64 { return m.total }
func (m *GachaMachine) HasPity() bool             { return len(m.pityRules) > 0 }

// Rewards возвращает пул в порядке конфигурации. Срез нельзя изменять.
func (m *GachaMachine) Rewards() []RewardEntry {
	return m.rewards
}

// PityRules возвращает правила по убыванию порога. Срез нельзя изменять.
func (m *GachaMachine) PityRules() []PityRule {
	return m.pityRules
}

func (m *GachaMachine) Reward(id string) (RewardEntry, bool) {
	for _, r := range m.rewards {
		if r.ID == id {
			return r, true
		}
	}

	return RewardEntry{}, false
}
