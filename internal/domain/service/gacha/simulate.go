package gacha

import (
	"cmp"
	"slices"

	"goods_market/internal/domain/entity"
)

// RewardStat сколько раз выпала награда за симуляцию.
type RewardStat struct {
	Reward   entity.RewardEntry
	Count    int
	Observed float64
	Expected float64
}

type SimulationReport struct {
	MachineID string
	Rolls     int
	Spent     int64
	Rewards   []RewardStat
	// PityTriggered срабатывания по хэшу правила.
	PityTriggered map[string]int
}

// Simulate прокручивает автомат rolls раз сериями по batch, прокидывая
// счётчики гарантии так же, как это делает Service.
func (s *Selector) Simulate(m *entity.GachaMachine, rolls, batch int) (SimulationReport, error) {
	batch = max(batch, 1)

	report := SimulationReport{
		MachineID:     m.ID(),
		PityTriggered: make(map[string]int),
	}

	counts := make(map[string]int, len(m.Rewards()))
	counters := entity.PityCounters{}

	for report.Rolls < rolls {
		n := min(batch, rolls-report.Rolls)

		draws, next, err := s.RollBatch(m, counters, n)
		if err != nil {
			return SimulationReport{}, err
		}

		for _, d := range draws {
			counts[d.Reward.ID]++

			if d.Triggered != nil {
				report.PityTriggered[d.Triggered.Hash()]++
			}
		}

		counters = next
		report.Rolls += n
		report.Spent += m.Cost() * int64(n)
	}

	for _, r := range m.Rewards() {
		stat := RewardStat{Reward: r, Count: counts[r.ID]}

		if report.Rolls > 0 {
			stat.Observed = float64(stat.Count) / float64(report.Rolls)
		}

		if m.TotalProbability() > 0 {
			stat.Expected = r.Probability / m.TotalProbability()
		}

		report.Rewards = append(report.Rewards, stat)
	}

	slices.SortStableFunc(report.Rewards, func(a, b RewardStat) int {
		return cmp.Compare(b.Expected, a.Expected)
	})

	return report, nil
}
