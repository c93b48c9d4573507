package entity

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// PityRule правило гарантии: после Threshold прокруток подряд без награды с
// вероятностью не выше MaxProbability следующая награда берётся из этого
// подпула.
type PityRule struct {
	Threshold      int     `json:"threshold"`
	MaxProbability float64 `json:"max_probability"`
}

// Hash идентификатор правила в хранилище. Зависит только от порога и
// потолка вероятности, формат "10_0.05".
func (r PityRule) Hash() string {
	return fmt.Sprintf("%d_%s", r.Threshold, formatProbability(r.MaxProbability))
}

// Qualifies сообщает, попадает ли награда в подпул правила.
func (r PityRule) Qualifies(reward RewardEntry) bool {
	return reward.Probability <= r.MaxProbability
}

// SortPityRules сортирует правила по убыванию порога.
func SortPityRules(rules []PityRule) {
	slices.SortStableFunc(rules, func(a, b PityRule) int {
		return cmp.Compare(b.Threshold, a.Threshold)
	})
}

// PityCounters счётчики прокруток без подходящей награды по хэшу правила.
type PityCounters map[string]int

func (c PityCounters) Get(hash string) int {
	return c[hash]
}

func (c PityCounters) Clone() PityCounters {
	if c == nil {
		return PityCounters{}
	}

	return maps.Clone(c)
}

// formatProbability форматирует число так же, как это делалось в ранее
// сохранённых хэшах: "0.05", "1.0", "1.0E-4".
func formatProbability(p float64) string {
	abs := math.Abs(p)

	if abs == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(p, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}

		return s
	}

	mantissa, exponent, _ := strings.Cut(strconv.FormatFloat(p, 'E', -1, 64), "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}

	exp, _ := strconv.Atoi(exponent)

	return mantissa + "E" + strconv.Itoa(exp)
}
