package entity

type Rarity string

const (
	RarityLegendary Rarity = "legendary"
	RarityEpic      Rarity = "epic"
	RarityRare      Rarity = "rare"
	RarityUncommon  Rarity = "uncommon"
	RarityCommon    Rarity = "common"
)

// RewardEntry награда гача-автомата. Не меняется после загрузки.
type RewardEntry struct {
	ID          string  `json:"id"`
	ItemKey     string  `json:"item_key"`
	Amount      int     `json:"amount"`
	Probability float64 `json:"probability"`
	Broadcast   bool    `json:"broadcast"`
}

func (r RewardEntry) Rarity() Rarity {
	switch {
	case r.Probability <= 0.01:
		return RarityLegendary
	case r.Probability <= 0.05:
		return RarityEpic
	case r.Probability <= 0.15:
		return RarityRare
	case r.Probability <= 0.30:
		return RarityUncommon
	default:
		return RarityCommon
	}
}
