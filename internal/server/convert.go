package server

import (
	"github.com/samber/lo"

	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/value"
	"goods_market/pkg/rest"
)

func newRESTCatalogEntry(e entity.CatalogEntry) rest.CatalogEntry {
	return rest.CatalogEntry{
		ID:          e.ID,
		ItemKey:     e.ItemKey,
		BuyPrice:    e.BuyPrice,
		BuyPoints:   e.BuyPoints,
		SellPrice:   e.SellPrice,
		Stock:       e.Stock,
		Category:    e.Category,
		Slot:        e.Slot,
		Enabled:     e.Enabled,
		DailyLimit:  e.DailyLimit,
		PlayerLimit: e.PlayerLimit,
		Conditions:  lo.Map(e.Conditions, func(c value.Condition, _ int) string { return c.String() }),
	}
}

func newRESTPurchaseResult(r entity.PurchaseResult) rest.PurchaseResult {
	return rest.PurchaseResult{
		Success: r.Success,
		Message: r.Message,
		EntryID: r.EntryID,
		ItemKey: r.ItemKey,
		Amount:  r.Amount,
		Cost:    r.Cost,
		Points:  r.Points,
		State:   string(r.State),
	}
}

func newDomainSellItems(items []rest.SellItem) []entity.SellItem {
	return lo.Map(items, func(i rest.SellItem, _ int) entity.SellItem {
		return entity.SellItem{EntryID: i.EntryID, Amount: i.Amount}
	})
}

func newRESTSellResult(r entity.SellResult) rest.SellResult {
	return rest.SellResult{
		TotalReward: r.TotalReward,
		Sold: lo.Map(r.Sold, func(i entity.SoldItem, _ int) rest.SoldItem {
			return rest.SoldItem{EntryID: i.EntryID, ItemKey: i.ItemKey, Amount: i.Amount, Reward: i.Reward}
		}),
		Skipped: lo.Map(r.Skipped, func(i entity.SellItem, _ int) rest.SellItem {
			return rest.SellItem{EntryID: i.EntryID, Amount: i.Amount}
		}),
		Pending: r.Pending,
	}
}

func newRESTTransaction(t entity.TransactionRecord) rest.Transaction {
	return rest.Transaction{
		ID:        t.ID,
		EntryID:   t.EntryID,
		ItemKey:   t.ItemKey,
		Amount:    t.Amount,
		Price:     t.Price,
		Points:    t.Points,
		Type:      string(t.Type),
		CreatedAt: t.CreatedAt,
	}
}

func newRESTReward(r entity.RewardEntry) rest.Reward {
	return rest.Reward{
		ID:          r.ID,
		ItemKey:     r.ItemKey,
		Amount:      r.Amount,
		Probability: r.Probability,
		Rarity:      string(r.Rarity()),
	}
}

func newRESTMachine(m *entity.GachaMachine) rest.Machine {
	return rest.Machine{
		ID:      m.ID(),
		Name:    m.Name(),
		Cost:    m.Cost(),
		Rewards: lo.Map(m.Rewards(), func(r entity.RewardEntry, _ int) rest.Reward { return newRESTReward(r) }),
		PityRules: lo.Map(m.PityRules(), func(r entity.PityRule, _ int) rest.PityRule {
			return rest.PityRule{Threshold: r.Threshold, MaxProbability: r.MaxProbability}
		}),
	}
}

func newRESTDrawResult(d entity.DrawResult) rest.DrawResult {
	return rest.DrawResult{
		DrawID:         d.DrawID,
		MachineID:      d.MachineID,
		Rewards:        lo.Map(d.Rewards, func(r entity.RewardEntry, _ int) rest.Reward { return newRESTReward(r) }),
		TriggeredRules: d.TriggeredRules,
		Cost:           d.Cost,
		DeliverAt:      d.DeliverAt,
	}
}

func newRESTDraw(d entity.DrawRecord) rest.Draw {
	return rest.Draw{
		DrawID:    d.DrawID,
		MachineID: d.MachineID,
		RewardID:  d.RewardID,
		ItemKey:   d.ItemKey,
		Amount:    d.Amount,
		Cost:      d.Cost,
		PityRule:  d.PityRule,
		CreatedAt: d.CreatedAt,
	}
}
