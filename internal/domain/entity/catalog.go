package entity

import (
	"time"

	"goods_market/internal/domain/value"
)

// UnlimitedStock значение остатка, которое никогда не уменьшается.
const UnlimitedStock = -1

type CatalogEntry struct {
	ID          string            `json:"id"`
	ItemKey     string            `json:"item_key"`
	BuyPrice    int64             `json:"buy_price"`
	BuyPoints   int64             `json:"buy_points"`
	SellPrice   int64             `json:"sell_price"`
	Stock       int               `json:"stock"`
	Category    string            `json:"category"`
	Slot        int               `json:"slot"`
	Enabled     bool              `json:"enabled"`
	DailyLimit  int               `json:"daily_limit"`
	PlayerLimit int               `json:"player_limit"`
	GiveItem    bool              `json:"give_item"`
	Conditions  []value.Condition `json:"conditions,omitempty"`
	Commands    []string          `json:"commands,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (e CatalogEntry) IsUnlimited() bool {
	return e.Stock < 0
}

func (e CatalogEntry) HasDailyLimit() bool {
	return e.DailyLimit > 0
}

func (e CatalogEntry) HasPlayerLimit() bool {
	return e.PlayerLimit > 0
}

func (e CatalogEntry) CanBuy() bool {
	return e.Enabled && (e.BuyPrice > 0 || e.BuyPoints > 0)
}

func (e CatalogEntry) CanSell() bool {
	return e.Enabled && e.SellPrice > 0
}

// StockChange результат изменения остатка в хранилище.
type StockChange struct {
	EntryID string
	// Reserved сколько реально списано; 0 означает отказ.
	Reserved int
	// Stock остаток после изменения, прочитанный в той же транзакции.
	Stock int
}
