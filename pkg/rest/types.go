// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

import "time"

// CatalogEntry Позиция каталога
type CatalogEntry struct {
	ID          string   `json:"id"`
	ItemKey     string   `json:"itemKey"`
	BuyPrice    int64    `json:"buyPrice"`
	BuyPoints   int64    `json:"buyPoints"`
	SellPrice   int64    `json:"sellPrice"`
	Stock       int      `json:"stock"`
	Category    string   `json:"category"`
	Slot        int      `json:"slot"`
	Enabled     bool     `json:"enabled"`
	DailyLimit  int      `json:"dailyLimit"`
	PlayerLimit int      `json:"playerLimit"`
	Conditions  []string `json:"conditions,omitempty"`
}

// BuyRequest Запрос на покупку
type BuyRequest struct {
	EntryID string `json:"entryId" validate:"required"`
	Amount  int    `json:"amount"  validate:"min=1,max=100000"`
}

// PurchaseResult Результат покупки
type PurchaseResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EntryID string `json:"entryId"`
	ItemKey string `json:"itemKey"`
	Amount  int    `json:"amount"`
	Cost    int64  `json:"cost"`
	Points  int64  `json:"points"`
	State   string `json:"state"`
}

// SellItem Продаваемый предмет
type SellItem struct {
	EntryID string `json:"entryId" validate:"required"`
	Amount  int    `json:"amount"  validate:"min=1,max=100000"`
}

// SellRequest Запрос на продажу
type SellRequest struct {
	Items []SellItem `json:"items" validate:"required,min=1,dive"`
}

// SoldItem Проданный предмет
type SoldItem struct {
	EntryID string `json:"entryId"`
	ItemKey string `json:"itemKey"`
	Amount  int    `json:"amount"`
	Reward  int64  `json:"reward"`
}

// SellResult Результат продажи
type SellResult struct {
	TotalReward int64      `json:"totalReward"`
	Sold        []SoldItem `json:"sold"`
	Skipped     []SellItem `json:"skipped,omitempty"`
	Pending     bool       `json:"pending,omitempty"`
}

// Transaction Запись журнала покупок
type Transaction struct {
	ID        string    `json:"id"`
	EntryID   string    `json:"entryId"`
	ItemKey   string    `json:"itemKey"`
	Amount    int       `json:"amount"`
	Price     int64     `json:"price"`
	Points    int64     `json:"points"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reward Награда автомата
type Reward struct {
	ID          string  `json:"id"`
	ItemKey     string  `json:"itemKey"`
	Amount      int     `json:"amount"`
	Probability float64 `json:"probability"`
	Rarity      string  `json:"rarity"`
}

// PityRule Правило гарантии
type PityRule struct {
	Threshold      int     `json:"threshold"`
	MaxProbability float64 `json:"maxProbability"`
}

// Machine Автомат
type Machine struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Cost      int64      `json:"cost"`
	Rewards   []Reward   `json:"rewards"`
	PityRules []PityRule `json:"pityRules,omitempty"`
}

// RollRequest Запрос на прокрутку
type RollRequest struct {
	Count int `json:"count" validate:"oneof=1 10"`
}

// DrawResult Результат прокрутки
type DrawResult struct {
	DrawID         string    `json:"drawId"`
	MachineID      string    `json:"machineId"`
	Rewards        []Reward  `json:"rewards"`
	TriggeredRules []string  `json:"triggeredRules,omitempty"`
	Cost           int64     `json:"cost"`
	DeliverAt      time.Time `json:"deliverAt"`
}

// Draw Запись журнала прокруток
type Draw struct {
	DrawID    string    `json:"drawId"`
	MachineID string    `json:"machineId"`
	RewardID  string    `json:"rewardId"`
	ItemKey   string    `json:"itemKey"`
	Amount    int       `json:"amount"`
	Cost      int64     `json:"cost"`
	PityRule  string    `json:"pityRule,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SetStockRequest Запрос на установку остатка
type SetStockRequest struct {
	Stock int `json:"stock" validate:"min=-1"`
}

// Stock Остаток позиции
type Stock struct {
	EntryID string `json:"entryId"`
	Stock   int    `json:"stock"`
}

// CleanupRequest Запрос на очистку журналов
type CleanupRequest struct {
	Days int `json:"days" validate:"min=1"`
}

// CleanupResult Количество удалённых записей
type CleanupResult struct {
	Transactions int64 `json:"transactions"`
	DailyLimits  int64 `json:"dailyLimits"`
	Draws        int64 `json:"draws"`
}

// ResetLimitRequest Запрос на сброс пожизненного лимита
type ResetLimitRequest struct {
	ActorID string `json:"actorId" validate:"required"`
	EntryID string `json:"entryId"`
}

// ResetLimitResult Количество сброшенных счётчиков
type ResetLimitResult struct {
	Removed int64 `json:"removed"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке
	Message string `json:"message"`

	// SupportID Идентификатор запроса для поддержки
	SupportID string `json:"supportId"`
}

// ErrorCode Код ошибки
type ErrorCode string
