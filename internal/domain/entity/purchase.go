package entity

type PurchaseState string

const (
	PurchaseReceived          PurchaseState = "RECEIVED"
	PurchaseConditionsChecked PurchaseState = "CONDITIONS_CHECKED"
	PurchaseFundsVerified     PurchaseState = "FUNDS_VERIFIED"
	PurchaseStockReserved     PurchaseState = "STOCK_RESERVED"
	PurchaseFundsDeducted     PurchaseState = "FUNDS_DEDUCTED"
	PurchaseLimitsRecorded    PurchaseState = "LIMITS_RECORDED"
	PurchaseDelivered         PurchaseState = "DELIVERED"
	PurchaseLogged            PurchaseState = "LOGGED"
	PurchaseRejected          PurchaseState = "REJECTED"
	PurchaseFailedRolledBack  PurchaseState = "FAILED_ROLLED_BACK"
	// PurchasePending операция принята очередью, но её итог не дождались.
	PurchasePending PurchaseState = "PENDING"
)

type PurchaseResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	EntryID string        `json:"entry_id"`
	ItemKey string        `json:"item_key"`
	Amount  int           `json:"amount"`
	Cost    int64         `json:"cost"`
	Points  int64         `json:"points"`
	State   PurchaseState `json:"state"`
}

// Delivery то, что нужно выдать игроку после успешной операции.
type Delivery struct {
	ItemKey  string
	Amount   int
	GiveItem bool
	Commands []string
	Source   string
}

type SellItem struct {
	EntryID string `json:"entry_id"`
	Amount  int    `json:"amount"`
}

type SoldItem struct {
	EntryID string `json:"entry_id"`
	ItemKey string `json:"item_key"`
	Amount  int    `json:"amount"`
	Reward  int64  `json:"reward"`
}

type SellResult struct {
	TotalReward int64      `json:"total_reward"`
	Sold        []SoldItem `json:"sold"`
	Skipped     []SellItem `json:"skipped,omitempty"`
	Pending     bool       `json:"pending,omitempty"`
}
