package entity

import "time"

type TransactionType string

const (
	TransactionBuy       TransactionType = "BUY"
	TransactionBuyPoints TransactionType = "BUY_POINTS"
	TransactionSell      TransactionType = "SELL"
)

// TransactionRecord запись аудита покупки или продажи. Только добавляется.
type TransactionRecord struct {
	ID        string
	ActorID   string
	ActorName string
	EntryID   string
	ItemKey   string
	Amount    int
	Price     int64
	Points    int64
	Type      TransactionType
	CreatedAt time.Time
}

// DrawRecord запись аудита одной прокрутки гача-автомата.
type DrawRecord struct {
	ID        string
	DrawID    string
	ActorID   string
	ActorName string
	MachineID string
	RewardID  string
	ItemKey   string
	Amount    int
	Cost      int64
	PityRule  string
	CreatedAt time.Time
}

type CleanupResult struct {
	Transactions int64 `json:"transactions"`
	DailyLimits  int64 `json:"daily_limits"`
	Draws        int64 `json:"draws"`
}
