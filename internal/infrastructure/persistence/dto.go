package persistence

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/value"
	"goods_market/pkg/lox"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// catalogEntrySchema строка таблицы catalog_entries.
type catalogEntrySchema struct {
	ID          string    `db:"id"`
	ItemKey     string    `db:"item_key"`
	BuyPrice    int64     `db:"buy_price"`
	BuyPoints   int64     `db:"buy_points"`
	SellPrice   int64     `db:"sell_price"`
	Stock       int       `db:"stock"`
	Category    string    `db:"category"`
	Slot        int       `db:"slot"`
	Enabled     bool      `db:"enabled"`
	DailyLimit  int       `db:"daily_limit"`
	PlayerLimit int       `db:"player_limit"`
	GiveItem    bool      `db:"give_item"`
	Conditions  []byte    `db:"conditions"`
	Commands    []byte    `db:"commands"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func fromCatalogEntry(e *entity.CatalogEntry) (*catalogEntrySchema, error) {
	conditions := make([]string, 0, len(e.Conditions))
	for _, c := range e.Conditions {
		conditions = append(conditions, c.String())
	}

	conditionsJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, err
	}

	commands := e.Commands
	if commands == nil {
		commands = []string{}
	}

	commandsJSON, err := json.Marshal(commands)
	if err != nil {
		return nil, err
	}

	return &catalogEntrySchema{
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
		GiveItem:    e.GiveItem,
		Conditions:  conditionsJSON,
		Commands:    commandsJSON,
		UpdatedAt:   e.UpdatedAt,
	}, nil
}

func (s *catalogEntrySchema) toDomain() (entity.CatalogEntry, error) {
	var rawConditions, commands []string

	if len(s.Conditions) > 0 {
		if err := json.Unmarshal(s.Conditions, &rawConditions); err != nil {
			return entity.CatalogEntry{}, err
		}
	}

	if len(s.Commands) > 0 {
		if err := json.Unmarshal(s.Commands, &commands); err != nil {
			return entity.CatalogEntry{}, err
		}
	}

	conditions, err := lox.MapErr(rawConditions, value.ParseCondition)
	if err != nil {
		return entity.CatalogEntry{}, err
	}

	return entity.CatalogEntry{
		ID:          s.ID,
		ItemKey:     s.ItemKey,
		BuyPrice:    s.BuyPrice,
		BuyPoints:   s.BuyPoints,
		SellPrice:   s.SellPrice,
		Stock:       s.Stock,
		Category:    s.Category,
		Slot:        s.Slot,
		Enabled:     s.Enabled,
		DailyLimit:  s.DailyLimit,
		PlayerLimit: s.PlayerLimit,
		GiveItem:    s.GiveItem,
		Conditions:  conditions,
		Commands:    commands,
		UpdatedAt:   s.UpdatedAt,
	}, nil
}

type dailyLimitSchema struct {
	ActorID  string `db:"actor_id"`
	EntryID  string `db:"entry_id"`
	BuyCount int    `db:"buy_count"`
	LastDate string `db:"last_date"`
}

type transactionSchema struct {
	ID        string    `db:"id"`
	ActorID   string    `db:"actor_id"`
	ActorName string    `db:"actor_name"`
	EntryID   string    `db:"entry_id"`
	ItemKey   string    `db:"item_key"`
	Amount    int       `db:"amount"`
	Price     int64     `db:"price"`
	Points    int64     `db:"points"`
	Type      string    `db:"type"`
	CreatedAt time.Time `db:"created_at"`
}

func fromTransaction(r entity.TransactionRecord) transactionSchema {
	return transactionSchema{
		ID:        r.ID,
		ActorID:   r.ActorID,
		ActorName: r.ActorName,
		EntryID:   r.EntryID,
		ItemKey:   r.ItemKey,
		Amount:    r.Amount,
		Price:     r.Price,
		Points:    r.Points,
		Type:      string(r.Type),
		CreatedAt: r.CreatedAt,
	}
}

func (s transactionSchema) toDomain() entity.TransactionRecord {
	return entity.TransactionRecord{
		ID:        s.ID,
		ActorID:   s.ActorID,
		ActorName: s.ActorName,
		EntryID:   s.EntryID,
		ItemKey:   s.ItemKey,
		Amount:    s.Amount,
		Price:     s.Price,
		Points:    s.Points,
		Type:      entity.TransactionType(s.Type),
		CreatedAt: s.CreatedAt,
	}
}

type drawSchema struct {
	ID        string    `db:"id"`
	DrawID    string    `db:"draw_id"`
	ActorID   string    `db:"actor_id"`
	ActorName string    `db:"actor_name"`
	MachineID string    `db:"machine_id"`
	RewardID  string    `db:"reward_id"`
	ItemKey   string    `db:"item_key"`
	Amount    int       `db:"amount"`
	Cost      int64     `db:"cost"`
	PityRule  string    `db:"pity_rule"`
	CreatedAt time.Time `db:"created_at"`
}

func fromDraw(r entity.DrawRecord) drawSchema {
	return drawSchema{
		ID:        r.ID,
		DrawID:    r.DrawID,
		ActorID:   r.ActorID,
		ActorName: r.ActorName,
		MachineID: r.MachineID,
		RewardID:  r.RewardID,
		ItemKey:   r.ItemKey,
		Amount:    r.Amount,
		Cost:      r.Cost,
		PityRule:  r.PityRule,
		CreatedAt: r.CreatedAt,
	}
}

func (s drawSchema) toDomain() entity.DrawRecord {
	return entity.DrawRecord{
		ID:        s.ID,
		DrawID:    s.DrawID,
		ActorID:   s.ActorID,
		ActorName: s.ActorName,
		MachineID: s.MachineID,
		RewardID:  s.RewardID,
		ItemKey:   s.ItemKey,
		Amount:    s.Amount,
		Cost:      s.Cost,
		PityRule:  s.PityRule,
		CreatedAt: s.CreatedAt,
	}
}

// args значения в порядке catalogColumns.
func (s *catalogEntrySchema) args(now time.Time) []any {
	return []any{
		s.ID, s.ItemKey, s.BuyPrice, s.BuyPoints, s.SellPrice, s.Stock, s.Category, s.Slot,
		s.Enabled, s.DailyLimit, s.PlayerLimit, s.GiveItem, s.Conditions, s.Commands, now,
	}
}
