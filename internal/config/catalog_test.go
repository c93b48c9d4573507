package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goods_market/internal/config"
	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/value"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

const testCatalog = `
messages:
  InsufficientStock: "Sold out"
defaults:
  stock: -1
  give_item: true
categories:
  food:
    daily_limit: 16
    stock: 64
entries:
  apple:
    category: food
    item_key: minecraft:apple
    buy_price: 10
    sell_price: 4
  bread:
    category: food
    item_key: minecraft:bread
    buy_price: 15
    stock: 5
    daily_limit: 0
  vip:
    item_key: minecraft:nether_star
    buy_points: 50
    conditions: ["permission:shop.vip"]
    commands: ["say {actor} is vip"]
  broken:
    buy_price: 1
  orphan:
    category: nope
    item_key: minecraft:stone
  bad_condition:
    item_key: minecraft:dirt
    conditions: ["level:10"]
machine_defaults:
  cost: 100
  timings:
    duration: 2s
    ten_draw_factor: 1.5
machines:
  basic:
    name: Basic
    pity:
      - threshold: 10
        max_probability: 0.3
      - threshold: 0
        max_probability: 0.3
    rewards:
      - id: a
        item_key: minecraft:coal
        probability: 0.7
      - id: b
        item_key: minecraft:diamond
        amount: 2
        probability: 0.3
        broadcast: true
      - id: zero
        item_key: minecraft:air
        probability: 0
      - id: above_one
        item_key: minecraft:beacon
        probability: 1.5
      - id: not_a_number
        item_key: minecraft:barrier
        probability: .nan
  free:
    cost: -5
  premium:
    cost: 500
    timings:
      duration: 5s
`

func TestParseCatalog_Entries(t *testing.T) {
	rq := require.New(t)

	catalog, err := config.ParseCatalog(context.Background(), []byte(testCatalog))
	rq.NoError(err)

	byID := make(map[string]entity.CatalogEntry)
	for _, e := range catalog.Entries {
		byID[e.ID] = e
	}

	rq.Len(byID, 3)
	rq.NotContains(byID, "broken")
	rq.NotContains(byID, "orphan")
	rq.NotContains(byID, "bad_condition")

	testCases := []struct {
		name string
		id   string
		want entity.CatalogEntry
	}{
		{
			name: "Category overrides defaults",
			id:   "apple",
			want: entity.CatalogEntry{
				ID: "apple", ItemKey: "minecraft:apple", Category: "food", BuyPrice: 10, SellPrice: 4,
				Stock: 64, DailyLimit: 16, Enabled: true, GiveItem: true,
			},
		},
		{
			name: "Entry overrides category",
			id:   "bread",
			want: entity.CatalogEntry{
				ID: "bread", ItemKey: "minecraft:bread", Category: "food", BuyPrice: 15,
				Stock: 5, DailyLimit: 0, Enabled: true, GiveItem: true,
			},
		},
		{
			name: "No category",
			id:   "vip",
			want: entity.CatalogEntry{
				ID: "vip", ItemKey: "minecraft:nether_star", BuyPoints: 50, Stock: entity.UnlimitedStock,
				Enabled: true, GiveItem: true,
				Conditions: []value.Condition{{Kind: value.ConditionHasPermission, Node: "shop.vip"}},
				Commands:   []string{"say {actor} is vip"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			rq.Equal(tc.want, byID[tc.id])
		})
	}
}

func TestParseCatalog_Machines(t *testing.T) {
	rq := require.New(t)

	catalog, err := config.ParseCatalog(context.Background(), []byte(testCatalog))
	rq.NoError(err)
	rq.Len(catalog.Machines, 2)

	basic, premium := catalog.Machines[0], catalog.Machines[1]

	rq.Equal("basic", basic.ID())
	rq.Equal("Basic", basic.Name())
	rq.Equal(int64(100), basic.Cost())
	rq.Equal(2*time.Second, basic.Timings().Duration)
	rq.Equal([]entity.PityRule{{Threshold: 10, MaxProbability: 0.3}}, basic.PityRules())
	rq.Equal([]entity.RewardEntry{
		{ID: "a", ItemKey: "minecraft:coal", Amount: 1, Probability: 0.7},
		{ID: "b", ItemKey: "minecraft:diamond", Amount: 2, Probability: 0.3, Broadcast: true},
	}, basic.Rewards())
	rq.InDelta(1.0, basic.TotalProbability(), 1e-9)

	rq.Equal("premium", premium.ID())
	rq.Equal("premium", premium.Name())
	rq.Equal(int64(500), premium.Cost())
	rq.Equal(5*time.Second, premium.Timings().Duration)
	rq.InDelta(1.5, premium.Timings().TenDrawFactor, 1e-9)
	rq.Empty(premium.Rewards())
	rq.False(premium.HasPity())
}

func TestParseCatalog_Messages(t *testing.T) {
	rq := require.New(t)

	catalog, err := config.ParseCatalog(context.Background(), []byte(testCatalog))
	rq.NoError(err)
	rq.Equal("Sold out", catalog.Messages.Render(errcodes.InsufficientStock, nil))
	rq.Equal("Item x is not sold here", catalog.Messages.Render(errcodes.EntryNotFound, map[string]string{"entry": "x"}))
}

func TestParseCatalog_InvalidYAML(t *testing.T) {
	rq := require.New(t)

	_, err := config.ParseCatalog(context.Background(), []byte("entries: [1, 2"))
	rq.True(apperr.HasCode(err, errcodes.ConfigurationError))
}

func TestLoadCatalog_SampleFile(t *testing.T) {
	rq := require.New(t)

	catalog, err := config.LoadCatalog(context.Background(), "../../config/catalog.yaml")
	rq.NoError(err)
	rq.Len(catalog.Entries, 4)
	rq.Len(catalog.Machines, 2)

	for _, m := range catalog.Machines {
		rq.NotEmpty(m.Rewards(), m.ID())
		rq.InDelta(1.0, m.TotalProbability(), 1e-9, m.ID())
	}
}
