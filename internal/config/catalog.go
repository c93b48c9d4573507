package config

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/value"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/logx"
)

// Catalog описание магазина и автоматов после слияния уровней.
type Catalog struct {
	Entries  []entity.CatalogEntry
	Machines []*entity.GachaMachine
	Messages value.Messages
}

type catalogFile struct {
	Messages        map[string]string          `yaml:"messages"`
	Defaults        entryOverride              `yaml:"defaults"`
	Categories      map[string]entryOverride   `yaml:"categories"`
	Entries         map[string]entryOverride   `yaml:"entries"`
	MachineDefaults machineOverride            `yaml:"machine_defaults"`
	Machines        map[string]machineOverride `yaml:"machines"`
}

// entryOverride один уровень описания позиции. Незаданные поля берутся с
// предыдущего уровня: defaults, затем категория, затем сама позиция.
type entryOverride struct {
	ItemKey     *string  `yaml:"item_key"`
	Category    *string  `yaml:"category"`
	Slot        *int     `yaml:"slot"`
	BuyPrice    *int64   `yaml:"buy_price"`
	BuyPoints   *int64   `yaml:"buy_points"`
	SellPrice   *int64   `yaml:"sell_price"`
	Stock       *int     `yaml:"stock"`
	Enabled     *bool    `yaml:"enabled"`
	DailyLimit  *int     `yaml:"daily_limit"`
	PlayerLimit *int     `yaml:"player_limit"`
	GiveItem    *bool    `yaml:"give_item"`
	Conditions  []string `yaml:"conditions"`
	Commands    []string `yaml:"commands"`
}

type timingsOverride struct {
	Duration      *time.Duration `yaml:"duration"`
	SpinInterval  *time.Duration `yaml:"spin_interval"`
	RevealPause   *time.Duration `yaml:"reveal_pause"`
	TenDrawFactor *float64       `yaml:"ten_draw_factor"`
}

type machineOverride struct {
	Name    *string         `yaml:"name"`
	Cost    *int64          `yaml:"cost"`
	Timings timingsOverride `yaml:"timings"`
	Pity    []pityFile      `yaml:"pity"`
	Rewards []rewardFile    `yaml:"rewards"`
}

type pityFile struct {
	Threshold      int     `yaml:"threshold"`
	MaxProbability float64 `yaml:"max_probability"`
}

type rewardFile struct {
	ID          string  `yaml:"id"`
	ItemKey     string  `yaml:"item_key"`
	Amount      int     `yaml:"amount"`
	Probability float64 `yaml:"probability"`
	Broadcast   bool    `yaml:"broadcast"`
}

func override[T any](base, over *T) *T {
	if over != nil {
		return over
	}

	return base
}

func overrideSlice[T any](base, over []T) []T {
	if over != nil {
		return over
	}

	return base
}

func (o entryOverride) merge(over entryOverride) entryOverride {
	return entryOverride{
		ItemKey:     override(o.ItemKey, over.ItemKey),
		Category:    override(o.Category, over.Category),
		Slot:        override(o.Slot, over.Slot),
		BuyPrice:    override(o.BuyPrice, over.BuyPrice),
		BuyPoints:   override(o.BuyPoints, over.BuyPoints),
		SellPrice:   override(o.SellPrice, over.SellPrice),
		Stock:       override(o.Stock, over.Stock),
		Enabled:     override(o.Enabled, over.Enabled),
		DailyLimit:  override(o.DailyLimit, over.DailyLimit),
		PlayerLimit: override(o.PlayerLimit, over.PlayerLimit),
		GiveItem:    override(o.GiveItem, over.GiveItem),
		Conditions:  overrideSlice(o.Conditions, over.Conditions),
		Commands:    overrideSlice(o.Commands, over.Commands),
	}
}

func (o machineOverride) merge(over machineOverride) machineOverride {
	return machineOverride{
		Name: override(o.Name, over.Name),
		Cost: override(o.Cost, over.Cost),
		Timings: timingsOverride{
			Duration:      override(o.Timings.Duration, over.Timings.Duration),
			SpinInterval:  override(o.Timings.SpinInterval, over.Timings.SpinInterval),
			RevealPause:   override(o.Timings.RevealPause, over.Timings.RevealPause),
			TenDrawFactor: override(o.Timings.TenDrawFactor, over.Timings.TenDrawFactor),
		},
		Pity:    overrideSlice(o.Pity, over.Pity),
		Rewards: overrideSlice(o.Rewards, over.Rewards),
	}
}

// LoadCatalog читает файл каталога. Ошибочные позиции, автоматы и награды
// пропускаются с записью в лог, остальное загружается.
func LoadCatalog(ctx context.Context, path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("os.ReadFile: %w", err)
	}

	return ParseCatalog(ctx, b)
}

func ParseCatalog(ctx context.Context, b []byte) (Catalog, error) {
	var file catalogFile

	if err := yaml.Unmarshal(b, &file); err != nil {
		return Catalog{}, apperr.WrapError(err, errcodes.ConfigurationError, "invalid catalog yaml")
	}

	catalog := Catalog{
		Messages: value.Messages(file.Messages),
	}

	for _, id := range slices.Sorted(maps.Keys(file.Entries)) {
		e, err := file.entry(id)
		if err != nil {
			logger(ctx).Warn("catalog entry skipped", slog.String(logx.FieldEntryID, id), logx.Error(err))
			continue
		}

		catalog.Entries = append(catalog.Entries, e)
	}

	slices.SortStableFunc(catalog.Entries, func(a, b entity.CatalogEntry) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Slot, b.Slot))
	})

	for _, id := range slices.Sorted(maps.Keys(file.Machines)) {
		m, err := file.machine(ctx, id)
		if err != nil {
			logger(ctx).Warn("gacha machine skipped", slog.String(logx.FieldMachineID, id), logx.Error(err))
			continue
		}

		catalog.Machines = append(catalog.Machines, m)
	}

	return catalog, nil
}

func (f catalogFile) entry(id string) (entity.CatalogEntry, error) {
	merged := f.Defaults.merge(f.Entries[id])

	if merged.Category != nil {
		category, ok := f.Categories[*merged.Category]
		if !ok {
			return entity.CatalogEntry{}, invalid("unknown category %q", *merged.Category)
		}

		merged = f.Defaults.merge(category).merge(f.Entries[id])
	}

	e := entity.CatalogEntry{
		ID:          id,
		ItemKey:     lo.FromPtr(merged.ItemKey),
		Category:    lo.FromPtr(merged.Category),
		Slot:        lo.FromPtr(merged.Slot),
		BuyPrice:    lo.FromPtr(merged.BuyPrice),
		BuyPoints:   lo.FromPtr(merged.BuyPoints),
		SellPrice:   lo.FromPtr(merged.SellPrice),
		Stock:       lo.FromPtrOr(merged.Stock, entity.UnlimitedStock),
		Enabled:     lo.FromPtrOr(merged.Enabled, true),
		DailyLimit:  lo.FromPtr(merged.DailyLimit),
		PlayerLimit: lo.FromPtr(merged.PlayerLimit),
		GiveItem:    lo.FromPtrOr(merged.GiveItem, true),
		Commands:    merged.Commands,
	}

	switch {
	case e.ItemKey == "":
		return entity.CatalogEntry{}, invalid("item_key is required")
	case e.BuyPrice < 0 || e.BuyPoints < 0 || e.SellPrice < 0:
		return entity.CatalogEntry{}, invalid("prices must not be negative")
	case e.Stock < entity.UnlimitedStock:
		return entity.CatalogEntry{}, invalid("stock %d is below %d", e.Stock, entity.UnlimitedStock)
	case e.DailyLimit < 0 || e.PlayerLimit < 0:
		return entity.CatalogEntry{}, invalid("limits must not be negative")
	}

	for _, raw := range merged.Conditions {
		c, err := value.ParseCondition(raw)
		if err != nil {
			return entity.CatalogEntry{}, apperr.WrapError(err, errcodes.ConfigurationError, err.Error())
		}

		e.Conditions = append(e.Conditions, c)
	}

	return e, nil
}

func (f catalogFile) machine(ctx context.Context, id string) (*entity.GachaMachine, error) {
	merged := f.MachineDefaults.merge(f.Machines[id])

	cost := lo.FromPtr(merged.Cost)
	if cost < 0 {
		return nil, invalid("cost %d must not be negative", cost)
	}

	rewards := make([]entity.RewardEntry, 0, len(merged.Rewards))

	for i, r := range merged.Rewards {
		reward := entity.RewardEntry{
			ID:          cmp.Or(r.ID, fmt.Sprintf("%s-%d", id, i)),
			ItemKey:     r.ItemKey,
			Amount:      max(r.Amount, 1),
			Probability: r.Probability,
			Broadcast:   r.Broadcast,
		}

		// NaN не проходит ни одно сравнение.
		if reward.ItemKey == "" || !(reward.Probability > 0 && reward.Probability <= 1) {
			logger(ctx).Warn("gacha reward skipped",
				slog.String(logx.FieldMachineID, id),
				slog.String(logx.FieldRewardID, reward.ID),
			)

			continue
		}

		rewards = append(rewards, reward)
	}

	rules := make([]entity.PityRule, 0, len(merged.Pity))

	for _, p := range merged.Pity {
		if p.Threshold <= 0 || p.MaxProbability <= 0 {
			logger(ctx).Warn("pity rule skipped",
				slog.String(logx.FieldMachineID, id),
				slog.Int("threshold", p.Threshold),
			)

			continue
		}

		rules = append(rules, entity.PityRule{Threshold: p.Threshold, MaxProbability: p.MaxProbability})
	}

	timings := entity.AnimationTimings{
		Duration:      lo.FromPtr(merged.Timings.Duration),
		SpinInterval:  lo.FromPtr(merged.Timings.SpinInterval),
		RevealPause:   lo.FromPtr(merged.Timings.RevealPause),
		TenDrawFactor: lo.FromPtr(merged.Timings.TenDrawFactor),
	}

	return entity.NewGachaMachine(id, cmp.Or(lo.FromPtr(merged.Name), id), cost, timings, rewards, rules), nil
}

func invalid(format string, args ...any) error {
	return apperr.NewError(errcodes.ConfigurationError, fmt.Sprintf(format, args...))
}
