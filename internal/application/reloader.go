package application

import (
	"context"
	"fmt"
	"log/slog"

	"goods_market/internal/config"
	"goods_market/internal/domain/entity"
	"goods_market/internal/domain/service/gacha"
)

type catalogAdmin interface {
	Reload(ctx context.Context, defs []entity.CatalogEntry) error
}

// catalogReloader перечитывает файл каталога: позиции обновляются с
// сохранением остатков, автоматы заменяются целиком.
type catalogReloader struct {
	path     string
	admin    catalogAdmin
	machines *gacha.Machines
}

func newCatalogReloader(path string, admin catalogAdmin, machines *gacha.Machines) *catalogReloader {
	return &catalogReloader{
		path:     path,
		admin:    admin,
		machines: machines,
	}
}

func (r *catalogReloader) Reload(ctx context.Context) error {
	definitions, err := config.LoadCatalog(ctx, r.path)
	if err != nil {
		return fmt.Errorf("config.LoadCatalog: %w", err)
	}

	if err := r.admin.Reload(ctx, definitions.Entries); err != nil {
		return fmt.Errorf("admin.Reload: %w", err)
	}

	r.machines.Replace(definitions.Machines)

	logger(ctx).Info("catalog reloaded",
		slog.Int("entries", len(definitions.Entries)),
		slog.Int("machines", len(definitions.Machines)),
	)

	return nil
}
