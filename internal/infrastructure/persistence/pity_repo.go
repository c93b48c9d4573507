package persistence

import (
	"context"
	"slices"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

type PityRepository struct {
	base
}

func NewPityRepository(db *sqlx.DB, opts ...Option) *PityRepository {
	return &PityRepository{base: newBase(db, opts...)}
}

// Counters возвращает все счётчики игрока по автомату, включая счётчики
// удалённых из конфига правил.
func (r *PityRepository) Counters(ctx context.Context, actorID, machineID string) (entity.PityCounters, error) {
	var rows []struct {
		RuleHash  string `db:"rule_hash"`
		DrawCount int    `db:"draw_count"`
	}

	err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, `
		SELECT rule_hash, draw_count FROM gacha_pity
		WHERE actor_id = $1 AND machine_id = $2`, actorID, machineID)
	if err != nil {
		return nil, apperr.WrapError(err, errcodes.StoreError, "failed to read pity counters")
	}

	counters := make(entity.PityCounters, len(rows))
	for _, row := range rows {
		counters[row.RuleHash] = row.DrawCount
	}

	return counters, nil
}

// SaveCounters записывает счётчики одной транзакцией.
func (r *PityRepository) SaveCounters(
	ctx context.Context,
	actorID, machineID string,
	counters entity.PityCounters,
) error {
	if len(counters) == 0 {
		return nil
	}

	hashes := lo.Keys(counters)
	slices.Sort(hashes)

	now := r.now()

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, hash := range hashes {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO gacha_pity (actor_id, machine_id, rule_hash, draw_count, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (actor_id, machine_id, rule_hash) DO UPDATE SET
					draw_count = EXCLUDED.draw_count,
					updated_at = EXCLUDED.updated_at`,
				actorID, machineID, hash, counters[hash], now)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to save pity counters")
	}

	return nil
}
