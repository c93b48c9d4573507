package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

const catalogColumns = `id, item_key, buy_price, buy_points, sell_price, stock, category, slot,
	enabled, daily_limit, player_limit, give_item, conditions, commands, updated_at`

type CatalogRepository struct {
	base
}

func NewCatalogRepository(db *sqlx.DB, opts ...Option) *CatalogRepository {
	return &CatalogRepository{base: newBase(db, opts...)}
}

// List возвращает все позиции каталога, включая выключенные.
func (r *CatalogRepository) List(ctx context.Context) ([]entity.CatalogEntry, error) {
	var rows []catalogEntrySchema

	query := `SELECT ` + catalogColumns + ` FROM catalog_entries ORDER BY category, slot, id`
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, query); err != nil {
		return nil, apperr.WrapError(err, errcodes.StoreError, "failed to list catalog")
	}

	entries := make([]entity.CatalogEntry, 0, len(rows))

	for i := range rows {
		e, err := rows[i].toDomain()
		if err != nil {
			return nil, apperr.WrapError(err, errcodes.StoreError,
				fmt.Sprintf("failed to decode entry %s", rows[i].ID))
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*entity.CatalogEntry, error) {
	var row catalogEntrySchema

	query := `SELECT ` + catalogColumns + ` FROM catalog_entries WHERE id = $1`

	err := sqlx.GetContext(ctx, r.conn(ctx), &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewError(errcodes.EntryNotFound, fmt.Sprintf("entry %s not found", id))
	}
	if err != nil {
		return nil, apperr.WrapError(err, errcodes.StoreError, "failed to get entry")
	}

	e, err := row.toDomain()
	if err != nil {
		return nil, apperr.WrapError(err, errcodes.StoreError, "failed to decode entry")
	}

	return &e, nil
}

// Upsert синхронизирует определение позиции с конфигом. Остаток существующей
// записи не трогается; возвращается сохранённое значение остатка.
func (r *CatalogRepository) Upsert(ctx context.Context, e *entity.CatalogEntry) (int, error) {
	row, err := fromCatalogEntry(e)
	if err != nil {
		return 0, apperr.WrapError(err, errcodes.ValidationError, "failed to encode entry")
	}

	query := `
		INSERT INTO catalog_entries (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			item_key = EXCLUDED.item_key,
			buy_price = EXCLUDED.buy_price,
			buy_points = EXCLUDED.buy_points,
			sell_price = EXCLUDED.sell_price,
			category = EXCLUDED.category,
			slot = EXCLUDED.slot,
			enabled = EXCLUDED.enabled,
			daily_limit = EXCLUDED.daily_limit,
			player_limit = EXCLUDED.player_limit,
			give_item = EXCLUDED.give_item,
			conditions = EXCLUDED.conditions,
			commands = EXCLUDED.commands,
			updated_at = EXCLUDED.updated_at
		RETURNING stock`

	var stock int

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &stock, query, row.args(r.now())...)
	})
	if err != nil {
		return 0, apperr.WrapError(err, errcodes.StoreError, "failed to upsert entry")
	}

	return stock, nil
}

// Save полностью перезаписывает позицию, включая остаток.
func (r *CatalogRepository) Save(ctx context.Context, e *entity.CatalogEntry) error {
	row, err := fromCatalogEntry(e)
	if err != nil {
		return apperr.WrapError(err, errcodes.ValidationError, "failed to encode entry")
	}

	query := `
		INSERT INTO catalog_entries (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			item_key = EXCLUDED.item_key,
			buy_price = EXCLUDED.buy_price,
			buy_points = EXCLUDED.buy_points,
			sell_price = EXCLUDED.sell_price,
			stock = EXCLUDED.stock,
			category = EXCLUDED.category,
			slot = EXCLUDED.slot,
			enabled = EXCLUDED.enabled,
			daily_limit = EXCLUDED.daily_limit,
			player_limit = EXCLUDED.player_limit,
			give_item = EXCLUDED.give_item,
			conditions = EXCLUDED.conditions,
			commands = EXCLUDED.commands,
			updated_at = EXCLUDED.updated_at`

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, row.args(r.now())...)
		return err
	})
	if err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to save entry")
	}

	return nil
}

// ReduceStock атомарно списывает amount единиц. Блокирует строку, проверяет
// остаток и уменьшает его условным UPDATE. Reserved == 0 означает отказ:
// позиции нет, она выключена, остатка не хватает или строку изменили
// параллельно. Для бесконечного остатка возвращает amount без записи.
func (r *CatalogRepository) ReduceStock(ctx context.Context, id string, amount int) (entity.StockChange, error) {
	change := entity.StockChange{EntryID: id}
	if amount <= 0 {
		return change, nil
	}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var stock int

		err := tx.GetContext(ctx, &stock,
			`SELECT stock FROM catalog_entries WHERE id = $1 AND enabled = TRUE FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return errRollback
		}
		if err != nil {
			return apperr.WrapError(err, errcodes.StoreError, "failed to lock stock")
		}

		change.Stock = stock

		if stock < 0 {
			change.Reserved = amount
			return nil
		}

		if stock < amount {
			return errRollback
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE catalog_entries SET stock = stock - $1, updated_at = $2 WHERE id = $3 AND stock >= $1`,
			amount, r.now(), id)
		if err != nil {
			return apperr.WrapError(err, errcodes.StoreError, "failed to reduce stock")
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return apperr.WrapError(err, errcodes.StoreError, "failed to reduce stock")
		}

		if affected == 0 {
			return errRollback
		}

		change.Reserved = amount
		change.Stock = stock - amount

		return nil
	})

	if errors.Is(err, errRollback) {
		change.Reserved = 0
		return change, nil
	}
	if err != nil {
		return entity.StockChange{EntryID: id}, err
	}

	return change, nil
}

// IncreaseStock возвращает amount единиц на склад. Бесконечный остаток
// не меняется.
func (r *CatalogRepository) IncreaseStock(ctx context.Context, id string, amount int) (entity.StockChange, error) {
	change := entity.StockChange{EntryID: id, Reserved: amount}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &change.Stock, `
			UPDATE catalog_entries
			SET stock = CASE WHEN stock < 0 THEN stock ELSE stock + $1 END, updated_at = $2
			WHERE id = $3
			RETURNING stock`, amount, r.now(), id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return entity.StockChange{EntryID: id}, apperr.NewError(errcodes.EntryNotFound,
			fmt.Sprintf("entry %s not found", id))
	}
	if err != nil {
		return entity.StockChange{EntryID: id}, apperr.WrapError(err, errcodes.StoreError, "failed to increase stock")
	}

	return change, nil
}

func (r *CatalogRepository) SetStock(ctx context.Context, id string, stock int) error {
	var affected int64

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE catalog_entries SET stock = $1, updated_at = $2 WHERE id = $3`, stock, r.now(), id)
		if err != nil {
			return err
		}

		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to set stock")
	}

	if affected == 0 {
		return apperr.NewError(errcodes.EntryNotFound, fmt.Sprintf("entry %s not found", id))
	}

	return nil
}

func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries WHERE id = $1`, id)
		if err != nil {
			return err
		}

		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to delete entry")
	}

	if affected == 0 {
		return apperr.NewError(errcodes.EntryNotFound, fmt.Sprintf("entry %s not found", id))
	}

	return nil
}

// Stocks возвращает текущие остатки всех позиций.
func (r *CatalogRepository) Stocks(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		ID    string `db:"id"`
		Stock int    `db:"stock"`
	}

	if err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, `SELECT id, stock FROM catalog_entries`); err != nil {
		return nil, apperr.WrapError(err, errcodes.StoreError, "failed to read stocks")
	}

	stocks := make(map[string]int, len(rows))
	for _, row := range rows {
		stocks[row.ID] = row.Stock
	}

	return stocks, nil
}
