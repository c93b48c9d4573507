package persistence

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

// RecordRepository журнал покупок, продаж и прокруток.
type RecordRepository struct {
	base
}

func NewRecordRepository(db *sqlx.DB, opts ...Option) *RecordRepository {
	return &RecordRepository{base: newBase(db, opts...)}
}

func (r *RecordRepository) LogTransaction(ctx context.Context, rec entity.TransactionRecord) error {
	query := `
		INSERT INTO transactions (id, actor_id, actor_name, entry_id, item_key, amount, price, points, type, created_at)
		VALUES (:id, :actor_id, :actor_name, :entry_id, :item_key, :amount, :price, :points, :type, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, r.conn(ctx), query, fromTransaction(rec)); err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to log transaction")
	}

	return nil
}

// LogDraws пишет записи одной прокрутки (или серии) атомарно.
func (r *RecordRepository) LogDraws(ctx context.Context, recs []entity.DrawRecord) error {
	if len(recs) == 0 {
		return nil
	}

	query := `
		INSERT INTO gacha_records (id, draw_id, actor_id, actor_name, machine_id, reward_id, item_key, amount, cost, pity_rule, created_at)
		VALUES (:id, :draw_id, :actor_id, :actor_name, :machine_id, :reward_id, :item_key, :amount, :cost, :pity_rule, :created_at)`

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, rec := range recs {
			if _, err := tx.NamedExecContext(ctx, query, fromDraw(rec)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.WrapError(err, errcodes.StoreError, "failed to log draws")
	}

	return nil
}

// ListTransactions последние записи игрока, новые первыми.
func (r *RecordRepository) ListTransactions(
	ctx context.Context,
	actorID string,
	limit int,
) ([]entity.TransactionRecord, error) {
	var rows []transactionSchema

	err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, `
		SELECT id, actor_id, actor_name, entry_id, item_key, amount, price, points, type, created_at
		FROM transactions
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, actorID, limit)
	if err != nil {
		return nil, apperr.WrapError(err, errcodes.StoreError, "failed to list transactions")
	}

	out := make([]entity.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *RecordRepository) ListDraws(ctx context.Context, actorID string, limit int) ([]entity.DrawRecord, error) {
	var rows []drawSchema

	err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, `
		SELECT id, draw_id, actor_id, actor_name, machine_id, reward_id, item_key, amount, cost, pity_rule, created_at
		FROM gacha_records
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, actorID, limit)
	if err != nil {
		return nil, apperr.WrapError(err, errcodes.StoreError, "failed to list draws")
	}

	out := make([]entity.DrawRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *RecordRepository) DeleteTransactionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM transactions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, apperr.WrapError(err, errcodes.StoreError, "failed to cleanup transactions")
	}

	return res.RowsAffected()
}

func (r *RecordRepository) DeleteDrawsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM gacha_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, apperr.WrapError(err, errcodes.StoreError, "failed to cleanup draws")
	}

	return res.RowsAffected()
}
