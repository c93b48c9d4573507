package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

type LimitRepository struct {
	base
}

func NewLimitRepository(db *sqlx.DB, opts ...Option) *LimitRepository {
	return &LimitRepository{base: newBase(db, opts...)}
}

// Today текущая дата в формате дневного лимита.
func (r *LimitRepository) Today() string {
	return r.now().Format(entity.DateLayout)
}

// TryIncrementDaily увеличивает дневной счётчик одним условным upsert'ом.
// Счётчик за прошлый день считается нулевым. Возвращает false, если новое
// значение превысит limit; в этом случае ничего не пишется. Конкурентная
// первая вставка уходит в ветку ON CONFLICT и проверяется там же.
func (r *LimitRepository) TryIncrementDaily(
	ctx context.Context,
	actorID, entryID string,
	amount, limit int,
) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	if amount > limit {
		return false, nil
	}

	res, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO daily_limits (actor_id, entry_id, buy_count, last_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor_id, entry_id) DO UPDATE SET
			buy_count = CASE WHEN daily_limits.last_date = EXCLUDED.last_date
				THEN daily_limits.buy_count + EXCLUDED.buy_count
				ELSE EXCLUDED.buy_count END,
			last_date = EXCLUDED.last_date
		WHERE CASE WHEN daily_limits.last_date = EXCLUDED.last_date
			THEN daily_limits.buy_count + EXCLUDED.buy_count
			ELSE EXCLUDED.buy_count END <= $5`,
		actorID, entryID, amount, r.Today(), limit)
	if err != nil {
		return false, apperr.WrapError(err, errcodes.StoreError, "failed to update daily limit")
	}

	return applied(res)
}

// TryIncrementLifetime то же, что TryIncrementDaily, но без сброса по дате.
func (r *LimitRepository) TryIncrementLifetime(
	ctx context.Context,
	actorID, entryID string,
	amount, limit int,
) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	if amount > limit {
		return false, nil
	}

	res, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO player_limits (actor_id, entry_id, buy_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (actor_id, entry_id) DO UPDATE SET
			buy_count = player_limits.buy_count + EXCLUDED.buy_count
		WHERE player_limits.buy_count + EXCLUDED.buy_count <= $4`,
		actorID, entryID, amount, limit)
	if err != nil {
		return false, apperr.WrapError(err, errcodes.StoreError, "failed to update player limit")
	}

	return applied(res)
}

// applied сообщает, записал ли условный upsert строку.
func applied(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperr.WrapError(err, errcodes.StoreError, "failed to read affected rows")
	}

	return affected > 0, nil
}

// Daily возвращает дневной счётчик; отсутствие строки даёт нулевой счётчик.
func (r *LimitRepository) Daily(ctx context.Context, actorID, entryID string) (entity.DailyLimit, error) {
	var row dailyLimitSchema

	err := sqlx.GetContext(ctx, r.conn(ctx), &row, `
		SELECT actor_id, entry_id, buy_count, last_date
		FROM daily_limits
		WHERE actor_id = $1 AND entry_id = $2`, actorID, entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.DailyLimit{ActorID: actorID, EntryID: entryID}, nil
	}
	if err != nil {
		return entity.DailyLimit{}, apperr.WrapError(err, errcodes.StoreError, "failed to read daily limit")
	}

	return entity.DailyLimit{
		ActorID:  row.ActorID,
		EntryID:  row.EntryID,
		Count:    row.BuyCount,
		LastDate: row.LastDate,
	}, nil
}

func (r *LimitRepository) Lifetime(ctx context.Context, actorID, entryID string) (entity.LifetimeLimit, error) {
	limit := entity.LifetimeLimit{ActorID: actorID, EntryID: entryID}

	err := sqlx.GetContext(ctx, r.conn(ctx), &limit.Count, `
		SELECT buy_count FROM player_limits
		WHERE actor_id = $1 AND entry_id = $2`, actorID, entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return limit, nil
	}
	if err != nil {
		return entity.LifetimeLimit{}, apperr.WrapError(err, errcodes.StoreError, "failed to read player limit")
	}

	return limit, nil
}

// ResetLifetime удаляет счётчик покупок за всё время. Пустой entryID
// сбрасывает все позиции игрока.
func (r *LimitRepository) ResetLifetime(ctx context.Context, actorID, entryID string) (int64, error) {
	query := `DELETE FROM player_limits WHERE actor_id = $1 AND entry_id = $2`
	args := []any{actorID, entryID}

	if entryID == "" {
		query = `DELETE FROM player_limits WHERE actor_id = $1`
		args = args[:1]
	}

	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperr.WrapError(err, errcodes.StoreError, "failed to reset player limit")
	}

	return res.RowsAffected()
}

// DeleteDailyBefore удаляет дневные счётчики с датой раньше cutoff.
// Формат даты лексикографически упорядочен.
func (r *LimitRepository) DeleteDailyBefore(ctx context.Context, cutoff string) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM daily_limits WHERE last_date < $1`, cutoff)
	if err != nil {
		return 0, apperr.WrapError(err, errcodes.StoreError, "failed to cleanup daily limits")
	}

	return res.RowsAffected()
}
