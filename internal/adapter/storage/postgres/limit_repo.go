package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const limitColumns = `id, user_id, limit_date, daily_limit, daily_spent, single_transaction_limit,
		daily_transaction_count, max_daily_transactions, created_at, updated_at`

// LimitRepo implements ports.LimitRepository. One row per user per day.
type LimitRepo struct {
	pool Pool
}

// NewLimitRepo creates a new LimitRepo.
func NewLimitRepo(pool Pool) *LimitRepo {
	return &LimitRepo{pool: pool}
}

// GetForUpdate creates the day's row from defaults if missing, then locks it.
func (r *LimitRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day time.Time, defaults ports.LimitDefaults) (*domain.TransactionLimit, error) {
	insert := `INSERT INTO transaction_limits (id, user_id, limit_date, daily_limit, daily_spent,
		single_transaction_limit, daily_transaction_count, max_daily_transactions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, 0, $6, NOW(), NOW())
		ON CONFLICT (user_id, limit_date) DO NOTHING`

	if _, err := tx.Exec(ctx, insert, uuid.New(), userID, day,
		defaults.DailyLimit, defaults.SingleTransactionLimit, defaults.MaxDailyTransactions); err != nil {
		return nil, translate("seed transaction limit", err)
	}

	query := `SELECT ` + limitColumns + ` FROM transaction_limits
		WHERE user_id = $1 AND limit_date = $2 FOR UPDATE`

	l, err := scanLimit(tx.QueryRow(ctx, query, userID, day))
	if err != nil {
		return nil, translate("get transaction limit for update", err)
	}
	if l == nil {
		return nil, fmt.Errorf("transaction limit missing after seed: user %s", userID)
	}
	return l, nil
}

// Get reads the day's row without locking. Returns nil if the user has not transacted that day.
func (r *LimitRepo) Get(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.TransactionLimit, error) {
	query := `SELECT ` + limitColumns + ` FROM transaction_limits WHERE user_id = $1 AND limit_date = $2`

	l, err := scanLimit(r.pool.QueryRow(ctx, query, userID, day))
	if err != nil {
		return nil, translate("get transaction limit", err)
	}
	return l, nil
}

// AddUsage books a completed debit against the day's row.
func (r *LimitRepo) AddUsage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day time.Time, amount int64) error {
	query := `UPDATE transaction_limits
		SET daily_spent = daily_spent + $1, daily_transaction_count = daily_transaction_count + 1, updated_at = NOW()
		WHERE user_id = $2 AND limit_date = $3`

	tag, err := tx.Exec(ctx, query, amount, userID, day)
	if err != nil {
		return translate("add limit usage", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction limit not found: user %s", userID)
	}
	return nil
}

func scanLimit(row pgx.Row) (*domain.TransactionLimit, error) {
	l := &domain.TransactionLimit{}
	err := row.Scan(
		&l.ID, &l.UserID, &l.LimitDate, &l.DailyLimit, &l.DailySpent, &l.SingleTransactionLimit,
		&l.DailyTransactionCount, &l.MaxDailyTransactions, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}
