package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, wallet_id, transaction_ref, entry_type, amount, balance_before, balance_after, description, created_at`

// LedgerRepo implements ports.LedgerRepository. Entries are insert-only.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a ledger entry within a database transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, e.TransactionRef, e.EntryType, e.Amount,
		e.BalanceBefore, e.BalanceAfter, e.Description, e.CreatedAt,
	)
	if err != nil {
		return translate("insert ledger entry", err)
	}
	return nil
}

// ListByWallet returns a page of a wallet's entries, newest first, with the total count.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE wallet_id = $1`, walletID).Scan(&total); err != nil {
		return nil, 0, translate("count ledger entries", err)
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	entries, err := r.list(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListByReference returns the entries a transaction produced, debit first.
func (r *LedgerRepo) ListByReference(ctx context.Context, reference string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE transaction_ref = $1
		ORDER BY entry_type DESC, created_at ASC`

	return r.list(ctx, query, reference)
}

// Summarize aggregates a wallet's credits and debits and reads the latest balance_after.
func (r *LedgerRepo) Summarize(ctx context.Context, walletID uuid.UUID) (*ports.LedgerSummary, error) {
	query := `SELECT
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'credit'), 0),
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'debit'), 0),
			COUNT(*),
			(SELECT balance_after FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1)
		FROM ledger_entries WHERE wallet_id = $1`

	s := &ports.LedgerSummary{}
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&s.Credits, &s.Debits, &s.EntryCount, &s.LastBalanceAfter); err != nil {
		return nil, translate("summarize ledger", err)
	}
	return s, nil
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list ledger entries", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.WalletID, &e.TransactionRef, &e.EntryType, &e.Amount,
			&e.BalanceBefore, &e.BalanceAfter, &e.Description, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
