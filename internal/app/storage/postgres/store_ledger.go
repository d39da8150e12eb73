package postgres

import (
	"context"
	"database/sql"

	"github.com/starvault/casebot/internal/app/domain/ledger"
)

// --- LedgerStore -----------------------------------------------------------

func (s *Store) CreditIfAbsent(ctx context.Context, entry ledger.Entry) (ledger.Entry, bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (user_id, item_id, nonce, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, item_id, nonce) DO NOTHING
	`, entry.UserID, entry.ItemID, entry.Nonce, entry.Amount, entry.CreatedAt)
	if err != nil {
		return ledger.Entry{}, false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ledger.Entry{}, false, err
	}
	if rows > 0 {
		return entry, true, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, item_id, nonce, amount, created_at
		FROM ledger_entries
		WHERE user_id = $1 AND item_id = $2 AND nonce = $3
	`, entry.UserID, entry.ItemID, entry.Nonce)

	var existing ledger.Entry
	if err := row.Scan(&existing.UserID, &existing.ItemID, &existing.Nonce, &existing.Amount, &existing.CreatedAt); err != nil {
		return ledger.Entry{}, false, err
	}
	existing.CreatedAt = existing.CreatedAt.UTC()
	return existing, false, nil
}

func (s *Store) Balance(ctx context.Context, userID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1
	`, userID)

	var total sql.NullInt64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total.Int64, nil
}
