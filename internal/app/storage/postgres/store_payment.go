package postgres

import (
	"context"
	"database/sql"

	"github.com/starvault/casebot/internal/app/domain/payment"
	"github.com/starvault/casebot/internal/app/storage"
)

// --- PaymentStore --------------------------------------------------------

func (s *Store) PutIfAbsent(ctx context.Context, record payment.Record) (payment.Record, bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_records (telegram_payment_charge_id, provider_payment_charge_id, invoice_payload, currency, total_amount, user_id, status, awarded_item_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (telegram_payment_charge_id) DO NOTHING
	`, record.TelegramPaymentChargeID, record.ProviderPaymentChargeID, record.InvoicePayload, record.Currency, record.TotalAmount, record.UserID, record.Status, toNullString(record.AwardedItemID), record.CreatedAt)
	if err != nil {
		return payment.Record{}, false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return payment.Record{}, false, err
	}

	existing, err := s.Get(ctx, record.TelegramPaymentChargeID)
	if err != nil {
		return payment.Record{}, false, err
	}
	return *existing, rows > 0, nil
}

func (s *Store) Get(ctx context.Context, chargeID string) (*payment.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT telegram_payment_charge_id, provider_payment_charge_id, invoice_payload, currency, total_amount, user_id, status, awarded_item_id, created_at
		FROM payment_records
		WHERE telegram_payment_charge_id = $1
	`, chargeID)

	record, err := scanPaymentRecord(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *Store) UpdateStatus(ctx context.Context, chargeID string, status payment.Status, awardedItemID *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE payment_records
		SET status = $2, awarded_item_id = COALESCE($3, awarded_item_id)
		WHERE telegram_payment_charge_id = $1
	`, chargeID, status, toNullString(awardedItemID))
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanPaymentRecord(scanner rowScanner) (payment.Record, error) {
	var (
		record        payment.Record
		providerID    sql.NullString
		awardedItemID sql.NullString
	)
	if err := scanner.Scan(&record.TelegramPaymentChargeID, &providerID, &record.InvoicePayload, &record.Currency, &record.TotalAmount, &record.UserID, &record.Status, &awardedItemID, &record.CreatedAt); err != nil {
		return payment.Record{}, err
	}
	record.ProviderPaymentChargeID = providerID.String
	record.AwardedItemID = fromNullString(awardedItemID)
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}
