package postgres

import (
	"context"
	"database/sql"

	"github.com/starvault/casebot/internal/app/domain/banlist"
)

// --- BanStore ------------------------------------------------------------

func (s *Store) Ban(ctx context.Context, entry banlist.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ip_bans (ip, reason, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ip) DO UPDATE
		SET reason = EXCLUDED.reason, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
	`, entry.IP, entry.Reason, entry.CreatedAt, toNullTime(entry.ExpiresAt))
	return err
}

func (s *Store) Unban(ctx context.Context, ip string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ip_bans WHERE ip = $1`, ip)
	return err
}

func (s *Store) Get(ctx context.Context, ip string) (*banlist.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ip, reason, created_at, expires_at
		FROM ip_bans
		WHERE ip = $1
	`, ip)

	entry, err := scanBanEntry(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (s *Store) List(ctx context.Context) ([]banlist.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ip, reason, created_at, expires_at
		FROM ip_bans
		ORDER BY ip
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []banlist.Entry
	for rows.Next() {
		entry, err := scanBanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanBanEntry(scanner rowScanner) (banlist.Entry, error) {
	var (
		entry     banlist.Entry
		expiresAt sql.NullTime
	)
	if err := scanner.Scan(&entry.IP, &entry.Reason, &entry.CreatedAt, &expiresAt); err != nil {
		return banlist.Entry{}, err
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.ExpiresAt = fromNullTime(expiresAt)
	return entry, nil
}
