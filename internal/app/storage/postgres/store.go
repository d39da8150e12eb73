// Package postgres implements the storage interfaces (C13) against
// PostgreSQL, grounded on the teacher's raw database/sql style.
package postgres

import (
	"database/sql"
	"time"

	"github.com/starvault/casebot/internal/app/storage"
)

// Store implements storage.RNGStore, storage.PaymentStore and
// storage.BanStore backed by a single *sql.DB.
type Store struct {
	db *sql.DB
}

var _ storage.RNGStore = (*Store)(nil)
var _ storage.PaymentStore = (*Store)(nil)
var _ storage.BanStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}
