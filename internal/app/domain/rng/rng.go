// Package rng defines the provably-fair commit/reveal/draw data model (C9).
package rng

import "time"

// SeedCommit is the per-UTC-day commitment to a server seed. ServerSeed and
// RevealedAt are populated only after Reveal.
type SeedCommit struct {
	DayUTC         string
	ServerSeedHash string
	CommittedAt    time.Time
	ServerSeed     string
	RevealedAt     *time.Time
}

// Revealed reports whether the seed for this day has been disclosed.
func (c SeedCommit) Revealed() bool { return c.RevealedAt != nil }

// DrawRecord is one journaled draw. Idempotency key: (CaseID, UserID, Nonce).
// Immutable once written.
type DrawRecord struct {
	CaseID         string
	UserID         string
	Nonce          string
	ServerSeedHash string
	RollHex        string
	PPM            int
	ResultItemID   string
	CreatedAt      time.Time
}
