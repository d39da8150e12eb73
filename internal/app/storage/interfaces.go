// Package storage defines the persistence abstraction (C13): one interface
// per store, implemented by in-memory, file, Postgres, or Redis variants
// selected purely by configuration — no runtime downcasting.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/starvault/casebot/internal/app/domain/banlist"
	"github.com/starvault/casebot/internal/app/domain/ledger"
	"github.com/starvault/casebot/internal/app/domain/payment"
	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/domain/rng"
)

// ErrAlreadyRevealed is returned by RNGStore.Reveal when the day's commit was
// already revealed with a different server seed.
var ErrAlreadyRevealed = errors.New("storage: seed already revealed")

// ErrNoCommit is returned by RNGStore.Reveal when dayUTC has no prior commit.
var ErrNoCommit = errors.New("storage: no commit for day")

// ErrNotFound is returned when an update or lookup targets a record that
// does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrCASConflict is returned by distributed store variants when a
// compare-and-set write could not land after their bounded retry budget,
// indicating sustained contention for one key.
var ErrCASConflict = errors.New("storage: compare-and-set conflict")

// BucketCompute is the read-modify-write function a BucketStore runs under
// per-key mutual exclusion: given the prior state (nil if absent/expired) and
// now, it returns the new state to persist and a caller-defined result.
type BucketCompute func(prior *ratelimit.State, nowMs int64) (next ratelimit.State, decision ratelimit.Decision)

// BucketStore is the pluggable backend for the token bucket (C2). Compute
// runs fn atomically for key: the implementation is responsible for the
// mutual-exclusion and TTL-eviction contract described in §4.1 and §9
// ("fine-grained per-key mutexes created lazily... GC of idle locks tied to
// TTL expiration").
type BucketStore interface {
	Compute(ctx context.Context, key string, ttl time.Duration, now time.Time, fn BucketCompute) (ratelimit.Decision, error)
}

// VelocityStore maintains sliding-window counters keyed by an arbitrary
// string (IP, subject, IP×UA, ...). Increment records one event at now and
// returns the count of events still inside window; Distinct records a
// (subject, token) pair (used for UA-mismatch detection) and returns the
// number of distinct tokens seen for subject within ttl.
type VelocityStore interface {
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)
	Distinct(ctx context.Context, subject, token string, now time.Time, ttl time.Duration) (int64, error)
}

// BanStore persists IP ban entries (C4).
type BanStore interface {
	Ban(ctx context.Context, entry banlist.Entry) error
	Unban(ctx context.Context, ip string) error
	Get(ctx context.Context, ip string) (*banlist.Entry, error)
	List(ctx context.Context) ([]banlist.Entry, error)
}

// RNGStore persists seed commits and the idempotent draw journal (C9).
// Implementations must honor the (caseId,userId,nonce) uniqueness contract
// via a unique index or equivalent.
type RNGStore interface {
	GetCommit(ctx context.Context, dayUTC string) (*rng.SeedCommit, error)
	// PutCommitIfAbsent inserts commit only if no commit exists yet for its
	// day; returns the stored commit either way (first-writer wins, §4.7).
	PutCommitIfAbsent(ctx context.Context, commit rng.SeedCommit) (rng.SeedCommit, error)
	// Reveal writes serverSeed into the existing commit for dayUTC. Returns
	// ErrAlreadyRevealed if a different seed was already recorded.
	Reveal(ctx context.Context, dayUTC string, serverSeed string, revealedAt time.Time) error

	GetDraw(ctx context.Context, caseID, userID, nonce string) (*rng.DrawRecord, error)
	// PutDrawIfAbsent journals draw only if its idempotency key is unseen;
	// returns the stored (possibly pre-existing) record.
	PutDrawIfAbsent(ctx context.Context, draw rng.DrawRecord) (rng.DrawRecord, bool, error)
}

// PaymentStore persists payment records, the sole writer being the payment
// state machine (C10).
type PaymentStore interface {
	// PutIfAbsent inserts record only if no record exists for its charge id;
	// returns the stored (possibly pre-existing) record and whether it was
	// newly inserted.
	PutIfAbsent(ctx context.Context, record payment.Record) (payment.Record, bool, error)
	Get(ctx context.Context, chargeID string) (*payment.Record, error)
	UpdateStatus(ctx context.Context, chargeID string, status payment.Status, awardedItemID *string) error
}

// LedgerStore persists internal-balance credits for the INTERNAL prize kind
// (§4.8 step 4). Idempotent on (UserID, ItemID, Nonce), the same shape as
// the RNG draw journal.
type LedgerStore interface {
	// CreditIfAbsent posts entry only if its idempotency key is unseen;
	// returns the stored (possibly pre-existing) entry and whether it was
	// newly inserted.
	CreditIfAbsent(ctx context.Context, entry ledger.Entry) (ledger.Entry, bool, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

// DedupStore backs the update queue's (C5) at-most-once admission check.
type DedupStore interface {
	// SeenOrMark returns true if updateID was already present (and leaves the
	// store unchanged), or marks it as seen with the given TTL and returns
	// false.
	SeenOrMark(ctx context.Context, updateID int64, now time.Time, ttl time.Duration) (bool, error)
}
