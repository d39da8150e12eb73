// Package ledger defines the internal-credit data model backing the
// INTERNAL prize kind (§4.8 step 4): a prize that has no external platform
// counterpart is recorded as a balance credit instead of dispatched to the
// chat platform.
package ledger

import "time"

// Entry is one credit posted to a user's internal balance, idempotent on
// (UserID, ItemID, Nonce) the same way a payment draw is idempotent on
// (caseId, userId, nonce).
type Entry struct {
	UserID    string
	ItemID    string
	Nonce     string
	Amount    int64
	CreatedAt time.Time
}
