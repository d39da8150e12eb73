// Package awardsvc implements payment.Awarder (§4.8 step 4): dispatching a
// drawn prize item to its platform fulfillment path by kind.
package awardsvc

import (
	"context"
	"fmt"

	core "github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/internal/app/domain/caseconfig"
	"github.com/starvault/casebot/internal/app/domain/ledger"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/storage"
)

// monthsForKind resolves a PREMIUM_{3,6,12}M kind to its month count.
func monthsForKind(kind caseconfig.PrizeKind) (int, bool) {
	switch kind {
	case caseconfig.KindPremium3M:
		return 3, true
	case caseconfig.KindPremium6M:
		return 6, true
	case caseconfig.KindPremium12M:
		return 12, true
	default:
		return 0, false
	}
}

// Service dispatches GIFT, PREMIUM_*, and INTERNAL prize kinds to their
// respective fulfillment path.
type Service struct {
	client telegram.Client
	ledger storage.LedgerStore
	clock  core.Clock
}

// New returns a Service fulfilling prizes against client for GIFT/PREMIUM
// kinds and ledgerStore for INTERNAL credits.
func New(client telegram.Client, ledgerStore storage.LedgerStore, clk core.Clock) *Service {
	return &Service{client: client, ledger: ledgerStore, clock: clk}
}

// Award fulfills item for userID per §4.8 step 4, keyed for idempotency by
// chargeID (the payment state machine's own idempotency key). GIFT and
// PREMIUM failures are returned so the caller refunds and marks REFUNDED; an
// INTERNAL credit, having no external counterpart to fail, only errors on
// store failure.
func (s *Service) Award(ctx context.Context, userID, chargeID string, item caseconfig.PrizeItem) error {
	switch item.Kind {
	case caseconfig.KindGift:
		if err := s.client.SendGift(ctx, userID, item.ID); err != nil {
			return fmt.Errorf("awardsvc: send gift %s to %s: %w", item.ID, userID, err)
		}
		return nil

	case caseconfig.KindPremium3M, caseconfig.KindPremium6M, caseconfig.KindPremium12M:
		months, _ := monthsForKind(item.Kind)
		if err := s.client.GrantPremiumSubscription(ctx, userID, months); err != nil {
			return fmt.Errorf("awardsvc: grant %dM premium to %s: %w", months, userID, err)
		}
		return nil

	case caseconfig.KindInternal:
		amount := int64(1)
		if item.StarCost != nil {
			amount = *item.StarCost
		}
		_, _, err := s.ledger.CreditIfAbsent(ctx, ledger.Entry{
			UserID:    userID,
			ItemID:    item.ID,
			Nonce:     chargeID,
			Amount:    amount,
			CreatedAt: s.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("awardsvc: credit internal ledger for %s: %w", userID, err)
		}
		return nil

	default:
		return fmt.Errorf("awardsvc: unknown prize kind %q", item.Kind)
	}
}

var _ interface {
	Award(ctx context.Context, userID, chargeID string, item caseconfig.PrizeItem) error
} = (*Service)(nil)
