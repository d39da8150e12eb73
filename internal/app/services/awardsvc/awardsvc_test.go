package awardsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starvault/casebot/internal/app/domain/caseconfig"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newService(sink *telegram.RecordingSink, ledgerStore *memory.LedgerStore) *Service {
	return New(sink, ledgerStore, fixedClock{now: time.Unix(1700000000, 0)})
}

func TestAward_GiftSendsAndRecords(t *testing.T) {
	sink := telegram.NewRecordingSink()
	svc := newService(sink, memory.NewLedgerStore())

	star := int64(50)
	err := svc.Award(context.Background(), "user-1", "charge-1", caseconfig.PrizeItem{ID: "gift-small", Kind: caseconfig.KindGift, StarCost: &star})
	require.NoError(t, err)

	require.Len(t, sink.Gifts, 1)
	assert.Equal(t, "user-1", sink.Gifts[0].UserID)
	assert.Equal(t, "gift-small", sink.Gifts[0].GiftID)
}

func TestAward_GiftFailurePropagates(t *testing.T) {
	sink := telegram.NewRecordingSink()
	sink.FailGift = true
	svc := newService(sink, memory.NewLedgerStore())

	err := svc.Award(context.Background(), "user-1", "charge-1", caseconfig.PrizeItem{ID: "gift-small", Kind: caseconfig.KindGift})
	assert.Error(t, err)
}

func TestAward_PremiumGrantsCorrectMonthCount(t *testing.T) {
	sink := telegram.NewRecordingSink()
	svc := newService(sink, memory.NewLedgerStore())

	err := svc.Award(context.Background(), "user-1", "charge-1", caseconfig.PrizeItem{ID: "premium-6m", Kind: caseconfig.KindPremium6M})
	require.NoError(t, err)

	require.Len(t, sink.Premiums, 1)
	assert.Equal(t, 6, sink.Premiums[0].Months)
}

func TestAward_InternalCreditsLedgerOnce(t *testing.T) {
	sink := telegram.NewRecordingSink()
	ledgerStore := memory.NewLedgerStore()
	svc := newService(sink, ledgerStore)

	star := int64(25)
	item := caseconfig.PrizeItem{ID: "internal-dust", Kind: caseconfig.KindInternal, StarCost: &star}

	require.NoError(t, svc.Award(context.Background(), "user-1", "charge-1", item))
	require.NoError(t, svc.Award(context.Background(), "user-1", "charge-1", item))

	balance, err := ledgerStore.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(25), balance, "re-awarding the same charge must not double-credit")
}

func TestAward_InternalWithoutStarCostCreditsDust(t *testing.T) {
	sink := telegram.NewRecordingSink()
	ledgerStore := memory.NewLedgerStore()
	svc := newService(sink, ledgerStore)

	item := caseconfig.PrizeItem{ID: "internal-dust", Kind: caseconfig.KindInternal}
	require.NoError(t, svc.Award(context.Background(), "user-1", "charge-1", item))

	balance, err := ledgerStore.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance)
}
