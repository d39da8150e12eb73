package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFacade_MethodsDoNotPanicAndMoveCounters(t *testing.T) {
	f := Facade{}

	before := testutil.ToFloat64(updatesEnqueuedTotal)
	f.IncEnqueued()
	assert.Equal(t, before+1, testutil.ToFloat64(updatesEnqueuedTotal))

	f.SetQueueSize(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(queueSize))

	f.IncDuplicated()
	f.IncDropped()
	f.IncProcessed()
	f.ObserveHandleSeconds(10 * time.Millisecond)

	f.IncWebhookUpdate()
	f.IncWebhookRejected("bad_json")
	f.IncWebhookBodyTooLarge()
	f.ObserveWebhookEnqueue(5 * time.Millisecond)

	f.IncLongPollCall()
	f.IncLongPollError()
	f.IncLongPollRetry()
	f.IncAdminWebhookCall("set")

	f.IncRateLimitAllowed("user")
	f.IncRateLimitBlocked("ip")

	f.IncIPSuspiciousMark()
	f.IncIPBan()
	f.IncIPUnban()
	f.IncIPForbidden()

	f.IncAFFlag("velocity")
	f.IncAFDecision("velocity", "SOFT_CAP")
	f.IncAFBlock("velocity")

	f.IncSuccess()
	f.IncSuccessIdempotent()
	f.IncSuccessFail()

	giftBefore := testutil.ToFloat64(awardGiftTotal)
	f.IncAward("GIFT")
	assert.Equal(t, giftBefore+1, testutil.ToFloat64(awardGiftTotal))

	premiumBefore := testutil.ToFloat64(awardPremiumTotal)
	f.IncAward("PREMIUM_3M")
	assert.Equal(t, premiumBefore+1, testutil.ToFloat64(awardPremiumTotal))

	internalBefore := testutil.ToFloat64(awardInternalTotal)
	f.IncAward("INTERNAL")
	assert.Equal(t, internalBefore+1, testutil.ToFloat64(awardInternalTotal))

	f.IncAwardFail()
	f.IncRefund()
	f.IncRefundFail()

	f.IncRNGCommit()
	f.IncRNGReveal()
	f.IncRNGDraw()
	f.IncRNGDrawIdempotent()
	f.IncRNGDrawFail()
}

func TestRefreshProcessGauges_SamplesWithoutPanicking(t *testing.T) {
	assert.NotPanics(t, RefreshProcessGauges)
	assert.GreaterOrEqual(t, testutil.ToFloat64(processGoroutines), float64(1))
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	assert.NotNil(t, Handler())
}
