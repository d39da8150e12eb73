// Package metrics implements the Prometheus facade (C12): a dedicated
// Registry plus the full counter/histogram/gauge set named in §6 and §6.1,
// grounded on the teacher's internal/app/metrics/metrics.go registration
// style.
package metrics

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/starvault/casebot/internal/app/services/payment"
	"github.com/starvault/casebot/internal/app/services/queue"
)

// Registry holds every casebot-specific Prometheus collector, kept separate
// from the default global registry so /metrics exposes exactly this set plus
// the standard process/Go collectors.
var Registry = prometheus.NewRegistry()

var (
	webhookUpdatesTotal       = counter("tg_webhook_updates_total", "Webhook updates accepted.")
	webhookRejectedTotal      = counterVec("tg_webhook_rejected_total", "Webhook requests rejected.", "reason")
	webhookBodyTooLargeTotal  = counter("tg_webhook_body_too_large_total", "Webhook requests rejected for exceeding the body size cap.")
	webhookEnqueueSeconds     = histogram("tg_webhook_enqueue_seconds", "Time to enqueue a parsed webhook update.")
	queueSize                = gauge("tg_queue_size", "Current depth of the update queue.")
	updatesEnqueuedTotal      = counter("tg_updates_enqueued_total", "Updates admitted to the queue.")
	updatesDuplicatedTotal    = counter("tg_updates_duplicated_total", "Updates rejected as duplicates by the dedup set.")
	updatesDroppedTotal       = counter("tg_updates_dropped_total", "Updates dropped due to queue overflow or shutdown.")
	updatesProcessedTotal     = counter("tg_updates_processed_total", "Updates dequeued and dispatched to a handler.")
	updateHandleSeconds       = histogram("tg_update_handle_seconds", "Time spent in a single update's handler.")
	lpPollsTotal              = counter("tg_lp_polls_total", "Long-poll getUpdates calls issued.")
	lpErrorsTotal             = counter("tg_lp_errors_total", "Long-poll getUpdates calls that failed.")
	lpRetriesTotal            = counter("tg_lp_retries_total", "Long-poll backoff retries triggered by a network/5xx failure.")
	adminWebhookCallsTotal    = counterVec("tg_admin_webhook_calls_total", "Admin webhook management calls.", "action")
	afRLAllowedTotal          = counterVec("af_rl_allowed_total", "Token bucket admissions.", "type")
	afRLBlockedTotal          = counterVec("af_rl_blocked_total", "Token bucket rejections.", "type")
	afIPSuspiciousMarkTotal   = counter("af_ip_suspicious_mark_total", "IPs marked suspicious by the velocity scorer.")
	afIPBanTotal              = counter("af_ip_ban_total", "IP bans issued.")
	afIPUnbanTotal            = counter("af_ip_unban_total", "IP unbans issued.")
	afIPForbiddenTotal        = counter("af_ip_forbidden_total", "Requests rejected due to an active IP ban.")
	payAFFlagsTotal           = counterVec("pay_af_flags_total", "Velocity scorer flags raised.", "flag")
	payAFDecisionsTotal       = counterVec("pay_af_decisions_total", "Velocity scorer decisions.", "type", "action")
	payAFBlocksTotal          = counterVec("pay_af_blocks_total", "Pre-capture HARD_BLOCK verdicts applied.", "type")
	paySuccessTotal           = counter("pay_success_total", "Successful payments captured.")
	paySuccessIdempotentTotal = counter("pay_success_idempotent_total", "Successful-payment updates recognized as replays.")
	paySuccessFailTotal       = counter("pay_success_fail_total", "Successful-payment processing failures after capture.")
	awardGiftTotal            = counter("award_gift_total", "GIFT prizes awarded.")
	awardPremiumTotal         = counter("award_premium_total", "PREMIUM_* prizes awarded.")
	awardInternalTotal        = counter("award_internal_total", "INTERNAL prizes credited.")
	awardFailTotal            = counter("award_fail_total", "Prize awards that failed.")
	refundTotal               = counter("refund_total", "Refunds issued.")
	refundFailTotal           = counter("refund_fail_total", "Refunds that failed after exhausting retries.")
	rngCommitTotal            = counter("rng_commit_total", "Daily seed commits created.")
	rngRevealTotal            = counter("rng_reveal_total", "Seed reveals performed.")
	rngDrawTotal              = counter("rng_draw_total", "Draws resolved.")
	rngDrawIdempotentTotal    = counter("rng_draw_idempotent_total", "Draws served from the idempotency journal.")
	rngDrawFailTotal          = counter("rng_draw_fail_total", "Draws that failed to resolve.")
	processRSSBytes           = gauge("process_rss_bytes", "Resident set size of the running process, in bytes.")
	processGoroutines         = gauge("process_goroutines", "Number of live goroutines.")
)

func counter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	Registry.MustRegister(c)
	return c
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	Registry.MustRegister(c)
	return c
}

func histogram(name, help string) prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: name, Help: help, Buckets: prometheus.ExponentialBuckets(0.001, 2, 14)})
	Registry.MustRegister(h)
	return h
}

func gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	Registry.MustRegister(g)
	return g
}

func init() {
	Registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registered collectors as Prometheus text exposition.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RefreshProcessGauges samples RSS and goroutine count, intended to be
// invoked on a periodic cron tick (§6.1).
func RefreshProcessGauges() {
	processGoroutines.Set(float64(runtime.NumGoroutine()))

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	memInfo, err := proc.MemoryInfo()
	if err != nil || memInfo == nil {
		return
	}
	processRSSBytes.Set(float64(memInfo.RSS))
}

// Facade adapts the package-level collectors to the narrow Metrics
// interfaces individual services (queue, velocity scorer, payment) depend
// on, so those packages stay decoupled from Prometheus directly.
type Facade struct{}

func (Facade) SetQueueSize(n int)                  { queueSize.Set(float64(n)) }
func (Facade) IncEnqueued()                        { updatesEnqueuedTotal.Inc() }
func (Facade) IncDuplicated()                      { updatesDuplicatedTotal.Inc() }
func (Facade) IncDropped()                         { updatesDroppedTotal.Inc() }
func (Facade) IncProcessed()                       { updatesProcessedTotal.Inc() }
func (Facade) ObserveHandleSeconds(d time.Duration) { updateHandleSeconds.Observe(d.Seconds()) }

func (Facade) IncWebhookUpdate()                { webhookUpdatesTotal.Inc() }
func (Facade) IncWebhookRejected(reason string) { webhookRejectedTotal.WithLabelValues(reason).Inc() }
func (Facade) IncWebhookBodyTooLarge()          { webhookBodyTooLargeTotal.Inc() }
func (Facade) ObserveWebhookEnqueue(d time.Duration) {
	webhookEnqueueSeconds.Observe(d.Seconds())
}

func (Facade) IncLongPollCall()  { lpPollsTotal.Inc() }
func (Facade) IncLongPollError() { lpErrorsTotal.Inc() }
func (Facade) IncLongPollRetry() { lpRetriesTotal.Inc() }

func (Facade) IncAdminWebhookCall(action string) { adminWebhookCallsTotal.WithLabelValues(action).Inc() }

func (Facade) IncRateLimitAllowed(kind string) { afRLAllowedTotal.WithLabelValues(kind).Inc() }
func (Facade) IncRateLimitBlocked(kind string) { afRLBlockedTotal.WithLabelValues(kind).Inc() }

func (Facade) IncIPSuspiciousMark() { afIPSuspiciousMarkTotal.Inc() }
func (Facade) IncIPBan()            { afIPBanTotal.Inc() }
func (Facade) IncIPUnban()          { afIPUnbanTotal.Inc() }
func (Facade) IncIPForbidden()      { afIPForbiddenTotal.Inc() }

func (Facade) IncAFFlag(flag string)             { payAFFlagsTotal.WithLabelValues(flag).Inc() }
func (Facade) IncAFDecision(kind, action string) { payAFDecisionsTotal.WithLabelValues(kind, action).Inc() }
func (Facade) IncAFBlock(kind string)            { payAFBlocksTotal.WithLabelValues(kind).Inc() }

func (Facade) IncSuccess()           { paySuccessTotal.Inc() }
func (Facade) IncSuccessIdempotent() { paySuccessIdempotentTotal.Inc() }
func (Facade) IncSuccessFail()       { paySuccessFailTotal.Inc() }

func (Facade) IncAward(kind string) {
	switch {
	case kind == "GIFT":
		awardGiftTotal.Inc()
	case len(kind) >= 7 && kind[:7] == "PREMIUM":
		awardPremiumTotal.Inc()
	default:
		awardInternalTotal.Inc()
	}
}
func (Facade) IncAwardFail() { awardFailTotal.Inc() }

func (Facade) IncRefund()     { refundTotal.Inc() }
func (Facade) IncRefundFail() { refundFailTotal.Inc() }

func (Facade) IncRNGCommit()         { rngCommitTotal.Inc() }
func (Facade) IncRNGReveal()         { rngRevealTotal.Inc() }
func (Facade) IncRNGDraw()           { rngDrawTotal.Inc() }
func (Facade) IncRNGDrawIdempotent() { rngDrawIdempotentTotal.Inc() }
func (Facade) IncRNGDrawFail()       { rngDrawFailTotal.Inc() }

var (
	_ queue.Metrics   = Facade{}
	_ payment.Metrics = Facade{}
)
