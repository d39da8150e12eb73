package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/domain/updatepipe"
	"github.com/starvault/casebot/internal/app/domain/velocity"
	"github.com/starvault/casebot/pkg/apierr"
)

// handleWebhook serves the platform's push-delivery endpoint (C6, §4.4).
// The secret-header and body-size middleware already ran by the time this
// executes; this handler owns content-type validation, parsing, antifraud,
// and enqueueing, answering "ok" immediately regardless of downstream
// processing outcome so the platform never retries a delivered update.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	h.cfg.Metrics.IncWebhookUpdate()

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		h.cfg.Metrics.IncWebhookRejected("content_type")
		writeError(w, r, apierr.UnsupportedMediaType("expected application/json"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.cfg.Metrics.IncWebhookRejected("read_error")
		writeError(w, r, apierr.BadRequest("could not read body"))
		return
	}

	update, err := updatepipe.Parse(body)
	if err != nil {
		h.cfg.Metrics.IncWebhookRejected("parse_error")
		writeError(w, r, apierr.BadRequest("invalid update json"))
		return
	}

	ctx := r.Context()
	ip := clientIP(r)

	if !h.checkBanned(w, r, ip) {
		return
	}

	if decision, err := h.cfg.Limiter.TryConsume(ctx, ratelimit.IPKey(ip), h.cfg.IPBucketParams, 1); err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	} else if !decision.Allowed {
		h.cfg.Metrics.IncRateLimitBlocked("webhook_ip")
		writeError(w, r, apierr.RateLimited("rate_limit"))
		return
	}
	h.cfg.Metrics.IncRateLimitAllowed("webhook_ip")

	subject := ""
	if update.UserID != nil {
		subject = *update.UserID
	}
	result, err := h.cfg.Scorer.Evaluate(ctx, velocity.Context{
		IP:        ip,
		Subject:   subject,
		Path:      r.URL.Path,
		UserAgent: r.UserAgent(),
		EventType: velocity.EventWebhook,
	})
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	h.cfg.Metrics.IncAFDecision("webhook", string(result.Action))
	// EventWebhook is not pre-capture: Evaluate already demotes HARD_BLOCK to
	// SOFT_CAP internally, so no update is ever dropped here — only flagged.
	for _, flag := range result.Flags {
		h.cfg.Metrics.IncAFFlag(string(flag))
	}

	start := time.Now()
	if err := h.cfg.Queue.Enqueue(ctx, update); err != nil {
		h.cfg.Metrics.IncWebhookRejected("queue_full")
	}
	h.cfg.Metrics.ObserveWebhookEnqueue(time.Since(start))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
