package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	core "github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/domain/velocity"
	"github.com/starvault/casebot/internal/app/services/payment"
	"github.com/starvault/casebot/pkg/apierr"
)

type casesResponse struct {
	Cases []caseView `json:"cases"`
}

type caseView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	PriceStars int64  `json:"priceStars"`
	Thumbnail  string `json:"thumbnail,omitempty"`
}

// handleListCases serves GET /api/miniapp/cases: the public catalog of
// currently valid cases (§4.6, §6).
func (h *Handler) handleListCases(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cfg.Cases.Current()
	if snapshot == nil {
		writeJSON(w, http.StatusOK, casesResponse{Cases: []caseView{}})
		return
	}

	views := snapshot.PublicList()
	out := make([]caseView, 0, len(views))
	for _, v := range views {
		out = append(out, caseView{ID: v.ID, Title: v.Title, PriceStars: v.PriceStars, Thumbnail: v.Thumbnail})
	}
	writeJSON(w, http.StatusOK, casesResponse{Cases: out})
}

type invoiceRequest struct {
	InitData string `json:"initData"`
	CaseID   string `json:"caseId"`
}

type invoiceResponse struct {
	InvoiceLink string `json:"invoiceLink"`
}

// handleCreateInvoice serves POST /api/miniapp/invoice: verifies the
// web-view's initData (§6), runs antifraud against both the caller's IP and
// the authenticated subject, then mints an invoice link (§4.8 "Create
// invoice").
func (h *Handler) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierr.BadRequest("malformed request body"))
		return
	}
	if req.CaseID == "" {
		writeError(w, r, apierr.BadRequest("caseId is required"))
		return
	}

	initData, err := verifyInitData(req.InitData, h.cfg.BotToken)
	if err != nil {
		writeError(w, r, apierr.Forbidden("invalid initData"))
		return
	}
	if initData.UserID == "" {
		writeError(w, r, apierr.BadRequest("initData missing user id"))
		return
	}

	ctx := r.Context()
	ip := clientIP(r)

	if !h.checkBanned(w, r, ip) {
		return
	}

	ipDecision, err := h.cfg.Limiter.TryConsume(ctx, ratelimit.IPKey(ip), h.cfg.IPBucketParams, 1)
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	if !ipDecision.Allowed {
		h.cfg.Metrics.IncRateLimitBlocked("ip")
		writeError(w, r, apierr.RateLimited("rate_limit"))
		return
	}
	h.cfg.Metrics.IncRateLimitAllowed("ip")

	subjectDecision, err := h.cfg.Limiter.TryConsume(ctx, ratelimit.SubjectKey(initData.UserID), h.cfg.SubjectBucketParams, 1)
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	if !subjectDecision.Allowed {
		h.cfg.Metrics.IncRateLimitBlocked("subject")
		writeError(w, r, apierr.RateLimited("rate_limit"))
		return
	}
	h.cfg.Metrics.IncRateLimitAllowed("subject")

	result, err := h.cfg.Scorer.Evaluate(ctx, velocity.Context{
		IP:        ip,
		Subject:   initData.UserID,
		Path:      r.URL.Path,
		UserAgent: r.UserAgent(),
		EventType: velocity.EventInvoice,
	})
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	for _, flag := range result.Flags {
		h.cfg.Metrics.IncAFFlag(string(flag))
	}
	h.cfg.Metrics.IncAFDecision("invoice", string(result.Action))
	if result.Action == velocity.ActionHardBlock {
		h.cfg.Metrics.IncIPSuspiciousMark()
		h.cfg.Metrics.IncAFBlock("invoice")
		h.autoBan(r, ip, "velocity hard_block")
		writeError(w, r, apierr.RateLimited("velocity"))
		return
	}

	nonce := core.NewNonce()
	link, err := h.cfg.Payments.CreateInvoice(ctx, req.CaseID, initData.UserID, nonce)
	if err != nil {
		if errors.Is(err, payment.ErrUnknownCase) {
			writeError(w, r, apierr.BadRequest("unknown case"))
			return
		}
		writeError(w, r, apierr.InternalError(err))
		return
	}

	writeJSON(w, http.StatusOK, invoiceResponse{InvoiceLink: link})
}
