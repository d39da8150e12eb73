package httpapi

import (
	"net/http"

	"github.com/starvault/casebot/pkg/apierr"
)

// checkBanned answers 403 and returns false if ip is on the banlist (C4),
// reporting af_ip_forbidden_total on rejection. Called at the top of every
// ingress handler before any antifraud scoring runs.
func (h *Handler) checkBanned(w http.ResponseWriter, r *http.Request, ip string) bool {
	if h.cfg.Bans == nil {
		return true
	}
	banned, err := h.cfg.Bans.IsBanned(r.Context(), ip)
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return false
	}
	if banned {
		h.cfg.Metrics.IncIPForbidden()
		writeError(w, r, apierr.Forbidden("forbidden"))
		return false
	}
	return true
}

// autoBan records a temporary ban for ip following a HARD_BLOCK verdict
// (§2 C4 "manual and auto temporary/permanent bans"). AutoBanTTL of zero
// disables this without affecting the HARD_BLOCK denial itself.
func (h *Handler) autoBan(r *http.Request, ip, reason string) {
	if h.cfg.Bans == nil || h.cfg.AutoBanTTL <= 0 {
		return
	}
	ttl := h.cfg.AutoBanTTL
	if err := h.cfg.Bans.Ban(r.Context(), ip, reason, &ttl); err == nil {
		h.cfg.Metrics.IncIPBan()
	}
}
