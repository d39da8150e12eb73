package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/services/rngsvc"
	"github.com/starvault/casebot/pkg/apierr"
)

// mountAdminRoutes wires the operator surface (C11, §4.9). Only reached when
// cfg.AdminToken is non-empty; the caller already gated the whole /internal
// subtree behind the X-Admin-Token secretHeader middleware.
func (h *Handler) mountAdminRoutes(r chi.Router) {
	r.Route("/telegram/webhook", func(r chi.Router) {
		r.Post("/set", h.adminSetWebhook)
		r.Post("/delete", h.adminDeleteWebhook)
		r.Get("/info", h.adminWebhookInfo)
	})

	r.Route("/economy", func(r chi.Router) {
		r.Get("/preview", h.adminEconomyPreview)
		r.Post("/reload", h.adminEconomyReload)
	})

	r.Route("/rng", func(r chi.Router) {
		r.Post("/commit", h.adminRNGCommit)
		r.Post("/reveal", h.adminRNGReveal)
	})

	r.Route("/bans", func(r chi.Router) {
		r.Get("/", h.adminListBans)
		r.Post("/", h.adminBanIP)
		r.Delete("/{ip}", h.adminUnbanIP)
	})

	r.Get("/audit", h.adminAuditRecent)
}

func adminActor(r *http.Request) string {
	if actor := r.Header.Get("X-Admin-Actor"); actor != "" {
		return actor
	}
	return "admin"
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	AllowedUpdates []string `json:"allowedUpdates,omitempty"`
	MaxConnections int      `json:"maxConnections,omitempty"`
	DropPending    bool     `json:"dropPending,omitempty"`
}

func (h *Handler) adminSetWebhook(w http.ResponseWriter, r *http.Request) {
	h.cfg.Metrics.IncAdminWebhookCall("set")
	var req setWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, r, apierr.BadRequest("url is required"))
		return
	}

	err := h.cfg.Telegram.SetWebhook(r.Context(), telegram.SetWebhookParams{
		URL:            req.URL,
		SecretToken:    h.cfg.WebhookSecretToken,
		AllowedUpdates: req.AllowedUpdates,
		MaxConnections: req.MaxConnections,
		DropPending:    req.DropPending,
	})
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.cfg.Audit.Record(adminActor(r), "webhook.set", req.URL, result)
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type deleteWebhookRequest struct {
	DropPending bool `json:"dropPending,omitempty"`
}

func (h *Handler) adminDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	h.cfg.Metrics.IncAdminWebhookCall("delete")
	var req deleteWebhookRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if v, err := strconv.ParseBool(r.URL.Query().Get("dropPending")); err == nil {
		req.DropPending = v
	}

	err := h.cfg.Telegram.DeleteWebhook(r.Context(), req.DropPending)
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.cfg.Audit.Record(adminActor(r), "webhook.delete", "", result)
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) adminWebhookInfo(w http.ResponseWriter, r *http.Request) {
	h.cfg.Metrics.IncAdminWebhookCall("info")
	info, err := h.cfg.Telegram.GetWebhookInfo(r.Context())
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) adminEconomyPreview(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cfg.Cases.Current()
	if snapshot == nil {
		writeJSON(w, http.StatusOK, map[string]any{"reports": []any{}})
		return
	}
	reports := make([]any, 0, len(snapshot.Order))
	for _, id := range snapshot.Order {
		reports = append(reports, snapshot.Reports[id])
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *Handler) adminEconomyReload(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.cfg.Cases.Reload()
	result := "ok"
	detail := ""
	if err != nil {
		result = "error"
		detail = err.Error()
	} else {
		detail = strconv.Itoa(len(snapshot.Order))
	}
	h.cfg.Audit.Record(adminActor(r), "economy.reload", detail, result)
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": len(snapshot.Order)})
}

// rngDay resolves the admin-supplied ?day=YYYY-MM-DD query param, defaulting
// to the current UTC day.
func (h *Handler) rngDay(r *http.Request) string {
	if d := r.URL.Query().Get("day"); d != "" {
		return d
	}
	return rngsvc.DayUTC(h.cfg.Clock.Now())
}

func (h *Handler) adminRNGCommit(w http.ResponseWriter, r *http.Request) {
	day := h.rngDay(r)
	commit, err := h.cfg.RNG.Commit(r.Context(), day)
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.cfg.Audit.Record(adminActor(r), "rng.commit", day, result)
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, commit)
}

func (h *Handler) adminRNGReveal(w http.ResponseWriter, r *http.Request) {
	day := h.rngDay(r)
	err := h.cfg.RNG.Reveal(r.Context(), day)
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.cfg.Audit.Record(adminActor(r), "rng.reveal", day, result)
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type banRequest struct {
	IP         string `json:"ip"`
	Reason     string `json:"reason,omitempty"`
	TTLSeconds int64  `json:"ttlSeconds,omitempty"`
}

func (h *Handler) adminBanIP(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IP == "" {
		writeError(w, r, apierr.BadRequest("ip is required"))
		return
	}

	var ttl *time.Duration
	if req.TTLSeconds > 0 {
		d := time.Duration(req.TTLSeconds) * time.Second
		ttl = &d
	}

	err := h.cfg.Bans.Ban(r.Context(), req.IP, req.Reason, ttl)
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.cfg.Audit.Record(adminActor(r), "ban.add", req.IP, result)
	h.cfg.Metrics.IncIPBan()
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) adminUnbanIP(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	err := h.cfg.Bans.Unban(r.Context(), ip)
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.cfg.Audit.Record(adminActor(r), "ban.remove", ip, result)
	h.cfg.Metrics.IncIPUnban()
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) adminListBans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.cfg.Bans.List(r.Context())
	if err != nil {
		writeError(w, r, apierr.InternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bans": bans})
}

func (h *Handler) adminAuditRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.cfg.Audit.Recent()})
}
