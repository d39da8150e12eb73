package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	core "github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/services/banservice"
	"github.com/starvault/casebot/internal/app/services/caseloader"
	"github.com/starvault/casebot/internal/app/services/payment"
	"github.com/starvault/casebot/internal/app/services/queue"
	"github.com/starvault/casebot/internal/app/services/ratelimiter"
	"github.com/starvault/casebot/internal/app/services/rngsvc"
	"github.com/starvault/casebot/internal/app/services/velocityscorer"
	"github.com/starvault/casebot/pkg/apierr"
	"github.com/starvault/casebot/pkg/logger"
)

const maxBodyBytes = 1 << 20 // 1 MiB, §4.4 step 2

// Metrics receives the HTTP-surface counters not already owned by the
// queue/payment packages. Every method has a no-op default.
type Metrics interface {
	IncWebhookUpdate()
	IncWebhookRejected(reason string)
	IncWebhookBodyTooLarge()
	ObserveWebhookEnqueue(d time.Duration)
	IncLongPollCall()
	IncLongPollError()
	IncLongPollRetry()
	IncAdminWebhookCall(action string)
	IncRateLimitAllowed(kind string)
	IncRateLimitBlocked(kind string)
	IncIPSuspiciousMark()
	IncIPBan()
	IncIPUnban()
	IncIPForbidden()
	IncAFFlag(flag string)
	IncAFDecision(kind, action string)
	IncAFBlock(kind string)
}

type noopMetrics struct{}

func (noopMetrics) IncWebhookUpdate()                   {}
func (noopMetrics) IncWebhookRejected(string)           {}
func (noopMetrics) IncWebhookBodyTooLarge()             {}
func (noopMetrics) ObserveWebhookEnqueue(time.Duration) {}
func (noopMetrics) IncLongPollCall()                    {}
func (noopMetrics) IncLongPollError()                   {}
func (noopMetrics) IncLongPollRetry()                   {}
func (noopMetrics) IncAdminWebhookCall(string)          {}
func (noopMetrics) IncRateLimitAllowed(string)          {}
func (noopMetrics) IncRateLimitBlocked(string)          {}
func (noopMetrics) IncIPSuspiciousMark()                {}
func (noopMetrics) IncIPBan()                           {}
func (noopMetrics) IncIPUnban()                         {}
func (noopMetrics) IncIPForbidden()                     {}
func (noopMetrics) IncAFFlag(string)             {}
func (noopMetrics) IncAFDecision(string, string) {}
func (noopMetrics) IncAFBlock(string)            {}

// NoopMetrics is the default Metrics sink.
var NoopMetrics Metrics = noopMetrics{}

// Config aggregates every dependency the HTTP surface needs. Fields left
// zero get the narrowest safe default (nil admin token disables the admin
// surface per §4.9).
type Config struct {
	Queue    *queue.Queue
	Limiter  *ratelimiter.Limiter
	Scorer   *velocityscorer.Scorer
	Bans     *banservice.Service
	Cases    *caseloader.Loader
	Payments *payment.Service
	RNG      *rngsvc.Service
	Telegram telegram.Client
	Clock    core.Clock
	Metrics  Metrics
	Log      *logger.Logger
	Audit    *auditLog

	BotToken           string
	WebhookSecretToken string
	WebhookPath        string
	AdminToken         string
	WebAppDir          string

	// MetricsPath serves MetricsHandler when both are set, defaulting to
	// /metrics (§6); MetricsHandler is typically promhttp.HandlerFor the
	// metrics package's Registry.
	MetricsPath    string
	MetricsHandler http.Handler

	IPBucketParams      ratelimit.Params
	SubjectBucketParams ratelimit.Params

	// AutoBanTTL is how long a HARD_BLOCK verdict's automatic IP ban lasts
	// (§2 C4 "manual and auto temporary/permanent bans"). Zero disables
	// auto-banning; the verdict still denies the request.
	AutoBanTTL time.Duration
}

// Handler wires every route group onto a chi router.
type Handler struct {
	cfg Config
}

// NewHandler returns a Handler built from cfg, defaulting unset optional
// fields.
func NewHandler(cfg Config) *Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetrics
	}
	if cfg.Clock == nil {
		cfg.Clock = core.System{}
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewDefault("http")
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/telegram/webhook"
	}
	if cfg.Audit == nil {
		cfg.Audit = newAuditLog(300, zerolog.New(os.Stdout).With().Timestamp().Logger(), cfg.Clock)
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Handler{cfg: cfg}
}

// Router builds the full chi.Router for every surface in §6.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recoverer(h.cfg.Log))

	r.Get("/health", h.handleHealth)
	r.Get("/version", h.handleVersion)
	if h.cfg.MetricsHandler != nil {
		r.Handle(h.cfg.MetricsPath, h.cfg.MetricsHandler)
	}

	r.Route("/app", func(r chi.Router) {
		if h.cfg.WebAppDir != "" {
			fs := http.FileServer(http.Dir(h.cfg.WebAppDir))
			r.Handle("/*", http.StripPrefix("/app", fs))
		}
	})

	r.Route("/api/miniapp", func(r chi.Router) {
		r.Use(bodyLimit(maxBodyBytes))
		r.Get("/cases", h.handleListCases)
		r.Post("/invoice", h.handleCreateInvoice)
	})

	r.Route(h.cfg.WebhookPath, func(r chi.Router) {
		r.Use(secretHeader("X-Telegram-Bot-Api-Secret-Token", h.cfg.WebhookSecretToken, h.forbiddenWebhook))
		r.Use(bodyLimitWithReason(maxBodyBytes, h.cfg.Metrics))
		r.Post("/", h.handleWebhook)
	})

	if h.cfg.AdminToken != "" {
		r.Route("/internal", func(r chi.Router) {
			r.Use(secretHeader("X-Admin-Token", h.cfg.AdminToken, h.unauthorizedAdmin))
			h.mountAdminRoutes(r)
		})
	}

	return r
}

func (h *Handler) forbiddenWebhook(w http.ResponseWriter, r *http.Request) {
	h.cfg.Metrics.IncWebhookRejected("forbidden")
	writeError(w, r, apierr.Forbidden("forbidden"))
}

func (h *Handler) unauthorizedAdmin(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apierr.Unauthorized("invalid admin token"))
}
