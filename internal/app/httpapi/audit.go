package httpapi

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/starvault/casebot/internal/app/core/clock"
)

// AdminAuditEvent is one admin-surface call (§3.1). Not persisted to the
// relational store: kept as a rolling in-memory ring plus a structured log
// line, since nothing beyond operational traceability is required.
type AdminAuditEvent struct {
	Actor  string
	Action string
	Target string
	Result string
	At     time.Time
}

// auditLog is a bounded ring buffer of recent admin actions backed by a
// zerolog structured logger, grounded on the teacher's habit of carrying a
// narrow second logging library for a single concern (§2.1).
type auditLog struct {
	mu     sync.Mutex
	events []AdminAuditEvent
	cap    int
	log    zerolog.Logger
	clock  clock.Clock
}

func newAuditLog(capacity int, log zerolog.Logger, clk clock.Clock) *auditLog {
	if capacity <= 0 {
		capacity = 300
	}
	return &auditLog{cap: capacity, log: log, clock: clk}
}

func (a *auditLog) Record(actor, action, target, result string) {
	evt := AdminAuditEvent{Actor: actor, Action: action, Target: target, Result: result, At: a.clock.Now()}

	a.mu.Lock()
	a.events = append(a.events, evt)
	if len(a.events) > a.cap {
		a.events = a.events[len(a.events)-a.cap:]
	}
	a.mu.Unlock()

	a.log.Info().
		Str("actor", evt.Actor).
		Str("action", evt.Action).
		Str("target", evt.Target).
		Str("result", evt.Result).
		Time("at", evt.At).
		Msg("admin action")
}

func (a *auditLog) Recent() []AdminAuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AdminAuditEvent, len(a.events))
	copy(out, a.events)
	return out
}
