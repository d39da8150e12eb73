// Package velocityscorer implements the heuristic antifraud scorer (C3)
// against a pluggable storage.VelocityStore.
package velocityscorer

import (
	"context"
	"time"

	core "github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/internal/app/domain/velocity"
	"github.com/starvault/casebot/internal/app/storage"
)

// Params configures the scorer's thresholds. Flag scores and action
// thresholds are configuration, not constants (§9 Open Questions
// resolution).
type Params struct {
	ShortWindow   time.Duration
	LongWindow    time.Duration
	IPShortMax    int64
	IPLongMax     int64
	PathsMax      int64
	InvoiceMax    int64
	PrecheckMax   int64
	SuccessMax    int64
	UAMaxTokens   int64
	UAMismatchTTL time.Duration
	FlagScore     int
	SoftCap       int
	HardBlock     int
}

// Scorer evaluates velocity.Context values against a store.
type Scorer struct {
	store  storage.VelocityStore
	clock  core.Clock
	params Params
}

// New returns a Scorer backed by store, using clk for "now" and params for
// thresholds.
func New(store storage.VelocityStore, clk core.Clock, params Params) *Scorer {
	return &Scorer{store: store, clock: clk, params: params}
}

// Evaluate runs §4.2's algorithm: increments the counters relevant to
// ctx.EventType, raises flags for any counter over its configured max, sums
// flag scores into an action, and demotes HARD_BLOCK to SOFT_CAP outside the
// pre-capture event types.
func (s *Scorer) Evaluate(ctx context.Context, evalCtx velocity.Context) (velocity.Result, error) {
	now := s.clock.Now()

	var flags []velocity.Flag

	if evalCtx.IP != "" {
		ipShort, err := s.store.Increment(ctx, "ip-short:"+evalCtx.IP, now, s.params.ShortWindow)
		if err != nil {
			return velocity.Result{}, err
		}
		if ipShort > s.params.IPShortMax {
			flags = append(flags, velocity.FlagIPShortBurst)
		}

		ipLong, err := s.store.Increment(ctx, "ip-long:"+evalCtx.IP, now, s.params.LongWindow)
		if err != nil {
			return velocity.Result{}, err
		}
		if ipLong > s.params.IPLongMax {
			flags = append(flags, velocity.FlagIPLongBurst)
		}
	}

	if evalCtx.Path != "" {
		distinctPaths, err := s.store.Distinct(ctx, "ip-paths:"+evalCtx.IP, evalCtx.Path, now, s.params.ShortWindow)
		if err != nil {
			return velocity.Result{}, err
		}
		if distinctPaths > s.params.PathsMax {
			flags = append(flags, velocity.FlagDistinctPaths)
		}
	}

	if evalCtx.Subject != "" && evalCtx.UserAgent != "" {
		distinctUAs, err := s.store.Distinct(ctx, evalCtx.Subject, evalCtx.UserAgent, now, s.params.UAMismatchTTL)
		if err != nil {
			return velocity.Result{}, err
		}
		if distinctUAs > s.params.UAMaxTokens {
			flags = append(flags, velocity.FlagSubjectUAMismatch)
		}
	}

	if evalCtx.Subject != "" {
		flag, max, ok := s.eventFlag(evalCtx.EventType)
		if ok {
			count, err := s.store.Increment(ctx, string(evalCtx.EventType)+":"+evalCtx.Subject, now, s.params.ShortWindow)
			if err != nil {
				return velocity.Result{}, err
			}
			if count > max {
				flags = append(flags, flag)
			}
		}
	}

	score := len(flags) * s.params.FlagScore
	action := velocity.ActionLogOnly
	switch {
	case score >= s.params.HardBlock:
		action = velocity.ActionHardBlock
	case score >= s.params.SoftCap:
		action = velocity.ActionSoftCap
	}

	if action == velocity.ActionHardBlock && !evalCtx.EventType.PreCapture() {
		action = velocity.ActionSoftCap
	}

	return velocity.Result{Flags: flags, Action: action}, nil
}

func (s *Scorer) eventFlag(eventType velocity.EventType) (velocity.Flag, int64, bool) {
	switch eventType {
	case velocity.EventInvoice:
		return velocity.FlagInvoiceShortBurst, s.params.InvoiceMax, true
	case velocity.EventPrecheckout:
		return velocity.FlagPrecheckoutBurst, s.params.PrecheckMax, true
	case velocity.EventSuccess:
		return velocity.FlagSuccessBurst, s.params.SuccessMax, true
	default:
		return "", 0, false
	}
}
