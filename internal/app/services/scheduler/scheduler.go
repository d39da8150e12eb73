// Package scheduler wires a cron-driven background runner (§4.10 "cron
// scheduler") into the lifecycle manager, grounded on robfig/cron/v3 the way
// the rest of the pack reaches for it for periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	coresvc "github.com/starvault/casebot/internal/app/core/service"
	"github.com/starvault/casebot/internal/app/services/rngsvc"
	"github.com/starvault/casebot/pkg/logger"
)

// RNG describes a Commit method with an untyped result. Runner does not use
// it: the daily commit job calls the commitToday closure passed to New (see
// CommitTodayFunc).
type RNG interface {
	Commit(ctx context.Context, dayUTC string) (interface{}, error)
}

// Runner owns a *cron.Cron scheduling casebot's periodic maintenance tasks:
// sampling process gauges for the metrics facade, and lazily committing
// today's RNG seed just after UTC midnight so the first draw of the day
// never pays the derivation cost synchronously.
type Runner struct {
	cron          *cron.Cron
	refreshGauges func()
	commitToday   func(ctx context.Context) error
	log           *logger.Logger
}

// New returns a Runner. refreshGauges is invoked every 15s; commitToday is
// invoked once a minute past UTC midnight (cheap idempotent check against
// rngsvc.Service.Commit either way).
func New(refreshGauges func(), commitToday func(ctx context.Context) error, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	return &Runner{
		cron:          cron.New(cron.WithLocation(time.UTC)),
		refreshGauges: refreshGauges,
		commitToday:   commitToday,
		log:           log,
	}
}

func (r *Runner) Name() string { return "cron-scheduler" }

func (r *Runner) Descriptor() coresvc.Descriptor {
	return coresvc.Descriptor{Name: r.Name(), Domain: "maintenance", Layer: coresvc.LayerEngine, Capabilities: []string{"gauges", "rng-commit"}}
}

func (r *Runner) Start(ctx context.Context) error {
	if r.refreshGauges != nil {
		if _, err := r.cron.AddFunc("@every 15s", r.refreshGauges); err != nil {
			return err
		}
	}
	if r.commitToday != nil {
		if _, err := r.cron.AddFunc("1 0 * * *", func() {
			if err := r.commitToday(context.Background()); err != nil {
				r.log.WithField("error", err.Error()).Warn("scheduled RNG commit failed")
			}
		}); err != nil {
			return err
		}
	}
	r.cron.Start()
	return nil
}

func (r *Runner) Stop(context.Context) error {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// CommitTodayFunc adapts an *rngsvc.Service into the commitToday closure New
// expects.
func CommitTodayFunc(rng *rngsvc.Service) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := rng.Commit(ctx, rngsvc.DayUTC(time.Now()))
		return err
	}
}
