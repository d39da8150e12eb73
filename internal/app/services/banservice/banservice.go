// Package banservice implements the manual/automatic IP ban surface (C4)
// over a pluggable storage.BanStore.
package banservice

import (
	"context"
	"time"

	core "github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/internal/app/domain/banlist"
	"github.com/starvault/casebot/internal/app/storage"
)

// Service bans, unbans, and lists IP addresses, both on operator request
// (admin surface, C11) and automatically from a HARD_BLOCK verdict (C3).
type Service struct {
	store storage.BanStore
	clock core.Clock
}

// New returns a Service backed by store, using clk for "now".
func New(store storage.BanStore, clk core.Clock) *Service {
	return &Service{store: store, clock: clk}
}

// Ban inserts or replaces a ban for ip, effective immediately. A nil ttl
// means the ban is permanent.
func (s *Service) Ban(ctx context.Context, ip, reason string, ttl *time.Duration) error {
	now := s.clock.Now()
	entry := banlist.Entry{IP: ip, Reason: reason, CreatedAt: now}
	if ttl != nil {
		expires := now.Add(*ttl)
		entry.ExpiresAt = &expires
	}
	return s.store.Ban(ctx, entry)
}

// Unban removes any ban for ip.
func (s *Service) Unban(ctx context.Context, ip string) error {
	return s.store.Unban(ctx, ip)
}

// IsBanned reports whether ip is currently subject to an active ban.
func (s *Service) IsBanned(ctx context.Context, ip string) (bool, error) {
	entry, err := s.store.Get(ctx, ip)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return entry.Active(s.clock.Now()), nil
}

// List returns every ban entry currently recorded, active or expired, for
// operator review.
func (s *Service) List(ctx context.Context) ([]banlist.Entry, error) {
	return s.store.List(ctx)
}

// ActiveList returns only the bans still in effect at the current time.
func (s *Service) ActiveList(ctx context.Context) ([]banlist.Entry, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	active := all[:0]
	for _, entry := range all {
		if entry.Active(now) {
			active = append(active, entry)
		}
	}
	return active, nil
}
