package memory

import (
	"context"
	"sync"
	"time"

	"github.com/starvault/casebot/internal/app/domain/rng"
	"github.com/starvault/casebot/internal/app/storage"
)

type drawKey struct {
	caseID string
	userID string
	nonce  string
}

// RNGStore is the in-memory provably-fair commit/reveal/draw journal (C9).
type RNGStore struct {
	mu      sync.Mutex
	commits map[string]rng.SeedCommit
	draws   map[drawKey]rng.DrawRecord
}

// NewRNGStore returns an empty in-memory RNGStore.
func NewRNGStore() *RNGStore {
	return &RNGStore{
		commits: make(map[string]rng.SeedCommit),
		draws:   make(map[drawKey]rng.DrawRecord),
	}
}

var _ storage.RNGStore = (*RNGStore)(nil)

// GetCommit returns the commit for dayUTC, if any.
func (s *RNGStore) GetCommit(_ context.Context, dayUTC string) (*rng.SeedCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commits[dayUTC]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// PutCommitIfAbsent inserts commit only if dayUTC has no commit yet.
func (s *RNGStore) PutCommitIfAbsent(_ context.Context, commit rng.SeedCommit) (rng.SeedCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.commits[commit.DayUTC]; ok {
		return existing, nil
	}
	s.commits[commit.DayUTC] = commit
	return commit, nil
}

// Reveal writes serverSeed into the existing commit for dayUTC.
func (s *RNGStore) Reveal(_ context.Context, dayUTC string, serverSeed string, revealedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commits[dayUTC]
	if !ok {
		return storage.ErrNoCommit
	}
	if c.Revealed() {
		if c.ServerSeed != serverSeed {
			return storage.ErrAlreadyRevealed
		}
		return nil
	}
	c.ServerSeed = serverSeed
	c.RevealedAt = &revealedAt
	s.commits[dayUTC] = c
	return nil
}

// GetDraw returns the journaled draw for (caseID, userID, nonce), if any.
func (s *RNGStore) GetDraw(_ context.Context, caseID, userID, nonce string) (*rng.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.draws[drawKey{caseID, userID, nonce}]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// PutDrawIfAbsent journals draw only if its idempotency key is unseen.
func (s *RNGStore) PutDrawIfAbsent(_ context.Context, draw rng.DrawRecord) (rng.DrawRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := drawKey{draw.CaseID, draw.UserID, draw.Nonce}
	if existing, ok := s.draws[key]; ok {
		return existing, false, nil
	}
	s.draws[key] = draw
	return draw, true, nil
}
