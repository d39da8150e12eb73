// Package rngsvc implements the provably-fair commit/reveal/draw service
// (C9) over a pluggable storage.RNGStore.
package rngsvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	core "github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/internal/app/domain/caseconfig"
	"github.com/starvault/casebot/internal/app/domain/rng"
	"github.com/starvault/casebot/internal/app/storage"
)

const serverSeedLen = 32

// CaseItemsLookup resolves a case's prize table for draw resolution, kept as
// a narrow function type so the service doesn't depend on the full case
// loader.
type CaseItemsLookup func(caseID string) ([]caseconfig.PrizeItem, bool)

// Service derives daily server seeds from a root fairness key, commits their
// hash, and resolves idempotent draws against them (§4.7).
type Service struct {
	store       storage.RNGStore
	clock       core.Clock
	fairnessKey []byte
	items       CaseItemsLookup
}

// New returns a Service backed by store. fairnessKey is the 32-byte root key
// (FAIRNESS_KEY); items resolves a case's prize table for draw resolution.
func New(store storage.RNGStore, clk core.Clock, fairnessKey []byte, items CaseItemsLookup) *Service {
	return &Service{store: store, clock: clk, fairnessKey: fairnessKey, items: items}
}

// DayUTC formats t as the UTC day string used as the commit key.
func DayUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// deriveServerSeed derives a day's server seed via HKDF-Expand(fairnessKey,
// info=dayUTC), so a reveal is independently reproducible by anyone holding
// the root key while each day's seed remains cryptographically independent.
func (s *Service) deriveServerSeed(dayUTC string) (string, error) {
	reader := hkdf.Expand(sha256.New, s.fairnessKey, []byte(dayUTC))
	seed := make([]byte, serverSeedLen)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return "", fmt.Errorf("derive server seed: %w", err)
	}
	return hex.EncodeToString(seed), nil
}

// Commit ensures a SeedCommit exists for dayUTC, deriving and storing it
// lazily if absent. Idempotent: the first writer for a day wins.
func (s *Service) Commit(ctx context.Context, dayUTC string) (rng.SeedCommit, error) {
	existing, err := s.store.GetCommit(ctx, dayUTC)
	if err != nil {
		return rng.SeedCommit{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	seed, err := s.deriveServerSeed(dayUTC)
	if err != nil {
		return rng.SeedCommit{}, err
	}
	hash := sha256.Sum256([]byte(seed))

	commit := rng.SeedCommit{
		DayUTC:         dayUTC,
		ServerSeedHash: hex.EncodeToString(hash[:]),
		CommittedAt:    s.clock.Now(),
	}
	return s.store.PutCommitIfAbsent(ctx, commit)
}

// Reveal discloses dayUTC's server seed to the store. One-shot: revealing a
// day that was already revealed with a different seed fails.
func (s *Service) Reveal(ctx context.Context, dayUTC string) error {
	seed, err := s.deriveServerSeed(dayUTC)
	if err != nil {
		return err
	}
	return s.store.Reveal(ctx, dayUTC, seed, s.clock.Now())
}

// ErrUnknownCase is returned by Draw when items has no entry for caseID.
var ErrUnknownCase = errors.New("rngsvc: unknown case")

// Draw resolves (or replays) the draw for (caseID, userID, nonce), committing
// today's seed lazily if no commit exists yet (§4.7 step 2).
func (s *Service) Draw(ctx context.Context, caseID, userID, nonce string) (rng.DrawRecord, error) {
	if existing, err := s.store.GetDraw(ctx, caseID, userID, nonce); err != nil {
		return rng.DrawRecord{}, err
	} else if existing != nil {
		return *existing, nil
	}

	items, ok := s.items(caseID)
	if !ok {
		return rng.DrawRecord{}, ErrUnknownCase
	}

	dayUTC := DayUTC(s.clock.Now())
	commit, err := s.Commit(ctx, dayUTC)
	if err != nil {
		return rng.DrawRecord{}, err
	}

	seed, err := s.deriveServerSeed(dayUTC)
	if err != nil {
		return rng.DrawRecord{}, err
	}

	rollHex := rollHex(seed, caseID, userID, nonce)
	ppm := rollPPM(rollHex)

	resultItemID := ""
	if item := caseconfig.ResolveItem(items, ppm); item != nil {
		resultItemID = item.ID
	}

	draw := rng.DrawRecord{
		CaseID:         caseID,
		UserID:         userID,
		Nonce:          nonce,
		ServerSeedHash: commit.ServerSeedHash,
		RollHex:        rollHex,
		PPM:            ppm,
		ResultItemID:   resultItemID,
		CreatedAt:      s.clock.Now(),
	}

	stored, _, err := s.store.PutDrawIfAbsent(ctx, draw)
	return stored, err
}

func rollHex(serverSeed, caseID, userID, nonce string) string {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(caseID + "|" + userID + "|" + nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// rollPPM derives a [0, 1_000_000) value from the first 8 hex nibbles of
// rollHex (§4.7 step 4).
func rollPPM(rollHexStr string) int {
	if len(rollHexStr) < 8 {
		return 0
	}
	var v uint32
	for i := 0; i < 8; i++ {
		v <<= 4
		v |= uint32(hexNibble(rollHexStr[i]))
	}
	return int(v % 1_000_000)
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
