// Package filestore implements the append-only journal variant of the RNG
// store (C9, C13), serializing the same commit/draw shape the in-memory and
// relational variants use as newline-delimited JSON.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/starvault/casebot/internal/app/domain/rng"
	"github.com/starvault/casebot/internal/app/storage"
)

type journalRecord struct {
	Kind   string          `json:"kind"` // "commit" or "draw"
	Commit *rng.SeedCommit `json:"commit,omitempty"`
	Draw   *rng.DrawRecord `json:"draw,omitempty"`
}

type drawKey struct {
	caseID string
	userID string
	nonce  string
}

// RNGStore is the append-only journal backend for provably-fair state. On
// open it replays the journal to rebuild the in-memory index used to answer
// reads; every mutation is appended before the index is updated, so a crash
// mid-write leaves the journal as the source of truth for the next replay.
type RNGStore struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	commits map[string]rng.SeedCommit
	draws   map[drawKey]rng.DrawRecord
}

var _ storage.RNGStore = (*RNGStore)(nil)

// Open opens (creating if absent) the journal at path and replays it.
func Open(path string) (*RNGStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}

	s := &RNGStore{
		file:    f,
		writer:  bufio.NewWriter(f),
		commits: make(map[string]rng.SeedCommit),
		draws:   make(map[drawKey]rng.DrawRecord),
	}
	if err := s.replay(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *RNGStore) replay() error {
	if _, err := s.file.Seek(0, 0); err != nil {
		return err
	}
	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec journalRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		switch rec.Kind {
		case "commit":
			if rec.Commit != nil {
				s.commits[rec.Commit.DayUTC] = *rec.Commit
			}
		case "draw":
			if rec.Draw != nil {
				s.draws[drawKey{rec.Draw.CaseID, rec.Draw.UserID, rec.Draw.Nonce}] = *rec.Draw
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if _, err := s.file.Seek(0, 2); err != nil {
		return err
	}
	return nil
}

func (s *RNGStore) append(rec journalRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(append(encoded, '\n')); err != nil {
		return err
	}
	return s.writer.Flush()
}

// Close flushes and closes the underlying file.
func (s *RNGStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

func (s *RNGStore) GetCommit(_ context.Context, dayUTC string) (*rng.SeedCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commits[dayUTC]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *RNGStore) PutCommitIfAbsent(_ context.Context, commit rng.SeedCommit) (rng.SeedCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.commits[commit.DayUTC]; ok {
		return existing, nil
	}
	if err := s.append(journalRecord{Kind: "commit", Commit: &commit}); err != nil {
		return rng.SeedCommit{}, err
	}
	s.commits[commit.DayUTC] = commit
	return commit, nil
}

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
	if err := s.append(journalRecord{Kind: "commit", Commit: &c}); err != nil {
		return err
	}
	s.commits[dayUTC] = c
	return nil
}

func (s *RNGStore) GetDraw(_ context.Context, caseID, userID, nonce string) (*rng.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.draws[drawKey{caseID, userID, nonce}]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *RNGStore) PutDrawIfAbsent(_ context.Context, draw rng.DrawRecord) (rng.DrawRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := drawKey{draw.CaseID, draw.UserID, draw.Nonce}
	if existing, ok := s.draws[key]; ok {
		return existing, false, nil
	}
	if err := s.append(journalRecord{Kind: "draw", Draw: &draw}); err != nil {
		return rng.DrawRecord{}, false, err
	}
	s.draws[key] = draw
	return draw, true, nil
}
