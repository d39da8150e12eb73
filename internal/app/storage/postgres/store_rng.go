package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/starvault/casebot/internal/app/domain/rng"
	"github.com/starvault/casebot/internal/app/storage"
)

// --- RNGStore ----------------------------------------------------------

func (s *Store) GetCommit(ctx context.Context, dayUTC string) (*rng.SeedCommit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT day_utc, server_seed_hash, committed_at, server_seed, revealed_at
		FROM rng_seed_commits
		WHERE day_utc = $1
	`, dayUTC)
	commit, err := scanSeedCommit(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &commit, nil
}

func (s *Store) PutCommitIfAbsent(ctx context.Context, commit rng.SeedCommit) (rng.SeedCommit, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rng_seed_commits (day_utc, server_seed_hash, committed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (day_utc) DO NOTHING
	`, commit.DayUTC, commit.ServerSeedHash, commit.CommittedAt)
	if err != nil {
		return rng.SeedCommit{}, err
	}

	existing, err := s.GetCommit(ctx, commit.DayUTC)
	if err != nil {
		return rng.SeedCommit{}, err
	}
	return *existing, nil
}

func (s *Store) Reveal(ctx context.Context, dayUTC string, serverSeed string, revealedAt time.Time) error {
	existing, err := s.GetCommit(ctx, dayUTC)
	if err != nil {
		return err
	}
	if existing == nil {
		return storage.ErrNoCommit
	}
	if existing.Revealed() {
		if existing.ServerSeed != serverSeed {
			return storage.ErrAlreadyRevealed
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE rng_seed_commits
		SET server_seed = $2, revealed_at = $3
		WHERE day_utc = $1
	`, dayUTC, serverSeed, revealedAt.UTC())
	return err
}

func (s *Store) GetDraw(ctx context.Context, caseID, userID, nonce string) (*rng.DrawRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT case_id, user_id, nonce, server_seed_hash, roll_hex, ppm, result_item_id, created_at
		FROM rng_draws
		WHERE case_id = $1 AND user_id = $2 AND nonce = $3
	`, caseID, userID, nonce)
	draw, err := scanDrawRecord(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &draw, nil
}

func (s *Store) PutDrawIfAbsent(ctx context.Context, draw rng.DrawRecord) (rng.DrawRecord, bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rng_draws (case_id, user_id, nonce, server_seed_hash, roll_hex, ppm, result_item_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (case_id, user_id, nonce) DO NOTHING
	`, draw.CaseID, draw.UserID, draw.Nonce, draw.ServerSeedHash, draw.RollHex, draw.PPM, draw.ResultItemID, draw.CreatedAt)
	if err != nil {
		return rng.DrawRecord{}, false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return rng.DrawRecord{}, false, err
	}

	existing, err := s.GetDraw(ctx, draw.CaseID, draw.UserID, draw.Nonce)
	if err != nil {
		return rng.DrawRecord{}, false, err
	}
	return *existing, rows > 0, nil
}

func scanSeedCommit(scanner rowScanner) (rng.SeedCommit, error) {
	var (
		commit     rng.SeedCommit
		serverSeed sql.NullString
		revealedAt sql.NullTime
	)
	if err := scanner.Scan(&commit.DayUTC, &commit.ServerSeedHash, &commit.CommittedAt, &serverSeed, &revealedAt); err != nil {
		return rng.SeedCommit{}, err
	}
	commit.CommittedAt = commit.CommittedAt.UTC()
	if serverSeed.Valid {
		commit.ServerSeed = serverSeed.String
	}
	commit.RevealedAt = fromNullTime(revealedAt)
	return commit, nil
}

func scanDrawRecord(scanner rowScanner) (rng.DrawRecord, error) {
	var draw rng.DrawRecord
	if err := scanner.Scan(&draw.CaseID, &draw.UserID, &draw.Nonce, &draw.ServerSeedHash, &draw.RollHex, &draw.PPM, &draw.ResultItemID, &draw.CreatedAt); err != nil {
		return rng.DrawRecord{}, err
	}
	draw.CreatedAt = draw.CreatedAt.UTC()
	return draw, nil
}
