package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/auragrid/auragrid-server-go/internal/match"
)

// MatchRepository stores finished matches and state snapshots.
type MatchRepository struct {
	db *DB
}

// NewMatchRepository creates a match repository.
func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// MatchResult is the persisted outcome of one match.
type MatchResult struct {
	MatchID string
	Winner  int
	Turns   int
}

// SaveResult records a finished match.
func (r *MatchRepository) SaveResult(ctx context.Context, result MatchResult) error {
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO matches (id, winner, turns) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET winner = $2, turns = $3`,
		result.MatchID, result.Winner, result.Turns,
	)
	if err != nil {
		return fmt.Errorf("failed to save match result: %w", err)
	}
	return nil
}

// GetResult loads a match outcome. Returns (nil, nil) when absent.
func (r *MatchRepository) GetResult(ctx context.Context, matchID string) (*MatchResult, error) {
	var result MatchResult
	err := r.db.pool.QueryRow(ctx,
		`SELECT id, winner, turns FROM matches WHERE id = $1`, matchID,
	).Scan(&result.MatchID, &result.Winner, &result.Turns)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match result: %w", err)
	}
	return &result, nil
}

// SaveSnapshot persists a gob-encoded snapshot keyed by match, turn,
// and phase. A snapshot for the same key is overwritten.
func (r *MatchRepository) SaveSnapshot(ctx context.Context, snap *match.Snapshot) error {
	data, err := snap.SerializeToBytes()
	if err != nil {
		return err
	}
	_, err = r.db.pool.Exec(ctx,
		`INSERT INTO match_snapshots (match_id, turn, phase, checksum, state)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (match_id, turn, phase) DO UPDATE SET checksum = $4, state = $5`,
		snap.MatchID, snap.TurnNumber, snap.Phase.String(), snap.Checksum(), data,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot loads the most recent snapshot for a match and
// verifies its checksum. Returns (nil, nil) when none exists.
func (r *MatchRepository) LatestSnapshot(ctx context.Context, matchID string) (*match.Snapshot, error) {
	var (
		data     []byte
		checksum string
	)
	err := r.db.pool.QueryRow(ctx,
		`SELECT state, checksum FROM match_snapshots
		 WHERE match_id = $1 ORDER BY created_at DESC LIMIT 1`, matchID,
	).Scan(&data, &checksum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap, err := match.DeserializeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if snap.Checksum() != checksum {
		return nil, fmt.Errorf("snapshot checksum mismatch for match %s", matchID)
	}
	return snap, nil
}
