package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tastycandy/rlmtrans/internal/state"
	"github.com/tastycandy/rlmtrans/pkg/memory"
)

// SaveSnapshot implements [memory.StateStore]. It upserts snap, keyed by
// SessionID, as a JSONB blob of the exported project memory.
func (s *Store) SaveSnapshot(ctx context.Context, snap memory.SessionSnapshot) error {
	payload, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("state store: marshal snapshot: %w", err)
	}

	const q = `
		INSERT INTO session_snapshots (session_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
		    state      = EXCLUDED.state,
		    updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, q, snap.SessionID, payload, snap.UpdatedAt); err != nil {
		return fmt.Errorf("state store: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot implements [memory.StateStore]. It returns (nil, nil) when no
// snapshot exists for sessionID.
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) (*memory.SessionSnapshot, error) {
	const q = `SELECT state, updated_at FROM session_snapshots WHERE session_id = $1`

	var (
		payload   []byte
		updatedAt time.Time
	)
	row := s.pool.QueryRow(ctx, q, sessionID)
	if err := row.Scan(&payload, &updatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("state store: load snapshot: %w", err)
	}

	var exported state.Export
	if err := json.Unmarshal(payload, &exported); err != nil {
		return nil, fmt.Errorf("state store: unmarshal snapshot: %w", err)
	}

	return &memory.SessionSnapshot{
		SessionID: sessionID,
		State:     exported,
		UpdatedAt: updatedAt,
	}, nil
}

// DeleteSnapshot implements [memory.StateStore]. Deleting a non-existent
// snapshot is not an error.
func (s *Store) DeleteSnapshot(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM session_snapshots WHERE session_id = $1`
	if _, err := s.pool.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("state store: delete snapshot: %w", err)
	}
	return nil
}
