package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotStore keeps the last AI write per product.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Get returns nil when the product was never written by the generator.
func (s *SnapshotStore) Get(ctx context.Context, productID string) (*merge.Snapshot, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM ai_snapshots WHERE product_id = $1`, productID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", productID, err)
	}
	var snap merge.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", productID, err)
	}
	if snap.AltTexts == nil {
		snap.AltTexts = make(map[string]string)
	}
	return &snap, nil
}

// Save replaces the stored snapshot wholesale.
func (s *SnapshotStore) Save(ctx context.Context, productID string, snap merge.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", productID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ai_snapshots (product_id, snapshot, written_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET snapshot = EXCLUDED.snapshot, written_at = EXCLUDED.written_at`,
		productID, raw, snap.WrittenAt)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", productID, err)
	}
	return nil
}
