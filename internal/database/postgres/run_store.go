package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRunNotFound = errors.New("run not found")

// RunStore persists batch reports.
type RunStore struct {
	pool *pgxpool.Pool
}

func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

func (s *RunStore) Save(ctx context.Context, r *report.Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO run_reports (id, kind, started_at, finished_at, report)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET finished_at = EXCLUDED.finished_at, report = EXCLUDED.report`,
		r.ID, r.Kind, r.StartedAt, toPgTimestamptz(r.FinishedAt), raw)
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM run_reports WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	var r report.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &r, nil
}
