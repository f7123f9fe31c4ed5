package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/lifecycle"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VariantState is the persisted lifecycle of one (SKU, variant).
type VariantState struct {
	SKU       string           `json:"sku"`
	Variant   string           `json:"variant"`
	VariantID string           `json:"variant_id"`
	ProductID string           `json:"product_id"`
	Dates     lifecycle.Dates  `json:"dates"`
	Status    lifecycle.Status `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type LifecycleStore struct {
	pool *pgxpool.Pool
}

func NewLifecycleStore(pool *pgxpool.Pool) *LifecycleStore {
	return &LifecycleStore{pool: pool}
}

const variantColumns = `sku, variant, variant_id, product_id, intro_date, active_date,
	not_longer_available_date, out_when_out_date, verify_before_purchase_date,
	temporarily_out_date, latest_date_code, status, updated_at`

func scanVariant(row pgx.Row) (*VariantState, error) {
	var (
		s                                     VariantState
		intro, active, nla, owo, vbp, tempOut pgtype.Date
		latestCode, status                    string
	)
	if err := row.Scan(&s.SKU, &s.Variant, &s.VariantID, &s.ProductID, &intro, &active,
		&nla, &owo, &vbp, &tempOut, &latestCode, &status, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Dates.LatestDateCode = lifecycle.DateCode(latestCode)
	s.Dates.Intro = fromPgDate(intro)
	s.Dates.Active = fromPgDate(active)
	s.Dates.NotLongerAvailable = fromPgDate(nla)
	s.Dates.OutWhenOut = fromPgDate(owo)
	s.Dates.VerifyBeforePurchase = fromPgDate(vbp)
	s.Dates.TemporarilyOut = fromPgDate(tempOut)
	if st, ok := lifecycle.ParseStatus(status); ok {
		s.Status = st
	} else {
		s.Status = lifecycle.StatusDraft
	}
	return &s, nil
}

// Get returns the stored state, or nil when the variant was never seen.
func (s *LifecycleStore) Get(ctx context.Context, sku, variant string) (*VariantState, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+variantColumns+` FROM variant_lifecycle WHERE sku = $1 AND variant = $2`, sku, variant)
	v, err := scanVariant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get variant %s/%s: %w", sku, variant, err)
	}
	return v, nil
}

// List returns every stored variant ordered by SKU.
func (s *LifecycleStore) List(ctx context.Context) ([]VariantState, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+variantColumns+` FROM variant_lifecycle ORDER BY sku, variant`)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	out := make([]VariantState, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *LifecycleStore) Save(ctx context.Context, v VariantState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO variant_lifecycle (`+variantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (sku, variant) DO UPDATE SET
			variant_id = EXCLUDED.variant_id,
			product_id = EXCLUDED.product_id,
			intro_date = EXCLUDED.intro_date,
			active_date = EXCLUDED.active_date,
			not_longer_available_date = EXCLUDED.not_longer_available_date,
			out_when_out_date = EXCLUDED.out_when_out_date,
			verify_before_purchase_date = EXCLUDED.verify_before_purchase_date,
			temporarily_out_date = EXCLUDED.temporarily_out_date,
			latest_date_code = EXCLUDED.latest_date_code,
			status = EXCLUDED.status,
			updated_at = now()`,
		v.SKU, v.Variant, v.VariantID, v.ProductID,
		toPgDate(v.Dates.Intro), toPgDate(v.Dates.Active), toPgDate(v.Dates.NotLongerAvailable),
		toPgDate(v.Dates.OutWhenOut), toPgDate(v.Dates.VerifyBeforePurchase), toPgDate(v.Dates.TemporarilyOut),
		string(v.Dates.LatestDateCode), string(v.Status),
	)
	if err != nil {
		return fmt.Errorf("save variant %s/%s: %w", v.SKU, v.Variant, err)
	}
	return nil
}
