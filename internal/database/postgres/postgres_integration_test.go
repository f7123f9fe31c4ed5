//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/lifecycle"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/google/uuid"
)

// Run with: DATABASE_URL=postgres://... go test -tags=integration ./internal/database/postgres/...
func TestStores_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	pool, err := Init(dsn)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer pool.Close()
	ctx := context.Background()

	sku := "IT-" + uuid.NewString()[:8]
	defer pool.Exec(ctx, `DELETE FROM variant_lifecycle WHERE sku = $1`, sku)

	lifecycleStore := NewLifecycleStore(pool)
	if v, err := lifecycleStore.Get(ctx, sku, "Large"); err != nil || v != nil {
		t.Fatalf("Get on unknown variant = %+v, %v", v, err)
	}

	var dates lifecycle.Dates
	_ = dates.Apply(lifecycle.CodeActive, time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC))
	if err := lifecycleStore.Save(ctx, VariantState{SKU: sku, Variant: "Large", VariantID: "v1", Dates: dates, Status: lifecycle.StatusActive}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := lifecycleStore.Get(ctx, sku, "Large")
	if err != nil || got == nil {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if got.Status != lifecycle.StatusActive || got.Dates.Active == nil || got.Dates.Active.Day() != 10 || got.Dates.LatestDateCode != lifecycle.CodeActive {
		t.Errorf("round trip = %+v", got)
	}

	productID := "gid://shopify/Product/" + sku
	defer pool.Exec(ctx, `DELETE FROM ai_snapshots WHERE product_id = $1`, productID)
	snapshots := NewSnapshotStore(pool)
	title := "Blue Mug"
	if err := snapshots.Save(ctx, productID, merge.Snapshot{Title: &title, Keywords: []string{"a"}, WrittenAt: time.Now()}); err != nil {
		t.Fatalf("Save snapshot: %v", err)
	}
	snap, err := snapshots.Get(ctx, productID)
	if err != nil || snap == nil || *snap.Title != title {
		t.Fatalf("Get snapshot = %+v, %v", snap, err)
	}

	runs := NewRunStore(pool)
	r := report.New("feed", time.Now())
	r.Add("SKU-1", report.MissingReferenceDefinition("BRAND", "ACME"))
	r.Finish(time.Now())
	defer pool.Exec(ctx, `DELETE FROM run_reports WHERE id = $1`, r.ID)
	if err := runs.Save(ctx, r); err != nil {
		t.Fatalf("Save report: %v", err)
	}
	loaded, err := runs.Get(ctx, r.ID)
	if err != nil || len(loaded.Attention) != 1 {
		t.Fatalf("Get report = %+v, %v", loaded, err)
	}
	if _, err := runs.Get(ctx, uuid.New()); err != ErrRunNotFound {
		t.Errorf("unknown run error = %v", err)
	}
}
