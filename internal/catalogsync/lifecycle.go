package catalogsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/database/postgres"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/feed"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/lifecycle"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/referencedata"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/shopify"
	"go.uber.org/zap"
)

// ProcessFeed applies a SAP feed: lifecycle dates per variant and reference
// codes per product. Rows the parser rejected are reported as IT errors.
func (s *Service) ProcessFeed(ctx context.Context, records []feed.Record, rejected ...feed.RowError) (*report.Report, error) {
	b, err := s.begin(ctx, RunFeed, true)
	if err != nil {
		return nil, err
	}
	defer s.finish(b)

	for _, r := range rejected {
		b.report.Add(r.SKU, report.CatalogFailure(r.SKU, "FEED", r.Error(), nil))
	}

	refs := referenceCodes(records)
	done := make(map[string]bool)

	for _, g := range feed.GroupByVariant(records) {
		if err := ctx.Err(); err != nil {
			return b.report, err
		}
		variant, ok := s.findVariant(ctx, b.report, g.Key.SKU, g.Key.Variant)
		if !ok {
			continue
		}
		s.applyDates(ctx, b.report, variant, g)
		b.report.Processed++

		if done[g.Key.SKU] {
			continue
		}
		done[g.Key.SKU] = true
		s.applyReferences(ctx, b, variant.ProductID, g.Key.SKU, refs[g.Key.SKU])
	}

	return b.report, nil
}

// ScanCatalog re-resolves every stored variant against today, picking up
// dates that became past since the last feed.
func (s *Service) ScanCatalog(ctx context.Context) (*report.Report, error) {
	b, err := s.begin(ctx, RunScan, true)
	if err != nil {
		return nil, err
	}
	defer s.finish(b)

	states, err := s.lifecycle.List(ctx)
	if err != nil {
		return b.report, fmt.Errorf("list lifecycle states: %w", err)
	}

	for i := range states {
		if err := ctx.Err(); err != nil {
			return b.report, err
		}
		state := &states[i]
		if state.VariantID == "" || state.ProductID == "" {
			variant, ok := s.findVariant(ctx, b.report, state.SKU, state.Variant)
			if !ok {
				continue
			}
			state.VariantID = variant.ID
			state.ProductID = variant.ProductID
		}
		s.resolve(ctx, b.report, state)
		b.report.Processed++
	}

	return b.report, nil
}

func (s *Service) findVariant(ctx context.Context, rep *report.Report, sku, name string) (*shopify.Variant, bool) {
	variant, err := s.catalog.FindVariant(ctx, sku, name)
	if errors.Is(err, shopify.ErrNotFound) {
		rep.Add(sku, report.CatalogFailure(sku, "SHOPIFY", "Variant not found.", nil))
		return nil, false
	}
	if err != nil {
		s.logger.Error("variant lookup failed", zap.String("sku", sku), zap.Error(err))
		rep.Add(sku, report.CatalogFailure(sku, "SHOPIFY", "Variant lookup failed.", err))
		return nil, false
	}
	return variant, true
}

func (s *Service) applyDates(ctx context.Context, rep *report.Report, variant *shopify.Variant, g feed.Group) {
	sku := g.Key.SKU
	state, err := s.lifecycle.Get(ctx, sku, g.Key.Variant)
	if err != nil {
		rep.Add(sku, fmt.Errorf("load lifecycle state: %w", err))
		return
	}
	if state == nil {
		state = &postgres.VariantState{
			SKU:     sku,
			Variant: g.Key.Variant,
			Status:  initialStatus(variant),
		}
	}
	state.VariantID = variant.ID
	state.ProductID = variant.ProductID

	for _, r := range g.Records {
		if r.DateCode == "" && r.Date.IsZero() {
			continue
		}
		if err := state.Dates.Apply(lifecycle.DateCode(r.DateCode), r.Date); err != nil {
			s.logger.Warn("unrecognized date code",
				zap.String("sku", sku),
				zap.String("variant", g.Key.Variant),
				zap.String("date_code", r.DateCode),
			)
			rep.Add(sku, report.UnrecognizedDateCode(sku, g.Key.Variant, r.DateCode))
		}
	}

	s.resolve(ctx, rep, state)
}

// initialStatus is the status a variant has before we ever stored one: its
// lifecycle metafield, or DRAFT.
func initialStatus(v *shopify.Variant) lifecycle.Status {
	if st, ok := lifecycle.ParseStatus(v.Status); ok {
		return st
	}
	return lifecycle.StatusDraft
}

// resolve computes the variant's status for today, pushes a transition to
// the catalog and stores the result. A failed catalog write keeps the old
// status so the next pass retries it.
func (s *Service) resolve(ctx context.Context, rep *report.Report, state *postgres.VariantState) {
	res := lifecycle.Resolve(state.Dates, state.Status, s.now())
	old := state.Status

	if res.Transitioned {
		if err := s.writeStatus(ctx, state.VariantID, state.ProductID, res.Status); err != nil {
			s.logger.Error("failed to write lifecycle status",
				zap.String("sku", state.SKU),
				zap.String("variant", state.Variant),
				zap.Error(err),
			)
			rep.Add(state.SKU, report.CatalogFailure(state.SKU, "SHOPIFY", "Status update failed.", err))
		} else {
			state.Status = res.Status
			rep.AddStatusChange(report.StatusChange{
				SKU:       state.SKU,
				Variant:   state.Variant,
				OldStatus: string(old),
				NewStatus: string(res.Status),
				Reason:    string(res.Reason),
			})
			s.logger.Info("lifecycle status changed",
				zap.String("sku", state.SKU),
				zap.String("variant", state.Variant),
				zap.String("old_status", string(old)),
				zap.String("new_status", string(res.Status)),
			)
		}
	}

	state.UpdatedAt = s.now().UTC()
	if err := s.lifecycle.Save(ctx, *state); err != nil {
		rep.Add(state.SKU, fmt.Errorf("save lifecycle state: %w", err))
	}
}

// writeStatus sets the variant's lifecycle metafield and moves the product
// status along with its variants.
func (s *Service) writeStatus(ctx context.Context, variantID, productID string, status lifecycle.Status) error {
	err := s.catalog.SetMetafields(ctx, []shopify.MetafieldInput{{
		OwnerID:   variantID,
		Namespace: shopify.NamespaceLifecycle,
		Key:       shopify.KeyStatus,
		Type:      shopify.TypeSingleLineText,
		Value:     string(status),
	}})
	if err != nil {
		return err
	}

	statuses, err := s.catalog.VariantStatuses(ctx, productID)
	if err != nil {
		return err
	}
	if statuses == nil {
		statuses = make(map[string]string)
	}
	// the metafield we just wrote may not be visible to the read yet
	statuses[variantID] = string(status)

	productStatus := aggregateStatus(statuses)
	if productStatus == "" {
		return nil
	}
	return s.catalog.UpdateProduct(ctx, shopify.ProductUpdate{ID: productID, Status: string(productStatus)})
}

// aggregateStatus is ACTIVE when any variant is active, ARCHIVED when all
// are archived and "" (leave the product alone) otherwise.
func aggregateStatus(statuses map[string]string) lifecycle.Status {
	if len(statuses) == 0 {
		return ""
	}
	archived := 0
	for _, st := range statuses {
		switch lifecycle.Status(st) {
		case lifecycle.StatusActive:
			return lifecycle.StatusActive
		case lifecycle.StatusArchived:
			archived++
		}
	}
	if archived == len(statuses) {
		return lifecycle.StatusArchived
	}
	return ""
}

type refCodes struct {
	Brand    string
	Category string
	Artist   string
	Process  string
}

// referenceCodes collects the reference codes per SKU. Later rows win.
func referenceCodes(records []feed.Record) map[string]refCodes {
	out := make(map[string]refCodes)
	for _, r := range records {
		c := out[r.SKU]
		if r.Brand != "" {
			c.Brand = r.Brand
		}
		if r.Category != "" {
			c.Category = r.Category
		}
		if r.Artist != "" {
			c.Artist = r.Artist
		}
		if r.Process != "" {
			c.Process = r.Process
		}
		out[r.SKU] = c
	}
	return out
}

// applyReferences points the product's reference metafields at the
// metaobjects behind the feed codes. Codes without a definition are
// reported and skipped.
func (s *Service) applyReferences(ctx context.Context, b *batch, productID, sku string, codes refCodes) {
	pairs := []struct {
		kind referencedata.Kind
		code string
	}{
		{referencedata.KindBrand, codes.Brand},
		{referencedata.KindCategory, codes.Category},
		{referencedata.KindArtist, codes.Artist},
		{referencedata.KindProcess, codes.Process},
	}

	fields := make([]shopify.MetafieldInput, 0, len(pairs))
	for _, p := range pairs {
		if p.code == "" {
			continue
		}
		id, err := b.cache.Resolve(ctx, p.kind, p.code)
		if err != nil {
			if !report.IsKind(err, report.KindMissingReferenceDefinition) {
				s.logger.Error("reference lookup failed",
					zap.String("sku", sku),
					zap.String("kind", string(p.kind)),
					zap.Error(err),
				)
				err = report.CatalogFailure(sku, "SHOPIFY", "Reference lookup failed.", err)
			}
			b.report.Add(sku, err)
			continue
		}
		fields = append(fields, shopify.MetafieldInput{
			OwnerID:   productID,
			Namespace: shopify.NamespaceReference,
			Key:       string(p.kind),
			Type:      shopify.TypeMetaobjectRef,
			Value:     id,
		})
	}
	if len(fields) == 0 {
		return
	}
	if err := s.catalog.SetMetafields(ctx, fields); err != nil {
		s.logger.Error("failed to set reference metafields", zap.String("sku", sku), zap.Error(err))
		b.report.Add(sku, report.CatalogFailure(sku, "SHOPIFY", "Reference update failed.", err))
	}
}
