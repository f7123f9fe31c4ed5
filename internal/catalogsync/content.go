package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/generative"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/shopify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AI metafield keys, all in the shopify.NamespaceAI namespace.
const (
	keyTone               = "tone"
	keyRecipient          = "recipient"
	keyCrudenessLanguage  = "crudeness_language"
	keyCrudenessSexual    = "crudeness_sexual"
	keyCrudenessViolence  = "crudeness_violence"
	keyCrudenessSubstance = "crudeness_substance"
)

// AnalyzeProduct refreshes the generated content of one product. It does
// not take the batch lock.
func (s *Service) AnalyzeProduct(ctx context.Context, productID string) (*report.Report, error) {
	b, err := s.begin(ctx, RunProductAnalysis, false)
	if err != nil {
		return nil, err
	}
	defer s.finish(b)

	out, err := s.pool.SubmitAndWait(ctx, AnalysisJob{ProductID: productID, cache: b.cache})
	if err != nil {
		return b.report, err
	}
	s.collect(b.report, out)
	return b.report, nil
}

// AnalyzeAll refreshes every product matching the enrichment query.
func (s *Service) AnalyzeAll(ctx context.Context) (*report.Report, error) {
	b, err := s.begin(ctx, RunAnalysis, true)
	if err != nil {
		return nil, err
	}
	defer s.finish(b)

	return b.report, s.analyzeAll(ctx, b)
}

// StartAnalyzeAll runs AnalyzeAll in the background and returns the run ID
// right after the batch lock is taken.
func (s *Service) StartAnalyzeAll(timeout time.Duration) (uuid.UUID, error) {
	b, err := s.begin(context.Background(), RunAnalysis, true)
	if err != nil {
		return uuid.Nil, err
	}

	go func() {
		defer s.finish(b)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.analyzeAll(ctx, b); err != nil {
			s.logger.Error("analysis batch failed",
				zap.String("run_id", b.report.ID.String()),
				zap.Error(err),
			)
		}
	}()

	return b.report.ID, nil
}

func (s *Service) analyzeAll(ctx context.Context, b *batch) error {
	ids, err := s.catalog.ListProductIDs(ctx, s.cfg.EnrichmentQuery)
	if err != nil {
		b.report.Add("", report.CatalogFailure("", "SHOPIFY", "Product listing failed.", err))
		return fmt.Errorf("list products to analyze: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Info("no products to analyze")
		return nil
	}

	jobs := make([]AnalysisJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, AnalysisJob{ProductID: id, cache: b.cache})
	}

	results, err := s.pool.SubmitBatch(ctx, jobs)
	if err != nil {
		return fmt.Errorf("submit analysis batch: %w", err)
	}

	received := 0
	for out := range results {
		s.collect(b.report, out)
		received++
	}
	if received < len(jobs) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("analysis batch interrupted after %d of %d products: %w", received, len(jobs), err)
		}
		return fmt.Errorf("analysis batch interrupted after %d of %d products", received, len(jobs))
	}
	return nil
}

// collect folds one product's outcome into the batch report.
func (s *Service) collect(rep *report.Report, res AnalysisResult) {
	rep.Processed++
	if !res.Outcome.OK() {
		s.logger.Warn("product analysis failed",
			zap.String("product_id", res.Job.ProductID),
			zap.String("outcome", res.Outcome.Kind.String()),
			zap.Error(res.Outcome.Err),
		)
		rep.Add(res.Job.ProductID, res.Outcome.Err)
		return
	}
	plan := res.Outcome.Value
	for _, n := range plan.Notices {
		rep.Add(res.Job.ProductID, n)
	}
	s.logger.Info("product analyzed",
		zap.String("product_id", res.Job.ProductID),
		zap.Int("changed", len(plan.Changed)),
		zap.Strings("banned_keywords", plan.Tags.Banned),
	)
}

// analyze runs one product through generation, merge and write-back. The
// snapshot is only stored once every catalog write succeeded.
func (s *Service) analyze(ctx context.Context, job AnalysisJob) report.Outcome[*merge.Plan] {
	id := job.ProductID

	product, err := s.catalog.GetProduct(ctx, id)
	if errors.Is(err, shopify.ErrNotFound) {
		return report.Invalid[*merge.Plan](report.CatalogFailure(id, "SHOPIFY", "Product not found.", nil))
	}
	if err != nil {
		return report.Transient[*merge.Plan](report.CatalogFailure(id, "SHOPIFY", "Product lookup failed.", err))
	}

	snap, err := s.snapshots.Get(ctx, id)
	if err != nil {
		return report.Transient[*merge.Plan](fmt.Errorf("load snapshot: %w", err))
	}

	live := liveFromProduct(product)
	fresh, genErr := s.generator.Generate(ctx, generationRequest(product, live))
	if genErr == nil && fresh == nil {
		genErr = errors.New("generator returned no content")
	}

	var recipients merge.RecipientResolver
	if genErr == nil {
		r, err := job.cache.PrefetchRecipient(ctx, fresh.Recipient)
		if err != nil {
			return report.Transient[*merge.Plan](report.CatalogFailure(id, "SHOPIFY", "Recipient lookup failed.", err))
		}
		recipients = r
	} else {
		fresh = nil
	}

	plan, err := merge.Reconcile(merge.Input{
		Code:     id,
		Snapshot: snap,
		Live:     live,
		Fresh:    fresh,
		FreshErr: genErr,
	}, recipients, s.now().UTC())
	if err != nil {
		var re *report.Error
		if errors.As(err, &re) {
			return report.Invalid[*merge.Plan](re)
		}
		return report.Transient[*merge.Plan](err)
	}

	if err := s.writePlan(ctx, product.ID, live, plan); err != nil {
		return report.Transient[*merge.Plan](report.CatalogFailure(id, "SHOPIFY", "Content update failed.", err))
	}

	if err := s.snapshots.Save(ctx, id, plan.Next); err != nil {
		return report.Transient[*merge.Plan](fmt.Errorf("save snapshot: %w", err))
	}
	return report.Success(plan)
}

func generationRequest(p *shopify.Product, live merge.Live) generative.Request {
	req := generative.Request{
		ProductID:   p.ID,
		Title:       live.Title,
		Description: live.Description,
		Tags:        live.Tags,
		Images:      make([]generative.Image, 0, len(live.Images)),
	}
	for _, img := range live.Images {
		req.Images = append(req.Images, generative.Image{Filename: img.Filename, URL: img.URL})
	}
	return req
}

// liveFromProduct reads the fields the merger works on out of a catalog
// product.
func liveFromProduct(p *shopify.Product) merge.Live {
	live := merge.Live{
		Title:           p.Title,
		Description:     p.DescriptionHTML,
		MetaDescription: p.SEODescription,
		Tags:            append([]string(nil), p.Tags...),
		Images:          make([]merge.Image, 0, len(p.Images)),
		Tone:            p.Metafield(shopify.NamespaceAI, keyTone),
		RecipientRef:    p.Metafield(shopify.NamespaceAI, keyRecipient),
		Crudeness: merge.Ratings{
			Language:  atoi(p.Metafield(shopify.NamespaceAI, keyCrudenessLanguage)),
			Sexual:    atoi(p.Metafield(shopify.NamespaceAI, keyCrudenessSexual)),
			Violence:  atoi(p.Metafield(shopify.NamespaceAI, keyCrudenessViolence)),
			Substance: atoi(p.Metafield(shopify.NamespaceAI, keyCrudenessSubstance)),
		},
	}
	for _, img := range p.Images {
		live.Images = append(live.Images, merge.Image{
			ID:       img.ID,
			Filename: img.Filename(),
			URL:      img.URL,
			Alt:      img.Alt,
		})
	}
	return live
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// writePlan pushes the applied decisions that differ from live.
func (s *Service) writePlan(ctx context.Context, productID string, live merge.Live, plan *merge.Plan) error {
	if !plan.HasWrites() {
		return nil
	}

	update := shopify.ProductUpdate{ID: productID}
	if v, ok := changedText(plan.Title, live.Title); ok {
		update.Title = &v
	}
	if v, ok := changedText(plan.Description, live.Description); ok {
		update.DescriptionHTML = &v
	}
	if v, ok := changedText(plan.MetaDescription, live.MetaDescription); ok {
		update.SEODescription = &v
	}
	if plan.TagsChanged {
		update.Tags = plan.Tags.Tags
	}
	if !update.Empty() {
		if err := s.catalog.UpdateProduct(ctx, update); err != nil {
			return err
		}
	}

	fields := make([]shopify.MetafieldInput, 0, 6)
	text := func(key, value, liveValue, typ string, apply bool) {
		if !apply || value == liveValue || value == "" {
			return
		}
		fields = append(fields, shopify.MetafieldInput{
			OwnerID:   productID,
			Namespace: shopify.NamespaceAI,
			Key:       key,
			Type:      typ,
			Value:     value,
		})
	}
	rating := func(key string, d merge.Decision[int], liveValue int) {
		text(key, strconv.Itoa(d.Value), strconv.Itoa(liveValue), shopify.TypeNumberInteger, d.Apply && d.Value > 0)
	}
	text(keyTone, plan.Tone.Value, live.Tone, shopify.TypeSingleLineText, plan.Tone.Apply)
	text(keyRecipient, plan.Recipient.Value, live.RecipientRef, shopify.TypeMetaobjectRef, plan.Recipient.Apply)
	rating(keyCrudenessLanguage, plan.Crudeness.Language, live.Crudeness.Language)
	rating(keyCrudenessSexual, plan.Crudeness.Sexual, live.Crudeness.Sexual)
	rating(keyCrudenessViolence, plan.Crudeness.Violence, live.Crudeness.Violence)
	rating(keyCrudenessSubstance, plan.Crudeness.Substance, live.Crudeness.Substance)
	if len(fields) > 0 {
		if err := s.catalog.SetMetafields(ctx, fields); err != nil {
			return err
		}
	}

	alts := make(map[string]string)
	for _, img := range live.Images {
		d, ok := plan.AltTextFor(img.Filename)
		if !ok || !d.Apply || d.Value == img.Alt {
			continue
		}
		alts[img.ID] = d.Value
	}
	if len(alts) == 0 {
		return nil
	}
	return s.catalog.UpdateImageAlts(ctx, alts)
}

func changedText(d merge.Decision[string], live string) (string, bool) {
	if !d.Apply || d.Value == live {
		return "", false
	}
	return d.Value, true
}
