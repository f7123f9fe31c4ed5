// Package catalogsync drives the batch passes that keep the Shopify catalog
// in line with the SAP lifecycle feed and the content generator.
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/database/postgres"
	redisdb "github.com/freitasmatheusrn/catalog-reconciler/internal/database/redis"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/generative"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/referencedata"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/shopify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RunFeed            = "feed"
	RunScan            = "scan"
	RunAnalysis        = "analysis"
	RunProductAnalysis = "product_analysis"

	batchLock = "batch"
)

// Catalog is the subset of the Shopify Admin API the batches use.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*shopify.Product, error)
	ListProductIDs(ctx context.Context, query string) ([]string, error)
	FindVariant(ctx context.Context, sku, variantName string) (*shopify.Variant, error)
	VariantStatuses(ctx context.Context, productID string) (map[string]string, error)
	FindMetaobject(ctx context.Context, objectType, handle string) (string, error)
	UpdateProduct(ctx context.Context, u shopify.ProductUpdate) error
	SetMetafields(ctx context.Context, fields []shopify.MetafieldInput) error
	UpdateImageAlts(ctx context.Context, alts map[string]string) error
}

type LifecycleStore interface {
	Get(ctx context.Context, sku, variant string) (*postgres.VariantState, error)
	List(ctx context.Context) ([]postgres.VariantState, error)
	Save(ctx context.Context, v postgres.VariantState) error
}

type SnapshotStore interface {
	Get(ctx context.Context, productID string) (*merge.Snapshot, error)
	Save(ctx context.Context, productID string, snap merge.Snapshot) error
}

type RunStore interface {
	Save(ctx context.Context, r *report.Report) error
	Get(ctx context.Context, id uuid.UUID) (*report.Report, error)
}

type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// ErrBusy is returned when another batch holds the batch lock.
var ErrBusy = errors.New("another batch is running")

type Config struct {
	// EnrichmentQuery selects the products AnalyzeAll refreshes,
	// in Shopify search syntax.
	EnrichmentQuery string
	LockTTL         time.Duration
	Pool            WorkerPoolConfig
}

type Service struct {
	catalog   Catalog
	lifecycle LifecycleStore
	snapshots SnapshotStore
	runs      RunStore
	locker    Locker
	generator generative.Generator
	pool      *WorkerPool
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

type Deps struct {
	Catalog   Catalog
	Lifecycle LifecycleStore
	Snapshots SnapshotStore
	Runs      RunStore
	// Locker may be nil, in which case batches are not serialized.
	Locker    Locker
	Generator generative.Generator
}

func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	if cfg.EnrichmentQuery == "" {
		cfg.EnrichmentQuery = "tag:ai-enrich"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Hour
	}
	s := &Service{
		catalog:   deps.Catalog,
		lifecycle: deps.Lifecycle,
		snapshots: deps.Snapshots,
		runs:      deps.Runs,
		locker:    deps.Locker,
		generator: deps.Generator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	s.pool = NewWorkerPool(AnalyzerFunc(s.analyze), logger, cfg.Pool)
	return s
}

func (s *Service) Start() error {
	return s.pool.Start()
}

func (s *Service) Stop() error {
	return s.pool.Stop()
}

// GetRun returns a persisted batch report.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	return s.runs.Get(ctx, id)
}

// GetSnapshot returns the last AI write recorded for a product, or nil.
func (s *Service) GetSnapshot(ctx context.Context, productID string) (*merge.Snapshot, error) {
	return s.snapshots.Get(ctx, productID)
}

// batch is one run: its report, its reference cache and the lock it holds.
type batch struct {
	report  *report.Report
	cache   *referencedata.Cache
	release func(context.Context) error
}

func (s *Service) begin(ctx context.Context, kind string, lock bool) (*batch, error) {
	release := func(context.Context) error { return nil }
	if lock && s.locker != nil {
		r, err := s.locker.Acquire(ctx, batchLock, s.cfg.LockTTL)
		if errors.Is(err, redisdb.ErrLocked) {
			return nil, ErrBusy
		}
		if err != nil {
			return nil, fmt.Errorf("acquire batch lock: %w", err)
		}
		release = r
	}
	b := &batch{
		report:  report.New(kind, s.now().UTC()),
		cache:   referencedata.NewCache(metaobjectFinder{catalog: s.catalog}),
		release: release,
	}
	s.logger.Info("batch started",
		zap.String("run_id", b.report.ID.String()),
		zap.String("kind", kind),
	)
	return b, nil
}

// finish closes the report, persists it and releases the lock. Persistence
// failures are logged; the report is still returned to the caller.
func (s *Service) finish(b *batch) {
	b.report.Finish(s.now().UTC())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.runs.Save(ctx, b.report); err != nil {
		s.logger.Error("failed to save run report",
			zap.String("run_id", b.report.ID.String()),
			zap.Error(err),
		)
	}
	if err := b.release(ctx); err != nil {
		s.logger.Warn("failed to release batch lock", zap.Error(err))
	}

	s.logger.Info("batch completed",
		zap.String("run_id", b.report.ID.String()),
		zap.String("kind", b.report.Kind),
		zap.Int("processed", b.report.Processed),
		zap.Int("it_errors", len(b.report.ITErrors)),
		zap.Int("attention", len(b.report.Attention)),
		zap.Int("status_changes", len(b.report.StatusChanges)),
		zap.Duration("duration", b.report.FinishedAt.Sub(b.report.StartedAt)),
	)
}

// metaobjectFinder adapts the catalog to the reference cache.
type metaobjectFinder struct {
	catalog Catalog
}

func (f metaobjectFinder) FindMetaobject(ctx context.Context, objectType, handle string) (string, error) {
	id, err := f.catalog.FindMetaobject(ctx, objectType, handle)
	if errors.Is(err, shopify.ErrNotFound) {
		return "", referencedata.ErrNotFound
	}
	return id, err
}
