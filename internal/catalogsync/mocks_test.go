package catalogsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/database/postgres"
	redisdb "github.com/freitasmatheusrn/catalog-reconciler/internal/database/redis"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/generative"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/shopify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockCatalog is an in-memory Shopify store.
type MockCatalog struct {
	mu sync.Mutex

	Products    map[string]*shopify.Product
	Variants    map[string]*shopify.Variant // keyed by SKU
	Statuses    map[string]map[string]string
	Metaobjects map[string]string // "type/handle" -> id
	ProductIDs  []string

	FindVariantErr     error
	GetProductErr      error
	SetMetafieldsErr   error
	UpdateProductErr   error
	UpdateImageAltsErr error

	MetaobjectCalls int
	Updates         []shopify.ProductUpdate
	MetafieldWrites [][]shopify.MetafieldInput
	AltWrites       []map[string]string
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Products:    make(map[string]*shopify.Product),
		Variants:    make(map[string]*shopify.Variant),
		Statuses:    make(map[string]map[string]string),
		Metaobjects: make(map[string]string),
	}
}

func (m *MockCatalog) GetProduct(ctx context.Context, id string) (*shopify.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetProductErr != nil {
		return nil, m.GetProductErr
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, shopify.ErrNotFound
	}
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Images = append([]shopify.Image(nil), p.Images...)
	cp.Metafields = append([]shopify.Metafield(nil), p.Metafields...)
	return &cp, nil
}

func (m *MockCatalog) ListProductIDs(ctx context.Context, query string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ProductIDs...), nil
}

func (m *MockCatalog) FindVariant(ctx context.Context, sku, variantName string) (*shopify.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindVariantErr != nil {
		return nil, m.FindVariantErr
	}
	v, ok := m.Variants[sku]
	if !ok {
		return nil, shopify.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *MockCatalog) VariantStatuses(ctx context.Context, productID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.Statuses[productID] {
		out[k] = v
	}
	return out, nil
}

func (m *MockCatalog) FindMetaobject(ctx context.Context, objectType, handle string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MetaobjectCalls++
	id, ok := m.Metaobjects[objectType+"/"+handle]
	if !ok {
		return "", shopify.ErrNotFound
	}
	return id, nil
}

func (m *MockCatalog) UpdateProduct(ctx context.Context, u shopify.ProductUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateProductErr != nil {
		return m.UpdateProductErr
	}
	m.Updates = append(m.Updates, u)
	if p, ok := m.Products[u.ID]; ok {
		if u.Title != nil {
			p.Title = *u.Title
		}
		if u.DescriptionHTML != nil {
			p.DescriptionHTML = *u.DescriptionHTML
		}
		if u.SEODescription != nil {
			p.SEODescription = *u.SEODescription
		}
		if u.Tags != nil {
			p.Tags = append([]string(nil), u.Tags...)
		}
		if u.Status != "" {
			p.Status = u.Status
		}
	}
	return nil
}

func (m *MockCatalog) SetMetafields(ctx context.Context, fields []shopify.MetafieldInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetMetafieldsErr != nil {
		return m.SetMetafieldsErr
	}
	m.MetafieldWrites = append(m.MetafieldWrites, fields)
	for _, f := range fields {
		p, ok := m.Products[f.OwnerID]
		if !ok {
			continue
		}
		mf := shopify.Metafield{Namespace: f.Namespace, Key: f.Key, Type: f.Type, Value: f.Value}
		replaced := false
		for i := range p.Metafields {
			if p.Metafields[i].Namespace == f.Namespace && p.Metafields[i].Key == f.Key {
				p.Metafields[i] = mf
				replaced = true
			}
		}
		if !replaced {
			p.Metafields = append(p.Metafields, mf)
		}
	}
	return nil
}

func (m *MockCatalog) UpdateImageAlts(ctx context.Context, alts map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateImageAltsErr != nil {
		return m.UpdateImageAltsErr
	}
	m.AltWrites = append(m.AltWrites, alts)
	for _, p := range m.Products {
		for i := range p.Images {
			if alt, ok := alts[p.Images[i].ID]; ok {
				p.Images[i].Alt = alt
			}
		}
	}
	return nil
}

// metafield returns the last value written for owner/namespace.key.
func (m *MockCatalog) metafield(owner, namespace, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, found := "", false
	for _, batch := range m.MetafieldWrites {
		for _, f := range batch {
			if f.OwnerID == owner && f.Namespace == namespace && f.Key == key {
				value, found = f.Value, true
			}
		}
	}
	return value, found
}

type MockLifecycleStore struct {
	mu      sync.Mutex
	states  map[string]postgres.VariantState
	order   []string
	SaveErr error
}

func NewMockLifecycleStore(states ...postgres.VariantState) *MockLifecycleStore {
	m := &MockLifecycleStore{states: make(map[string]postgres.VariantState)}
	for _, s := range states {
		m.put(s)
	}
	return m
}

func (m *MockLifecycleStore) put(v postgres.VariantState) {
	k := v.SKU + "|" + v.Variant
	if _, ok := m.states[k]; !ok {
		m.order = append(m.order, k)
	}
	m.states[k] = v
}

func (m *MockLifecycleStore) Get(ctx context.Context, sku, variant string) (*postgres.VariantState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.states[sku+"|"+variant]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *MockLifecycleStore) List(ctx context.Context) ([]postgres.VariantState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]postgres.VariantState, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.states[k])
	}
	return out, nil
}

func (m *MockLifecycleStore) Save(ctx context.Context, v postgres.VariantState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.put(v)
	return nil
}

type MockSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]merge.Snapshot
	Saves     int
}

func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{snapshots: make(map[string]merge.Snapshot)}
}

func (m *MockSnapshotStore) Get(ctx context.Context, productID string) (*merge.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[productID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MockSnapshotStore) Save(ctx context.Context, productID string, snap merge.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[productID] = snap
	m.Saves++
	return nil
}

type MockRunStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*report.Report
}

func NewMockRunStore() *MockRunStore {
	return &MockRunStore{runs: make(map[uuid.UUID]*report.Report)}
}

func (m *MockRunStore) Save(ctx context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
	return nil
}

func (m *MockRunStore) Get(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, postgres.ErrRunNotFound
	}
	return r, nil
}

type MockLocker struct {
	mu       sync.Mutex
	held     bool
	Released int
}

func (m *MockLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held {
		return nil, redisdb.ErrLocked
	}
	m.held = true
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.held {
			m.held = false
			m.Released++
		}
		return nil
	}, nil
}

func (m *MockLocker) releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Released
}

// MockGenerator returns canned content per product ID.
type MockGenerator struct {
	mu       sync.Mutex
	Content  map[string]*merge.Generated
	Err      error
	Requests []generative.Request
}

func (m *MockGenerator) Generate(ctx context.Context, req generative.Request) (*merge.Generated, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	g, ok := m.Content[req.ProductID]
	if !ok {
		return nil, errors.New("no canned content")
	}
	return g, nil
}

type fixture struct {
	svc       *Service
	catalog   *MockCatalog
	lifecycle *MockLifecycleStore
	snapshots *MockSnapshotStore
	runs      *MockRunStore
	locker    *MockLocker
	generator *MockGenerator
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		catalog:   NewMockCatalog(),
		lifecycle: NewMockLifecycleStore(),
		snapshots: NewMockSnapshotStore(),
		runs:      NewMockRunStore(),
		locker:    &MockLocker{},
		generator: &MockGenerator{Content: make(map[string]*merge.Generated)},
	}
	f.svc = NewService(Deps{
		Catalog:   f.catalog,
		Lifecycle: f.lifecycle,
		Snapshots: f.snapshots,
		Runs:      f.runs,
		Locker:    f.locker,
		Generator: f.generator,
	}, Config{Pool: WorkerPoolConfig{NumWorkers: 2, QueueSize: 4}}, zap.NewNop())
	f.svc.now = func() time.Time { return now }
	return f
}
