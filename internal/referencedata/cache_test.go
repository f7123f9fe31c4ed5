package referencedata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
)

type mockFinder struct {
	mu      sync.Mutex
	objects map[string]string // "type/handle" -> id
	err     error
	calls   int
}

func (m *mockFinder) FindMetaobject(ctx context.Context, objectType, handle string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	id, ok := m.objects[objectType+"/"+handle]
	if !ok {
		return "", fmt.Errorf("lookup %s: %w", handle, ErrNotFound)
	}
	return id, nil
}

func TestCacheResolve(t *testing.T) {
	finder := &mockFinder{objects: map[string]string{"brand/acme-co": "gid://shopify/Metaobject/1"}}
	cache := NewCache(finder)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := cache.Resolve(ctx, KindBrand, "ACME  Co")
		if err != nil || id != "gid://shopify/Metaobject/1" {
			t.Fatalf("Resolve = %q, %v", id, err)
		}
	}
	if finder.calls != 1 {
		t.Errorf("finder calls = %d, want 1", finder.calls)
	}

	_, err := cache.Resolve(ctx, KindBrand, "Ghost")
	var re *report.Error
	if !errors.As(err, &re) || re.Kind != report.KindMissingReferenceDefinition {
		t.Fatalf("error = %v, want MissingReferenceDefinition", err)
	}
	if re.Message() != "BRAND | Missing definition." || re.Code != "Ghost" {
		t.Errorf("issue = %+v", re.Issue())
	}

	_, _ = cache.Resolve(ctx, KindBrand, "Ghost")
	if finder.calls != 2 {
		t.Errorf("missing definition was not cached, calls = %d", finder.calls)
	}
}

func TestCacheResolve_TransportErrorNotCached(t *testing.T) {
	finder := &mockFinder{err: errors.New("connection refused")}
	cache := NewCache(finder)

	if _, err := cache.Resolve(context.Background(), KindArtist, "Jane"); err == nil || report.IsKind(err, report.KindMissingReferenceDefinition) {
		t.Fatalf("error = %v, want transport error", err)
	}
	if cache.Len() != 0 {
		t.Errorf("transport failure was cached")
	}
}

func TestCaches_AreIsolated(t *testing.T) {
	finder := &mockFinder{objects: map[string]string{"process/screen-print": "gid://shopify/Metaobject/3"}}
	a, b := NewCache(finder), NewCache(finder)

	_, _ = a.Resolve(context.Background(), KindProcess, "Screen Print")
	if b.Len() != 0 {
		t.Fatal("batches share cache state")
	}
}

func TestCache_ConcurrentResolve(t *testing.T) {
	finder := &mockFinder{objects: map[string]string{"category/mugs": "gid://shopify/Metaobject/9"}}
	cache := NewCache(finder)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Resolve(context.Background(), KindCategory, "Mugs"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if cache.Len() != 1 {
		t.Errorf("entries = %d, want 1", cache.Len())
	}
}

func TestPrefetchRecipient(t *testing.T) {
	finder := &mockFinder{objects: map[string]string{"recipient/female-friend-adult": "gid://shopify/Metaobject/77"}}
	cache := NewCache(finder)
	ctx := context.Background()

	found, err := cache.PrefetchRecipient(ctx, &merge.RecipientKey{Gender: "female", Group: "friend"})
	if err != nil {
		t.Fatal(err)
	}
	if ref, ok := found.ResolveRecipient(merge.RecipientKey{Gender: "female", Group: "friend"}); !ok || ref != "gid://shopify/Metaobject/77" {
		t.Errorf("resolved = %q, %v", ref, ok)
	}

	missing, err := cache.PrefetchRecipient(ctx, &merge.RecipientKey{Gender: "male", Group: "dad", ForKid: true})
	if err != nil {
		t.Fatalf("missing definition should not be an error: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v", missing)
	}
}
