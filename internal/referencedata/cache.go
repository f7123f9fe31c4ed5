// Package referencedata resolves feed and generator codes (brands, artists,
// recipients...) to the metaobjects that back them in the catalog.
package referencedata

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
)

// Kind is a reference catalog. Its value is the metaobject type.
type Kind string

const (
	KindBrand     Kind = "brand"
	KindCategory  Kind = "category"
	KindOccasion  Kind = "occasion"
	KindProcess   Kind = "process"
	KindArtist    Kind = "artist"
	KindRecipient Kind = "recipient"
)

// Category is the prefix used when reporting a missing definition.
func (k Kind) Category() string {
	return strings.ToUpper(string(k))
}

// ErrNotFound must be returned (or wrapped) by a Finder when no metaobject
// matches.
var ErrNotFound = errors.New("reference not found")

type Finder interface {
	FindMetaobject(ctx context.Context, objectType, handle string) (string, error)
}

type key struct {
	kind   Kind
	handle string
}

type entry struct {
	id    string
	found bool
}

// Cache memoizes reference lookups for the duration of one batch. Lookup
// failures other than "not found" are not cached. It is safe for use by
// several goroutines of the same batch.
type Cache struct {
	finder  Finder
	mu      sync.Mutex
	entries map[key]entry
}

func NewCache(finder Finder) *Cache {
	return &Cache{finder: finder, entries: make(map[key]entry)}
}

// Resolve returns the metaobject ID for code. A code without a definition
// yields a MissingReferenceDefinition report error.
func (c *Cache) Resolve(ctx context.Context, kind Kind, code string) (string, error) {
	handle := Handle(code)
	k := key{kind: kind, handle: handle}

	c.mu.Lock()
	e, ok := c.entries[k]
	c.mu.Unlock()
	if ok {
		return e.result(kind, code)
	}

	id, err := c.finder.FindMetaobject(ctx, string(kind), handle)
	switch {
	case err == nil:
		e = entry{id: id, found: true}
	case errors.Is(err, ErrNotFound):
		e = entry{}
	default:
		return "", err
	}

	c.mu.Lock()
	c.entries[k] = e
	c.mu.Unlock()
	return e.result(kind, code)
}

func (e entry) result(kind Kind, code string) (string, error) {
	if !e.found {
		return "", report.MissingReferenceDefinition(kind.Category(), code)
	}
	return e.id, nil
}

// Len is the number of cached lookups.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Handle turns a free-form code into a metaobject handle.
func Handle(code string) string {
	return strings.Join(strings.Fields(strings.ToLower(code)), "-")
}

// Recipients is a pre-resolved recipient catalog keyed by handle.
type Recipients map[string]string

func (r Recipients) ResolveRecipient(k merge.RecipientKey) (string, bool) {
	ref, ok := r[k.Handle()]
	return ref, ok
}

// PrefetchRecipient resolves the recipient for k so the merger can run
// without I/O. Only transport failures are returned; a missing definition
// leaves the returned catalog empty.
func (c *Cache) PrefetchRecipient(ctx context.Context, k *merge.RecipientKey) (Recipients, error) {
	out := Recipients{}
	if k == nil {
		return out, nil
	}
	id, err := c.Resolve(ctx, KindRecipient, k.Handle())
	if err != nil {
		if report.IsKind(err, report.KindMissingReferenceDefinition) {
			return out, nil
		}
		return nil, err
	}
	out[k.Handle()] = id
	return out, nil
}
