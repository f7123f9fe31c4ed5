// Package generative produces product copy, tags, alt text and content
// classifications from a product's current data and images.
package generative

import (
	"context"
	"fmt"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
)

type Image struct {
	Filename string
	URL      string
}

// Request is what the generator knows about a product.
type Request struct {
	ProductID   string
	Title       string
	Description string
	Tags        []string
	Brand       string
	Artist      string
	Images      []Image
}

type Generator interface {
	Generate(ctx context.Context, req Request) (*merge.Generated, error)
}

// PromptFailure describes a failed call to the content provider.
type PromptFailure struct {
	HTTPStatus int
	Name       string
	Message    string
}

func (e *PromptFailure) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("http %d %s: %s", e.HTTPStatus, e.Name, e.Message)
}
