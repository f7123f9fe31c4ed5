package shopify

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
)

const (
	NamespaceAI        = "ai"
	NamespaceLifecycle = "lifecycle"
	NamespaceReference = "custom"

	KeyStatus = "status"

	TypeSingleLineText  = "single_line_text_field"
	TypeNumberInteger   = "number_integer"
	TypeMetaobjectRef   = "metaobject_reference"
	metafieldsSetMaxLen = 25
)

type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

type Image struct {
	ID  string
	URL string
	Alt string
}

// Filename is the last path segment of the CDN URL, without the query
// string. It survives re-uploads that change the media ID.
func (i Image) Filename() string {
	u, err := url.Parse(i.URL)
	if err != nil || u.Path == "" {
		return ""
	}
	return path.Base(u.Path)
}

type Product struct {
	ID              string
	Title           string
	DescriptionHTML string
	Status          string
	SEOTitle        string
	SEODescription  string
	Tags            []string
	Images          []Image
	Metafields      []Metafield
}

// Metafield returns the value stored under namespace.key, or "".
func (p *Product) Metafield(namespace, key string) string {
	for _, m := range p.Metafields {
		if m.Namespace == namespace && m.Key == key {
			return m.Value
		}
	}
	return ""
}

type Variant struct {
	ID            string
	SKU           string
	Title         string
	Status        string
	ProductID     string
	ProductStatus string
}

type productNode struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Status          string   `json:"status"`
	Tags            []string `json:"tags"`
	SEO             struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"seo"`
	Metafields struct {
		Nodes []Metafield `json:"nodes"`
	} `json:"metafields"`
	Media struct {
		Nodes []struct {
			ID    string `json:"id"`
			Alt   string `json:"alt"`
			Image *struct {
				URL string `json:"url"`
			} `json:"image"`
		} `json:"nodes"`
	} `json:"media"`
}

func (n *productNode) toProduct() *Product {
	p := &Product{
		ID:              n.ID,
		Title:           n.Title,
		DescriptionHTML: n.DescriptionHTML,
		Status:          n.Status,
		SEOTitle:        n.SEO.Title,
		SEODescription:  n.SEO.Description,
		Tags:            n.Tags,
		Metafields:      n.Metafields.Nodes,
		Images:          make([]Image, 0, len(n.Media.Nodes)),
	}
	for _, m := range n.Media.Nodes {
		// non-image media come back as empty objects
		if m.ID == "" || m.Image == nil {
			continue
		}
		p.Images = append(p.Images, Image{ID: m.ID, URL: m.Image.URL, Alt: m.Alt})
	}
	return p
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var data struct {
		Product *productNode `json:"product"`
	}
	if err := c.Execute(ctx, productQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	if data.Product == nil {
		return nil, ErrNotFound
	}
	return data.Product.toProduct(), nil
}

// ListProductIDs pages through every product matching the search query.
func (c *Client) ListProductIDs(ctx context.Context, query string) ([]string, error) {
	ids := make([]string, 0)
	var after *string
	for {
		var data struct {
			Products struct {
				Nodes []struct {
					ID string `json:"id"`
				} `json:"nodes"`
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"products"`
		}
		vars := map[string]any{"first": 100, "after": after, "query": query}
		if err := c.Execute(ctx, productIDsQuery, vars, &data); err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		for _, n := range data.Products.Nodes {
			ids = append(ids, n.ID)
		}
		if !data.Products.PageInfo.HasNextPage {
			return ids, nil
		}
		cursor := data.Products.PageInfo.EndCursor
		after = &cursor
	}
}

// FindVariant locates the variant with the given SKU whose title matches
// variantName. An empty variantName accepts the first variant with the SKU.
func (c *Client) FindVariant(ctx context.Context, sku, variantName string) (*Variant, error) {
	var data struct {
		ProductVariants struct {
			Nodes []struct {
				ID        string `json:"id"`
				SKU       string `json:"sku"`
				Title     string `json:"title"`
				Metafield *struct {
					Value string `json:"value"`
				} `json:"metafield"`
				Product struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"product"`
			} `json:"nodes"`
		} `json:"productVariants"`
	}
	q := fmt.Sprintf(`sku:"%s"`, strings.ReplaceAll(sku, `"`, `\"`))
	if err := c.Execute(ctx, variantsBySKUQuery, map[string]any{"query": q}, &data); err != nil {
		return nil, fmt.Errorf("find variant %s: %w", sku, err)
	}

	for _, n := range data.ProductVariants.Nodes {
		// the search is fuzzy, so the SKU is checked again here
		if !strings.EqualFold(n.SKU, sku) {
			continue
		}
		if variantName != "" && !strings.EqualFold(strings.TrimSpace(n.Title), strings.TrimSpace(variantName)) {
			continue
		}
		v := &Variant{
			ID:            n.ID,
			SKU:           n.SKU,
			Title:         n.Title,
			ProductID:     n.Product.ID,
			ProductStatus: n.Product.Status,
		}
		if n.Metafield != nil {
			v.Status = n.Metafield.Value
		}
		return v, nil
	}
	return nil, ErrNotFound
}

// VariantStatuses returns the lifecycle status metafield of every variant of
// a product. Variants without one are reported as "".
func (c *Client) VariantStatuses(ctx context.Context, productID string) (map[string]string, error) {
	var data struct {
		Product *struct {
			Variants struct {
				Nodes []struct {
					ID        string `json:"id"`
					Metafield *struct {
						Value string `json:"value"`
					} `json:"metafield"`
				} `json:"nodes"`
			} `json:"variants"`
		} `json:"product"`
	}
	if err := c.Execute(ctx, productVariantsQuery, map[string]any{"id": productID}, &data); err != nil {
		return nil, fmt.Errorf("variant statuses %s: %w", productID, err)
	}
	if data.Product == nil {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(data.Product.Variants.Nodes))
	for _, n := range data.Product.Variants.Nodes {
		status := ""
		if n.Metafield != nil {
			status = n.Metafield.Value
		}
		out[n.ID] = status
	}
	return out, nil
}

// FindMetaobject returns the ID of the metaobject of the given type and handle.
func (c *Client) FindMetaobject(ctx context.Context, objectType, handle string) (string, error) {
	var data struct {
		MetaobjectByHandle *struct {
			ID string `json:"id"`
		} `json:"metaobjectByHandle"`
	}
	vars := map[string]any{"handle": map[string]string{"type": objectType, "handle": handle}}
	if err := c.Execute(ctx, metaobjectByHandleQuery, vars, &data); err != nil {
		return "", fmt.Errorf("metaobject %s/%s: %w", objectType, handle, err)
	}
	if data.MetaobjectByHandle == nil {
		return "", ErrNotFound
	}
	return data.MetaobjectByHandle.ID, nil
}

// ProductUpdate carries the fields to change. Nil pointers, a nil Tags slice
// and an empty Status are left untouched.
type ProductUpdate struct {
	ID              string
	Title           *string
	DescriptionHTML *string
	SEODescription  *string
	Tags            []string
	Status          string
}

func (u ProductUpdate) input() map[string]any {
	in := map[string]any{"id": u.ID}
	if u.Title != nil {
		in["title"] = *u.Title
	}
	if u.DescriptionHTML != nil {
		in["descriptionHtml"] = *u.DescriptionHTML
	}
	if u.SEODescription != nil {
		in["seo"] = map[string]string{"description": *u.SEODescription}
	}
	if u.Tags != nil {
		in["tags"] = u.Tags
	}
	if u.Status != "" {
		in["status"] = u.Status
	}
	return in
}

// Empty reports whether the update would change nothing.
func (u ProductUpdate) Empty() bool {
	return len(u.input()) == 1
}

func (c *Client) UpdateProduct(ctx context.Context, u ProductUpdate) error {
	if u.Empty() {
		return nil
	}
	var data struct {
		ProductUpdate struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := c.Execute(ctx, productUpdateMutation, map[string]any{"product": u.input()}, &data); err != nil {
		return fmt.Errorf("update product %s: %w", u.ID, err)
	}
	return checkUserErrors("productUpdate", data.ProductUpdate.UserErrors)
}

type MetafieldInput struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// SetMetafields writes metafields in chunks of the mutation's input limit.
func (c *Client) SetMetafields(ctx context.Context, fields []MetafieldInput) error {
	for start := 0; start < len(fields); start += metafieldsSetMaxLen {
		end := min(start+metafieldsSetMaxLen, len(fields))
		var data struct {
			MetafieldsSet struct {
				UserErrors []UserError `json:"userErrors"`
			} `json:"metafieldsSet"`
		}
		if err := c.Execute(ctx, metafieldsSetMutation, map[string]any{"metafields": fields[start:end]}, &data); err != nil {
			return fmt.Errorf("set metafields: %w", err)
		}
		if err := checkUserErrors("metafieldsSet", data.MetafieldsSet.UserErrors); err != nil {
			return err
		}
	}
	return nil
}

// UpdateImageAlts sets the alt text of media images, keyed by media ID.
func (c *Client) UpdateImageAlts(ctx context.Context, alts map[string]string) error {
	if len(alts) == 0 {
		return nil
	}
	files := make([]map[string]string, 0, len(alts))
	for id, alt := range alts {
		files = append(files, map[string]string{"id": id, "alt": alt})
	}
	var data struct {
		FileUpdate struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"fileUpdate"`
	}
	if err := c.Execute(ctx, fileUpdateMutation, map[string]any{"files": files}, &data); err != nil {
		return fmt.Errorf("update image alts: %w", err)
	}
	return checkUserErrors("fileUpdate", data.FileUpdate.UserErrors)
}
