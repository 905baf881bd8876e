package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/shopfront/pkg/models"
)

type ProductRepositoryMemory struct {
	mu       sync.RWMutex
	products map[string]*models.Product
}

func NewProductRepositoryMemory() *ProductRepositoryMemory {
	return &ProductRepositoryMemory{
		products: make(map[string]*models.Product),
	}
}

func (r *ProductRepositoryMemory) Create(ctx context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return fmt.Errorf("%w: product %s already exists", models.ErrConflict, p.ID)
	}
	if r.slugTaken(p) {
		return fmt.Errorf("%w: slug %q already used in shop %s", models.ErrConflict, p.Slug, p.ShopID)
	}
	r.products[p.ID] = copyProduct(p)
	return nil
}

func (r *ProductRepositoryMemory) GetByID(ctx context.Context, productID string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.products[productID]
	if !exists {
		return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, productID)
	}
	return copyProduct(p), nil
}

func (r *ProductRepositoryMemory) GetMany(ctx context.Context, productIDs []string) (map[string]*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.Product, len(productIDs))
	for _, id := range productIDs {
		if p, exists := r.products[id]; exists {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}

func (r *ProductRepositoryMemory) Replace(ctx context.Context, p *models.Product, expected models.ProductStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.products[p.ID]
	if !exists || current.IsDeleted {
		return fmt.Errorf("%w: product %s", models.ErrNotFound, p.ID)
	}
	if current.Status != expected {
		return fmt.Errorf("%w: product %s is %s, not %s", models.ErrConflict, p.ID, current.Status, expected)
	}
	if r.slugTaken(p) {
		return fmt.Errorf("%w: slug %q already used in shop %s", models.ErrConflict, p.Slug, p.ShopID)
	}
	r.products[p.ID] = copyProduct(p)
	return nil
}

func (r *ProductRepositoryMemory) SoftDelete(ctx context.Context, productID string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.products[productID]
	if !exists || p.IsDeleted {
		return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, productID)
	}
	before := copyProduct(p)
	p.IsDeleted = true
	return before, nil
}

func (r *ProductRepositoryMemory) slugTaken(p *models.Product) bool {
	for id, other := range r.products {
		if id != p.ID && !other.IsDeleted && other.ShopID == p.ShopID && other.Slug == p.Slug {
			return true
		}
	}
	return false
}

func copyProduct(p *models.Product) *models.Product {
	out := *p
	out.Variants = make([]models.Variant, len(p.Variants))
	for i, v := range p.Variants {
		attrs := make(map[string]string, len(v.Attributes))
		for k, val := range v.Attributes {
			attrs[k] = val
		}
		v.Attributes = attrs
		out.Variants[i] = v
	}
	return &out
}
