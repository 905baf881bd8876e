package models

import (
	"fmt"
	"time"
)

type ProductStatus string

const (
	ProductDraft    ProductStatus = "draft"
	ProductActive   ProductStatus = "active"
	ProductArchived ProductStatus = "archived"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductActive, ProductArchived:
		return true
	}
	return false
}

// Variant is one purchasable option of a product. ID is stable across edits to
// the variant list; positional indexes are only resolved at write time.
type Variant struct {
	ID         string            `bson:"id" json:"id"`
	Attributes map[string]string `bson:"attributes" json:"attributes"`
	IsDefault  bool              `bson:"isDefault" json:"isDefault"`
	Price      *float64          `bson:"price,omitempty" json:"price,omitempty" validate:"omitempty,gte=0"`
	Stock      *int              `bson:"stock,omitempty" json:"stock,omitempty" validate:"omitempty,gte=0"`
}

type Product struct {
	ID          string        `bson:"_id" json:"id"`
	ShopID      string        `bson:"shopId" json:"shopId" validate:"required"`
	Name        string        `bson:"name" json:"name" validate:"required,max=200"`
	Slug        string        `bson:"slug" json:"slug" validate:"required,max=200"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64       `bson:"price" json:"price" validate:"gte=0"`
	Currency    string        `bson:"currency" json:"currency" validate:"required,len=3"`
	Stock       int           `bson:"stock" json:"stock" validate:"gte=0"`
	Discount    float64       `bson:"discount" json:"discount" validate:"gte=0,lte=100"`
	SaleStart   *time.Time    `bson:"saleStart,omitempty" json:"saleStart,omitempty"`
	SaleEnd     *time.Time    `bson:"saleEnd,omitempty" json:"saleEnd,omitempty"`
	Variants    []Variant     `bson:"variants" json:"variants" validate:"dive"`
	Status      ProductStatus `bson:"status" json:"status" validate:"required,oneof=draft active archived"`
	IsDeleted   bool          `bson:"isDeleted" json:"isDeleted"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// VariantAt resolves a positional index against the current variant list.
func (p *Product) VariantAt(index int) (*Variant, error) {
	if index < 0 || index >= len(p.Variants) {
		return nil, fmt.Errorf("%w: variant index %d out of range for product %s", ErrValidation, index, p.ID)
	}
	return &p.Variants[index], nil
}

// VariantByID returns the variant and its current position.
func (p *Product) VariantByID(id string) (int, *Variant, error) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return i, &p.Variants[i], nil
		}
	}
	return -1, nil, fmt.Errorf("%w: unknown variant %q for product %s", ErrValidation, id, p.ID)
}

// SaleActive reports whether the discount applies at now. A window is only
// enforced when both ends are set.
func (p *Product) SaleActive(now time.Time) bool {
	if p.Discount <= 0 {
		return false
	}
	if p.SaleStart != nil && p.SaleEnd != nil {
		return !now.Before(*p.SaleStart) && !now.After(*p.SaleEnd)
	}
	return true
}
