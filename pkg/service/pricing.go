package service

import (
	"time"

	"github.com/example/shopfront/pkg/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// VariantSelector picks a variant by stable id or, failing that, by position
// in the product's current variant list.
type VariantSelector struct {
	ID    string `json:"variantId,omitempty" form:"variantId"`
	Index *int   `json:"variantIndex,omitempty" form:"variantIndex"`
}

func (s VariantSelector) empty() bool {
	return s.ID == "" && s.Index == nil
}

// PriceQuote is the resolved unit price of one product, optionally narrowed to a
// variant.
type PriceQuote struct {
	ProductID         string            `json:"productId"`
	VariantID         string            `json:"variantId,omitempty"`
	VariantIndex      *int              `json:"variantIndex,omitempty"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
	Currency          string            `json:"currency"`
	ListPrice         float64           `json:"listPrice"`
	UnitPrice         float64           `json:"unitPrice"`
	DiscountApplied   bool              `json:"discountApplied"`

	unit decimal.Decimal
}

// ResolveVariant returns the selected variant and its position, or (-1, nil)
// when nothing is selected. A bad id or index is ErrValidation.
func ResolveVariant(p *models.Product, sel VariantSelector) (int, *models.Variant, error) {
	if sel.ID != "" {
		return p.VariantByID(sel.ID)
	}
	if sel.Index != nil {
		v, err := p.VariantAt(*sel.Index)
		if err != nil {
			return -1, nil, err
		}
		return *sel.Index, v, nil
	}
	return -1, nil, nil
}

// Quote prices p at now. Variant prices override the product base price and
// the product discount applies on top when the sale is active.
func Quote(p *models.Product, sel VariantSelector, now time.Time) (*PriceQuote, error) {
	index, variant, err := ResolveVariant(p, sel)
	if err != nil {
		return nil, err
	}

	list := decimal.NewFromFloat(p.Price)
	q := &PriceQuote{ProductID: p.ID, Currency: p.Currency}
	if variant != nil {
		q.VariantID = variant.ID
		q.VariantIndex = &index
		q.VariantAttributes = variant.Attributes
		if variant.Price != nil {
			list = decimal.NewFromFloat(*variant.Price)
		}
	}

	unit := list
	if p.SaleActive(now) {
		unit = list.Mul(hundred.Sub(decimal.NewFromFloat(p.Discount))).Div(hundred)
		q.DiscountApplied = true
	}
	q.unit = unit.Round(2)
	q.ListPrice = list.Round(2).InexactFloat64()
	q.UnitPrice = q.unit.InexactFloat64()
	return q, nil
}

// LineTotal is the unit price times quantity, kept in decimal until the caller
// needs a float.
func (q *PriceQuote) LineTotal(quantity int) decimal.Decimal {
	return q.unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// toCents converts an amount to integer minor units.
func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
