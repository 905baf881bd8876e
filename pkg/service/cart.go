package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddItemRequest is one add-to-cart call. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
	VariantSelector
}

type UpdateItemRequest struct {
	Quantity *int `json:"quantity,omitempty"`
	VariantSelector
}

type CartView struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Shops     []ShopView `json:"shops"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type ShopView struct {
	ShopID    string     `json:"shopId"`
	Items     []ItemView `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ItemView is a cart line joined with live catalog data. Available is false when
// the product or its variant can no longer be bought.
type ItemView struct {
	ProductID         string            `json:"productId"`
	Quantity          int               `json:"quantity"`
	Name              string            `json:"name,omitempty"`
	Slug              string            `json:"slug,omitempty"`
	Currency          string            `json:"currency,omitempty"`
	VariantID         string            `json:"variantId,omitempty"`
	VariantIndex      *int              `json:"variantIndex,omitempty"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
	UnitPrice         float64           `json:"unitPrice"`
	LineTotal         float64           `json:"lineTotal"`
	Available         bool              `json:"available"`
}

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	detacher *Detacher
	logger   *zap.Logger
	now      func() time.Time
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, detacher *Detacher, logger *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		detacher: detacher,
		logger:   logger,
		now:      time.Now,
	}
}

// Get fetches or creates the cart after reconciling it against committed orders.
func (s *CartService) Get(ctx context.Context, userID string) (*CartView, error) {
	if err := s.reconcile(ctx, userID); err != nil {
		return nil, err
	}
	cart, err := s.carts.FetchOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// AddShop starts a slice for shopID. ErrConflict if the shop is already in the cart.
func (s *CartService) AddShop(ctx context.Context, userID, shopID string, req AddItemRequest) error {
	item, err := s.prepare(ctx, userID, shopID, req)
	if err != nil {
		return err
	}
	return s.carts.AddShop(ctx, userID, shopID, item)
}

// AddItem adds to an existing slice. ErrNotFound without one, ErrConflict if
// the product is already there.
func (s *CartService) AddItem(ctx context.Context, userID, shopID string, req AddItemRequest) error {
	item, err := s.prepare(ctx, userID, shopID, req)
	if err != nil {
		return err
	}
	return s.carts.AddItem(ctx, userID, shopID, item)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, shopID, productID string, req UpdateItemRequest) error {
	upd := models.ItemUpdate{}
	if req.Quantity != nil {
		if err := checkQuantity(*req.Quantity); err != nil {
			return err
		}
		upd.Quantity = req.Quantity
	}
	if !req.VariantSelector.empty() {
		p, err := s.product(ctx, shopID, productID)
		if err != nil {
			return err
		}
		_, v, err := ResolveVariant(p, req.VariantSelector)
		if err != nil {
			return err
		}
		upd.VariantID = &v.ID
	}
	if upd.Quantity == nil && upd.VariantID == nil {
		return fmt.Errorf("%w: nothing to update", models.ErrValidation)
	}
	return s.carts.UpdateItem(ctx, userID, shopID, productID, upd)
}

// RemoveItem pulls the item, then prunes the slice if it became empty. The two
// writes are separate; an empty slice left behind reads as absent.
func (s *CartService) RemoveItem(ctx context.Context, userID, shopID, productID string) error {
	if err := s.carts.RemoveItem(ctx, userID, shopID, productID); err != nil {
		return err
	}
	if err := s.carts.PruneEmpty(ctx, userID); err != nil {
		s.logger.Warn("Failed to prune cart", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// ToggleRequest is one toggle call. InCart is the membership the caller last
// saw; when nil the cart is read to decide.
type ToggleRequest struct {
	AddItemRequest
	InCart *bool `json:"inCart,omitempty"`
}

// Toggle adds the product when absent and removes it when present, reporting
// whether it is in the cart afterwards. The decision follows the caller's view
// of membership, so toggles racing from the same view all pick the same
// primitive: a rejected duplicate add or a missing item on remove is a no-op.
func (s *CartService) Toggle(ctx context.Context, userID, shopID string, req ToggleRequest) (bool, error) {
	if err := s.reconcile(ctx, userID); err != nil {
		return false, err
	}
	cart, err := s.carts.FetchOrCreate(ctx, userID)
	if err != nil {
		return false, err
	}

	present := cart.HasItem(shopID, req.ProductID)
	if req.InCart != nil {
		present = *req.InCart
	}

	if present {
		err := s.RemoveItem(ctx, userID, shopID, req.ProductID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return false, err
		}
		return false, nil
	}

	item, err := s.validate(ctx, shopID, req.AddItemRequest)
	if err != nil {
		return false, err
	}
	if err := s.insert(ctx, userID, shopID, item, cart.Slice(shopID) != nil); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Debug("Concurrent toggle already added item",
				zap.String("user_id", userID),
				zap.String("shop_id", shopID),
				zap.String("product_id", req.ProductID))
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// insert adds item with whichever primitive matches the slice state, switching
// once if a concurrent writer changed that state in between.
func (s *CartService) insert(ctx context.Context, userID, shopID string, item models.CartItem, hasSlice bool) error {
	for attempt := 0; attempt < 2; attempt++ {
		var err error
		if hasSlice {
			err = s.carts.AddItem(ctx, userID, shopID, item)
			if errors.Is(err, models.ErrNotFound) {
				hasSlice = false
				continue
			}
		} else {
			err = s.carts.AddShop(ctx, userID, shopID, item)
			if errors.Is(err, models.ErrConflict) {
				hasSlice = true
				continue
			}
		}
		return err
	}
	return fmt.Errorf("%w: cart for shop %s changed concurrently", models.ErrConflict, shopID)
}

func (s *CartService) prepare(ctx context.Context, userID, shopID string, req AddItemRequest) (models.CartItem, error) {
	item, err := s.validate(ctx, shopID, req)
	if err != nil {
		return models.CartItem{}, err
	}
	if err := s.reconcile(ctx, userID); err != nil {
		return models.CartItem{}, err
	}
	if _, err := s.carts.FetchOrCreate(ctx, userID); err != nil {
		return models.CartItem{}, err
	}
	return item, nil
}

// validate checks the request against the catalog without writing anything.
func (s *CartService) validate(ctx context.Context, shopID string, req AddItemRequest) (models.CartItem, error) {
	if req.ProductID == "" {
		return models.CartItem{}, fmt.Errorf("%w: productId is required", models.ErrValidation)
	}
	quantity := models.MinQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if err := checkQuantity(quantity); err != nil {
		return models.CartItem{}, err
	}

	p, err := s.product(ctx, shopID, req.ProductID)
	if err != nil {
		return models.CartItem{}, err
	}
	if p.Status != models.ProductActive {
		return models.CartItem{}, fmt.Errorf("%w: product %s is %s", models.ErrValidation, p.ID, p.Status)
	}

	item := models.CartItem{ProductID: p.ID, Quantity: quantity}
	_, v, err := ResolveVariant(p, req.VariantSelector)
	if err != nil {
		return models.CartItem{}, err
	}
	if v == nil {
		v = defaultVariant(p)
	}
	if v != nil {
		item.VariantID = v.ID
	}
	return item, nil
}

// product loads a live product owned by shopID.
func (s *CartService) product(ctx context.Context, shopID, productID string) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted || p.ShopID != shopID {
		return nil, fmt.Errorf("%w: product %s in shop %s", models.ErrNotFound, productID, shopID)
	}
	return p, nil
}

func (s *CartService) reconcile(ctx context.Context, userID string) error {
	if s.detacher == nil {
		return nil
	}
	return s.detacher.Reconcile(ctx, userID)
}

func (s *CartService) view(ctx context.Context, cart *models.Cart) (*CartView, error) {
	var ids []string
	for _, slice := range cart.Shops {
		for _, item := range slice.Items {
			ids = append(ids, item.ProductID)
		}
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := &CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Shops:     []ShopView{},
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, slice := range cart.Shops {
		if len(slice.Items) == 0 {
			continue
		}
		sv := ShopView{ShopID: slice.ShopID, CreatedAt: slice.CreatedAt}
		subtotal := decimal.Zero
		for _, item := range slice.Items {
			iv := joinItem(item, slice.ShopID, products[item.ProductID], now)
			if iv.Available {
				subtotal = subtotal.Add(decimal.NewFromFloat(iv.LineTotal))
			}
			sv.Items = append(sv.Items, iv)
		}
		sv.Subtotal = subtotal.Round(2).InexactFloat64()
		out.Shops = append(out.Shops, sv)
	}
	return out, nil
}

func joinItem(item models.CartItem, shopID string, p *models.Product, now time.Time) ItemView {
	iv := ItemView{ProductID: item.ProductID, Quantity: item.Quantity, VariantID: item.VariantID}
	if p == nil || p.IsDeleted || p.ShopID != shopID {
		return iv
	}
	iv.Name = p.Name
	iv.Slug = p.Slug
	iv.Currency = p.Currency

	q, err := Quote(p, VariantSelector{ID: item.VariantID}, now)
	if err != nil {
		return iv
	}
	iv.VariantIndex = q.VariantIndex
	iv.VariantAttributes = q.VariantAttributes
	iv.UnitPrice = q.UnitPrice
	iv.LineTotal = q.LineTotal(item.Quantity).Round(2).InexactFloat64()
	iv.Available = p.Status == models.ProductActive
	return iv
}

func defaultVariant(p *models.Product) *models.Variant {
	for i := range p.Variants {
		if p.Variants[i].IsDefault {
			return &p.Variants[i]
		}
	}
	return nil
}

func checkQuantity(q int) error {
	if q < models.MinQuantity || q > models.MaxQuantity {
		return fmt.Errorf("%w: quantity %d outside %d..%d", models.ErrValidation, q, models.MinQuantity, models.MaxQuantity)
	}
	return nil
}
