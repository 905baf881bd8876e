package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/shopfront/pkg/models"
	"github.com/google/uuid"
)

type CartRepositoryMemory struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
	now   func() time.Time
}

func NewCartRepositoryMemory() *CartRepositoryMemory {
	return &CartRepositoryMemory{
		carts: make(map[string]*models.Cart),
		now:   time.Now,
	}
}

func (r *CartRepositoryMemory) FetchOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, exists := r.carts[userID]
	if !exists {
		now := r.now()
		cart = &models.Cart{
			ID:        uuid.New().String(),
			UserID:    userID,
			Shops:     []models.ShopSlice{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.carts[userID] = cart
	}
	return copyCart(cart), nil
}

func (r *CartRepositoryMemory) AddShop(ctx context.Context, userID, shopID string, item models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, err := r.cart(userID)
	if err != nil {
		return err
	}
	if cart.Slice(shopID) != nil {
		return fmt.Errorf("%w: shop %s already in cart", models.ErrConflict, shopID)
	}

	cart.Shops = pruneShops(cart.Shops, func(s models.ShopSlice) bool {
		return s.ShopID == shopID && len(s.Items) == 0
	})
	cart.Shops = append(cart.Shops, models.ShopSlice{
		ShopID:    shopID,
		Items:     []models.CartItem{item},
		CreatedAt: r.now(),
	})
	cart.UpdatedAt = r.now()
	return nil
}

func (r *CartRepositoryMemory) AddItem(ctx context.Context, userID, shopID string, item models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slice, err := r.slice(userID, shopID)
	if err != nil {
		return err
	}
	if slice.Item(item.ProductID) != nil {
		return fmt.Errorf("%w: product %s already in cart", models.ErrConflict, item.ProductID)
	}
	slice.Items = append(slice.Items, item)
	return nil
}

func (r *CartRepositoryMemory) UpdateItem(ctx context.Context, userID, shopID, productID string, upd models.ItemUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slice, err := r.slice(userID, shopID)
	if err != nil {
		return err
	}
	item := slice.Item(productID)
	if item == nil {
		return fmt.Errorf("%w: product %s not in cart", models.ErrNotFound, productID)
	}
	if upd.Quantity != nil {
		item.Quantity = *upd.Quantity
	}
	if upd.VariantID != nil {
		item.VariantID = *upd.VariantID
	}
	return nil
}

func (r *CartRepositoryMemory) RemoveItem(ctx context.Context, userID, shopID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slice, err := r.slice(userID, shopID)
	if err != nil {
		return err
	}
	kept := slice.Items[:0]
	found := false
	for _, it := range slice.Items {
		if it.ProductID == productID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return fmt.Errorf("%w: product %s not in cart", models.ErrNotFound, productID)
	}
	slice.Items = kept
	return nil
}

func (r *CartRepositoryMemory) PruneEmpty(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, exists := r.carts[userID]
	if !exists {
		return nil
	}
	cart.Shops = pruneShops(cart.Shops, func(s models.ShopSlice) bool {
		return len(s.Items) == 0
	})
	return nil
}

func (r *CartRepositoryMemory) DetachShop(ctx context.Context, userID, shopID string, notAfter time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, exists := r.carts[userID]
	if !exists {
		return nil
	}
	cart.Shops = pruneShops(cart.Shops, func(s models.ShopSlice) bool {
		return s.ShopID == shopID && (notAfter.IsZero() || !s.CreatedAt.After(notAfter))
	})
	cart.UpdatedAt = r.now()
	return nil
}

func (r *CartRepositoryMemory) cart(userID string) (*models.Cart, error) {
	cart, exists := r.carts[userID]
	if !exists {
		return nil, fmt.Errorf("%w: cart for user %s", models.ErrNotFound, userID)
	}
	return cart, nil
}

func (r *CartRepositoryMemory) slice(userID, shopID string) (*models.ShopSlice, error) {
	cart, err := r.cart(userID)
	if err != nil {
		return nil, err
	}
	slice := cart.Slice(shopID)
	if slice == nil {
		return nil, fmt.Errorf("%w: shop %s not in cart", models.ErrNotFound, shopID)
	}
	cart.UpdatedAt = r.now()
	return slice, nil
}

func pruneShops(shops []models.ShopSlice, drop func(models.ShopSlice) bool) []models.ShopSlice {
	kept := make([]models.ShopSlice, 0, len(shops))
	for _, s := range shops {
		if !drop(s) {
			kept = append(kept, s)
		}
	}
	return kept
}

func copyCart(c *models.Cart) *models.Cart {
	out := *c
	out.Shops = make([]models.ShopSlice, len(c.Shops))
	for i, s := range c.Shops {
		s.Items = append([]models.CartItem(nil), s.Items...)
		out.Shops[i] = s
	}
	return &out
}
