package repository

import (
	"context"
	"time"

	"github.com/example/shopfront/pkg/models"
)

// CartRepository is the per-user cart document. Every mutation is a single
// filtered write against one document; none of them reads first.
type CartRepository interface {
	// FetchOrCreate returns the user's cart, creating an empty one atomically.
	FetchOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	// AddShop appends a new shop entry holding item. ErrConflict if the shop
	// already has a non-empty entry.
	AddShop(ctx context.Context, userID, shopID string, item models.CartItem) error
	// AddItem pushes item into an existing shop entry. ErrNotFound if the shop
	// entry is missing, ErrConflict if the product is already there.
	AddItem(ctx context.Context, userID, shopID string, item models.CartItem) error
	// UpdateItem sets fields on one nested item. ErrNotFound if absent.
	UpdateItem(ctx context.Context, userID, shopID, productID string, upd models.ItemUpdate) error
	// RemoveItem pulls one item. ErrNotFound if absent.
	RemoveItem(ctx context.Context, userID, shopID, productID string) error
	// PruneEmpty pulls shop entries without items. Idempotent.
	PruneEmpty(ctx context.Context, userID string) error
	// DetachShop pulls the shop entry if it was created at or before notAfter.
	// A zero notAfter removes it unconditionally. Idempotent.
	DetachShop(ctx context.Context, userID, shopID string, notAfter time.Time) error
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, productID string) (*models.Product, error)
	GetMany(ctx context.Context, productIDs []string) (map[string]*models.Product, error)
	// Replace overwrites a live product whose stored status is still expected.
	// ErrNotFound for missing or deleted, ErrConflict if the status moved.
	Replace(ctx context.Context, p *models.Product, expected models.ProductStatus) error
	// SoftDelete flags the product deleted and returns its state before the
	// flag was set. ErrNotFound if it was already deleted.
	SoftDelete(ctx context.Context, productID string) (*models.Product, error)
}

type OrderRepository interface {
	// Create inserts a new order. ErrConflict on a duplicate tracking id.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orderID string) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, int64, error)
	CountByStatus(ctx context.Context, filter models.OrderFilter) (map[models.OrderStatus]int64, error)
	// CompareAndSetStatus moves the order from -> to. ErrConflict if the
	// stored status is no longer from.
	CompareAndSetStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error
	MarkCartDetached(ctx context.Context, orderID string) error
	ListUndetached(ctx context.Context, userID string) ([]*models.Order, error)
}

type StatsRepository interface {
	// ApplyDelta upserts the shop document and adds the signed deltas in one
	// atomic write.
	ApplyDelta(ctx context.Context, shopID string, delta models.Delta) error
	Get(ctx context.Context, shopID string) (*models.ShopStats, error)
	// AddCustomer records userID as a customer of shopID and reports whether
	// it was new.
	AddCustomer(ctx context.Context, shopID, userID string) (bool, error)
}

// OrderCache is an optional read-through cache in front of OrderRepository.
type OrderCache interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	SetOrder(ctx context.Context, order *models.Order) error
	InvalidateOrder(ctx context.Context, orderID string) error
}

// AuditLogger records order status history.
type AuditLogger interface {
	CreateAuditLog(ctx context.Context, log *AuditLog) error
	// GetAuditLogs returns the newest entries for entityID first.
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error)
}
