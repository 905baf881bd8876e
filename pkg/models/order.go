package models

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CheckTransition validates s -> to. Equal statuses are accepted and treated as
// a no-op by callers.
func (s OrderStatus) CheckTransition(to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown order status %q", ErrValidation, to)
	}
	if s == to {
		return nil
	}
	if s.Terminal() {
		return fmt.Errorf("%w: order is %s", ErrInvalidTransition, s)
	}
	if s == StatusShipped && to == StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return nil
}

// OrderItem is the price snapshot of one cart line at checkout time.
type OrderItem struct {
	ProductID         string            `json:"productId"`
	ProductName       string            `json:"productName"`
	VariantID         string            `json:"variantId,omitempty"`
	VariantIndex      *int              `json:"variantIndex,omitempty"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
	Quantity          int               `json:"quantity"`
	Price             float64           `json:"price"`
	LineTotal         float64           `json:"lineTotal"`
}

type Shipment struct {
	FullName     string `json:"fullName" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,max=32"`
	AddressLine1 string `json:"addressLine1" validate:"required,max=200"`
	AddressLine2 string `json:"addressLine2,omitempty" validate:"max=200"`
	City         string `json:"city" validate:"required,max=100"`
	PostalCode   string `json:"postalCode" validate:"required,max=20"`
	Country      string `json:"country" validate:"required,iso3166_1_alpha2"`
}

type Payment struct {
	Method    string `json:"method" validate:"required,oneof=card cash_on_delivery wallet bank_transfer"`
	Reference string `json:"reference,omitempty" validate:"max=128"`
}

type Order struct {
	ID               string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TrackingID       int64       `gorm:"uniqueIndex;not null" json:"trackingId"`
	ShopID           string      `gorm:"type:varchar(64);not null;index:idx_orders_shop_status;uniqueIndex:idx_orders_slice,priority:2" json:"shopId"`
	UserID           string      `gorm:"type:varchar(64);not null;index:idx_orders_user_detached;uniqueIndex:idx_orders_slice,priority:1" json:"userId"`
	Items            []OrderItem `gorm:"type:json;serializer:json" json:"cartItems"`
	TotalAmount      float64     `gorm:"type:decimal(12,2)" json:"totalAmount"`
	Currency         string      `gorm:"type:varchar(3)" json:"currency"`
	Status           OrderStatus `gorm:"type:varchar(20);not null;default:'processing';index:idx_orders_shop_status" json:"status"`
	PaymentMethod    string      `gorm:"type:varchar(32)" json:"paymentMethod"`
	PaymentReference string      `gorm:"type:varchar(128)" json:"paymentReference,omitempty"`
	Shipment         Shipment    `gorm:"type:json;serializer:json" json:"shipmentInfo"`
	CartDetached     bool        `gorm:"not null;default:false;index:idx_orders_user_detached" json:"cartDetached"`
	// SliceCreatedAt is the createdAt of the cart slice the order was built
	// from. One slice yields at most one order.
	SliceCreatedAt   time.Time   `gorm:"type:datetime(6);not null;uniqueIndex:idx_orders_slice,priority:3" json:"sliceCreatedAt"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderFilter scopes order listings. Exactly one of UserID/ShopID is usually set.
type OrderFilter struct {
	UserID   string
	ShopID   string
	Status   OrderStatus
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging to sane bounds.
func (f *OrderFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

func (f OrderFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

type OrderPage struct {
	Orders       []*Order              `json:"orders"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"pageSize"`
	StatusCounts map[OrderStatus]int64 `json:"statusCounts,omitempty"`
}
