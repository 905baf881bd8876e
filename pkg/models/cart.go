package models

import "time"

const (
	MinQuantity = 1
	MaxQuantity = 999
)

type CartItem struct {
	ProductID string `bson:"productId" json:"productId"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	VariantID string `bson:"variantId,omitempty" json:"variantId,omitempty"`
}

// ShopSlice groups the items a user holds from one shop.
type ShopSlice struct {
	ShopID    string     `bson:"shopId" json:"shopId"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
}

func (s *ShopSlice) Item(productID string) *CartItem {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			return &s.Items[i]
		}
	}
	return nil
}

type Cart struct {
	ID        string      `bson:"_id" json:"id"`
	UserID    string      `bson:"userId" json:"userId"`
	Shops     []ShopSlice `bson:"shops" json:"shops"`
	CreatedAt time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// Slice returns the entry for shopID. An entry with no items counts as absent.
func (c *Cart) Slice(shopID string) *ShopSlice {
	for i := range c.Shops {
		if c.Shops[i].ShopID == shopID && len(c.Shops[i].Items) > 0 {
			return &c.Shops[i]
		}
	}
	return nil
}

func (c *Cart) HasItem(shopID, productID string) bool {
	s := c.Slice(shopID)
	return s != nil && s.Item(productID) != nil
}

// ItemUpdate carries the optional fields of an in-place item edit.
type ItemUpdate struct {
	Quantity  *int
	VariantID *string
}
