package models

import (
	"fmt"
	"strings"
	"time"
)

// Counter names of the per-shop stats document.
const (
	CounterTotalOrders     = "totalOrders"
	CounterPendingOrders   = "pendingOrders"
	CounterShippedOrders   = "shippedOrders"
	CounterDeliveredOrders = "deliveredOrders"
	CounterCancelledOrders = "cancelledOrders"

	CounterTotalProducts    = "totalProducts"
	CounterActiveProducts   = "activeProducts"
	CounterDraftedProducts  = "draftedProducts"
	CounterArchivedProducts = "archivedProducts"
	CounterDeletedProducts  = "deletedProducts"

	CounterRevenueCents = "revenueCents"
	CounterTotalSales   = "totalSales"
	CounterCustomers    = "customers"
)

// Delta is a set of signed increments applied atomically to one shop's stats.
type Delta map[string]int64

// Add accumulates n into name, dropping the key when it nets to zero.
func (d Delta) Add(name string, n int64) Delta {
	d[name] += n
	if d[name] == 0 {
		delete(d, name)
	}
	return d
}

func OrderCounter(s OrderStatus) string {
	switch s {
	case StatusProcessing:
		return CounterPendingOrders
	case StatusShipped:
		return CounterShippedOrders
	case StatusDelivered:
		return CounterDeliveredOrders
	case StatusCancelled:
		return CounterCancelledOrders
	}
	return ""
}

func ProductCounter(s ProductStatus) string {
	switch s {
	case ProductActive:
		return CounterActiveProducts
	case ProductDraft:
		return CounterDraftedProducts
	case ProductArchived:
		return CounterArchivedProducts
	}
	return ""
}

// DayKey is the rollup key for t, in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DailyCounter addresses a field of the per-day rollup, e.g. daily.2024-05-01.orders.
func DailyCounter(day, field string) string {
	return fmt.Sprintf("daily.%s.%s", day, field)
}

type DailyStats struct {
	Orders       int64 `bson:"orders" json:"orders"`
	RevenueCents int64 `bson:"revenueCents" json:"revenueCents"`
	Sales        int64 `bson:"sales" json:"sales"`
}

type ShopStats struct {
	ShopID string `bson:"_id" json:"shopId"`

	TotalOrders     int64 `bson:"totalOrders" json:"totalOrders"`
	PendingOrders   int64 `bson:"pendingOrders" json:"pendingOrders"`
	ShippedOrders   int64 `bson:"shippedOrders" json:"shippedOrders"`
	DeliveredOrders int64 `bson:"deliveredOrders" json:"deliveredOrders"`
	CancelledOrders int64 `bson:"cancelledOrders" json:"cancelledOrders"`

	TotalProducts    int64 `bson:"totalProducts" json:"totalProducts"`
	ActiveProducts   int64 `bson:"activeProducts" json:"activeProducts"`
	DraftedProducts  int64 `bson:"draftedProducts" json:"draftedProducts"`
	ArchivedProducts int64 `bson:"archivedProducts" json:"archivedProducts"`
	DeletedProducts  int64 `bson:"deletedProducts" json:"deletedProducts"`

	RevenueCents int64 `bson:"revenueCents" json:"revenueCents"`
	TotalSales   int64 `bson:"totalSales" json:"totalSales"`
	Customers    int64 `bson:"customers" json:"customers"`

	Daily     map[string]DailyStats `bson:"daily,omitempty" json:"daily,omitempty"`
	UpdatedAt time.Time             `bson:"updatedAt" json:"updatedAt"`
}

func (s *ShopStats) Revenue() float64 {
	return float64(s.RevenueCents) / 100
}

// StatsFromCounters folds a flat counter map, as kept by stores without nested
// documents, into ShopStats.
func StatsFromCounters(shopID string, counters map[string]int64) *ShopStats {
	s := &ShopStats{
		ShopID:           shopID,
		TotalOrders:      counters[CounterTotalOrders],
		PendingOrders:    counters[CounterPendingOrders],
		ShippedOrders:    counters[CounterShippedOrders],
		DeliveredOrders:  counters[CounterDeliveredOrders],
		CancelledOrders:  counters[CounterCancelledOrders],
		TotalProducts:    counters[CounterTotalProducts],
		ActiveProducts:   counters[CounterActiveProducts],
		DraftedProducts:  counters[CounterDraftedProducts],
		ArchivedProducts: counters[CounterArchivedProducts],
		DeletedProducts:  counters[CounterDeletedProducts],
		RevenueCents:     counters[CounterRevenueCents],
		TotalSales:       counters[CounterTotalSales],
		Customers:        counters[CounterCustomers],
	}

	for name, v := range counters {
		parts := strings.SplitN(name, ".", 3)
		if len(parts) != 3 || parts[0] != "daily" {
			continue
		}
		day, field := parts[1], parts[2]
		if s.Daily == nil {
			s.Daily = make(map[string]DailyStats)
		}
		d := s.Daily[day]
		switch field {
		case "orders":
			d.Orders = v
		case "revenueCents":
			d.RevenueCents = v
		case "sales":
			d.Sales = v
		}
		s.Daily[day] = d
	}
	return s
}
