package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/shopfront/pkg/models"
)

type sliceKey struct {
	userID    string
	shopID    string
	createdAt int64
}

func sliceKeyOf(o *models.Order) sliceKey {
	return sliceKey{userID: o.UserID, shopID: o.ShopID, createdAt: o.SliceCreatedAt.UnixNano()}
}

type OrderRepositoryMemory struct {
	mu         sync.RWMutex
	orders     map[string]*models.Order
	byTracking map[int64]string
	bySlice    map[sliceKey]string
}

func NewOrderRepositoryMemory() *OrderRepositoryMemory {
	return &OrderRepositoryMemory{
		orders:     make(map[string]*models.Order),
		byTracking: make(map[int64]string),
		bySlice:    make(map[sliceKey]string),
	}
}

func (r *OrderRepositoryMemory) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("%w: order %s already exists", models.ErrConflict, order.ID)
	}
	key := sliceKeyOf(order)
	keyed := !order.SliceCreatedAt.IsZero()
	if id, exists := r.bySlice[key]; keyed && exists {
		return fmt.Errorf("%w: by order %s", models.ErrSliceOrdered, id)
	}
	if _, exists := r.byTracking[order.TrackingID]; exists {
		return fmt.Errorf("%w: tracking id %d already used", models.ErrConflict, order.TrackingID)
	}

	r.orders[order.ID] = copyOrder(order)
	r.byTracking[order.TrackingID] = order.ID
	if keyed {
		r.bySlice[key] = order.ID
	}
	return nil
}

func (r *OrderRepositoryMemory) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, orderID)
	}
	return copyOrder(order), nil
}

func (r *OrderRepositoryMemory) List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, int64, error) {
	filter.Normalize()

	r.mu.RLock()
	matched := r.match(filter)
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := filter.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *OrderRepositoryMemory) CountByStatus(ctx context.Context, filter models.OrderFilter) (map[models.OrderStatus]int64, error) {
	filter.Status = ""

	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.OrderStatus]int64)
	for _, o := range r.match(filter) {
		counts[o.Status]++
	}
	return counts, nil
}

func (r *OrderRepositoryMemory) CompareAndSetStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[orderID]
	if !exists {
		return fmt.Errorf("%w: order %s", models.ErrNotFound, orderID)
	}
	if order.Status != from {
		return fmt.Errorf("%w: order %s is %s, not %s", models.ErrConflict, orderID, order.Status, from)
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	return nil
}

func (r *OrderRepositoryMemory) MarkCartDetached(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[orderID]
	if !exists {
		return fmt.Errorf("%w: order %s", models.ErrNotFound, orderID)
	}
	order.CartDetached = true
	return nil
}

func (r *OrderRepositoryMemory) ListUndetached(ctx context.Context, userID string) ([]*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Order
	for _, o := range r.orders {
		if o.UserID == userID && !o.CartDetached {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

// match must be called with the lock held.
func (r *OrderRepositoryMemory) match(filter models.OrderFilter) []*models.Order {
	var out []*models.Order
	for _, o := range r.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.ShopID != "" && o.ShopID != filter.ShopID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, copyOrder(o))
	}
	return out
}

func copyOrder(o *models.Order) *models.Order {
	out := *o
	out.Items = append([]models.OrderItem(nil), o.Items...)
	return &out
}
