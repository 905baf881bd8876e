package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"github.com/example/shopfront/pkg/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	*Services

	carts    *memory.CartRepositoryMemory
	products *memory.ProductRepositoryMemory
	orders   *memory.OrderRepositoryMemory
	stats    *memory.StatsRepositoryMemory
	audit    *memory.AuditLogMemory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		carts:    memory.NewCartRepositoryMemory(),
		products: memory.NewProductRepositoryMemory(),
		orders:   memory.NewOrderRepositoryMemory(),
		stats:    memory.NewStatsRepositoryMemory(),
		audit:    memory.NewAuditLogMemory(),
	}
	f.Services = New(testConfig(), Stores{
		Carts:    f.carts,
		Products: f.products,
		Orders:   f.orders,
		Stats:    f.stats,
		Audit:    f.audit,
	}, nil, zap.NewNop())
	return f
}

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{TrackingAttempts: 3, Currency: "USD"},
	}
}

// seedProduct stores a product directly, active unless stated otherwise.
func (f *fixture) seedProduct(t *testing.T, p models.Product) *models.Product {
	t.Helper()

	if p.Status == "" {
		p.Status = models.ProductActive
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.Slug == "" {
		p.Slug = p.ID
	}
	if p.Name == "" {
		p.Name = "Product " + p.ID
	}
	require.NoError(t, f.products.Create(context.Background(), &p))
	return &p
}

func (f *fixture) shopStats(t *testing.T, shopID string) *models.ShopStats {
	t.Helper()
	s, err := f.Stats.Get(context.Background(), shopID)
	require.NoError(t, err)
	return s
}

func validCheckout(userID, shopID string) CheckoutRequest {
	return CheckoutRequest{
		UserID: userID,
		ShopID: shopID,
		Shipment: models.Shipment{
			FullName:     "Ada Lovelace",
			Phone:        "+44 20 7946 0000",
			AddressLine1: "12 St James's Square",
			City:         "London",
			PostalCode:   "SW1Y 4JH",
			Country:      "GB",
		},
		Payment: models.Payment{Method: "card", Reference: "pi_123"},
	}
}

func intPtr(n int) *int { return &n }

func window(now time.Time, from, to time.Duration) (*time.Time, *time.Time) {
	start, end := now.Add(from), now.Add(to)
	return &start, &end
}

// flakyCarts fails DetachShop while failing is set.
type flakyCarts struct {
	repository.CartRepository

	mu      sync.Mutex
	failing bool
}

func (c *flakyCarts) setFailing(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = v
}

func (c *flakyCarts) DetachShop(ctx context.Context, userID, shopID string, notAfter time.Time) error {
	c.mu.Lock()
	failing := c.failing
	c.mu.Unlock()
	if failing {
		return context.DeadlineExceeded
	}
	return c.CartRepository.DetachShop(ctx, userID, shopID, notAfter)
}

type recordingRetrier struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (r *recordingRetrier) Retry(order *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, order)
}

// slowProducts widens the window between reading a cart slice and writing its order.
type slowProducts struct {
	repository.ProductRepository
	delay time.Duration
}

func (p *slowProducts) GetMany(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	time.Sleep(p.delay)
	return p.ProductRepository.GetMany(ctx, ids)
}
