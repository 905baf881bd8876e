package service

import (
	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/events"
	"github.com/example/shopfront/pkg/repository"
	"github.com/example/shopfront/pkg/repository/memory"
	"go.uber.org/zap"
)

// Stores are the backends the services run on. Cache and Audit are optional.
type Stores struct {
	Carts    repository.CartRepository
	Products repository.ProductRepository
	Orders   repository.OrderRepository
	Stats    repository.StatsRepository
	Cache    repository.OrderCache
	Audit    repository.AuditLogger
}

// MemoryStores keeps every store in process. Used for local runs and tests.
func MemoryStores() Stores {
	return Stores{
		Carts:    memory.NewCartRepositoryMemory(),
		Products: memory.NewProductRepositoryMemory(),
		Orders:   memory.NewOrderRepositoryMemory(),
		Stats:    memory.NewStatsRepositoryMemory(),
		Audit:    memory.NewAuditLogMemory(),
	}
}

type Services struct {
	Cart     *CartService
	Checkout *CheckoutService
	Orders   *OrderService
	Catalog  *CatalogService
	Stats    *StatsAggregator
	Detacher *Detacher
}

func New(cfg *config.Config, stores Stores, publisher events.Publisher, logger *zap.Logger) *Services {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	stats := NewStatsAggregator(stores.Stats, logger.Named("stats"))
	detacher := NewDetacher(stores.Carts, stores.Orders, stores.Cache, logger.Named("detach"))

	return &Services{
		Cart: NewCartService(stores.Carts, stores.Products, detacher, logger.Named("cart")),
		Checkout: NewCheckoutService(stores.Carts, stores.Products, stores.Orders, stats, detacher, publisher,
			CheckoutOptions{
				Currency:         cfg.Checkout.Currency,
				TrackingAttempts: cfg.Checkout.TrackingAttempts,
			}, logger.Named("checkout")),
		Orders:   NewOrderService(stores.Orders, stores.Cache, stores.Audit, stats, publisher, logger.Named("orders")),
		Catalog:  NewCatalogService(stores.Products, stats, publisher, cfg.Checkout.Currency, logger.Named("catalog")),
		Stats:    stats,
		Detacher: detacher,
	}
}
