package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	registry *prometheus.Registry

	cart    *service.CartService
	catalog *service.CatalogService
	orders  service.OrderAPI
}

// NewGateway wires the HTTP surface. orders is either the in-process API or a
// gRPC client for a remote order service.
func NewGateway(cfg *config.Config, logger *zap.Logger, cart *service.CartService, catalog *service.CatalogService, orders service.OrderAPI) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	registry := prometheus.NewRegistry()

	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	router.Use(metricsMiddleware(newHTTPMetrics(registry)))

	g := &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		registry: registry,
		cart:     cart,
		catalog:  catalog,
		orders:   orders,
	}
	g.setupRoutes()
	return g
}

func (g *Gateway) setupRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	g.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})))

	v1 := g.router.Group("/api/v1")
	{
		cart := v1.Group("/cart", requireUser())
		{
			cart.GET("", g.getCart)
			cart.POST("/shops/:shopId", g.addShop)
			cart.POST("/shops/:shopId/items", g.addItem)
			cart.PATCH("/shops/:shopId/items/:productId", g.updateItem)
			cart.DELETE("/shops/:shopId/items/:productId", g.removeItem)
			cart.POST("/shops/:shopId/toggle", g.toggleItem)
		}

		orders := v1.Group("/orders", requireUser())
		{
			orders.GET("", g.listMyOrders)
			orders.GET("/:orderId", g.getMyOrder)
		}

		shops := v1.Group("/shops/:shopId")
		{
			shops.GET("/products/:productId", g.getProduct)
			shops.POST("/checkout", requireUser(), g.checkout)

			owner := shops.Group("", requireShopOwner())
			{
				owner.GET("/orders", g.listShopOrders)
				owner.PATCH("/orders/:orderId/status", g.updateOrderStatus)
				owner.GET("/orders/:orderId/history", g.getOrderHistory)
				owner.GET("/stats", g.getShopStats)
				owner.POST("/products", g.createProduct)
				owner.PUT("/products/:productId", g.updateProduct)
				owner.DELETE("/products/:productId", g.deleteProduct)
			}
		}
	}

	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Gateway.Host, g.config.Gateway.Port)
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
