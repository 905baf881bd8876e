package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"github.com/example/shopfront/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testGateway struct {
	*Gateway
	services *service.Services
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	cfg := &config.Config{Checkout: config.CheckoutConfig{TrackingAttempts: 3, Currency: "USD"}}
	services := service.New(cfg, service.MemoryStores(), nil, zap.NewNop())
	return &testGateway{
		Gateway:  NewGateway(cfg, zap.NewNop(), services.Cart, services.Catalog, services.OrderAPI()),
		services: services,
	}
}

type call struct {
	method  string
	path    string
	body    any
	userID  string
	shopID  string
	decodes any
}

func (g *testGateway) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.userID != "" {
		req.Header.Set(HeaderUserID, c.userID)
	}
	if c.shopID != "" {
		req.Header.Set(HeaderShopID, c.shopID)
	}

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	if c.decodes != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), c.decodes), rec.Body.String())
	}
	return rec
}

func (g *testGateway) createProduct(t *testing.T, shopID string, in service.ProductInput) *models.Product {
	t.Helper()

	var product models.Product
	rec := g.do(t, call{
		method: http.MethodPost, path: "/api/v1/shops/" + shopID + "/products",
		body: in, shopID: shopID, decodes: &product,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return &product
}

func checkoutBodyFor() checkoutBody {
	return checkoutBody{
		Shipment: models.Shipment{
			FullName:     "Ada Lovelace",
			Phone:        "+44 20 7946 0000",
			AddressLine1: "12 St James's Square",
			City:         "London",
			PostalCode:   "SW1Y 4JH",
			Country:      "GB",
		},
		Payment: models.Payment{Method: "card"},
	}
}

func TestGateway_Health(t *testing.T) {
	g := newTestGateway(t)
	rec := g.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateway_ShopperFlow(t *testing.T) {
	g := newTestGateway(t)
	p := g.createProduct(t, "S", service.ProductInput{
		Name: "Mug", Slug: "mug", Price: 1000, Discount: 10, Stock: 5, Status: models.ProductActive,
	})

	var view service.CartView
	rec := g.do(t, call{
		method: http.MethodPost, path: "/api/v1/cart/shops/S",
		body: map[string]any{"productId": p.ID, "quantity": 3}, userID: "u1", decodes: &view,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, view.Shops, 1)
	assert.InDelta(t, 2700, view.Shops[0].Subtotal, 0.001)

	var order models.Order
	rec = g.do(t, call{
		method: http.MethodPost, path: "/api/v1/shops/S/checkout",
		body: checkoutBodyFor(), userID: "u1", decodes: &order,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.InDelta(t, 2700, order.TotalAmount, 0.001)
	assert.Equal(t, models.StatusProcessing, order.Status)

	rec = g.do(t, call{method: http.MethodGet, path: "/api/v1/cart", userID: "u1", decodes: &view})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, view.Shops)

	var page models.OrderPage
	rec = g.do(t, call{method: http.MethodGet, path: "/api/v1/orders?counts=true", userID: "u1", decodes: &page})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, int64(1), page.StatusCounts[models.StatusProcessing])

	rec = g.do(t, call{method: http.MethodGet, path: "/api/v1/orders/" + order.ID, userID: "u2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGateway_OwnerFlow(t *testing.T) {
	g := newTestGateway(t)
	p := g.createProduct(t, "S", service.ProductInput{
		Name: "Mug", Slug: "mug", Price: 20, Stock: 5, Status: models.ProductActive,
	})
	rec := g.do(t, call{
		method: http.MethodPost, path: "/api/v1/cart/shops/S",
		body: map[string]any{"productId": p.ID}, userID: "u1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order models.Order
	rec = g.do(t, call{
		method: http.MethodPost, path: "/api/v1/shops/S/checkout",
		body: checkoutBodyFor(), userID: "u1", decodes: &order,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	statusPath := "/api/v1/shops/S/orders/" + order.ID + "/status"
	rec = g.do(t, call{method: http.MethodPatch, path: statusPath, body: statusBody{Status: models.StatusCancelled}, shopID: "S"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = g.do(t, call{method: http.MethodPatch, path: statusPath, body: statusBody{Status: models.StatusShipped}, shopID: "S"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var history struct {
		History []repository.AuditLog `json:"history"`
	}
	require.Eventually(t, func() bool {
		rec := g.do(t, call{method: http.MethodGet, path: "/api/v1/shops/S/orders/" + order.ID + "/history", shopID: "S", decodes: &history})
		return rec.Code == http.StatusOK && len(history.History) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "cancelled", history.History[0].Data["to"])

	rec = g.do(t, call{method: http.MethodGet, path: "/api/v1/shops/T/orders/" + order.ID + "/history", shopID: "T"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var stats models.ShopStats
	rec = g.do(t, call{method: http.MethodGet, path: "/api/v1/shops/S/stats", shopID: "S", decodes: &stats})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), stats.CancelledOrders)
	assert.Equal(t, int64(0), stats.ShippedOrders)
	assert.Equal(t, int64(1), stats.TotalProducts)

	rec = g.do(t, call{method: http.MethodDelete, path: "/api/v1/shops/S/products/" + p.ID, shopID: "S"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = g.do(t, call{method: http.MethodDelete, path: "/api/v1/shops/S/products/" + p.ID, shopID: "S"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_Identity(t *testing.T) {
	g := newTestGateway(t)

	rec := g.do(t, call{method: http.MethodGet, path: "/api/v1/cart"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = g.do(t, call{method: http.MethodGet, path: "/api/v1/shops/S/stats", shopID: "T"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = g.do(t, call{method: http.MethodGet, path: "/api/v1/shops/S/stats"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGateway_ErrorMapping(t *testing.T) {
	g := newTestGateway(t)
	p := g.createProduct(t, "S", service.ProductInput{
		Name: "Mug", Slug: "mug", Price: 20, Stock: 5, Status: models.ProductActive,
	})

	rec := g.do(t, call{
		method: http.MethodPost, path: "/api/v1/cart/shops/S",
		body: map[string]any{"productId": p.ID, "quantity": 0}, userID: "u1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = g.do(t, call{
		method: http.MethodPost, path: "/api/v1/cart/shops/S",
		body: map[string]any{"productId": p.ID}, userID: "u1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = g.do(t, call{
		method: http.MethodPost, path: "/api/v1/cart/shops/S/items",
		body: map[string]any{"productId": p.ID}, userID: "u1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = g.do(t, call{method: http.MethodPost, path: "/api/v1/shops/T/checkout", body: checkoutBodyFor(), userID: "u1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = g.do(t, call{method: http.MethodPost, path: "/api/v1/shops/S/checkout", body: "not an object", userID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_Toggle(t *testing.T) {
	g := newTestGateway(t)
	p := g.createProduct(t, "S", service.ProductInput{
		Name: "Mug", Slug: "mug", Price: 20, Stock: 5, Status: models.ProductActive,
	})

	var resp struct {
		InCart bool             `json:"inCart"`
		Cart   service.CartView `json:"cart"`
	}
	rec := g.do(t, call{
		method: http.MethodPost, path: "/api/v1/cart/shops/S/toggle",
		body: map[string]any{"productId": p.ID}, userID: "u1", decodes: &resp,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.InCart)
	assert.Len(t, resp.Cart.Shops, 1)

	rec = g.do(t, call{
		method: http.MethodPost, path: "/api/v1/cart/shops/S/toggle",
		body: map[string]any{"productId": p.ID}, userID: "u1", decodes: &resp,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.InCart)
	assert.Empty(t, resp.Cart.Shops)

	for i := 0; i < 2; i++ {
		rec = g.do(t, call{
			method: http.MethodPost, path: "/api/v1/cart/shops/S/toggle",
			body: map[string]any{"productId": p.ID, "inCart": false}, userID: "u1", decodes: &resp,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.InCart)
		require.Len(t, resp.Cart.Shops, 1)
		assert.Len(t, resp.Cart.Shops[0].Items, 1)
	}
}

func TestGateway_ProductQuote(t *testing.T) {
	g := newTestGateway(t)
	p := g.createProduct(t, "S", service.ProductInput{
		Name: "Mug", Slug: "mug", Price: 20, Discount: 25, Stock: 5, Status: models.ProductActive,
	})

	var view struct {
		Quote service.PriceQuote `json:"quote"`
	}
	rec := g.do(t, call{method: http.MethodGet, path: "/api/v1/shops/S/products/" + p.ID, decodes: &view})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 15, view.Quote.UnitPrice, 0.001)

	rec = g.do(t, call{method: http.MethodGet, path: "/api/v1/shops/T/products/" + p.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_Metrics(t *testing.T) {
	g := newTestGateway(t)
	g.do(t, call{method: http.MethodGet, path: "/health"})

	rec := g.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `shopfront_gateway_http_requests_total{code="200",method="GET",route="/health"} 1`))
}
