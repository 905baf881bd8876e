package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type harness struct {
	services *service.Services
	client   *OrderClient
	conn     *grpc.ClientConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{Checkout: config.CheckoutConfig{TrackingAttempts: 3, Currency: "USD"}}
	services := service.New(cfg, service.MemoryStores(), nil, zap.NewNop())

	lis := bufconn.Listen(1 << 20)
	server := NewOrderServer(services.OrderAPI(), zap.NewNop())
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.GracefulStop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{services: services, client: NewOrderClient(conn), conn: conn}
}

func (h *harness) fillCart(t *testing.T, userID, shopID string) {
	t.Helper()
	ctx := context.Background()

	p, err := h.services.Catalog.Create(ctx, shopID, service.ProductInput{
		Name:   "Mug",
		Slug:   "mug-" + userID,
		Price:  12.5,
		Stock:  10,
		Status: models.ProductActive,
	})
	require.NoError(t, err)
	require.NoError(t, h.services.Cart.AddShop(ctx, userID, shopID, service.AddItemRequest{ProductID: p.ID}))
}

func checkoutRequest(userID, shopID string) service.CheckoutRequest {
	return service.CheckoutRequest{
		UserID: userID,
		ShopID: shopID,
		Shipment: models.Shipment{
			FullName:     "Grace Hopper",
			Phone:        "+1 202 555 0100",
			AddressLine1: "1 Navy Yard",
			City:         "Arlington",
			PostalCode:   "22202",
			Country:      "US",
		},
		Payment: models.Payment{Method: "card"},
	}
}

func TestOrderService_RoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fillCart(t, "u1", "S")

	order, err := h.client.Checkout(ctx, checkoutRequest("u1", "S"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, order.Status)
	assert.InDelta(t, 12.5, order.TotalAmount, 0.001)
	require.Len(t, order.Items, 1)

	got, err := h.client.GetOrder(ctx, service.GetOrderRequest{OrderID: order.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, order.TrackingID, got.TrackingID)
	assert.Equal(t, "Grace Hopper", got.Shipment.FullName)

	page, err := h.client.ListOrders(ctx, service.ListOrdersRequest{ShopID: "S", WithCounts: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, int64(1), page.StatusCounts[models.StatusProcessing])

	updated, err := h.client.UpdateOrderStatus(ctx, service.UpdateOrderStatusRequest{
		ShopID: "S", OrderID: order.ID, Status: models.StatusShipped,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)

	assert.Eventually(t, func() bool {
		logs, err := h.client.GetOrderHistory(ctx, service.GetOrderHistoryRequest{ShopID: "S", OrderID: order.ID})
		return err == nil && len(logs) == 1 && logs[0].Action == "update_order_status"
	}, time.Second, 10*time.Millisecond)

	stats, err := h.client.GetShopStats(ctx, service.GetShopStatsRequest{ShopID: "S"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.ShippedOrders)
	assert.Equal(t, int64(1250), stats.RevenueCents)
}

func TestOrderService_ErrorsKeepTheirKind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fillCart(t, "u1", "S")

	_, err := h.client.Checkout(ctx, checkoutRequest("u1", "other"))
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)

	bad := checkoutRequest("u1", "S")
	bad.Payment.Method = "barter"
	_, err = h.client.Checkout(ctx, bad)
	assert.ErrorIs(t, err, models.ErrValidation)

	order, err := h.client.Checkout(ctx, checkoutRequest("u1", "S"))
	require.NoError(t, err)

	_, err = h.client.GetOrder(ctx, service.GetOrderRequest{OrderID: order.ID, UserID: "u2"})
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = h.client.UpdateOrderStatus(ctx, service.UpdateOrderStatusRequest{
		ShopID: "S", OrderID: order.ID, Status: models.StatusCancelled,
	})
	require.NoError(t, err)
	_, err = h.client.UpdateOrderStatus(ctx, service.UpdateOrderStatusRequest{
		ShopID: "S", OrderID: order.ID, Status: models.StatusShipped,
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestOrderService_Health(t *testing.T) {
	h := newHarness(t)

	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestToStatus(t *testing.T) {
	assert.NoError(t, toStatus(nil))
	assert.Equal(t, codes.NotFound, status.Code(toStatus(models.ErrNotFound)))
	assert.Equal(t, codes.AlreadyExists, status.Code(toStatus(models.ErrConflict)))
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(models.ErrInvalidTransition)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))

	internal := toStatus(errors.New("dial tcp: connection refused"))
	assert.Equal(t, codes.Internal, status.Code(internal))
	assert.NotContains(t, internal.Error(), "connection refused")
}

func TestFromStatus(t *testing.T) {
	err := fromStatus(status.Error(codes.NotFound, "not found: order o1"))
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, "not found: order o1", err.Error())

	err = fromStatus(status.Error(codes.Unavailable, "down"))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
