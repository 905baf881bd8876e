package grpc

import (
	"context"

	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"github.com/example/shopfront/pkg/service"
	"google.golang.org/grpc"
)

var _ service.OrderAPI = (*OrderClient)(nil)

// OrderClient calls a remote order service. Status errors are mapped back to
// the shared sentinels.
type OrderClient struct {
	conn grpc.ClientConnInterface
}

func NewOrderClient(conn grpc.ClientConnInterface) *OrderClient {
	return &OrderClient{conn: conn}
}

func (c *OrderClient) invoke(ctx context.Context, method string, req, resp any) error {
	err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, grpc.CallContentSubtype(codecName))
	return fromStatus(err)
}

func (c *OrderClient) Checkout(ctx context.Context, req service.CheckoutRequest) (*models.Order, error) {
	var order models.Order
	if err := c.invoke(ctx, "Checkout", &req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *OrderClient) GetOrder(ctx context.Context, req service.GetOrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.invoke(ctx, "GetOrder", &req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *OrderClient) ListOrders(ctx context.Context, req service.ListOrdersRequest) (*models.OrderPage, error) {
	var page models.OrderPage
	if err := c.invoke(ctx, "ListOrders", &req, &page); err != nil {
		return nil, err
	}
	if page.Orders == nil {
		page.Orders = []*models.Order{}
	}
	return &page, nil
}

func (c *OrderClient) UpdateOrderStatus(ctx context.Context, req service.UpdateOrderStatusRequest) (*models.Order, error) {
	var order models.Order
	if err := c.invoke(ctx, "UpdateOrderStatus", &req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *OrderClient) GetShopStats(ctx context.Context, req service.GetShopStatsRequest) (*models.ShopStats, error) {
	var stats models.ShopStats
	if err := c.invoke(ctx, "GetShopStats", &req, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *OrderClient) GetOrderHistory(ctx context.Context, req service.GetOrderHistoryRequest) ([]*repository.AuditLog, error) {
	logs := []*repository.AuditLog{}
	if err := c.invoke(ctx, "GetOrderHistory", &req, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
