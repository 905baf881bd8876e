package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectOrderCreated         = "order.created"
	SubjectOrderStatusChanged   = "order.status_changed"
	SubjectProductStatusChanged = "product.status_changed"
)

type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error
	PublishProductStatusChanged(ctx context.Context, product *models.Product, from models.ProductStatus) error
	Close()
}

type OrderCreatedEvent struct {
	OrderID     string  `json:"order_id"`
	ShopID      string  `json:"shop_id"`
	UserID      string  `json:"user_id"`
	TrackingID  int64   `json:"tracking_id"`
	TotalAmount float64 `json:"total_amount"`
	Currency    string  `json:"currency"`
	CreatedAt   string  `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   string `json:"order_id"`
	ShopID    string `json:"shop_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedAt string `json:"changed_at"`
}

// ProductStatusChangedEvent has an empty From on creation and Deleted set on
// soft-delete.
type ProductStatusChangedEvent struct {
	ProductID string `json:"product_id"`
	ShopID    string `json:"shop_id"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Deleted   bool   `json:"deleted,omitempty"`
	ChangedAt string `json:"changed_at"`
}

func NewOrderCreatedEvent(order *models.Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:     order.ID,
		ShopID:      order.ShopID,
		UserID:      order.UserID,
		TrackingID:  order.TrackingID,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		CreatedAt:   order.CreatedAt.Format(time.RFC3339),
	}
}

func NewOrderStatusChangedEvent(order *models.Order, from models.OrderStatus) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:   order.ID,
		ShopID:    order.ShopID,
		From:      string(from),
		To:        string(order.Status),
		ChangedAt: order.UpdatedAt.Format(time.RFC3339),
	}
}

func NewProductStatusChangedEvent(product *models.Product, from models.ProductStatus) ProductStatusChangedEvent {
	return ProductStatusChangedEvent{
		ProductID: product.ID,
		ShopID:    product.ShopID,
		From:      string(from),
		To:        string(product.Status),
		Deleted:   product.IsDeleted,
		ChangedAt: product.UpdatedAt.Format(time.RFC3339),
	}
}

type NatsPublisher struct {
	nc       *nats.Conn
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
}

func NewNatsPublisher(url string, logger *zap.Logger) (*NatsPublisher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var nc *nats.Conn
	var err error

	for i := 0; i < 3; i++ {
		nc, err = nats.Connect(url,
			nats.Name("shopfront"),
			nats.MaxReconnects(5),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				logger.Warn("NATS disconnected", zap.Error(err))
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
			}),
		)
		if err == nil {
			logger.Info("Connected to NATS", zap.String("url", url))
			return &NatsPublisher{nc: nc, logger: logger, attempts: 3, backoff: time.Second}, nil
		}

		logger.Warn("Failed to connect to NATS", zap.Int("attempt", i+1), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		case <-time.After(2 * time.Second):
		}
	}

	return nil, fmt.Errorf("failed to connect to NATS after retries: %w", err)
}

func (p *NatsPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, SubjectOrderCreated, NewOrderCreatedEvent(order))
}

func (p *NatsPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	return p.publish(ctx, SubjectOrderStatusChanged, NewOrderStatusChangedEvent(order, from))
}

func (p *NatsPublisher) PublishProductStatusChanged(ctx context.Context, product *models.Product, from models.ProductStatus) error {
	return p.publish(ctx, SubjectProductStatusChanged, NewProductStatusChangedEvent(product, from))
}

func (p *NatsPublisher) publish(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for i := 0; i < p.attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err = p.nc.Publish(subject, data); err != nil {
			p.logger.Warn("Failed to publish to NATS", zap.String("subject", subject), zap.Int("attempt", i+1), zap.Error(err))
			time.Sleep(p.backoff)
			continue
		}
		if err = p.nc.FlushTimeout(2 * time.Second); err != nil {
			p.logger.Warn("Failed to flush NATS connection", zap.String("subject", subject), zap.Error(err))
			continue
		}
		p.logger.Debug("Published event", zap.String("subject", subject))
		return nil
	}

	return fmt.Errorf("failed to publish %s after %d attempts", subject, p.attempts)
}

func (p *NatsPublisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
		p.logger.Info("NATS connection closed")
	}
}

// NopPublisher drops every event. Used when nats.url is empty.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, *models.Order) error { return nil }

func (NopPublisher) PublishOrderStatusChanged(context.Context, *models.Order, models.OrderStatus) error {
	return nil
}

func (NopPublisher) PublishProductStatusChanged(context.Context, *models.Product, models.ProductStatus) error {
	return nil
}

func (NopPublisher) Close() {}
