package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/discovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ClientManager owns the gateway's connection to the order service.
type ClientManager struct {
	config    *config.Config
	discovery *discovery.ServiceDiscovery
	logger    *zap.Logger

	orderClient *OrderClient
	orderConn   *grpc.ClientConn
}

func NewClientManager(cfg *config.Config, logger *zap.Logger, disc *discovery.ServiceDiscovery) *ClientManager {
	return &ClientManager{
		config:    cfg,
		discovery: disc,
		logger:    logger,
	}
}

func (m *ClientManager) Connect(ctx context.Context) error {
	if err := m.connectOrderService(ctx); err != nil {
		return fmt.Errorf("failed to connect to order service: %w", err)
	}
	return nil
}

// resolve prefers a discovered instance and falls back to the configured
// address.
func (m *ClientManager) resolve(ctx context.Context, name, fallback string) string {
	if m.discovery == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	instances, err := m.discovery.Discover(ctx, name)
	if err != nil || len(instances) == 0 {
		m.logger.Info("Using default address", zap.String("service", name), zap.String("address", fallback), zap.Error(err))
		return fallback
	}

	target := instances[0].Addr()
	m.logger.Info("Discovered service", zap.String("service", name), zap.String("address", target))
	return target
}

func (m *ClientManager) connectOrderService(ctx context.Context) error {
	target := m.resolve(ctx, m.config.Gateway.OrderService, m.config.Gateway.OrderAddr)

	m.logger.Info("Connecting to order service", zap.String("target", target))

	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return err
	}

	m.orderConn = conn
	m.orderClient = NewOrderClient(conn)
	return nil
}

func (m *ClientManager) OrderClient() *OrderClient {
	return m.orderClient
}

func (m *ClientManager) Close() error {
	if m.orderConn == nil {
		return nil
	}
	if err := m.orderConn.Close(); err != nil {
		return fmt.Errorf("order connection close error: %w", err)
	}
	return nil
}
