package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"github.com/example/shopfront/pkg/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

const ServiceName = "shopfront.OrderService"

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*service.OrderAPI)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Checkout", Handler: unaryHandler("Checkout", service.OrderAPI.Checkout)},
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", service.OrderAPI.GetOrder)},
		{MethodName: "ListOrders", Handler: unaryHandler("ListOrders", service.OrderAPI.ListOrders)},
		{MethodName: "UpdateOrderStatus", Handler: unaryHandler("UpdateOrderStatus", service.OrderAPI.UpdateOrderStatus)},
		{MethodName: "GetShopStats", Handler: unaryHandler("GetShopStats", service.OrderAPI.GetShopStats)},
		{MethodName: "GetOrderHistory", Handler: unaryHandler("GetOrderHistory", service.OrderAPI.GetOrderHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shopfront/order_service",
}

func unaryHandler[Req, Resp any](method string, call func(service.OrderAPI, context.Context, Req) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		var req Req
		if err := dec(&req); err != nil {
			return nil, err
		}
		api := srv.(service.OrderAPI)
		if interceptor == nil {
			return call(api, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, r any) (any, error) {
			return call(api, ctx, r.(Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// OrderServer exposes an OrderAPI over gRPC and translates service errors into
// status codes.
type OrderServer struct {
	api    service.OrderAPI
	logger *zap.Logger
	server *grpc.Server
	health *health.Server
}

func NewOrderServer(api service.OrderAPI, logger *zap.Logger) *OrderServer {
	s := &OrderServer{
		api:    api,
		logger: logger,
		health: health.NewServer(),
	}

	s.server = grpc.NewServer(grpc.ChainUnaryInterceptor(
		recoveryInterceptor(logger),
		loggingInterceptor(logger),
	))
	s.server.RegisterService(&orderServiceDesc, s)
	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)

	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *OrderServer) Start(host string, port int) error {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("Order service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *OrderServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

func (s *OrderServer) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *OrderServer) Checkout(ctx context.Context, req service.CheckoutRequest) (*models.Order, error) {
	order, err := s.api.Checkout(ctx, req)
	return order, toStatus(err)
}

func (s *OrderServer) GetOrder(ctx context.Context, req service.GetOrderRequest) (*models.Order, error) {
	order, err := s.api.GetOrder(ctx, req)
	return order, toStatus(err)
}

func (s *OrderServer) ListOrders(ctx context.Context, req service.ListOrdersRequest) (*models.OrderPage, error) {
	page, err := s.api.ListOrders(ctx, req)
	return page, toStatus(err)
}

func (s *OrderServer) UpdateOrderStatus(ctx context.Context, req service.UpdateOrderStatusRequest) (*models.Order, error) {
	order, err := s.api.UpdateOrderStatus(ctx, req)
	return order, toStatus(err)
}

func (s *OrderServer) GetShopStats(ctx context.Context, req service.GetShopStatsRequest) (*models.ShopStats, error) {
	stats, err := s.api.GetShopStats(ctx, req)
	return stats, toStatus(err)
}

func (s *OrderServer) GetOrderHistory(ctx context.Context, req service.GetOrderHistoryRequest) ([]*repository.AuditLog, error) {
	logs, err := s.api.GetOrderHistory(ctx, req)
	return logs, toStatus(err)
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Info("gRPC request", fields...)
		case codes.Internal, codes.Unknown:
			logger.Error("gRPC request failed", append(fields, zap.Error(err))...)
		default:
			logger.Warn("gRPC request rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in gRPC handler", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
