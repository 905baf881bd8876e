package app

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/events"
	"github.com/example/shopfront/pkg/reconcile"
	"github.com/example/shopfront/pkg/repository"
	"github.com/example/shopfront/pkg/service"
	"go.uber.org/zap"
)

// Backend is everything behind the transports: stores, event publisher,
// services and the reconciler actor.
type Backend struct {
	Services *service.Services

	logger     *zap.Logger
	system     *actor.ActorSystem
	reconciler *reconcile.Reconciler
	closers    []func()
}

func NewBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{logger: logger}

	stores, err := b.openStores(ctx, cfg)
	if err != nil {
		b.Close()
		return nil, err
	}

	publisher := b.initNATS(cfg)
	b.Services = service.New(cfg, stores, publisher, logger)

	b.system = actor.NewActorSystem()
	b.reconciler, err = reconcile.New(b.system, b.Services.Detacher.Detach, cfg.Reconcile, logger.Named("reconcile"))
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Services.Checkout.SetRetrier(b.reconciler)

	return b, nil
}

func (b *Backend) openStores(ctx context.Context, cfg *config.Config) (service.Stores, error) {
	if cfg.Storage.Driver == "memory" {
		b.logger.Warn("Using in-memory storage, data is lost on restart")
		return service.MemoryStores(), nil
	}

	b.logger.Info("Connecting to MongoDB", zap.String("database", cfg.MongoDB.Database))
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		return service.Stores{}, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	b.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoRepo.Close(ctx); err != nil {
			b.logger.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	})

	b.logger.Info("Connecting to MySQL", zap.String("host", cfg.MySQL.Host), zap.String("database", cfg.MySQL.Database))
	orders, err := repository.NewOrderRepositoryMySQL(&cfg.MySQL)
	if err != nil {
		return service.Stores{}, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	b.onClose(func() {
		if err := orders.Close(); err != nil {
			b.logger.Warn("MySQL close failed", zap.Error(err))
		}
	})

	stores := service.Stores{
		Carts:    mongoRepo.Carts(),
		Products: mongoRepo.Products(),
		Stats:    mongoRepo.Stats(),
		Audit:    mongoRepo,
		Orders:   orders,
	}

	if cache := b.initRedis(ctx, cfg); cache != nil {
		stores.Cache = cache
	}
	return stores, nil
}

// initRedis returns nil when the cache is unreachable; orders are then read
// straight from MySQL.
func (b *Backend) initRedis(ctx context.Context, cfg *config.Config) *repository.RedisRepository {
	if cfg.Redis.Addr == "" {
		return nil
	}

	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisRepo.Ping(pingCtx); err != nil {
		b.logger.Warn("Redis connection failed, order cache disabled", zap.Error(err))
		redisRepo.Close()
		return nil
	}

	b.logger.Info("Redis connected successfully")
	b.onClose(func() { redisRepo.Close() })
	return redisRepo
}

func (b *Backend) initNATS(cfg *config.Config) events.Publisher {
	if cfg.NATS.URL == "" {
		b.logger.Info("NATS URL not set, event publishing disabled")
		return events.NopPublisher{}
	}

	publisher, err := events.NewNatsPublisher(cfg.NATS.URL, b.logger.Named("events"))
	if err != nil {
		b.logger.Warn("Failed to connect to NATS, continuing without event publishing",
			zap.String("url", cfg.NATS.URL), zap.Error(err))
		return events.NopPublisher{}
	}
	b.onClose(publisher.Close)
	return publisher
}

func (b *Backend) onClose(fn func()) {
	b.closers = append(b.closers, fn)
}

// Close stops the reconciler first so no detach job runs against closed stores.
func (b *Backend) Close() {
	if b.reconciler != nil {
		b.reconciler.Stop()
	}
	if b.system != nil {
		b.system.Shutdown()
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
