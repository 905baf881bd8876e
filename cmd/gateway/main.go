package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/shopfront/gateway"
	"github.com/example/shopfront/pkg/app"
	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/discovery"
	shopgrpc "github.com/example/shopfront/pkg/grpc"
	"github.com/example/shopfront/pkg/logger"
	"github.com/example/shopfront/pkg/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("SHOPFRONT_CONFIG"), "path to config file")
	flag.Parse()
	if *configPath == "" {
		*configPath = "config/config.yaml"
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting API Gateway",
		zap.Int("port", cfg.Gateway.Port),
		zap.String("host", cfg.Gateway.Host),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("remote_orders", cfg.Gateway.RemoteOrders))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.NewBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to start backend", zap.Error(err))
	}
	defer backend.Close()

	var orders service.OrderAPI = backend.Services.OrderAPI()
	if cfg.Gateway.RemoteOrders {
		sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, log.Named("discovery"))
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
			sd = nil
		} else {
			defer sd.Close()
		}

		clients := shopgrpc.NewClientManager(cfg, log, sd)
		if err := clients.Connect(ctx); err != nil {
			log.Fatal("Failed to connect to order service", zap.Error(err))
		}
		defer clients.Close()
		orders = clients.OrderClient()
	}

	gw := gateway.NewGateway(cfg, log, backend.Services.Cart, backend.Services.Catalog, orders)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(gw.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gateway")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return gw.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Gateway error", zap.Error(err))
	}
	log.Info("Gateway stopped")
}
