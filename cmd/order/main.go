package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/shopfront/pkg/app"
	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/discovery"
	shopgrpc "github.com/example/shopfront/pkg/grpc"
	"github.com/example/shopfront/pkg/logger"
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

	log.Info("Starting order service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.NewBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to start backend", zap.Error(err))
	}
	defer backend.Close()

	server := shopgrpc.NewOrderServer(backend.Services.OrderAPI(), log.Named("grpc"))

	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, log.Named("discovery"))
	if err != nil {
		log.Fatal("Failed to connect to etcd", zap.Error(err))
	}
	defer sd.Close()

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.AdvertiseHost,
		Port: cfg.Server.Port,
	}
	if err := sd.Register(ctx, instance); err != nil {
		log.Fatal("Failed to register service", zap.Error(err))
	}
	log.Info("Service registered in etcd",
		zap.String("name", instance.Name),
		zap.String("address", instance.Addr()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(cfg.Server.Host, cfg.Server.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Received shutdown signal")

		deregCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sd.Deregister(deregCtx, instance); err != nil {
			log.Error("Failed to deregister service", zap.Error(err))
		}

		server.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server error", zap.Error(err))
	}
	log.Info("Service stopped")
}
