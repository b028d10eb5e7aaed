package main

import (
	"log"

	"order-lookup/internal/core/config"
	"order-lookup/internal/core/logger"
	"order-lookup/internal/core/proxy"
	"order-lookup/internal/core/server"
	lookupadapter "order-lookup/internal/features/lookup/adapters"
	lookuphandler "order-lookup/internal/features/lookup/handler"
	lookupservice "order-lookup/internal/features/lookup/service"

	"go.uber.org/zap"
)

// @title Order Lookup API
// @version 1.0
// @description This API resolves a free-text customer query into a single order from the Shopify store.
// @contact.name API Support
// @contact.email support@orderlookup.local
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	egress := proxy.Settings{
		Enabled:  cfg.Proxy.Enabled,
		Hostname: cfg.Proxy.Hostname,
		Port:     cfg.Proxy.Port,
		Username: cfg.Proxy.Username,
		Password: cfg.Proxy.Password,
	}

	// Initialize the store adapter and run a Health Check
	shopifyAdapter := lookupadapter.NewShopifyAdapter(cfg.Shopify, egress)
	if err := shopifyAdapter.HealthCheck(); err != nil {
		l.Fatal("Shopify Health Check Failed", zap.Error(err))
	}
	l.Info("Shopify connection verified",
		zap.String("api_version", cfg.Shopify.APIVersion),
	)

	// Initialize Lookup Service & Handler
	lookupSvc := lookupservice.NewLookupService(shopifyAdapter, cfg.Resolver)
	lookupHdl := lookuphandler.NewLookupHandler(lookupSvc)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Get("/api/orders/lookup", lookupHdl.LookupOrder)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
