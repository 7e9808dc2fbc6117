package main

import (
	"context"
	"log"
	"time"

	"card-fulfillment/internal/core/cache"
	"card-fulfillment/internal/core/config"
	"card-fulfillment/internal/core/logger"
	"card-fulfillment/internal/core/metrics"
	"card-fulfillment/internal/core/proxy"
	"card-fulfillment/internal/core/server"
	fulfillmentadapter "card-fulfillment/internal/features/fulfillment/adapters"
	fulfillmenthandler "card-fulfillment/internal/features/fulfillment/handler"
	"card-fulfillment/internal/features/fulfillment/ports"
	fulfillmentservice "card-fulfillment/internal/features/fulfillment/service"
	notificationadapter "card-fulfillment/internal/features/notifications/adapters"
	notificationhandler "card-fulfillment/internal/features/notifications/handler"
	notificationservice "card-fulfillment/internal/features/notifications/service"

	"go.uber.org/zap"
)

// orderStore is the write-back side and webhook decoder of one commerce platform.
type orderStore interface {
	ports.OrderStore
	ports.EventDecoder
	HealthCheck(ctx context.Context) error
}

// @title Card Fulfillment API
// @version 1.0
// @description Receives store order webhooks, provisions digital codes from LikeCard and writes them back to the order.
// @contact.name API Support
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
		zap.String("order_store", cfg.OrderStore),
	)

	metrics.Register()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize Provisioning Adapter and run Health Check
	proxySettings := proxy.Settings{
		Enabled:  cfg.Proxy.Enabled,
		Hostname: cfg.Proxy.Hostname,
		Port:     cfg.Proxy.Port,
		Username: cfg.Proxy.Username,
		Password: cfg.Proxy.Password,
	}
	if proxySettings.HasProxy() {
		l.Info("Provider calls use outbound proxy", zap.String("proxy", proxySettings.HostPort()))
	}
	likecard := fulfillmentadapter.NewLikeCardAdapter(cfg.LikeCard, proxySettings)
	if err := likecard.HealthCheck(ctx); err != nil {
		l.Fatal("LikeCard Health Check Failed", zap.Error(err))
	}
	l.Info("LikeCard connection verified")

	// Initialize Order Store Adapter and run Health Check
	var (
		store  orderStore
		source string
	)
	switch cfg.OrderStore {
	case config.OrderStoreWooCommerce:
		store, source = fulfillmentadapter.NewWooCommerceAdapter(cfg.WooCommerce), "woocommerce"
	default:
		store, source = fulfillmentadapter.NewShopifyAdapter(cfg.Shopify), "shopify"
	}
	if err := store.HealthCheck(ctx); err != nil {
		l.Fatal("Order store Health Check Failed", zap.String("store", source), zap.Error(err))
	}
	l.Info("Order store connection verified", zap.String("store", source))

	// Initialize Fulfillment Service & Handler
	poller := fulfillmentservice.NewPoller(likecard, fulfillmentservice.PollerConfigFrom(cfg.Polling))
	fulfillmentSvc := fulfillmentservice.NewFulfillmentService(
		poller,
		fulfillmentservice.NewNoteWriter(store),
		cfg.Workflow.ItemConcurrency,
	)

	var handlerOpts []fulfillmenthandler.Option
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
		if err != nil {
			l.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			l.Warn("Redis unreachable, webhook dedup will fail open", zap.Error(err))
		}
		deduper := fulfillmentadapter.NewRedisDeduper(redisCache, time.Duration(cfg.Redis.DedupTTLSeconds)*time.Second)
		handlerOpts = append(handlerOpts, fulfillmenthandler.WithDeduper(deduper))
		l.Info("Webhook dedup enabled")
	}

	webhookHdl := fulfillmenthandler.NewWebhookHandler(
		source,
		store,
		fulfillmentSvc,
		time.Duration(cfg.Workflow.TimeoutSeconds)*time.Second,
		handlerOpts...,
	)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/webhooks/"+source, webhookHdl.HandleOrder)

	if cfg.Ultramsg.InstanceID != "" {
		messenger := notificationadapter.NewUltramsgAdapter(cfg.Ultramsg)
		notifier := notificationservice.NewNotificationService(messenger)
		srv.App.Post("/webhooks/whatsapp", notificationhandler.NewNotificationHandler(notifier).HandleOrderStatus)
		l.Info("WhatsApp notifications enabled")
	}

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
