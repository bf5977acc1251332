package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"click-collect/config"
	"click-collect/internal/api"
	"click-collect/internal/broker"
	"click-collect/internal/cart"
	"click-collect/internal/kvstore"
	"click-collect/internal/service"
	"click-collect/internal/store"
	"click-collect/internal/util"
	"click-collect/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	overflow, err := cart.ParseOverflowPolicy(cfg.Business.SetQuantityPolicy)
	if err != nil {
		logger.Fatal("Invalid SET_QUANTITY_POLICY", zap.String("value", cfg.Business.SetQuantityPolicy))
	}

	openCtx, openCancel := context.WithTimeout(context.Background(), 15*time.Second)
	kv, err := kvstore.Open(openCtx, kvstore.Options{
		Backend:       cfg.Storage.Backend,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		DatabaseURL:   cfg.Storage.DatabaseURL,
		PebbleDir:     cfg.Storage.PebbleDir,
		MongoURI:      cfg.Storage.MongoURI,
		MongoDB:       cfg.Storage.MongoDB,
	})
	openCancel()
	if err != nil {
		logger.Fatal("Failed to open storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer kv.Close()
	logger.Info("Storage opened", zap.String("backend", cfg.Storage.Backend))

	docs := store.NewDocumentStore(kv, cfg.Keys.State)
	clients := store.NewClientStore(kv, cfg.Keys.Session, cfg.Keys.Client)

	var publisher service.EventPublisher
	var producer *broker.Producer
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.Topic))
	}

	shopPolicy := service.CatalogPolicy(overflow, cfg.Business.DiscountRate)
	shopPolicy.IdleTTL = cfg.Server.SessionIdleTTL
	trackPolicy := service.TrackingPolicy(overflow, cfg.Business.TrackingDiscountRate)
	trackPolicy.IdleTTL = cfg.Server.SessionIdleTTL

	shop := service.NewRegistry(shopPolicy, docs, clients, publisher)
	track := service.NewRegistry(trackPolicy, docs, clients, publisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go shop.RunEviction(workerCtx, cfg.Server.EvictionInterval)
	go track.RunEviction(workerCtx, cfg.Server.EvictionInterval)

	var watcher *worker.DocumentWatcher
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ConsumerGroup)
		watcher = worker.NewDocumentWatcher(consumer, shop, track)
		go func() {
			if err := watcher.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Document watcher error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(shop, track)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Error("Failed to stop document watcher", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
