// Command notify announces a change to a shared storage key so that running
// storefronts reload their catalog. The admin tool calls it after saving.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"click-collect/config"
	"click-collect/internal/broker"
	"click-collect/internal/models"
	"click-collect/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	key := flag.String("key", cfg.Keys.State, "storage key that changed")
	source := flag.String("source", "admin", "writer of the change")
	flag.Parse()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	event := &models.DocumentChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeDocumentChanged,
			Timestamp: time.Now(),
		},
		Key:    *key,
		Source: *source,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := broker.NewEventPublisher(producer).PublishDocumentChanged(ctx, event); err != nil {
		logger.Fatal("Failed to publish DocumentChanged event", zap.Error(err))
	}
	logger.Info("DocumentChanged event published",
		zap.String("key", *key),
		zap.String("topic", cfg.Kafka.Topic))
}
