package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"click-collect/internal/models"
	"click-collect/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing storefront events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.Reference, event)
}

// PublishDocumentChanged publishes DocumentChanged event
func (ep *EventPublisher) PublishDocumentChanged(ctx context.Context, event *models.DocumentChangedEvent) error {
	return ep.producer.PublishEvent(ctx, "document-"+event.Key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onDocumentChanged func(context.Context, *models.DocumentChangedEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnDocumentChanged registers a handler for DocumentChanged events
func (eh *EventHandler) OnDocumentChanged(handler func(context.Context, *models.DocumentChangedEvent) error) {
	eh.onDocumentChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeDocumentChanged:
		if eh.onDocumentChanged != nil {
			var event models.DocumentChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DocumentChanged event: %w", err)
			}
			return eh.onDocumentChanged(ctx, &event)
		}

	case models.EventTypeOrderPlaced:
		// Our own checkouts share the topic.

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
