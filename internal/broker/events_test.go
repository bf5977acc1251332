package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"click-collect/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestHandleMessage_DocumentChanged(t *testing.T) {
	var got *models.DocumentChangedEvent
	eh := NewEventHandler()
	eh.OnDocumentChanged(func(_ context.Context, e *models.DocumentChangedEvent) error {
		got = e
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.DocumentChangedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeDocumentChanged, Timestamp: time.Now()},
		Key:       "gestionCommandesState_v1",
		Source:    "admin",
	}))

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "gestionCommandesState_v1", got.Key)
	assert.Equal(t, "admin", got.Source)
}

func TestHandleMessage_PropagatesHandlerError(t *testing.T) {
	eh := NewEventHandler()
	eh.OnDocumentChanged(func(context.Context, *models.DocumentChangedEvent) error {
		return errors.New("boom")
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.DocumentChangedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeDocumentChanged},
	}))
	assert.Error(t, err)
}

func TestHandleMessage_IgnoresOtherEvents(t *testing.T) {
	called := false
	eh := NewEventHandler()
	eh.OnDocumentChanged(func(context.Context, *models.DocumentChangedEvent) error {
		called = true
		return nil
	})

	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderPlaced},
		Reference: "CMD-ABCDEF-1234",
	})))
	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, &models.BaseEvent{EventType: "SOMETHING_ELSE"})))
	assert.False(t, called)
}

func TestHandleMessage_InvalidPayload(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestProducer_Integration(t *testing.T) {
	t.Skip("Requires a running Kafka broker")
}
