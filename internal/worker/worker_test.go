package worker

import (
	"context"
	"encoding/json"
	"testing"

	"click-collect/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReloader struct {
	keys []string
}

func (r *recordingReloader) HandleDocumentChanged(_ context.Context, key string) int {
	r.keys = append(r.keys, key)
	return 1
}

func TestDocumentWatcher_ReloadsEveryPage(t *testing.T) {
	shop, track := &recordingReloader{}, &recordingReloader{}
	w := NewDocumentWatcher(nil, shop, track)

	value, err := json.Marshal(&models.DocumentChangedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeDocumentChanged},
		Key:       "gestionCommandesState_v1",
	})
	require.NoError(t, err)

	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), kafka.Message{Value: value}))
	assert.Equal(t, []string{"gestionCommandesState_v1"}, shop.keys)
	assert.Equal(t, []string{"gestionCommandesState_v1"}, track.keys)
}
