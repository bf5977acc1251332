package worker

import (
	"context"

	"click-collect/internal/broker"
	"click-collect/internal/models"
	"click-collect/internal/util"

	"go.uber.org/zap"
)

// Reloader refreshes storefronts after a change to a shared storage key
type Reloader interface {
	HandleDocumentChanged(ctx context.Context, key string) int
}

// DocumentWatcher reloads open storefronts when the shared document changes
type DocumentWatcher struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	reloaders    []Reloader
	logger       *zap.Logger
}

// NewDocumentWatcher creates a new document watcher
func NewDocumentWatcher(consumer *broker.Consumer, reloaders ...Reloader) *DocumentWatcher {
	w := &DocumentWatcher{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		reloaders:    reloaders,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnDocumentChanged(w.handleDocumentChanged)
	return w
}

// Start consumes change notifications until ctx is cancelled
func (w *DocumentWatcher) Start(ctx context.Context) error {
	w.logger.Info("Starting document watcher")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the watcher
func (w *DocumentWatcher) Stop() error {
	w.logger.Info("Stopping document watcher")
	return w.consumer.Close()
}

func (w *DocumentWatcher) handleDocumentChanged(ctx context.Context, event *models.DocumentChangedEvent) error {
	reloaded := 0
	for _, r := range w.reloaders {
		reloaded += r.HandleDocumentChanged(ctx, event.Key)
	}

	w.logger.Info("Shared document changed",
		zap.String("key", event.Key),
		zap.String("source", event.Source),
		zap.Int("reloaded", reloaded))
	return nil
}
