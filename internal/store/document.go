package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"click-collect/internal/kvstore"
	"click-collect/internal/models"
	"click-collect/internal/util"

	"go.uber.org/zap"
)

const (
	documentLockKey   = "storefront-document"
	documentLockTTL   = 5 * time.Second
	lockRetryInterval = 10 * time.Millisecond
	lockMaxAttempts   = 300
)

// ErrDocumentCorrupt is returned when an append would overwrite a document
// that cannot be parsed.
var ErrDocumentCorrupt = errors.New("shared document is not valid JSON")

// ErrLockTimeout is returned when the distributed document lock stays taken
var ErrLockTimeout = errors.New("timed out waiting for document lock")

// DocumentStore reads the shared { products, orders } document and appends
// orders to it. Products and order statuses belong to the admin tool.
type DocumentStore struct {
	kv     kvstore.Storage
	key    string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewDocumentStore creates a store over the given storage key
func NewDocumentStore(kv kvstore.Storage, key string) *DocumentStore {
	return &DocumentStore{
		kv:     kv,
		key:    key,
		logger: util.GetLogger(),
	}
}

// Key returns the storage key of the shared document
func (s *DocumentStore) Key() string {
	return s.key
}

// Load returns the validated document. Read and parse failures are logged
// and yield an empty document.
func (s *DocumentStore) Load(ctx context.Context) models.Document {
	ctx, span := util.StartSpan(ctx, "DocumentStore.Load")
	defer span.End()

	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return emptyDocument()
	}
	if err != nil {
		util.StorageErrorsTotal.WithLabelValues("read").Inc()
		s.logger.Error("Failed to read shared document", zap.String("key", s.key), zap.Error(err))
		return emptyDocument()
	}

	doc, err := decodeDocument(raw, s.logger)
	if err != nil {
		util.StorageErrorsTotal.WithLabelValues("parse").Inc()
		s.logger.Error("Failed to parse shared document", zap.String("key", s.key), zap.Error(err))
		return emptyDocument()
	}
	return doc
}

// Products returns the persisted catalog
func (s *DocumentStore) Products(ctx context.Context) []models.Product {
	return s.Load(ctx).Products
}

// Orders returns the persisted orders
func (s *DocumentStore) Orders(ctx context.Context) []models.Order {
	return s.Load(ctx).Orders
}

// FindOrder looks up an order by reference and email, both case-insensitive
func (s *DocumentStore) FindOrder(ctx context.Context, reference, email string) (*models.Order, bool) {
	reference = strings.TrimSpace(reference)
	email = strings.TrimSpace(email)
	if reference == "" || email == "" {
		return nil, false
	}
	for _, o := range s.Orders(ctx) {
		if strings.EqualFold(o.Reference, reference) && strings.EqualFold(o.Email, email) {
			order := o
			return &order, true
		}
	}
	return nil, false
}

// OrdersByEmail returns the orders placed with email, newest first
func (s *DocumentStore) OrdersByEmail(ctx context.Context, email string) []models.Order {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	var orders []models.Order
	for _, o := range s.Orders(ctx) {
		if o.Email != "" && strings.EqualFold(o.Email, email) {
			orders = append(orders, o)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt > orders[j].CreatedAt
	})
	return orders
}

// HasReference reports whether any persisted order uses reference
func (s *DocumentStore) HasReference(ctx context.Context, reference string) bool {
	for _, o := range s.Orders(ctx) {
		if strings.EqualFold(o.Reference, reference) {
			return true
		}
	}
	return false
}

// AppendOrder appends order to the shared document. Fields written by the
// admin tool, including ones this service does not model, are preserved.
func (s *DocumentStore) AppendOrder(ctx context.Context, order *models.Order) error {
	ctx, span := util.StartSpan(ctx, "DocumentStore.AppendOrder")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	top := map[string]json.RawMessage{}
	raw, err := s.kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		top["products"] = json.RawMessage("[]")
	case err != nil:
		util.StorageErrorsTotal.WithLabelValues("read").Inc()
		return fmt.Errorf("failed to read shared document: %w", err)
	default:
		if err := json.Unmarshal(raw, &top); err != nil {
			util.StorageErrorsTotal.WithLabelValues("parse").Inc()
			return fmt.Errorf("%w: %v", ErrDocumentCorrupt, err)
		}
	}

	var orders []json.RawMessage
	if existing, ok := top["orders"]; ok {
		if err := json.Unmarshal(existing, &orders); err != nil {
			// Not an array: start a fresh one.
			s.logger.Warn("Shared document orders field is not an array, resetting", zap.Error(err))
			orders = nil
		}
	}

	encoded, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	orders = append(orders, encoded)

	if top["orders"], err = json.Marshal(orders); err != nil {
		return fmt.Errorf("failed to marshal orders: %w", err)
	}
	if _, ok := top["schemaVersion"]; !ok {
		top["schemaVersion"] = json.RawMessage(fmt.Sprint(models.SchemaVersion))
	}

	payload, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("failed to marshal shared document: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, payload); err != nil {
		util.StorageErrorsTotal.WithLabelValues("write").Inc()
		return fmt.Errorf("failed to write shared document: %w", err)
	}

	s.logger.Info("Order appended",
		zap.String("reference", order.Reference),
		zap.Int("orders", len(orders)))
	return nil
}

// lock takes the backend lock so that appends from every replica, and from
// every store sharing the backend, are serialized.
func (s *DocumentStore) lock(ctx context.Context) (func(), error) {
	locker, ok := s.kv.(kvstore.Locker)
	if !ok {
		s.logger.Warn("Storage backend has no lock, appends are only serialized in this store")
		return func() {}, nil
	}

	for attempt := 0; attempt < lockMaxAttempts; attempt++ {
		token, acquired, err := locker.AcquireLock(ctx, documentLockKey, documentLockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire document lock: %w", err)
		}
		if acquired {
			return func() {
				if err := locker.ReleaseLock(context.Background(), documentLockKey, token); err != nil {
					s.logger.Error("Failed to release document lock", zap.Error(err))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
	return nil, ErrLockTimeout
}

func emptyDocument() models.Document {
	return models.Document{
		SchemaVersion: models.SchemaVersion,
		Products:      []models.Product{},
		Orders:        []models.Order{},
	}
}
