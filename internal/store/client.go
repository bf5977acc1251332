package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"click-collect/internal/kvstore"
	"click-collect/internal/models"
	"click-collect/internal/util"

	"go.uber.org/zap"
)

// ClientStore persists per-client blobs: the signed-in session of the shop
// page and the cart/order cache of the tracking page. Keys are namespaced by
// client id.
type ClientStore struct {
	kv         kvstore.Storage
	sessionKey string
	clientKey  string
	logger     *zap.Logger
}

// NewClientStore creates a client store using the given base keys
func NewClientStore(kv kvstore.Storage, sessionKey, clientKey string) *ClientStore {
	return &ClientStore{
		kv:         kv,
		sessionKey: sessionKey,
		clientKey:  clientKey,
		logger:     util.GetLogger(),
	}
}

func (s *ClientStore) sessionKeyFor(clientID string) string {
	return fmt.Sprintf("%s:%s", s.sessionKey, clientID)
}

func (s *ClientStore) stateKeyFor(clientID string) string {
	return fmt.Sprintf("%s:%s", s.clientKey, clientID)
}

// LoadSession returns the stored session, or nil when absent or unreadable
func (s *ClientStore) LoadSession(ctx context.Context, clientID string) *models.ClientSession {
	var session models.ClientSession
	found, err := s.read(ctx, s.sessionKeyFor(clientID), &session)
	if err != nil || !found || session.Email == "" {
		return nil
	}
	return &session
}

// SaveSession stores the session for clientID
func (s *ClientStore) SaveSession(ctx context.Context, clientID string, session models.ClientSession) error {
	return s.write(ctx, s.sessionKeyFor(clientID), session)
}

// ClearSession removes the session for clientID
func (s *ClientStore) ClearSession(ctx context.Context, clientID string) error {
	if err := s.kv.Delete(ctx, s.sessionKeyFor(clientID)); err != nil {
		util.StorageErrorsTotal.WithLabelValues("write").Inc()
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// LoadClientState returns the stored tracking state. Absent or unparseable
// state is empty; an error means the backend could not be read and the
// stored state must not be overwritten.
func (s *ClientStore) LoadClientState(ctx context.Context, clientID string) (models.ClientState, error) {
	var state models.ClientState
	found, err := s.read(ctx, s.stateKeyFor(clientID), &state)
	if err != nil {
		return models.ClientState{}, err
	}
	if !found {
		return models.ClientState{}, nil
	}
	valid := state.Cart[:0]
	for _, line := range state.Cart {
		if line.ProductID != "" && line.Quantity > 0 {
			valid = append(valid, line)
		}
	}
	state.Cart = valid
	return state, nil
}

// SaveClientState stores the tracking state for clientID
func (s *ClientStore) SaveClientState(ctx context.Context, clientID string, state models.ClientState) error {
	return s.write(ctx, s.stateKeyFor(clientID), state)
}

// read decodes key into v. Parse failures are logged and reported as absent.
func (s *ClientStore) read(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		util.StorageErrorsTotal.WithLabelValues("read").Inc()
		s.logger.Error("Failed to read client key", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		util.StorageErrorsTotal.WithLabelValues("parse").Inc()
		s.logger.Error("Failed to parse client key", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *ClientStore) write(ctx context.Context, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, payload); err != nil {
		util.StorageErrorsTotal.WithLabelValues("write").Inc()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
