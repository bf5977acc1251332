package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"click-collect/internal/store"
	"click-collect/internal/util"

	"go.uber.org/zap"
)

// openTimeout bounds the restore of a storefront's persisted state. The
// restore outlives the request that triggered it.
const openTimeout = 5 * time.Second

type registryEntry struct {
	storefront *Storefront
	lastSeen   time.Time
}

// Registry holds the storefronts of one page, keyed by client id
type Registry struct {
	policy    Policy
	docs      *store.DocumentStore
	clients   *store.ClientStore
	publisher EventPublisher
	refs      *ReferenceGenerator
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	storefronts map[string]*registryEntry
}

// NewRegistry creates a registry for the page described by policy.
// publisher may be nil.
func NewRegistry(policy Policy, docs *store.DocumentStore, clients *store.ClientStore, publisher EventPublisher) *Registry {
	return &Registry{
		policy:      policy,
		docs:        docs,
		clients:     clients,
		publisher:   publisher,
		refs:        NewReferenceGenerator(policy.ReferenceAlphabet, rand.NewSource(time.Now().UnixNano())),
		logger:      util.GetLogger().With(zap.String("page", policy.Page)),
		now:         time.Now,
		storefronts: make(map[string]*registryEntry),
	}
}

// Policy returns the page policy
func (r *Registry) Policy() Policy {
	return r.policy
}

// Get returns the storefront of clientID, opening it on first use
func (r *Registry) Get(ctx context.Context, clientID string) *Storefront {
	openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), openTimeout)
	defer cancel()

	r.mu.Lock()
	if e, ok := r.storefronts[clientID]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		e.storefront.ensureRestored(openCtx)
		return e.storefront
	}

	// Concurrent callers block on sf.mu until the state is restored.
	sf := newStorefront(clientID, r.policy, r.docs, r.clients, r.publisher, r.refs)
	sf.mu.Lock()
	r.storefronts[clientID] = &registryEntry{storefront: sf, lastSeen: r.now()}
	util.ActiveSessions.WithLabelValues(r.policy.Page).Inc()
	r.mu.Unlock()

	sf.openLocked(openCtx)
	sf.mu.Unlock()

	r.logger.Debug("Storefront opened", zap.String("client_id", clientID))
	return sf
}

// Forget drops the in-memory storefront of clientID. Persisted state stays.
func (r *Registry) Forget(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgetLocked(clientID)
}

func (r *Registry) forgetLocked(clientID string) {
	if _, ok := r.storefronts[clientID]; ok {
		delete(r.storefronts, clientID)
		util.ActiveSessions.WithLabelValues(r.policy.Page).Dec()
	}
}

// Len returns the number of open storefronts
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.storefronts)
}

// EvictIdle forgets the storefronts not requested for longer than the
// policy's idle TTL and returns how many were dropped. A zero TTL keeps
// every storefront.
func (r *Registry) EvictIdle() int {
	if r.policy.IdleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.policy.IdleTTL)
	evicted := 0
	for clientID, e := range r.storefronts {
		if e.lastSeen.Before(cutoff) {
			r.forgetLocked(clientID)
			evicted++
		}
	}

	if evicted > 0 {
		util.StorefrontEvictionsTotal.WithLabelValues(r.policy.Page).Add(float64(evicted))
		r.logger.Info("Idle storefronts evicted",
			zap.Int("evicted", evicted),
			zap.Int("open", len(r.storefronts)))
	}
	return evicted
}

// RunEviction sweeps idle storefronts every interval until ctx is cancelled
func (r *Registry) RunEviction(ctx context.Context, interval time.Duration) {
	if r.policy.IdleTTL <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle()
		}
	}
}

// HandleDocumentChanged reloads every open storefront when key is the shared
// document and the page watches changes. It returns the number reloaded.
func (r *Registry) HandleDocumentChanged(ctx context.Context, key string) int {
	if !r.policy.WatchChanges || key != r.docs.Key() {
		return 0
	}
	return r.ReloadAll(ctx)
}

// ReloadAll refreshes the catalog snapshot of every open storefront
func (r *Registry) ReloadAll(ctx context.Context) int {
	r.mu.Lock()
	open := make([]*Storefront, 0, len(r.storefronts))
	for _, e := range r.storefronts {
		open = append(open, e.storefront)
	}
	r.mu.Unlock()

	for _, sf := range open {
		sf.Reload(ctx)
	}

	util.DocumentReloadsTotal.Inc()
	r.logger.Info("Storefronts reloaded", zap.Int("count", len(open)))
	return len(open)
}
