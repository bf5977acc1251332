package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"click-collect/internal/cart"
	"click-collect/internal/catalog"
	"click-collect/internal/models"
	"click-collect/internal/store"
	"click-collect/internal/util"

	"go.uber.org/zap"
)

// EventPublisher publishes storefront events
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// CartView is the rendered cart
type CartView struct {
	Lines    []models.CartLine `json:"lines"`
	Totals   cart.Totals       `json:"totals"`
	Empty    bool              `json:"empty"`
	Adjusted []string          `json:"adjusted,omitempty"`
}

// Storefront is the state of one client on one page: cart, session and the
// catalog snapshot the cart is checked against. All methods are safe for
// concurrent use.
type Storefront struct {
	mu sync.Mutex

	clientID  string
	policy    Policy
	docs      *store.DocumentStore
	clients   *store.ClientStore
	publisher EventPublisher
	refs      *ReferenceGenerator
	logger    *zap.Logger

	cart            *cart.Cart
	products        []models.Product
	index           map[string]models.Product
	session         *models.ClientSession
	tracked         []models.OrderSummary
	pendingCheckout bool
	restored        bool

	lastCheckoutKey  string
	lastConfirmation *Confirmation
}

func newStorefront(clientID string, policy Policy, docs *store.DocumentStore, clients *store.ClientStore,
	publisher EventPublisher, refs *ReferenceGenerator) *Storefront {
	return &Storefront{
		clientID:  clientID,
		policy:    policy,
		docs:      docs,
		clients:   clients,
		publisher: publisher,
		refs:      refs,
		logger:    util.GetLogger().With(zap.String("page", policy.Page), zap.String("client_id", clientID)),
		cart:      cart.New(policy.Overflow),
	}
}

// openLocked restores the persisted client state and takes the first
// catalog snapshot.
func (s *Storefront) openLocked(ctx context.Context) {
	if s.policy.RequireSession {
		s.session = s.clients.LoadSession(ctx, s.clientID)
	}
	s.restoreLocked(ctx)
	s.refreshLocked(ctx)
}

// restoreLocked loads the persisted cart and tracked orders. When the read
// fails the storefront stays unrestored and nothing is persisted until a
// later attempt succeeds; lines added meanwhile are merged into the
// restored cart.
func (s *Storefront) restoreLocked(ctx context.Context) bool {
	if s.restored || !s.policy.PersistCart {
		s.restored = true
		return true
	}

	state, err := s.clients.LoadClientState(ctx, s.clientID)
	if err != nil {
		s.logger.Warn("Client state not restored, persistence deferred", zap.Error(err))
		return false
	}

	s.cart = cart.FromLines(append(state.Cart, s.cart.Lines()...), s.policy.Overflow)
	pending := s.tracked
	s.tracked = state.Orders
	for _, summary := range pending {
		s.upsertTrackedLocked(summary)
	}
	s.restored = true
	return true
}

// ensureRestored retries a restore that failed when the storefront opened
func (s *Storefront) ensureRestored(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restored {
		return
	}
	if s.restoreLocked(ctx) && s.index != nil {
		s.cart.Reconcile(s.index)
	}
}

// ClientID returns the id of the client owning the storefront
func (s *Storefront) ClientID() string {
	return s.clientID
}

// Policy returns the page policy
func (s *Storefront) Policy() Policy {
	return s.policy
}

// Reload takes a fresh catalog snapshot and brings the cart within stock
func (s *Storefront) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx)
}

// Catalog reloads the shared document and renders the product list
func (s *Storefront) Catalog(ctx context.Context, query, sortKey string) (catalog.View, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.Catalog")
	defer span.End()

	key, err := catalog.ParseSortKey(sortKey, s.policy.DefaultSort)
	if err != nil {
		return catalog.View{}, &ValidationError{Field: "sort", Message: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx)

	return catalog.Render(s.products, query, key), nil
}

// Cart renders the cart against the current snapshot
func (s *Storefront) Cart(ctx context.Context) CartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	adjusted := s.cart.Reconcile(s.index)
	if len(adjusted) > 0 {
		s.persistLocked(ctx)
	}
	return s.viewLocked(adjusted)
}

// AddItem adds one unit of productID
func (s *Storefront) AddItem(ctx context.Context, productID string) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.index[productID]
	if !ok {
		util.CartRejectionsTotal.WithLabelValues("unknown_product").Inc()
		return s.viewLocked(nil), cart.ErrUnknownProduct
	}

	if err := s.cart.Add(p); err != nil {
		util.CartRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		s.logger.Info("Add to cart rejected", zap.String("product_id", productID), zap.Error(err))
		return s.viewLocked(nil), err
	}

	s.persistLocked(ctx)
	return s.viewLocked(nil), nil
}

// SetQuantity sets the quantity of a cart line. Zero or less removes it.
func (s *Storefront) SetQuantity(ctx context.Context, productID string, quantity int) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.index[productID]
	if !ok {
		// The product left the catalog: the line can only go away.
		if s.cart.Remove(productID) {
			s.persistLocked(ctx)
			return s.viewLocked([]string{productID}), nil
		}
		return s.viewLocked(nil), cart.ErrNotInCart
	}

	got, err := s.cart.SetQuantity(p, quantity)
	if err != nil {
		util.CartRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		return s.viewLocked(nil), err
	}

	var adjusted []string
	if quantity > 0 && got != quantity {
		adjusted = []string{productID}
	}
	s.persistLocked(ctx)
	return s.viewLocked(adjusted), nil
}

// RemoveItem removes a cart line
func (s *Storefront) RemoveItem(ctx context.Context, productID string) CartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.Remove(productID) {
		s.persistLocked(ctx)
	}
	return s.viewLocked(nil)
}

// Session returns the signed-in client, if any
func (s *Storefront) Session() *models.ClientSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	session := *s.session
	return &session
}

// SignInResult is returned by SignIn
type SignInResult struct {
	Session models.ClientSession `json:"session"`
	// ResumeCheckout is set when sign-in was prompted by a checkout attempt.
	ResumeCheckout bool `json:"resume_checkout"`
}

// SignIn opens a client session
func (s *Storefront) SignIn(ctx context.Context, name, email string) (*SignInResult, error) {
	if !s.policy.RequireSession {
		return nil, ErrNotSupported
	}

	session, err := normalizeIdentity("name", name, email)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clients.SaveSession(ctx, s.clientID, session); err != nil {
		util.StorageErrorsTotal.WithLabelValues("write").Inc()
		s.logger.Error("Failed to save client session", zap.Error(err))
	}
	s.session = &session

	resume := s.pendingCheckout
	s.pendingCheckout = false

	s.logger.Info("Client signed in", zap.Bool("resume_checkout", resume))
	return &SignInResult{Session: session, ResumeCheckout: resume}, nil
}

// SignOut closes the client session
func (s *Storefront) SignOut(ctx context.Context) error {
	if !s.policy.RequireSession {
		return ErrNotSupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	s.pendingCheckout = false
	if err := s.clients.ClearSession(ctx, s.clientID); err != nil {
		util.StorageErrorsTotal.WithLabelValues("write").Inc()
		s.logger.Error("Failed to clear client session", zap.Error(err))
	}
	return nil
}

// refreshLocked replaces the catalog snapshot and reconciles the cart
func (s *Storefront) refreshLocked(ctx context.Context) {
	products := s.docs.Products(ctx)
	if len(products) == 0 && len(s.policy.FallbackCatalog) > 0 {
		products = s.policy.FallbackCatalog
	}
	s.products = products
	s.index = catalog.Index(products)

	if adjusted := s.cart.Reconcile(s.index); len(adjusted) > 0 {
		s.logger.Info("Cart adjusted to current stock", zap.Strings("product_ids", adjusted))
		s.persistLocked(ctx)
	}
}

// persistLocked is the persistence boundary of the tracking page. Failures
// are logged and the in-memory state is kept.
func (s *Storefront) persistLocked(ctx context.Context) {
	if !s.policy.PersistCart {
		return
	}
	if !s.restored {
		if !s.restoreLocked(ctx) {
			s.logger.Warn("Skipping persist of unrestored client state")
			return
		}
		s.cart.Reconcile(s.index)
	}

	state := models.ClientState{Cart: s.cart.Lines(), Orders: s.tracked}
	if err := s.clients.SaveClientState(ctx, s.clientID, state); err != nil {
		util.StorageErrorsTotal.WithLabelValues("write").Inc()
		s.logger.Error("Failed to persist client state", zap.Error(err))
	}
}

func (s *Storefront) viewLocked(adjusted []string) CartView {
	lines := s.cart.Lines()
	return CartView{
		Lines:    lines,
		Totals:   cart.ComputeTotals(lines, s.policy.DiscountRate),
		Empty:    len(lines) == 0,
		Adjusted: adjusted,
	}
}

// normalizeIdentity trims the name and lowercases the email
func normalizeIdentity(nameField, name, email string) (models.ClientSession, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return models.ClientSession{}, required(nameField)
	}
	if email == "" {
		return models.ClientSession{}, required("email")
	}
	return models.ClientSession{Name: name, Email: email}, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, cart.ErrStockLimit), errors.Is(err, cart.ErrExceedsStock):
		return "stock_limit"
	case errors.Is(err, cart.ErrNotInCart):
		return "not_in_cart"
	}
	return "other"
}
