package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"click-collect/internal/cart"
	"click-collect/internal/models"
	"click-collect/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutRequest represents the checkout form
type CheckoutRequest struct {
	Customer string `json:"customer"`
	Email    string `json:"email"`
	Notes    string `json:"notes"`
	// IdempotencyKey makes a retried submission return the first confirmation.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Confirmation is shown once an order is placed
type Confirmation struct {
	OrderID   string             `json:"order_id"`
	Reference string             `json:"reference"`
	Customer  string             `json:"customer"`
	Email     string             `json:"email"`
	Status    string             `json:"status"`
	CreatedAt int64              `json:"created_at"`
	Items     []models.OrderItem `json:"items"`
	Totals    cart.Totals        `json:"totals"`
}

// Checkout turns the cart into an order appended to the shared document.
// The cart is cleared only once the order is stored.
func (s *Storefront) Checkout(ctx context.Context, req *CheckoutRequest) (*Confirmation, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.Checkout")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.IdempotencyKey != "" && req.IdempotencyKey == s.lastCheckoutKey {
		s.logger.Info("Duplicate checkout request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("reference", s.lastConfirmation.Reference))
		return s.lastConfirmation, nil
	}

	s.cart.Reconcile(s.index)
	if s.cart.IsEmpty() {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	if s.policy.RequireSession && s.session == nil {
		s.pendingCheckout = true
		util.OrdersFailedTotal.WithLabelValues("login_required").Inc()
		return nil, ErrLoginRequired
	}

	identity, err := normalizeIdentity("customer", req.Customer, req.Email)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	reference, err := s.uniqueReference(ctx)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("reference").Inc()
		return nil, err
	}

	lines := s.cart.Lines()
	totals := cart.ComputeTotals(lines, s.policy.DiscountRate)
	order := buildOrder(reference, identity, strings.TrimSpace(req.Notes), lines, totals)

	if err := s.docs.AppendOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("storage").Inc()
		s.logger.Error("Failed to save order, cart kept",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrOrderNotSaved, err)
	}

	if s.policy.RequireSession {
		if err := s.clients.SaveSession(ctx, s.clientID, identity); err != nil {
			util.StorageErrorsTotal.WithLabelValues("write").Inc()
			s.logger.Error("Failed to save client session", zap.Error(err))
		}
		s.session = &identity
	}

	s.cart.Clear()
	if s.policy.TrackOrders {
		s.upsertTrackedLocked(summaryOf(*order))
	}
	s.persistLocked(ctx)

	util.OrdersPlacedTotal.WithLabelValues(s.policy.Page).Inc()
	util.OrderValue.Observe(order.Total.InexactFloat64())
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("reference", reference),
		zap.String("total", order.Total.StringFixed(2)))

	s.publishOrderPlaced(ctx, order)

	conf := &Confirmation{
		OrderID:   order.ID,
		Reference: order.Reference,
		Customer:  order.Customer,
		Email:     order.Email,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
		Items:     order.Items,
		Totals:    totals,
	}
	if req.IdempotencyKey != "" {
		s.lastCheckoutKey = req.IdempotencyKey
		s.lastConfirmation = conf
	}
	return conf, nil
}

// uniqueReference draws references until one is unused in the document
func (s *Storefront) uniqueReference(ctx context.Context) (string, error) {
	attempts := s.policy.ReferenceAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		ref := s.refs.Next()
		if !s.docs.HasReference(ctx, ref) {
			return ref, nil
		}
		s.logger.Warn("Order reference collision", zap.String("reference", ref))
	}
	return "", ErrReferenceSpace
}

func (s *Storefront) publishOrderPlaced(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		Reference: order.Reference,
		Email:     order.Email,
		Total:     order.Total,
		Items:     order.Items,
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

func buildOrder(reference string, identity models.ClientSession, notes string,
	lines []models.CartLine, totals cart.Totals) *models.Order {
	now := models.NowMillis()

	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			ProductSKU:  l.ProductSKU,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	order := &models.Order{
		ID:        "ord-" + uuid.New().String(),
		Reference: reference,
		Customer:  identity.Name,
		Email:     identity.Email,
		Notes:     notes,
		Status:    models.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Quantity:  totals.ItemCount,
		Items:     items,
		Subtotal:  totals.Subtotal,
		Discount:  totals.Discount,
		Total:     totals.Total,
		History: []models.StatusEntry{{
			Status: models.OrderStatusPending,
			Date:   now,
			Note:   models.NoteOrderCreated,
		}},
	}

	// The admin tool lists orders by their first product.
	if len(items) > 0 {
		order.ProductID = items[0].ProductID
		order.SKU = items[0].ProductSKU
		order.Name = items[0].ProductName
		order.UnitPrice = items[0].UnitPrice
	}
	return order
}
