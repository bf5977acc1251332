package service

import (
	"context"
	"sort"
	"strings"

	"click-collect/internal/models"
	"click-collect/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderDetail is an order as shown to its customer
type OrderDetail struct {
	Reference string               `json:"reference"`
	Customer  string               `json:"customer"`
	Email     string               `json:"email"`
	Notes     string               `json:"notes,omitempty"`
	Status    string               `json:"status"`
	CreatedAt int64                `json:"created_at"`
	UpdatedAt int64                `json:"updated_at"`
	Total     decimal.Decimal      `json:"total"`
	Items     []models.OrderItem   `json:"items"`
	History   []models.StatusEntry `json:"history"`
}

// LookupRequest represents the tracking form
type LookupRequest struct {
	Reference string `json:"reference"`
	Email     string `json:"email"`
}

// Lookup finds an order by reference and email and refreshes the client's
// cached summary of it. A miss leaves the cache untouched.
func (s *Storefront) Lookup(ctx context.Context, req *LookupRequest) (*OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.Lookup")
	defer span.End()

	if !s.policy.TrackOrders {
		return nil, ErrNotSupported
	}

	reference := strings.ToUpper(strings.TrimSpace(req.Reference))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if reference == "" {
		return nil, required("reference")
	}
	if email == "" {
		return nil, required("email")
	}

	order, ok := s.docs.FindOrder(ctx, reference, email)
	if !ok {
		util.TrackingLookupsTotal.WithLabelValues("not_found").Inc()
		s.logger.Info("Order lookup missed", zap.String("reference", reference))
		return nil, ErrOrderNotFound
	}
	util.TrackingLookupsTotal.WithLabelValues("found").Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertTrackedLocked(summaryOf(*order))
	s.persistLocked(ctx)

	detail := detailOf(*order)
	return &detail, nil
}

// TrackedOrders returns the cached order summaries, most recently updated
// first.
func (s *Storefront) TrackedOrders() ([]models.OrderSummary, error) {
	if !s.policy.TrackOrders {
		return nil, ErrNotSupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.OrderSummary, len(s.tracked))
	copy(out, s.tracked)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return out, nil
}

// AccountOrders lists the orders of the signed-in client, newest first
func (s *Storefront) AccountOrders(ctx context.Context) ([]OrderDetail, error) {
	if !s.policy.RequireSession {
		return nil, ErrNotSupported
	}

	session := s.Session()
	if session == nil {
		return nil, ErrLoginRequired
	}

	orders := s.docs.OrdersByEmail(ctx, session.Email)
	details := make([]OrderDetail, 0, len(orders))
	for _, o := range orders {
		details = append(details, detailOf(o))
	}
	return details, nil
}

// upsertTrackedLocked replaces the summary with the same reference or
// appends a new one.
func (s *Storefront) upsertTrackedLocked(summary models.OrderSummary) {
	for i := range s.tracked {
		if strings.EqualFold(s.tracked[i].Reference, summary.Reference) {
			s.tracked[i].Status = summary.Status
			s.tracked[i].Total = summary.Total
			s.tracked[i].UpdatedAt = summary.UpdatedAt
			return
		}
	}
	s.tracked = append(s.tracked, summary)
}

func summaryOf(o models.Order) models.OrderSummary {
	return models.OrderSummary{
		Reference: o.Reference,
		Email:     o.Email,
		Status:    o.Status,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.LastUpdate(),
	}
}

func detailOf(o models.Order) OrderDetail {
	history := make([]models.StatusEntry, len(o.History))
	copy(history, o.History)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date > history[j].Date
	})

	return OrderDetail{
		Reference: o.Reference,
		Customer:  o.Customer,
		Email:     o.Email,
		Notes:     o.Notes,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.LastUpdate(),
		Total:     o.Total,
		Items:     o.LineItems(),
		History:   history,
	}
}
