package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced     = "ORDER_PLACED"
	EventTypeDocumentChanged = "DOCUMENT_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when a storefront checkout succeeds
type OrderPlacedEvent struct {
	BaseEvent
	OrderID   string          `json:"order_id"`
	Reference string          `json:"reference"`
	Email     string          `json:"email"`
	Total     decimal.Decimal `json:"total"`
	Items     []OrderItem     `json:"items"`
}

// DocumentChangedEvent announces a write to a shared storage key.
// The admin tool publishes it after editing products or order statuses.
type DocumentChangedEvent struct {
	BaseEvent
	Key    string `json:"key"`
	Source string `json:"source"`
}
