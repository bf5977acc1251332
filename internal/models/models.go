package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The admin tool reads prices and totals as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// SchemaVersion is the version of the shared document this service writes.
const SchemaVersion = 1

// ProductImage is an optional inline image attached by the admin tool
type ProductImage struct {
	DataURL string `json:"dataUrl,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Product represents a product in the catalog
type Product struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Hidden      bool            `json:"hidden,omitempty"`
	Image       *ProductImage   `json:"image,omitempty"`
}

// Available reports whether the product can be added to a cart
func (p Product) Available() bool {
	return p.Stock > 0
}

// CartLine is one product in a client's cart
type CartLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSKU  string          `json:"productSku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// LineTotal returns unit price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderItem is the denormalized product line stored with an order
type OrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSKU  string          `json:"productSku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// StatusEntry is one step of an order's status history
type StatusEntry struct {
	Status string `json:"status"`
	Date   int64  `json:"date"`
	Note   string `json:"note,omitempty"`
}

// Order represents a click-and-collect order.
//
// The top-level product fields mirror the first item; older documents carry
// only those fields and no Items.
type Order struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Customer  string          `json:"customer"`
	Email     string          `json:"email"`
	Notes     string          `json:"notes"`
	Status    string          `json:"status"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt,omitempty"`
	ProductID string          `json:"productId,omitempty"`
	SKU       string          `json:"productSku,omitempty"`
	Name      string          `json:"productName,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Items     []OrderItem     `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	History   []StatusEntry   `json:"history"`
}

// LineItems returns the order items, synthesizing one from the legacy
// single-product fields when Items is empty.
func (o Order) LineItems() []OrderItem {
	if len(o.Items) > 0 {
		return o.Items
	}
	return []OrderItem{{
		ProductID:   o.ProductID,
		ProductName: o.Name,
		ProductSKU:  o.SKU,
		Quantity:    o.Quantity,
		UnitPrice:   o.UnitPrice,
	}}
}

// LastUpdate returns the most recent timestamp known for the order
func (o Order) LastUpdate() int64 {
	last := o.CreatedAt
	if o.UpdatedAt > last {
		last = o.UpdatedAt
	}
	for _, h := range o.History {
		if h.Date > last {
			last = h.Date
		}
	}
	return last
}

// Document is the shared state blob written by the admin tool and the storefront
type Document struct {
	SchemaVersion int       `json:"schemaVersion,omitempty"`
	Products      []Product `json:"products"`
	Orders        []Order   `json:"orders"`
}

// ClientSession identifies a signed-in customer
type ClientSession struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FirstName returns the first word of the session name
func (s ClientSession) FirstName() string {
	for i, r := range s.Name {
		if r == ' ' {
			return s.Name[:i]
		}
	}
	return s.Name
}

// OrderSummary is the client-side cached view of a tracked order
type OrderSummary struct {
	Reference string          `json:"reference"`
	Email     string          `json:"email"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

// ClientState is the per-client blob of the tracking page
type ClientState struct {
	Cart   []CartLine     `json:"cart"`
	Orders []OrderSummary `json:"orders"`
}

// Order statuses, as written by the admin tool
const (
	OrderStatusPending   = "En attente"
	OrderStatusPreparing = "En préparation"
	OrderStatusReady     = "Prête au retrait"
	OrderStatusPickedUp  = "Retirée"
	OrderStatusCancelled = "Annulée"
)

// NoteOrderCreated is the history note of the first status entry
const NoteOrderCreated = "Commande créée depuis le site client."

// KnownStatus reports whether s is one of the documented status labels
func KnownStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusPickedUp, OrderStatusCancelled:
		return true
	}
	return false
}

// NowMillis returns the current time as epoch milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
