package service

import (
	"time"

	"click-collect/internal/cart"
	"click-collect/internal/catalog"
	"click-collect/internal/models"

	"github.com/shopspring/decimal"
)

// Pages served by the storefront
const (
	PageShop  = "shop"
	PageTrack = "track"
)

// Reference alphabets
const (
	AlphabetBase36        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	AlphabetUnambiguous   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	defaultReferenceRetry = 8
)

// DefaultIdleTTL is how long an unused storefront stays in memory
const DefaultIdleTTL = 30 * time.Minute

// Policy captures what differs between the two storefront pages
type Policy struct {
	Page string

	// Overflow decides how SetQuantity treats quantities above stock.
	Overflow cart.OverflowPolicy
	// RequireSession gates checkout and account history behind sign-in.
	RequireSession bool
	// DiscountRate is a percentage applied to every cart.
	DiscountRate decimal.Decimal
	// PersistCart saves the cart and the tracked order cache per client.
	PersistCart bool
	// WatchChanges reloads the catalog snapshot on document change events.
	WatchChanges bool
	// TrackOrders enables reference lookups and the local summary cache.
	TrackOrders bool

	ReferenceAlphabet string
	ReferenceAttempts int
	DefaultSort       catalog.SortKey

	// FallbackCatalog is shown when the shared document has no products.
	FallbackCatalog []models.Product

	// IdleTTL evicts storefronts not requested for that long. Only the
	// tracking page's cart survives eviction; sessions always do.
	IdleTTL time.Duration
}

// CatalogPolicy is the catalog, cart and checkout page with client sessions
func CatalogPolicy(overflow cart.OverflowPolicy, discountRate decimal.Decimal) Policy {
	return Policy{
		Page:              PageShop,
		Overflow:          overflow,
		RequireSession:    true,
		DiscountRate:      cart.ClampRate(discountRate),
		WatchChanges:      true,
		ReferenceAlphabet: AlphabetBase36,
		ReferenceAttempts: defaultReferenceRetry,
		DefaultSort:       catalog.SortName,
		IdleTTL:           DefaultIdleTTL,
	}
}

// TrackingPolicy is the order tracking page with a persisted cart
func TrackingPolicy(overflow cart.OverflowPolicy, discountRate decimal.Decimal) Policy {
	return Policy{
		Page:              PageTrack,
		Overflow:          overflow,
		DiscountRate:      cart.ClampRate(discountRate),
		PersistCart:       true,
		TrackOrders:       true,
		ReferenceAlphabet: AlphabetUnambiguous,
		ReferenceAttempts: defaultReferenceRetry,
		DefaultSort:       catalog.SortCatalog,
		FallbackCatalog:   DefaultCatalog(),
		IdleTTL:           DefaultIdleTTL,
	}
}
