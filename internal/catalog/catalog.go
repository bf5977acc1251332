// Package catalog filters and orders the persisted product list for display.
package catalog

import (
	"errors"
	"sort"
	"strings"

	"click-collect/internal/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrInvalidSort is returned for an unknown sort key
var ErrInvalidSort = errors.New("invalid sort key")

// SortKey selects the order of the rendered catalog
type SortKey string

const (
	SortCatalog   SortKey = "catalog"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortStockDesc SortKey = "stock_desc"
	SortName      SortKey = "name"
)

// Empty-state messages
const (
	MessageNoProducts = "Aucun produit disponible pour le moment."
	MessageNoMatch    = "Aucun produit ne correspond à votre recherche."
)

// ParseSortKey parses a query value. An empty value selects fallback.
func ParseSortKey(s string, fallback SortKey) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case "":
		return fallback, nil
	case SortCatalog, SortPriceAsc, SortPriceDesc, SortStockDesc, SortName:
		return key, nil
	}
	return "", ErrInvalidSort
}

// Item is one displayed product
type Item struct {
	models.Product
	Unavailable bool `json:"unavailable"`
}

// View is the rendered catalog
type View struct {
	Items        []Item  `json:"items"`
	Query        string  `json:"query,omitempty"`
	Sort         SortKey `json:"sort"`
	Empty        bool    `json:"empty"`
	EmptyMessage string  `json:"empty_message,omitempty"`
}

// Render filters products by query, drops hidden ones and sorts the rest
func Render(products []models.Product, query string, key SortKey) View {
	query = strings.TrimSpace(query)
	view := View{Items: []Item{}, Query: query, Sort: key}

	needle := strings.ToLower(query)
	for _, p := range products {
		if p.Hidden || !Matches(p, needle) {
			continue
		}
		view.Items = append(view.Items, Item{Product: p, Unavailable: !p.Available()})
	}
	sortItems(view.Items, key)

	if len(view.Items) == 0 {
		view.Empty = true
		view.EmptyMessage = MessageNoMatch
		if visibleCount(products) == 0 {
			view.EmptyMessage = MessageNoProducts
		}
	}
	return view
}

// Matches reports whether needle, already lowercased, occurs in the name,
// description or SKU of p. An empty needle matches everything.
func Matches(p models.Product, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) ||
		strings.Contains(strings.ToLower(p.SKU), needle)
}

// Index maps visible products by id
func Index(products []models.Product) map[string]models.Product {
	index := make(map[string]models.Product, len(products))
	for _, p := range products {
		if p.Hidden {
			continue
		}
		index[p.ID] = p
	}
	return index
}

func sortItems(items []Item, key SortKey) {
	switch key {
	case SortPriceAsc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Price.LessThan(items[j].Price)
		})
	case SortPriceDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Price.GreaterThan(items[j].Price)
		})
	case SortStockDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Stock > items[j].Stock
		})
	case SortName:
		// Collators keep internal buffers and are not safe to share.
		c := collate.New(language.French, collate.IgnoreCase)
		sort.SliceStable(items, func(i, j int) bool {
			return c.CompareString(items[i].Name, items[j].Name) < 0
		})
	}
}

func visibleCount(products []models.Product) int {
	n := 0
	for _, p := range products {
		if !p.Hidden {
			n++
		}
	}
	return n
}
