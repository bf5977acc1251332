package catalog

import (
	"testing"

	"click-collect/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures() []models.Product {
	return []models.Product{
		{ID: "p1", SKU: "PAIN-01", Name: "Pain de campagne", Description: "Levain naturel", Price: decimal.RequireFromString("3.20"), Stock: 12},
		{ID: "p2", SKU: "CROI-02", Name: "Croissant", Description: "Pur beurre", Price: decimal.RequireFromString("1.10"), Stock: 0},
		{ID: "p3", SKU: "ECLA-03", Name: "Éclair au café", Description: "Crème pâtissière", Price: decimal.RequireFromString("2.80"), Stock: 4},
		{ID: "p4", SKU: "TART-04", Name: "Tarte aux pommes", Price: decimal.RequireFromString("14.00"), Stock: 2},
		{ID: "p5", SKU: "SECR-05", Name: "Brioche secrète", Price: decimal.RequireFromString("5.00"), Stock: 9, Hidden: true},
	}
}

func ids(view View) []string {
	out := make([]string, 0, len(view.Items))
	for _, it := range view.Items {
		out = append(out, it.ID)
	}
	return out
}

func TestRender_Sorts(t *testing.T) {
	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortCatalog, []string{"p1", "p2", "p3", "p4"}},
		{SortPriceAsc, []string{"p2", "p3", "p1", "p4"}},
		{SortPriceDesc, []string{"p4", "p1", "p3", "p2"}},
		{SortStockDesc, []string{"p1", "p3", "p4", "p2"}},
		{SortName, []string{"p2", "p3", "p1", "p4"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			view := Render(fixtures(), "", tt.key)
			assert.Equal(t, tt.want, ids(view))
			assert.False(t, view.Empty)
		})
	}
}

func TestRender_FiltersCaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"p1"}, ids(Render(fixtures(), "LEVAIN", SortCatalog)))
	assert.Equal(t, []string{"p4"}, ids(Render(fixtures(), "tart-04", SortCatalog)))
	assert.Equal(t, []string{"p3"}, ids(Render(fixtures(), "  éclair ", SortCatalog)))
}

func TestRender_SkipsHidden(t *testing.T) {
	view := Render(fixtures(), "brioche", SortCatalog)

	assert.True(t, view.Empty)
	assert.Equal(t, MessageNoMatch, view.EmptyMessage)
}

func TestRender_FlagsUnavailable(t *testing.T) {
	view := Render(fixtures(), "croissant", SortCatalog)

	require.Len(t, view.Items, 1)
	assert.True(t, view.Items[0].Unavailable)
}

func TestRender_EmptyCatalog(t *testing.T) {
	view := Render(nil, "", SortCatalog)

	assert.True(t, view.Empty)
	assert.NotNil(t, view.Items)
	assert.Equal(t, MessageNoProducts, view.EmptyMessage)
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey("", SortName)
	require.NoError(t, err)
	assert.Equal(t, SortName, key)

	key, err = ParseSortKey("Price_Desc", SortName)
	require.NoError(t, err)
	assert.Equal(t, SortPriceDesc, key)

	_, err = ParseSortKey("rating", SortName)
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestIndex_ExcludesHidden(t *testing.T) {
	index := Index(fixtures())

	assert.Len(t, index, 4)
	_, ok := index["p5"]
	assert.False(t, ok)
}
