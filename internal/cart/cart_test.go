package cart

import (
	"testing"

	"click-collect/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price string, stock int) models.Product {
	return models.Product{
		ID:    id,
		Name:  "Product " + id,
		SKU:   "SKU-" + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func TestAdd_UpToStockThenRejects(t *testing.T) {
	c := New(OverflowClamp)
	p := product("P", "10.00", 2)

	require.NoError(t, c.Add(p))
	require.NoError(t, c.Add(p))
	assert.True(t, c.Totals(decimal.Zero).Total.Equal(decimal.NewFromInt(20)))

	err := c.Add(p)
	assert.ErrorIs(t, err, ErrStockLimit)

	line, ok := c.Line("P")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, c.Totals(decimal.Zero).Total.Equal(decimal.NewFromInt(20)))
}

func TestAdd_OutOfStock(t *testing.T) {
	c := New(OverflowClamp)

	err := c.Add(product("P", "3.50", 0))
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.True(t, c.IsEmpty())
}

func TestAdd_KeepsPriceSnapshot(t *testing.T) {
	c := New(OverflowClamp)
	p := product("P", "4.00", 5)
	require.NoError(t, c.Add(p))

	p.Price = decimal.RequireFromString("6.00")
	require.NoError(t, c.Add(p))

	line, _ := c.Line("P")
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("4.00")))
}

func TestSetQuantity(t *testing.T) {
	p := product("P", "2.00", 5)

	tests := []struct {
		name     string
		overflow OverflowPolicy
		n        int
		want     int
		wantErr  error
		removed  bool
	}{
		{name: "within range", overflow: OverflowClamp, n: 3, want: 3},
		{name: "clamped to stock", overflow: OverflowClamp, n: 9, want: 5},
		{name: "zero removes", overflow: OverflowClamp, n: 0, want: 0, removed: true},
		{name: "negative removes", overflow: OverflowClamp, n: -4, want: 0, removed: true},
		{name: "reject above stock", overflow: OverflowReject, n: 9, want: 1, wantErr: ErrExceedsStock},
		{name: "reject policy still allows stock", overflow: OverflowReject, n: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.overflow)
			require.NoError(t, c.Add(p))

			got, err := c.SetQuantity(p, tt.n)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)

			_, present := c.Line("P")
			assert.Equal(t, !tt.removed, present)
		})
	}
}

func TestSetQuantity_SoldOutRemovesLine(t *testing.T) {
	c := New(OverflowClamp)
	p := product("P", "2.00", 3)
	require.NoError(t, c.Add(p))

	p.Stock = 0
	got, err := c.SetQuantity(p, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.True(t, c.IsEmpty())
}

func TestSetQuantity_NotInCart(t *testing.T) {
	c := New(OverflowClamp)

	_, err := c.SetQuantity(product("P", "1", 3), 1)
	assert.ErrorIs(t, err, ErrNotInCart)
}

func TestRemove(t *testing.T) {
	c := New(OverflowClamp)
	require.NoError(t, c.Add(product("A", "1", 3)))
	require.NoError(t, c.Add(product("B", "1", 3)))

	assert.True(t, c.Remove("A"))
	assert.False(t, c.Remove("A"))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "B", lines[0].ProductID)
}

func TestReconcile(t *testing.T) {
	c := FromLines([]models.CartLine{
		{ProductID: "A", Quantity: 4, UnitPrice: decimal.NewFromInt(1)},
		{ProductID: "B", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		{ProductID: "C", Quantity: 2, UnitPrice: decimal.NewFromInt(1)},
		{ProductID: "D", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
	}, OverflowClamp)

	adjusted := c.Reconcile(map[string]models.Product{
		"A": product("A", "1", 2),
		"B": product("B", "1", 5),
		"C": product("C", "1", 0),
	})

	assert.ElementsMatch(t, []string{"A", "C", "D"}, adjusted)
	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "B", lines[1].ProductID)
}

func TestFromLines_MergesDuplicates(t *testing.T) {
	c := FromLines([]models.CartLine{
		{ProductID: "A", Quantity: 1},
		{ProductID: "A", Quantity: 2},
		{ProductID: "", Quantity: 2},
		{ProductID: "B", Quantity: 0},
	}, "")

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestParseOverflowPolicy(t *testing.T) {
	p, err := ParseOverflowPolicy("")
	require.NoError(t, err)
	assert.Equal(t, OverflowClamp, p)

	p, err = ParseOverflowPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, OverflowReject, p)

	_, err = ParseOverflowPolicy("ignore")
	assert.ErrorIs(t, err, ErrInvalidOverflow)
}
