package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotal(t *testing.T) {
	t.Parallel()

	items := []CartItem{
		{ProductID: "A", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		{ProductID: "B", UnitPrice: decimal.RequireFromString("5.50"), Quantity: 1},
	}

	got := Total(items)
	assert.True(t, decimal.RequireFromString("25.50").Equal(got), "got %s", got)
	assert.True(t, Total(nil).IsZero())
}

func TestNewCart_EmptyItemsNotNil(t *testing.T) {
	t.Parallel()

	c := NewCart("c1", nil)
	require.NotNil(t, c.Items)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
}

func TestCloneItems_DoesNotAlias(t *testing.T) {
	t.Parallel()

	img := "a.png"
	src := []CartItem{{ProductID: "A", Quantity: 1, ImageRef: &img}}

	dst := CloneItems(src)
	dst[0].Quantity = 5
	*dst[0].ImageRef = "b.png"

	assert.Equal(t, 1, src[0].Quantity)
	assert.Equal(t, "a.png", *src[0].ImageRef)
	assert.Nil(t, CloneItems(nil))
}

func TestIndexOf(t *testing.T) {
	t.Parallel()

	items := []CartItem{{ProductID: "A"}, {ProductID: "B"}}
	assert.Equal(t, 1, IndexOf(items, "B"))
	assert.Equal(t, -1, IndexOf(items, "C"))
}

func TestCheckUnitPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		price string
		want  error
	}{
		{"0", nil},
		{"9.99", nil},
		{"9999999999.99", nil},
		{"10.10", nil},
		{"-0.01", ErrNegativePrice},
		{"9.999", ErrPriceScale},
		{"0.001", ErrPriceScale},
		{"10000000000", ErrPriceTooLarge},
		{"1e12", ErrPriceTooLarge},
	}
	for _, tc := range cases {
		err := CheckUnitPrice(decimal.RequireFromString(tc.price))
		if tc.want == nil {
			assert.NoError(t, err, tc.price)
			continue
		}
		assert.ErrorIs(t, err, tc.want, tc.price)
	}
}
