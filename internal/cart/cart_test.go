package cart

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cache"
	"storefront/internal/domain"
)

func item(id string, price string, qty int64) domain.CartItem {
	return domain.CartItem{ProductID: id, Name: id, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestCart_AddMergesQuantities(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(item("a", "10", 1)))
	require.NoError(t, c.Add(item("b", "5.5", 2)))
	require.NoError(t, c.Add(item("a", "10", 2)))

	require.Len(t, c.Items, 2)
	assert.Equal(t, int64(3), c.Items[0].Quantity)
	assert.Equal(t, "41.00", domain.FormatMoney(c.Subtotal()))
	assert.ErrorIs(t, c.Add(item("c", "1", 0)), ErrInvalidQuantity)
}

func TestCart_QuantityCappedPerLine(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(item("a", "10", 1)))
	assert.ErrorIs(t, c.Add(item("a", "10", math.MaxInt64)), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(item("a", "10", domain.MaxLineQuantity)), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(item("b", "10", domain.MaxLineQuantity+1)), ErrInvalidQuantity)
	require.NoError(t, c.Add(item("a", "10", domain.MaxLineQuantity-1)))
	assert.Equal(t, domain.MaxLineQuantity, c.Items[0].Quantity)

	assert.ErrorIs(t, c.UpdateQuantity("a", math.MaxInt64), ErrInvalidQuantity)
	assert.Equal(t, domain.MaxLineQuantity, c.Items[0].Quantity)
	require.Len(t, c.Items, 1)
}

func TestCart_UpdateQuantityRemovesNonPositive(t *testing.T) {
	c := Cart{Items: []domain.CartItem{item("a", "1", 1), item("b", "1", 1)}}
	require.NoError(t, c.UpdateQuantity("a", 4))
	require.NoError(t, c.UpdateQuantity("b", 0))
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(4), c.Items[0].Quantity)

	c.Remove("a")
	assert.Empty(t, c.Items)
}

func TestStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemoryCache("test"), time.Hour)

	c, err := s.Load(ctx, "cart-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	require.NoError(t, c.Add(item("a", "2.50", 2)))
	require.NoError(t, s.Save(ctx, c))

	got, err := s.Load(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, "5.00", domain.FormatMoney(got.Subtotal()))

	require.NoError(t, s.Clearer("cart-1").Clear(ctx))
	got, err = s.Load(ctx, "cart-1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}
