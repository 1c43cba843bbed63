package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cache"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repository"
)

type checkoutFixture struct {
	svc    *CheckoutService
	orders repository.OrderRepository
	carts  *cart.Store
	rec    *events.Recorder
	now    time.Time
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	kv := cache.NewMemoryCache("test")
	f := &checkoutFixture{
		orders: repository.NewMemoryOrders(repository.NewMemoryStore()),
		carts:  cart.NewStore(kv, time.Hour),
		rec:    &events.Recorder{},
		now:    time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewCheckoutService(CheckoutConfig{
		Orders:    f.orders,
		Carts:     f.carts,
		Sessions:  kv,
		Publisher: f.rec,
		Now:       func() time.Time { return f.now },
	})
	return f
}

func (f *checkoutFixture) fillCart(t *testing.T, cartID string) {
	t.Helper()
	c, err := f.carts.Load(context.Background(), cartID)
	require.NoError(t, err)
	require.NoError(t, c.Add(domain.CartItem{ProductID: "iphone-15", Name: "iPhone 15", Price: decimal.NewFromInt(799), Quantity: 1}))
	require.NoError(t, f.carts.Save(context.Background(), c))
}

var (
	buyer    = &checkout.Identity{UserID: "u1", Email: "buyer@example.com"}
	shipping = checkout.ShippingForm{Name: "Jo Doe", Address: "1 Infinite Loop", City: "Cupertino", Zip: "95014", Country: "US"}
	card     = checkout.PaymentForm{Method: domain.PaymentCard, CardNumber: "4242424242424242", Expiry: "12/29", CVC: "123"}
)

func TestCheckout_FullFlowAcrossRequests(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, "c1")

	v, err := f.svc.Start(ctx, "c1", buyer)
	require.NoError(t, err)
	assert.Equal(t, "shipping", v.Step)
	assert.Equal(t, "799.00", v.Total)

	v, err = f.svc.Apply(ctx, "c1", buyer, checkout.SubmitShipping{Form: shipping})
	require.NoError(t, err)
	assert.Equal(t, "payment", v.Step)

	v, err = f.svc.Apply(ctx, "c1", buyer, checkout.SubmitPayment{Form: card})
	require.NoError(t, err)
	assert.Equal(t, "verification", v.Step)
	assert.Equal(t, 180, v.RemainingSeconds)
	assert.True(t, v.CanVerify)
	require.NotEmpty(t, v.OrderID)
	orderID := v.OrderID

	f.now = f.now.Add(100 * time.Second)
	v, err = f.svc.View(ctx, "c1", buyer)
	require.NoError(t, err)
	assert.Equal(t, 80, v.RemainingSeconds)

	v, err = f.svc.Apply(ctx, "c1", buyer, checkout.SubmitVerification{Form: checkout.VerificationForm{OTP: "123456"}})
	require.NoError(t, err)
	assert.Equal(t, "completed", v.Step)
	assert.Equal(t, checkout.ConfirmationRoute(orderID), v.Redirect)

	o, err := f.orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, o.OTP)
	assert.Equal(t, "123456", *o.OTP)
	assert.Equal(t, domain.OrderStatusPending, o.Status)

	c, err := f.carts.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	evs := f.rec.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, events.OrderCreated, evs[0].Type)
	assert.Equal(t, events.OrderVerified, evs[1].Type)
	require.NotNil(t, evs[1].Order)
	require.NotNil(t, evs[1].Order.OTP)
	assert.Equal(t, "123456", *evs[1].Order.OTP)
	assert.Equal(t, orderID, evs[1].Order.ID)

	// session dropped with the cart: a new visit starts over and bounces home
	v, err = f.svc.View(ctx, "c1", buyer)
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Equal(t, checkout.RouteHome, v.Redirect)
}

func TestCheckout_AnonymousPaymentRedirectsToLogin(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, "c2")

	_, err := f.svc.Apply(ctx, "c2", nil, checkout.SubmitShipping{Form: shipping})
	require.NoError(t, err)

	v, err := f.svc.Apply(ctx, "c2", nil, checkout.SubmitPayment{Form: card})
	assert.ErrorIs(t, err, checkout.ErrAuthRequired)
	assert.Equal(t, checkout.RouteLogin, v.Redirect)
	assert.Equal(t, "payment", v.Step)

	orders, _ := f.orders.List(ctx, repository.OrderFilter{})
	assert.Empty(t, orders)
}

func TestCheckout_ExpiredWindow(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, "c3")

	_, err := f.svc.Apply(ctx, "c3", buyer, checkout.SubmitShipping{Form: shipping})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, "c3", buyer, checkout.SubmitPayment{Form: checkout.PaymentForm{Method: domain.PaymentCrypto}})
	require.NoError(t, err)

	f.now = f.now.Add(checkout.DefaultVerificationTTL)
	v, err := f.svc.View(ctx, "c3", buyer)
	require.NoError(t, err)
	assert.True(t, v.Expired)
	assert.False(t, v.CanVerify)

	_, err = f.svc.Apply(ctx, "c3", buyer, checkout.SubmitVerification{Form: checkout.VerificationForm{CryptoTrxID: "0xabc"}})
	assert.ErrorIs(t, err, checkout.ErrVerificationExpired)

	c, _ := f.carts.Load(ctx, "c3")
	assert.Len(t, c.Items, 1)
}

func TestCheckout_ValidationKeepsStep(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, "c4")

	v, err := f.svc.Apply(ctx, "c4", buyer, checkout.SubmitShipping{Form: checkout.ShippingForm{Name: "J"}})
	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Equal(t, "shipping", v.Step)
}

func TestCheckout_EmptyCartStart(t *testing.T) {
	f := newCheckoutFixture(t)
	v, err := f.svc.Start(context.Background(), "nothing", buyer)
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Equal(t, checkout.RouteHome, v.Redirect)
}
