package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"storefront/internal/domain"
)

func TestOrderDoc_RoundTrip(t *testing.T) {
	otp := "123456"
	o := domain.Order{
		ID:     "o-1",
		UserID: "u-1",
		Items: []domain.CartItem{
			{ProductID: "iphone-se", Name: "iPhone SE", Price: decimal.RequireFromString("429.50"), Quantity: 2},
		},
		Total:           decimal.RequireFromString("859.00"),
		Status:          domain.OrderStatusPending,
		ShippingAddress: domain.ShippingAddress{Name: "Jo", Address: "1 Loop", City: "Cupertino", Zip: "95014", Country: "US"},
		PaymentDetails:  domain.PaymentDetails{Method: domain.PaymentCard, CardLast4: "4242"},
		OTP:             &otp,
		CreatedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	doc, err := toOrderDoc(o)
	if err != nil {
		t.Fatal(err)
	}
	back, err := doc.order()
	if err != nil {
		t.Fatal(err)
	}
	if !back.Total.Equal(o.Total) || !back.Items[0].Price.Equal(o.Items[0].Price) {
		t.Fatalf("amounts changed: %v %v", back.Total, back.Items[0].Price)
	}
	if back.PaymentDetails != o.PaymentDetails || back.ShippingAddress != o.ShippingAddress {
		t.Fatalf("nested docs changed: %+v", back)
	}

	// ключи вложенных документов в camelCase
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	pay, ok := m["paymentDetails"].(bson.M)
	if !ok || pay["cardLast4"] != "4242" || pay["method"] != "card" {
		t.Fatalf("unexpected paymentDetails %v", m["paymentDetails"])
	}
	if addr, ok := m["shippingAddress"].(bson.M); !ok || addr["zip"] != "95014" {
		t.Fatalf("unexpected shippingAddress %v", m["shippingAddress"])
	}
}

func TestOrderDoc_RejectsUnrepresentableAmount(t *testing.T) {
	huge := decimal.RequireFromString(strings.Repeat("9", 40))
	if _, err := toOrderDoc(domain.Order{ID: "o-1", Total: huge}); err == nil {
		t.Fatal("expected error for amount beyond Decimal128 precision")
	}
	if _, err := toOrderDoc(domain.Order{ID: "o-1", Items: []domain.CartItem{{ProductID: "a", Price: huge, Quantity: 1}}}); err == nil {
		t.Fatal("expected error for item price beyond Decimal128 precision")
	}
}
