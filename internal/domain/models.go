package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ProductSpecs характеристики устройства
type ProductSpecs struct {
	Storage string `json:"storage"`
	Color   string `json:"color"`
	Display string `json:"display"`
}

// Product представляет товар витрины
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	Specs       ProductSpecs    `json:"specs"`
	Features    []string        `json:"features"`
	Stock       int64           `json:"stock"`
}

// CartItem позиция корзины; копируется в заказ без изменений
type CartItem struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// MaxLineQuantity предел количества в одной позиции корзины
const MaxLineQuantity int64 = 99

// Valid положительное количество в пределах MaxLineQuantity и неотрицательная цена
func (i CartItem) Valid() bool {
	return i.Quantity > 0 && i.Quantity <= MaxLineQuantity && !i.Price.IsNegative()
}

// Subtotal стоимость позиции
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// ShippingAddress адрес доставки
type ShippingAddress struct {
	Name    string `json:"name" bson:"name"`
	Address string `json:"address" bson:"address"`
	City    string `json:"city" bson:"city"`
	Zip     string `json:"zip" bson:"zip"`
	Country string `json:"country" bson:"country"`
}

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentCrypto PaymentMethod = "crypto"
)

// PaymentDetails платёжные данные заказа. Полный номер карты не хранится.
type PaymentDetails struct {
	Method    PaymentMethod `json:"method" bson:"method"`
	CardLast4 string        `json:"cardLast4,omitempty" bson:"cardLast4,omitempty"`
}

// Verification значение подтверждения оплаты: OTP для карты или TRXID для крипты
type Verification struct {
	OTP         *string `json:"otp,omitempty"`
	CryptoTrxID *string `json:"cryptoTrxId,omitempty"`
}

// Order сущность заказа
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []CartItem      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentDetails  PaymentDetails  `json:"paymentDetails"`
	OTP             *string         `json:"otp"`
	CryptoTrxID     *string         `json:"cryptoTrxId"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// MarshalJSON отдаёт total с двумя знаками после запятой
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		Total string `json:"total"`
	}{plain: plain(o), Total: FormatMoney(o.Total)})
}

// NewPendingOrder собирает заказ в статусе Pending без полей подтверждения.
// Позиции копируются, итог считается по снимку корзины.
func NewPendingOrder(userID string, items []CartItem, addr ShippingAddress, pay PaymentDetails) Order {
	cp := make([]CartItem, len(items))
	copy(cp, items)
	return Order{
		UserID:          userID,
		Items:           cp,
		Total:           Total(cp),
		Status:          OrderStatusPending,
		ShippingAddress: addr,
		PaymentDetails:  pay,
	}
}

// ApplyVerification записывает значение подтверждения в заказ
func (o *Order) ApplyVerification(v Verification) {
	if v.OTP != nil {
		otp := *v.OTP
		o.OTP = &otp
	}
	if v.CryptoTrxID != nil {
		trx := *v.CryptoTrxID
		o.CryptoTrxID = &trx
	}
}

// Total сумма unitPrice*quantity по позициям
func Total(items []CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// FormatMoney форматирует сумму с двумя знаками после запятой
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// BannerSet ссылки на баннеры главной страницы
type BannerSet struct {
	Main      string    `json:"main"`
	Sub1      string    `json:"sub1"`
	Sub2      string    `json:"sub2"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// BannerSlot слот баннера
type BannerSlot string

const (
	BannerMain BannerSlot = "main"
	BannerSub1 BannerSlot = "sub1"
	BannerSub2 BannerSlot = "sub2"
)

// Valid проверяет имя слота
func (s BannerSlot) Valid() bool {
	switch s {
	case BannerMain, BannerSub1, BannerSub2:
		return true
	}
	return false
}

// Set возвращает копию набора с заменённой ссылкой слота
func (b BannerSet) Set(slot BannerSlot, url string) BannerSet {
	switch slot {
	case BannerMain:
		b.Main = url
	case BannerSub1:
		b.Sub1 = url
	case BannerSub2:
		b.Sub2 = url
	}
	return b
}

// DefaultBanners баннеры по умолчанию, пока администратор ничего не загрузил
func DefaultBanners() BannerSet {
	return BannerSet{
		Main: "https://ipoint.ae/cdn/shop/files/New_iphone_14_pro_max_offer_banner.jpg?v=1743450038&width=2100",
		Sub1: "https://ipoint.ae/cdn/shop/files/iPhone_16_pro_max_1.png?v=1740152531&width=430",
		Sub2: "https://ipoint.ae/cdn/shop/files/iphone_13_pro_max_1.png?v=1740151679&width=430",
	}
}
