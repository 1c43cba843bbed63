package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
)

var (
	cardNumberRe = regexp.MustCompile(`^\d{16}$`)
	expiryRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvcRe        = regexp.MustCompile(`^\d{3,4}$`)
)

// messages shown to the user, keyed by json field name
var messages = map[string]string{
	"name":          "Name is required",
	"address":       "Address is required",
	"city":          "City is required",
	"zip":           "ZIP code is required",
	"country":       "Country is required",
	"paymentMethod": "Select a payment method",
	"cardNumber":    "Invalid card number",
	"expiry":        "Invalid expiry date (MM/YY)",
	"cvc":           "Invalid CVC",
	"otp":           "OTP must be 6 digits",
	"cryptoTrxId":   "Transaction ID is required",
}

// ShippingForm поля шага 1
type ShippingForm struct {
	Name    string `json:"name" validate:"required,min=2"`
	Address string `json:"address" validate:"required,min=5"`
	City    string `json:"city" validate:"required,min=2"`
	Zip     string `json:"zip" validate:"required,min=4"`
	Country string `json:"country" validate:"required,min=2"`
}

// ShippingAddress переводит форму в адрес доставки
func (f ShippingForm) ShippingAddress() domain.ShippingAddress {
	return domain.ShippingAddress{Name: f.Name, Address: f.Address, City: f.City, Zip: f.Zip, Country: f.Country}
}

// PaymentForm поля шага 2. Для crypto поля карты игнорируются.
type PaymentForm struct {
	Method     domain.PaymentMethod `json:"paymentMethod" validate:"oneof=card crypto"`
	CardNumber string               `json:"cardNumber"`
	Expiry     string               `json:"expiry"`
	CVC        string               `json:"cvc"`
}

// Details платёжные данные для заказа: только последние 4 цифры карты
func (f PaymentForm) Details() domain.PaymentDetails {
	d := domain.PaymentDetails{Method: f.Method}
	if f.Method == domain.PaymentCard && len(f.CardNumber) >= 4 {
		d.CardLast4 = f.CardNumber[len(f.CardNumber)-4:]
	}
	return d
}

// VerificationForm поля шага 3
type VerificationForm struct {
	OTP         string `json:"otp"`
	CryptoTrxID string `json:"cryptoTrxId"`
}

// ValidationError ошибки валидации по полям
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(paymentStructLevel, PaymentForm{})
	return v
}

func paymentStructLevel(sl validator.StructLevel) {
	f := sl.Current().Interface().(PaymentForm)
	if f.Method != domain.PaymentCard {
		return
	}
	if !cardNumberRe.MatchString(f.CardNumber) {
		sl.ReportError(f.CardNumber, "cardNumber", "CardNumber", "cardnumber", "")
	}
	if !expiryRe.MatchString(f.Expiry) {
		sl.ReportError(f.Expiry, "expiry", "Expiry", "expiry", "")
	}
	if !cvcRe.MatchString(f.CVC) {
		sl.ReportError(f.CVC, "cvc", "CVC", "cvc", "")
	}
}

// ValidateShipping проверяет шаг 1
func ValidateShipping(f ShippingForm) error {
	return toValidationError(validate.Struct(f))
}

// ValidatePayment проверяет шаг 2 с учётом способа оплаты
func ValidatePayment(f PaymentForm) error {
	return toValidationError(validate.Struct(f))
}

// ValidateVerification проверяет шаг 3: 6 символов OTP для карты, непустой TRXID для крипты
func ValidateVerification(method domain.PaymentMethod, f VerificationForm) error {
	switch method {
	case domain.PaymentCard:
		if err := validate.Var(f.OTP, "len=6"); err != nil {
			return fieldError("otp")
		}
	case domain.PaymentCrypto:
		if err := validate.Var(strings.TrimSpace(f.CryptoTrxID), "required"); err != nil {
			return fieldError("cryptoTrxId")
		}
	default:
		return fieldError("paymentMethod")
	}
	return nil
}

func fieldError(field string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: messages[field]}}
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()]
		if !ok {
			msg = fe.Error()
		}
		// first failure per field wins
		if _, seen := out.Fields[fe.Field()]; !seen {
			out.Fields[fe.Field()] = msg
		}
	}
	return out
}
