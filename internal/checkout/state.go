package checkout

import (
	"time"

	"storefront/internal/domain"
)

// Step номер шага мастера
type Step int

const (
	StepShipping Step = iota + 1
	StepPayment
	StepVerification
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepVerification:
		return "verification"
	case StepCompleted:
		return "completed"
	}
	return "unknown"
}

// State состояние мастера. Реализации: Shipping, Payment, Verification, Completed.
type State interface {
	Step() Step
	isState()
}

// Shipping шаг 1; Address хранит ранее введённый адрес при возврате назад
type Shipping struct {
	Address domain.ShippingAddress
}

// Payment шаг 2
type Payment struct {
	Address domain.ShippingAddress
}

// Verification шаг 3. Существует только вместе с id созданного заказа.
type Verification struct {
	Address domain.ShippingAddress
	Payment domain.PaymentDetails
	OrderID string
	// UserID владелец заказа; подтверждать может только он
	UserID   string
	Deadline time.Time
}

// Completed заказ подтверждён, корзина очищена
type Completed struct {
	OrderID string
}

func (Shipping) Step() Step     { return StepShipping }
func (Payment) Step() Step      { return StepPayment }
func (Verification) Step() Step { return StepVerification }
func (Completed) Step() Step    { return StepCompleted }

func (Shipping) isState()     {}
func (Payment) isState()      {}
func (Verification) isState() {}
func (Completed) isState()    {}

// Remaining сколько осталось до истечения; не меньше нуля
func (v Verification) Remaining(now time.Time) time.Duration {
	if d := v.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Expired true, когда дедлайн достигнут
func (v Verification) Expired(now time.Time) bool {
	return !now.Before(v.Deadline)
}

// Event действие пользователя
type Event interface {
	isEvent()
}

// SubmitShipping "Next" на шаге 1
type SubmitShipping struct{ Form ShippingForm }

// SubmitPayment "Next" на шаге 2; создаёт заказ
type SubmitPayment struct{ Form PaymentForm }

// SubmitVerification "Place order" на шаге 3
type SubmitVerification struct{ Form VerificationForm }

// GoBack кнопка "Back"
type GoBack struct{}

func (SubmitShipping) isEvent()     {}
func (SubmitPayment) isEvent()      {}
func (SubmitVerification) isEvent() {}
func (GoBack) isEvent()             {}
