// Package checkout implements the three-step checkout wizard:
// shipping address, payment method and payment verification.
//
// The wizard is an explicit state machine. Every user action is an Event
// passed to Wizard.Apply, which either returns the next State or an error
// and leaves the current state untouched. Collaborators (order store, cart,
// navigation) and the caller identity are injected, never read from
// ambient state.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"storefront/internal/domain"
)

// DefaultVerificationTTL время на ввод OTP / TRXID
const DefaultVerificationTTL = 180 * time.Second

const (
	RouteHome         = "/"
	RouteLogin        = "/login"
	RouteConfirmation = "/order-confirmation"
)

// BackendNotice текст для пользователя при сбое хранилища
const BackendNotice = "There was a problem placing your order. Please try again."

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidCart         = errors.New("cart contains invalid lines")
	ErrAuthRequired        = errors.New("you must be logged in to place an order")
	ErrBackend             = errors.New("order backend failure")
	ErrVerificationExpired = errors.New("verification window expired")
	ErrSubmitInProgress    = errors.New("submission already in progress")
	ErrInvalidTransition   = errors.New("invalid checkout transition")
	ErrCorruptSnapshot     = errors.New("corrupt checkout snapshot")
)

// OrderStore хранилище заказов, которым пользуется мастер
type OrderStore interface {
	// Create сохраняет заказ и проставляет o.ID
	Create(ctx context.Context, o *domain.Order) error
	// SetVerification записывает OTP или TRXID в созданный заказ
	SetVerification(ctx context.Context, id string, v domain.Verification) error
}

// CartClearer очищает корзину после подтверждения
type CartClearer interface {
	Clear(ctx context.Context) error
}

// Navigator переход на другой маршрут
type Navigator interface {
	Go(route string)
}

// Identity текущий аутентифицированный пользователь
type Identity struct {
	UserID string
	Email  string
}

// Config зависимости мастера
type Config struct {
	Orders    OrderStore
	Cart      CartClearer
	Navigator Navigator
	// Now источник времени; по умолчанию time.Now
	Now func() time.Time
	// TTL окно шага подтверждения; по умолчанию DefaultVerificationTTL
	TTL    time.Duration
	Logger *slog.Logger
}

// Wizard мастер оформления заказа одной попытки checkout
type Wizard struct {
	cfg      Config
	items    []domain.CartItem
	identity *Identity

	mu       sync.Mutex
	state    State
	inFlight bool
}

// New начинает оформление с шага 1. Пустая корзина отправляет на главную.
func New(cfg Config, items []domain.CartItem, identity *Identity) (*Wizard, error) {
	return restore(cfg, items, identity, Shipping{})
}

// Restore восстанавливает мастер из снимка
func Restore(cfg Config, items []domain.CartItem, identity *Identity, snap Snapshot) (*Wizard, error) {
	st, err := snap.state()
	if err != nil {
		return nil, err
	}
	return restore(cfg, items, identity, st)
}

func restore(cfg Config, items []domain.CartItem, identity *Identity, st State) (*Wizard, error) {
	if cfg.Orders == nil || cfg.Cart == nil || cfg.Navigator == nil {
		return nil, errors.New("checkout: orders, cart and navigator are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultVerificationTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(items) == 0 && st.Step() < StepVerification {
		cfg.Navigator.Go(RouteHome)
		return nil, ErrEmptyCart
	}
	if st.Step() < StepVerification {
		for _, it := range items {
			if !it.Valid() {
				return nil, fmt.Errorf("%w: %s x %d", ErrInvalidCart, it.ProductID, it.Quantity)
			}
		}
	}
	cp := make([]domain.CartItem, len(items))
	copy(cp, items)
	var id *Identity
	if identity != nil {
		idCopy := *identity
		id = &idCopy
	}
	return &Wizard{cfg: cfg, items: cp, identity: id, state: st}, nil
}

// State текущее состояние
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Items копия снимка корзины
func (w *Wizard) Items() []domain.CartItem {
	out := make([]domain.CartItem, len(w.items))
	copy(out, w.items)
	return out
}

// Total итог по снимку корзины
func (w *Wizard) Total() string {
	return domain.FormatMoney(domain.Total(w.items))
}

// Remaining остаток окна подтверждения; 0 вне шага 3
func (w *Wizard) Remaining() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v, ok := w.state.(Verification); ok {
		return v.Remaining(w.cfg.Now())
	}
	return 0
}

// CanVerify доступна ли кнопка подтверждения
func (w *Wizard) CanVerify() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.state.(Verification)
	return ok && !w.inFlight && !v.Expired(w.cfg.Now())
}

// Apply единственная функция перехода: (state, event) -> state | error.
// При ошибке состояние не меняется.
func (w *Wizard) Apply(ctx context.Context, ev Event) (State, error) {
	w.mu.Lock()
	cur, busy := w.state, w.inFlight
	w.mu.Unlock()
	if busy {
		return cur, ErrSubmitInProgress
	}

	var (
		next State
		err  error
	)
	switch st := cur.(type) {
	case Shipping:
		next, err = w.fromShipping(ev)
	case Payment:
		next, err = w.fromPayment(ctx, st, ev)
	case Verification:
		next, err = w.fromVerification(ctx, st, ev)
	default:
		err = fmt.Errorf("%w: %s is final", ErrInvalidTransition, cur.Step())
	}
	if err != nil {
		return cur, err
	}

	w.mu.Lock()
	w.state = next
	w.mu.Unlock()
	return next, nil
}

func (w *Wizard) fromShipping(ev Event) (State, error) {
	e, ok := ev.(SubmitShipping)
	if !ok {
		return nil, fmt.Errorf("%w: %T on shipping step", ErrInvalidTransition, ev)
	}
	if err := ValidateShipping(e.Form); err != nil {
		return nil, err
	}
	return Payment{Address: e.Form.ShippingAddress()}, nil
}

func (w *Wizard) fromPayment(ctx context.Context, st Payment, ev Event) (State, error) {
	switch e := ev.(type) {
	case GoBack:
		return Shipping{Address: st.Address}, nil
	case SubmitPayment:
		if err := ValidatePayment(e.Form); err != nil {
			return nil, err
		}
		if w.identity == nil {
			w.cfg.Navigator.Go(RouteLogin)
			return nil, ErrAuthRequired
		}
		details := e.Form.Details()
		order := domain.NewPendingOrder(w.identity.UserID, w.items, st.Address, details)

		if err := w.begin(); err != nil {
			return nil, err
		}
		err := w.cfg.Orders.Create(ctx, &order)
		w.end()
		if err != nil {
			w.cfg.Logger.ErrorContext(ctx, "create order failed", "user_id", w.identity.UserID, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrBackend, err)
		}
		w.cfg.Logger.InfoContext(ctx, "order created", "order_id", order.ID, "method", details.Method, "total", domain.FormatMoney(order.Total))
		return Verification{
			Address:  st.Address,
			Payment:  details,
			OrderID:  order.ID,
			UserID:   w.identity.UserID,
			Deadline: w.cfg.Now().Add(w.cfg.TTL),
		}, nil
	}
	return nil, fmt.Errorf("%w: %T on payment step", ErrInvalidTransition, ev)
}

func (w *Wizard) fromVerification(ctx context.Context, st Verification, ev Event) (State, error) {
	switch e := ev.(type) {
	case GoBack:
		return Payment{Address: st.Address}, nil
	case SubmitVerification:
		if w.identity == nil || w.identity.UserID != st.UserID {
			w.cfg.Navigator.Go(RouteLogin)
			return nil, ErrAuthRequired
		}
		if st.Expired(w.cfg.Now()) {
			return nil, ErrVerificationExpired
		}
		if err := ValidateVerification(st.Payment.Method, e.Form); err != nil {
			return nil, err
		}
		var v domain.Verification
		if st.Payment.Method == domain.PaymentCard {
			otp := e.Form.OTP
			v.OTP = &otp
		} else {
			trx := e.Form.CryptoTrxID
			v.CryptoTrxID = &trx
		}

		if err := w.begin(); err != nil {
			return nil, err
		}
		err := w.cfg.Orders.SetVerification(ctx, st.OrderID, v)
		w.end()
		if err != nil {
			w.cfg.Logger.ErrorContext(ctx, "verify order failed", "order_id", st.OrderID, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrBackend, err)
		}

		if err := w.cfg.Cart.Clear(ctx); err != nil {
			// заказ уже подтверждён, шаг не откатываем
			w.cfg.Logger.WarnContext(ctx, "clear cart failed", "order_id", st.OrderID, "error", err)
		}
		w.cfg.Navigator.Go(ConfirmationRoute(st.OrderID))
		w.cfg.Logger.InfoContext(ctx, "order verified", "order_id", st.OrderID)
		return Completed{OrderID: st.OrderID}, nil
	}
	return nil, fmt.Errorf("%w: %T on verification step", ErrInvalidTransition, ev)
}

func (w *Wizard) begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return ErrSubmitInProgress
	}
	w.inFlight = true
	return nil
}

func (w *Wizard) end() {
	w.mu.Lock()
	w.inFlight = false
	w.mu.Unlock()
}

// ConfirmationRoute маршрут страницы подтверждения заказа
func ConfirmationRoute(orderID string) string {
	return RouteConfirmation + "?orderId=" + url.QueryEscape(orderID)
}
