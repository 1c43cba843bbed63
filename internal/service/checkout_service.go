package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/cache"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repository"
)

// CheckoutView состояние мастера для клиента
type CheckoutView struct {
	Step             string                 `json:"step"`
	StepNumber       int                    `json:"stepNumber"`
	Address          domain.ShippingAddress `json:"address"`
	PaymentMethod    domain.PaymentMethod   `json:"paymentMethod,omitempty"`
	OrderID          string                 `json:"orderId,omitempty"`
	RemainingSeconds int                    `json:"remainingSeconds"`
	Expired          bool                   `json:"expired"`
	CanVerify        bool                   `json:"canVerify"`
	Items            []domain.CartItem      `json:"items"`
	Total            string                 `json:"total"`
	Redirect         string                 `json:"redirect,omitempty"`
}

// CheckoutConfig зависимости CheckoutService
type CheckoutConfig struct {
	Orders          repository.OrderRepository
	Carts           *cart.Store
	Sessions        cache.Cache
	Publisher       events.Publisher
	VerificationTTL time.Duration
	SessionTTL      time.Duration
	Now             func() time.Time
	Logger          *slog.Logger
}

// CheckoutService хранит снимок мастера между запросами (ключ - id корзины)
// и на каждый запрос восстанавливает мастер с актуальной корзиной.
type CheckoutService struct {
	cfg    CheckoutConfig
	tracer trace.Tracer
}

func NewCheckoutService(cfg CheckoutConfig) *CheckoutService {
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = checkout.DefaultVerificationTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CheckoutService{cfg: cfg, tracer: otel.Tracer("storefront/service/checkout")}
}

func (s *CheckoutService) sessionKey(cartID string) string {
	return s.cfg.Sessions.GenerateKey("checkout", cartID)
}

// routeRecorder навигатор HTTP-слоя: маршрут уходит клиенту полем redirect
type routeRecorder struct{ route string }

func (r *routeRecorder) Go(route string) { r.route = route }

// publishingOrders публикует события о создании и подтверждении заказа
type publishingOrders struct {
	repo      repository.OrderRepository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func (p publishingOrders) Create(ctx context.Context, o *domain.Order) error {
	if err := p.repo.Create(ctx, o); err != nil {
		return err
	}
	cp := *o
	p.publish(ctx, events.Event{Type: events.OrderCreated, OrderID: o.ID, Status: o.Status, At: p.now(), Order: &cp})
	return nil
}

func (p publishingOrders) SetVerification(ctx context.Context, id string, v domain.Verification) error {
	if err := p.repo.SetVerification(ctx, id, v); err != nil {
		return err
	}
	e := events.Event{Type: events.OrderVerified, OrderID: id, At: p.now()}
	if o, err := p.repo.GetByID(ctx, id); err != nil {
		p.logger.WarnContext(ctx, "load verified order failed", "order_id", id, "error", err)
	} else {
		e.Status = o.Status
		e.Order = o
	}
	p.publish(ctx, e)
	return nil
}

func (p publishingOrders) publish(ctx context.Context, e events.Event) {
	if err := p.publisher.Publish(ctx, e); err != nil {
		p.logger.WarnContext(ctx, "publish order event failed", "order_id", e.OrderID, "type", e.Type, "error", err)
	}
}

func (s *CheckoutService) wizardConfig(cartID string, nav checkout.Navigator) checkout.Config {
	return checkout.Config{
		Orders: publishingOrders{
			repo:      s.cfg.Orders,
			publisher: s.cfg.Publisher,
			logger:    s.cfg.Logger,
			now:       s.cfg.Now,
		},
		Cart:      s.cfg.Carts.Clearer(cartID),
		Navigator: nav,
		Now:       s.cfg.Now,
		TTL:       s.cfg.VerificationTTL,
		Logger:    s.cfg.Logger.With("cart_id", cartID),
	}
}

// Start начинает оформление заново с шага доставки
func (s *CheckoutService) Start(ctx context.Context, cartID string, id *checkout.Identity) (*CheckoutView, error) {
	if cartID == "" {
		return nil, ErrInvalidInput
	}
	c, err := s.cfg.Carts.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	nav := &routeRecorder{}
	w, err := checkout.New(s.wizardConfig(cartID, nav), c.Snapshot(), id)
	if err != nil {
		return &CheckoutView{Redirect: nav.route}, err
	}
	if err := s.save(ctx, cartID, w); err != nil {
		return nil, err
	}
	return s.view(w, nav), nil
}

// View текущее состояние; без сессии - новый мастер на шаге доставки
func (s *CheckoutService) View(ctx context.Context, cartID string, id *checkout.Identity) (*CheckoutView, error) {
	nav := &routeRecorder{}
	w, err := s.load(ctx, cartID, id, nav)
	if err != nil {
		return &CheckoutView{Redirect: nav.route}, err
	}
	return s.view(w, nav), nil
}

// Apply применяет событие к сохранённому мастеру. View возвращается и при
// ошибке: в нём текущий шаг и, если мастер потребовал, redirect.
func (s *CheckoutService) Apply(ctx context.Context, cartID string, id *checkout.Identity, ev checkout.Event) (*CheckoutView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Apply", trace.WithAttributes(
		attribute.String("checkout.event", fmt.Sprintf("%T", ev)),
	))
	defer span.End()

	nav := &routeRecorder{}
	w, err := s.load(ctx, cartID, id, nav)
	if err != nil {
		return &CheckoutView{Redirect: nav.route}, s.fail(span, err)
	}

	next, applyErr := w.Apply(ctx, ev)
	span.SetAttributes(attribute.String("checkout.step", next.Step().String()))
	if applyErr != nil {
		return s.view(w, nav), s.fail(span, applyErr)
	}

	if _, done := next.(checkout.Completed); done {
		if err := s.cfg.Sessions.Delete(ctx, s.sessionKey(cartID)); err != nil {
			s.cfg.Logger.WarnContext(ctx, "drop checkout session failed", "cart_id", cartID, "error", err)
		}
	} else if err := s.save(ctx, cartID, w); err != nil {
		return nil, s.fail(span, err)
	}
	return s.view(w, nav), nil
}

func (s *CheckoutService) fail(span trace.Span, err error) error {
	var verr *checkout.ValidationError
	if !errors.As(err, &verr) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *CheckoutService) load(ctx context.Context, cartID string, id *checkout.Identity, nav checkout.Navigator) (*checkout.Wizard, error) {
	if cartID == "" {
		return nil, ErrInvalidInput
	}
	c, err := s.cfg.Carts.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	snap, found, err := cache.GetJSON[checkout.Snapshot](ctx, s.cfg.Sessions, s.sessionKey(cartID))
	if err != nil {
		return nil, err
	}
	if !found {
		return checkout.New(s.wizardConfig(cartID, nav), c.Snapshot(), id)
	}
	w, err := checkout.Restore(s.wizardConfig(cartID, nav), c.Snapshot(), id, snap)
	if errors.Is(err, checkout.ErrCorruptSnapshot) {
		s.cfg.Logger.WarnContext(ctx, "corrupt checkout session dropped", "cart_id", cartID, "error", err)
		_ = s.cfg.Sessions.Delete(ctx, s.sessionKey(cartID))
		return checkout.New(s.wizardConfig(cartID, nav), c.Snapshot(), id)
	}
	return w, err
}

func (s *CheckoutService) save(ctx context.Context, cartID string, w *checkout.Wizard) error {
	return cache.SetJSON(ctx, s.cfg.Sessions, s.sessionKey(cartID), w.Snapshot(), s.cfg.SessionTTL)
}

func (s *CheckoutService) view(w *checkout.Wizard, nav *routeRecorder) *CheckoutView {
	st := w.State()
	snap := checkout.SnapshotOf(st)
	v := &CheckoutView{
		Step:       st.Step().String(),
		StepNumber: int(st.Step()),
		Address:    snap.Address,
		OrderID:    snap.OrderID,
		Items:      w.Items(),
		Total:      w.Total(),
		Redirect:   nav.route,
	}
	if vs, ok := st.(checkout.Verification); ok {
		v.PaymentMethod = vs.Payment.Method
		v.RemainingSeconds = int(math.Ceil(w.Remaining().Seconds()))
		v.Expired = v.RemainingSeconds == 0
		v.CanVerify = w.CanVerify()
	}
	return v
}
