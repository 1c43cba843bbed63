package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/orderlog"
	"storefront/internal/repository"
)

var ErrInvalidState = errors.New("invalid state")

// Viewer кто запрашивает заказ
type Viewer struct {
	UserID string
	Admin  bool
}

// OrderService чтение заказов покупателем и управление статусами из админки
type OrderService struct {
	orders    repository.OrderRepository
	tx        repository.TxManager
	history   orderlog.Repository
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewOrderService history и publisher могут быть nil: журнал и события отключены
func NewOrderService(orders repository.OrderRepository, tx repository.TxManager, history orderlog.Repository, publisher events.Publisher, logger *slog.Logger) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		orders:    orders,
		tx:        tx,
		history:   history,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("storefront/service/orders"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetOrder заказ по id: владелец или администратор
func (s *OrderService) GetOrder(ctx context.Context, id string, v Viewer) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.Admin && o.UserID != v.UserID {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListForUser заказы покупателя, новые сверху
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.orders.List(ctx, repository.OrderFilter{UserID: userID})
}

// ListOrders все заказы для админки, новые сверху
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx, repository.OrderFilter{})
}

// UpdateStatus переводит заказ в новый статус только вперёд по жизненному циклу.
// Чтение, проверка и запись выполняются в одной транзакции.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus, actor string) (*domain.Order, error) {
	if id == "" || !to.Valid() {
		return nil, ErrInvalidInput
	}
	ctx, span := s.tracer.Start(ctx, "orders.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status.to", string(to)),
	))
	defer span.End()

	var (
		updated *domain.Order
		from    domain.OrderStatus
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !domain.CanTransition(o.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidState, o.Status, to)
		}
		from = o.Status
		o.Status = to
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.logger.InfoContext(ctx, "order status changed", "order_id", id, "from", from, "to", to, "actor", actor)
	if s.history != nil {
		if err := s.history.Save(ctx, orderlog.NewEntry(ctx, id, from, to, actor, s.now())); err != nil {
			s.logger.WarnContext(ctx, "save status history failed", "order_id", id, "error", err)
		}
	}
	s.publish(ctx, events.Event{Type: events.OrderStatusChanged, OrderID: id, Status: to, Actor: actor, At: s.now()})
	return updated, nil
}

// DeleteOrder удаление заказа из админки
func (s *OrderService) DeleteOrder(ctx context.Context, id string, actor string) error {
	if id == "" {
		return ErrInvalidInput
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "order deleted", "order_id", id, "actor", actor)
	s.publish(ctx, events.Event{Type: events.OrderDeleted, OrderID: id, Actor: actor, At: s.now()})
	return nil
}

// History журнал смены статусов заказа
func (s *OrderService) History(ctx context.Context, id string) ([]orderlog.StatusChange, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	if s.history == nil {
		return []orderlog.StatusChange{}, nil
	}
	return s.history.ListByOrder(ctx, id)
}

// publish ошибка шины не откатывает уже сохранённое изменение
func (s *OrderService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "publish order event failed", "order_id", e.OrderID, "type", e.Type, "error", err)
	}
}
