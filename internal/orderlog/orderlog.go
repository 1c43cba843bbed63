// Package orderlog хранит историю смены статусов заказов.
//
// Журнал только дописывается: каждая строка фиксирует один переход
// from -> to, кто его сделал и trace_id активного спана.
package orderlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"storefront/internal/domain"
)

// StatusChange одна запись журнала
type StatusChange struct {
	OrderID   string             `json:"orderId"`
	From      domain.OrderStatus `json:"from"`
	To        domain.OrderStatus `json:"to"`
	Actor     string             `json:"actor"`
	TraceID   string             `json:"traceId,omitempty"`
	SpanID    string             `json:"spanId,omitempty"`
	ChangedAt time.Time          `json:"changedAt"`
}

// Repository хранилище журнала
type Repository interface {
	Save(ctx context.Context, entry *StatusChange) error
	// ListByOrder записи заказа в порядке возрастания времени
	ListByOrder(ctx context.Context, orderID string) ([]StatusChange, error)
}

// NewEntry собирает запись и подставляет trace_id/span_id из ctx, если спан есть
func NewEntry(ctx context.Context, orderID string, from, to domain.OrderStatus, actor string, at time.Time) *StatusChange {
	e := &StatusChange{
		OrderID:   orderID,
		From:      from,
		To:        to,
		Actor:     actor,
		ChangedAt: at,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
		e.SpanID = sc.SpanID().String()
	}
	return e
}
