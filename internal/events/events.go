// Package events публикует изменения заказов во внешнюю шину.
package events

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
)

// Type вид события
type Type string

const (
	OrderCreated       Type = "order.created"
	OrderVerified      Type = "order.verified"
	OrderStatusChanged Type = "order.status_changed"
	OrderDeleted       Type = "order.deleted"
)

// Event изменение заказа. Order заполнен для created/verified.
type Event struct {
	Type    Type               `json:"type"`
	OrderID string             `json:"orderId"`
	Status  domain.OrderStatus `json:"status,omitempty"`
	Actor   string             `json:"actor,omitempty"`
	At      time.Time          `json:"at"`
	Order   *domain.Order      `json:"order,omitempty"`
}

// Publisher отправка событий
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher ничего не отправляет
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder запоминает события, используется в тестах и локальном режиме
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events копия записанных событий
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
