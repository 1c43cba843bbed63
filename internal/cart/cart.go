package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/cache"
	"storefront/internal/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")

// Cart корзина посетителя
type Cart struct {
	ID    string            `json:"id"`
	Items []domain.CartItem `json:"items"`
}

// Add добавляет позицию; для существующего товара увеличивает количество.
// Итог по позиции не может превысить domain.MaxLineQuantity.
func (c *Cart) Add(item domain.CartItem) error {
	if !item.Valid() {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			if item.Quantity > domain.MaxLineQuantity-c.Items[i].Quantity {
				return ErrInvalidQuantity
			}
			c.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

// UpdateQuantity задаёт количество; ноль и меньше удаляет позицию
func (c *Cart) UpdateQuantity(productID string, qty int64) error {
	if qty > domain.MaxLineQuantity {
		return ErrInvalidQuantity
	}
	out := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID == productID {
			it.Quantity = qty
		}
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	c.Items = out
	return nil
}

// Remove удаляет позицию
func (c *Cart) Remove(productID string) {
	_ = c.UpdateQuantity(productID, 0)
}

// Clear очищает корзину
func (c *Cart) Clear() { c.Items = nil }

// Subtotal сумма корзины
func (c *Cart) Subtotal() decimal.Decimal { return domain.Total(c.Items) }

// Snapshot копия позиций для оформления заказа
func (c *Cart) Snapshot() []domain.CartItem {
	out := make([]domain.CartItem, len(c.Items))
	copy(out, c.Items)
	return out
}

// Store хранение корзин в кэше
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewStore(c cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func (s *Store) key(id string) string { return s.cache.GenerateKey("cart", id) }

// Load возвращает корзину; отсутствующая корзина пуста
func (s *Store) Load(ctx context.Context, id string) (*Cart, error) {
	c, found, err := cache.GetJSON[Cart](ctx, s.cache, s.key(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return &Cart{ID: id}, nil
	}
	c.ID = id
	return &c, nil
}

func (s *Store) Save(ctx context.Context, c *Cart) error {
	if len(c.Items) == 0 {
		return s.Delete(ctx, c.ID)
	}
	return cache.SetJSON(ctx, s.cache, s.key(c.ID), c, s.ttl)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, s.key(id))
}

// Clearer адаптер для checkout: очищает конкретную корзину
func (s *Store) Clearer(id string) Clearer {
	return Clearer{store: s, id: id}
}

type Clearer struct {
	store *Store
	id    string
}

func (c Clearer) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, c.id)
}
