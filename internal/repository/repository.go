package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ProductFilter параметры фильтрации каталога
type ProductFilter struct {
	NameSubstring string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	// Category slug коллекции, см. Categories
	Category string
}

// OrderFilter параметры выборки заказов. Пустой UserID - все заказы.
type OrderFilter struct {
	UserID string
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// OrderRepository интерфейс репозитория заказов (коллекция orders)
type OrderRepository interface {
	// Create присваивает o.ID, CreatedAt и UpdatedAt
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	// SetVerification частичное обновление: только otp / cryptoTrxId
	SetVerification(ctx context.Context, id string, v domain.Verification) error
	Delete(ctx context.Context, id string) error
	// List заказы от новых к старым
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
}

// BannerRepository документ siteContent/banners
type BannerRepository interface {
	// Get возвращает ErrNotFound, если баннеры ещё не сохранялись
	Get(ctx context.Context) (*domain.BannerSet, error)
	Save(ctx context.Context, b domain.BannerSet) error
}

// TxManager абстракция транзакции. Для in-memory - глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchProduct(p domain.Product, f ProductFilter) bool {
	if !containsIgnoreCase(p.Name, f.NameSubstring) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.Category != "" {
		c, ok := CategoryBySlug(f.Category)
		if !ok || !c.Match(p) {
			return false
		}
	}
	return true
}
