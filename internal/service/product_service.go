package service

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг товаров
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

func validProduct(p domain.Product) bool {
	return strings.TrimSpace(p.Name) != "" && !p.Price.IsNegative() && p.Stock >= 0
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == "" || !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, ErrInvalidInput
	}
	return s.repo.List(ctx, f)
}

// Collection коллекция и её товары; неизвестный slug - ErrNotFound
func (s *ProductService) Collection(ctx context.Context, slug string) (*repository.Category, []domain.Product, error) {
	c, ok := repository.CategoryBySlug(slug)
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	list, err := s.repo.List(ctx, repository.ProductFilter{Category: slug})
	if err != nil {
		return nil, nil, err
	}
	return &c, list, nil
}

// Categories все коллекции витрины
func (s *ProductService) Categories() []repository.Category {
	return repository.Categories()
}
