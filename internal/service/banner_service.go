package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"

	"storefront/internal/blob"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

var imageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// BannerService баннеры главной страницы
type BannerService struct {
	repo   repository.BannerRepository
	store  blob.Store
	logger *slog.Logger
}

func NewBannerService(repo repository.BannerRepository, store blob.Store, logger *slog.Logger) *BannerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BannerService{repo: repo, store: store, logger: logger}
}

// Get текущий набор; пока ничего не сохранено - баннеры по умолчанию
func (s *BannerService) Get(ctx context.Context) (domain.BannerSet, error) {
	b, err := s.repo.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.DefaultBanners(), nil
	}
	if err != nil {
		return domain.BannerSet{}, err
	}
	return *b, nil
}

// Upload кладёт картинку в banners/<slot>.<ext> и сохраняет её URL в наборе
func (s *BannerService) Upload(ctx context.Context, slot domain.BannerSlot, filename, contentType string, r io.Reader) (domain.BannerSet, error) {
	if !slot.Valid() || !strings.HasPrefix(contentType, "image/") {
		return domain.BannerSet{}, ErrInvalidInput
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	if !imageExt[ext] {
		return domain.BannerSet{}, ErrInvalidInput
	}

	url, err := s.store.Put(ctx, "banners/"+string(slot)+ext, r, contentType)
	if err != nil {
		return domain.BannerSet{}, err
	}
	cur, err := s.Get(ctx)
	if err != nil {
		return domain.BannerSet{}, err
	}
	next := cur.Set(slot, url)
	if err := s.repo.Save(ctx, next); err != nil {
		return domain.BannerSet{}, err
	}
	s.logger.InfoContext(ctx, "banner updated", "slot", slot, "url", url)
	return next, nil
}
