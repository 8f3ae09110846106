package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/resale_shop/internal/models"
	"github.com/Skotchmaster/resale_shop/internal/repo"
	"github.com/Skotchmaster/resale_shop/internal/util"
)

var ErrNotFound = errors.New("not found")

type ProductPage struct {
	Data []models.Product `json:"data"`
	Meta util.Meta        `json:"meta"`
}

type CatalogService struct {
	Repo *repo.GormRepo
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetApprovedProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product: %w", ErrNotFound)
	}
	return p, err
}

func (s *CatalogService) ListProducts(ctx context.Context, page, size int) (*ProductPage, error) {
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.ListApprovedProducts(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Product{}
	}
	return &ProductPage{Data: items, Meta: util.NewMeta(page, offset, limit, total)}, nil
}
