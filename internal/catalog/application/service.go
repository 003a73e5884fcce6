package application

import (
	"errors"

	"github.com/nochphanet/khqr-shopbot/internal/catalog/domain"
)

var ErrCategoryNotFound = errors.New("category not found")

// Service answers read-only catalog queries over a table loaded once at
// startup. It never mutates its data, so no locking is needed.
type Service struct {
	categories []domain.Category
	byCategory map[string][]domain.Product
	byID       map[int]domain.Product
}

func NewService(categories []domain.Category, byCategory map[string][]domain.Product) *Service {
	byID := make(map[int]domain.Product)
	for _, products := range byCategory {
		for _, p := range products {
			byID[p.ID] = p
		}
	}
	return &Service{
		categories: categories,
		byCategory: byCategory,
		byID:       byID,
	}
}

func (s *Service) Categories() []domain.Category {
	out := make([]domain.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Service) Items(category string) ([]domain.Product, error) {
	products, ok := s.byCategory[category]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out, nil
}

func (s *Service) Find(productID int) (domain.Product, bool) {
	p, ok := s.byID[productID]
	return p, ok
}
