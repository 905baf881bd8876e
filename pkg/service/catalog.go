package service

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/events"
	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductInput is the owner-editable part of a product.
type ProductInput struct {
	Name        string               `json:"name"`
	Slug        string               `json:"slug"`
	Description string               `json:"description,omitempty"`
	Price       float64              `json:"price"`
	Currency    string               `json:"currency,omitempty"`
	Stock       int                  `json:"stock"`
	Discount    float64              `json:"discount"`
	SaleStart   *time.Time           `json:"saleStart,omitempty"`
	SaleEnd     *time.Time           `json:"saleEnd,omitempty"`
	Variants    []models.Variant     `json:"variants,omitempty"`
	Status      models.ProductStatus `json:"status,omitempty"`
}

type ProductView struct {
	*models.Product
	Quote *PriceQuote `json:"quote"`
}

type CatalogService struct {
	products  repository.ProductRepository
	stats     *StatsAggregator
	publisher events.Publisher
	logger    *zap.Logger
	currency  string
	now       func() time.Time
}

func NewCatalogService(products repository.ProductRepository, stats *StatsAggregator, publisher events.Publisher, currency string, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		products:  products,
		stats:     stats,
		publisher: publisher,
		logger:    logger,
		currency:  currency,
		now:       time.Now,
	}
}

// Get returns a live product of shopID with its price resolved for sel.
func (s *CatalogService) Get(ctx context.Context, shopID, productID string, sel VariantSelector) (*ProductView, error) {
	p, err := s.live(ctx, shopID, productID)
	if err != nil {
		return nil, err
	}
	q, err := Quote(p, sel, s.now())
	if err != nil {
		return nil, err
	}
	return &ProductView{Product: p, Quote: q}, nil
}

func (s *CatalogService) Create(ctx context.Context, shopID string, in ProductInput) (*models.Product, error) {
	now := s.now()
	p := &models.Product{
		ID:        uuid.New().String(),
		ShopID:    shopID,
		CreatedAt: now,
	}
	if err := s.apply(p, in, now); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", p.ID),
		zap.String("shop_id", shopID),
		zap.String("status", string(p.Status)))

	if err := s.stats.ProductCreated(ctx, p); err != nil {
		s.logger.Error("Failed to record product in shop stats", zap.String("product_id", p.ID), zap.Error(err))
	}
	s.publishStatus(p, "")
	return p, nil
}

// Update replaces the editable fields. The write is conditional on the status
// read here, so a status change is counted once even under concurrent edits.
func (s *CatalogService) Update(ctx context.Context, shopID, productID string, in ProductInput) (*models.Product, error) {
	current, err := s.live(ctx, shopID, productID)
	if err != nil {
		return nil, err
	}

	next := *current
	if err := s.apply(&next, in, s.now()); err != nil {
		return nil, err
	}
	if err := s.products.Replace(ctx, &next, current.Status); err != nil {
		return nil, err
	}

	if next.Status != current.Status {
		s.logger.Info("Product status changed",
			zap.String("product_id", productID),
			zap.String("from", string(current.Status)),
			zap.String("to", string(next.Status)))

		if err := s.stats.ProductStatusChanged(ctx, shopID, current.Status, next.Status); err != nil {
			s.logger.Error("Failed to record product status in shop stats", zap.String("product_id", productID), zap.Error(err))
		}
		s.publishStatus(&next, current.Status)
	}
	return &next, nil
}

func (s *CatalogService) Delete(ctx context.Context, shopID, productID string) error {
	if _, err := s.live(ctx, shopID, productID); err != nil {
		return err
	}
	before, err := s.products.SoftDelete(ctx, productID)
	if err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", productID), zap.String("shop_id", shopID))

	if err := s.stats.ProductDeleted(ctx, before); err != nil {
		s.logger.Error("Failed to record product deletion in shop stats", zap.String("product_id", productID), zap.Error(err))
	}
	deleted := *before
	deleted.IsDeleted = true
	deleted.UpdatedAt = s.now()
	s.publishStatus(&deleted, before.Status)
	return nil
}

func (s *CatalogService) live(ctx context.Context, shopID, productID string) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted || p.ShopID != shopID {
		return nil, fmt.Errorf("%w: product %s in shop %s", models.ErrNotFound, productID, shopID)
	}
	return p, nil
}

// apply copies in onto p and validates the result.
func (s *CatalogService) apply(p *models.Product, in ProductInput, now time.Time) error {
	p.Name = in.Name
	p.Slug = in.Slug
	p.Description = in.Description
	p.Price = in.Price
	p.Currency = in.Currency
	p.Stock = in.Stock
	p.Discount = in.Discount
	p.SaleStart = in.SaleStart
	p.SaleEnd = in.SaleEnd
	p.Status = in.Status
	p.UpdatedAt = now

	if p.Currency == "" {
		p.Currency = s.currency
	}
	if p.Status == "" {
		p.Status = models.ProductDraft
	}
	if p.SaleStart != nil && p.SaleEnd != nil && p.SaleEnd.Before(*p.SaleStart) {
		return fmt.Errorf("%w: saleEnd before saleStart", models.ErrValidation)
	}

	seen := make(map[string]bool, len(in.Variants))
	p.Variants = make([]models.Variant, len(in.Variants))
	for i, v := range in.Variants {
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate variant id %s", models.ErrValidation, v.ID)
		}
		seen[v.ID] = true
		p.Variants[i] = v
	}

	return models.Validate(p)
}

func (s *CatalogService) publishStatus(p *models.Product, from models.ProductStatus) {
	if s.publisher == nil {
		return
	}
	snapshot := *p
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.publisher.PublishProductStatusChanged(ctx, &snapshot, from); err != nil {
			s.logger.Warn("Failed to publish product.status_changed event", zap.String("product_id", snapshot.ID), zap.Error(err))
		}
	}()
}
