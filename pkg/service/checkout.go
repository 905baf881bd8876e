package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/events"
	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutRequest struct {
	UserID   string          `json:"userId" validate:"required"`
	ShopID   string          `json:"shopId" validate:"required"`
	Shipment models.Shipment `json:"shipmentInfo"`
	Payment  models.Payment  `json:"payment"`
}

// CheckoutService turns one shop slice of a cart into an order. The order
// insert and the slice detachment hit different stores, so the order records
// whether detachment finished and a Retrier or the next cart read completes it.
type CheckoutService struct {
	carts     repository.CartRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	stats     *StatsAggregator
	detacher  *Detacher
	retrier   Retrier
	publisher events.Publisher
	logger    *zap.Logger

	currency         string
	trackingAttempts int
	tracking         TrackingGenerator
	now              func() time.Time
}

type CheckoutOptions struct {
	Currency         string
	TrackingAttempts int
}

func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	stats *StatsAggregator,
	detacher *Detacher,
	publisher events.Publisher,
	opts CheckoutOptions,
	logger *zap.Logger,
) *CheckoutService {
	if opts.TrackingAttempts < 1 {
		opts.TrackingAttempts = 1
	}
	return &CheckoutService{
		carts:            carts,
		products:         products,
		orders:           orders,
		stats:            stats,
		detacher:         detacher,
		publisher:        publisher,
		logger:           logger,
		currency:         opts.Currency,
		trackingAttempts: opts.TrackingAttempts,
		tracking:         RandomTrackingID,
		now:              time.Now,
	}
}

// SetRetrier installs the background detachment retrier.
func (s *CheckoutService) SetRetrier(r Retrier) {
	s.retrier = r
}

func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	// A slice left over from an earlier order must not be bought twice.
	if err := s.detacher.Reconcile(ctx, req.UserID); err != nil {
		return nil, err
	}

	cart, err := s.carts.FetchOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	slice := cart.Slice(req.ShopID)
	if slice == nil {
		return nil, fmt.Errorf("%w: shop %s not in cart", models.ErrNotFound, req.ShopID)
	}

	now := s.now()
	items, total, currency, err := s.price(ctx, req.ShopID, slice, now)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:               uuid.New().String(),
		ShopID:           req.ShopID,
		UserID:           req.UserID,
		Items:            items,
		TotalAmount:      total.InexactFloat64(),
		Currency:         currency,
		Status:           models.StatusProcessing,
		PaymentMethod:    req.Payment.Method,
		PaymentReference: req.Payment.Reference,
		Shipment:         req.Shipment,
		SliceCreatedAt:   slice.CreatedAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.insert(ctx, order); err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("order_id", order.ID),
		zap.String("shop_id", order.ShopID),
		zap.String("user_id", order.UserID))
	log.Info("Order created",
		zap.Int64("tracking_id", order.TrackingID),
		zap.Float64("total_amount", order.TotalAmount))

	if err := s.stats.OrderPlaced(ctx, order); err != nil {
		log.Error("Failed to record order in shop stats", zap.Error(err))
	}

	if err := s.detacher.Detach(ctx, order); err != nil {
		log.Warn("Failed to detach cart slice, scheduling retry", zap.Error(err))
		if s.retrier != nil {
			s.retrier.Retry(cloneOrder(order))
		}
	}

	s.publishCreated(order)
	return order, nil
}

// price snapshots every line at now. Anything that can no longer be bought
// fails the whole checkout before a write.
func (s *CheckoutService) price(ctx context.Context, shopID string, slice *models.ShopSlice, now time.Time) ([]models.OrderItem, decimal.Decimal, string, error) {
	ids := make([]string, 0, len(slice.Items))
	for _, item := range slice.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, "", err
	}

	total := decimal.Zero
	currency := ""
	items := make([]models.OrderItem, 0, len(slice.Items))
	for _, item := range slice.Items {
		p := products[item.ProductID]
		if p == nil || p.IsDeleted || p.ShopID != shopID {
			return nil, decimal.Zero, "", fmt.Errorf("%w: product %s is no longer available", models.ErrValidation, item.ProductID)
		}
		if p.Status != models.ProductActive {
			return nil, decimal.Zero, "", fmt.Errorf("%w: product %s is %s", models.ErrValidation, p.ID, p.Status)
		}
		if err := checkQuantity(item.Quantity); err != nil {
			return nil, decimal.Zero, "", err
		}
		if currency == "" {
			currency = p.Currency
		} else if p.Currency != "" && p.Currency != currency {
			return nil, decimal.Zero, "", fmt.Errorf("%w: mixed currencies %s and %s", models.ErrValidation, currency, p.Currency)
		}

		q, err := Quote(p, VariantSelector{ID: item.VariantID}, now)
		if err != nil {
			return nil, decimal.Zero, "", err
		}
		line := q.LineTotal(item.Quantity)
		total = total.Add(line)
		items = append(items, models.OrderItem{
			ProductID:         p.ID,
			ProductName:       p.Name,
			VariantID:         q.VariantID,
			VariantIndex:      q.VariantIndex,
			VariantAttributes: q.VariantAttributes,
			Quantity:          item.Quantity,
			Price:             q.UnitPrice,
			LineTotal:         line.Round(2).InexactFloat64(),
		})
	}
	if currency == "" {
		currency = s.currency
	}
	return items, total.Round(2), currency, nil
}

// insert draws tracking ids until the store accepts one.
func (s *CheckoutService) insert(ctx context.Context, order *models.Order) error {
	var lastErr error
	for attempt := 1; attempt <= s.trackingAttempts; attempt++ {
		id, err := s.tracking()
		if err != nil {
			return err
		}
		order.TrackingID = id

		err = s.orders.Create(ctx, order)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrSliceOrdered) || !errors.Is(err, models.ErrConflict) {
			return err
		}
		lastErr = err
		s.logger.Warn("Tracking id collision", zap.Int64("tracking_id", id), zap.Int("attempt", attempt))
	}
	return fmt.Errorf("failed to allocate a unique tracking id after %d attempts: %v", s.trackingAttempts, lastErr)
}

func (s *CheckoutService) publishCreated(order *models.Order) {
	if s.publisher == nil {
		return
	}
	ev := cloneOrder(order)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.publisher.PublishOrderCreated(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish order.created event", zap.String("order_id", ev.ID), zap.Error(err))
		}
	}()
}

func cloneOrder(o *models.Order) *models.Order {
	out := *o
	out.Items = append([]models.OrderItem(nil), o.Items...)
	return &out
}
