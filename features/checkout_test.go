package features

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/service"
	"go.uber.org/zap"
)

type shopContext struct {
	services *service.Services
	products map[string]string
	order    *models.Order
	err      error
}

func (c *shopContext) reset() {
	cfg := &config.Config{Checkout: config.CheckoutConfig{TrackingAttempts: 3, Currency: "USD"}}
	c.services = service.New(cfg, service.MemoryStores(), nil, zap.NewNop())
	c.products = map[string]string{}
	c.order = nil
	c.err = nil
}

func (c *shopContext) shopSellsProductOnSale(shopID, name string, price, discount int) error {
	now := time.Now()
	start, end := now.Add(-time.Hour), now.Add(time.Hour)

	p, err := c.services.Catalog.Create(context.Background(), shopID, service.ProductInput{
		Name:      name,
		Slug:      name,
		Price:     float64(price),
		Discount:  float64(discount),
		SaleStart: &start,
		SaleEnd:   &end,
		Stock:     100,
		Status:    models.ProductActive,
	})
	if err != nil {
		return err
	}
	c.products[name] = p.ID
	return nil
}

func (c *shopContext) productID(name string) (string, error) {
	id, ok := c.products[name]
	if !ok {
		return "", fmt.Errorf("unknown product %q", name)
	}
	return id, nil
}

func (c *shopContext) userAddsToCart(userID string, quantity int, product, shopID string) error {
	id, err := c.productID(product)
	if err != nil {
		return err
	}
	return c.services.Cart.AddShop(context.Background(), userID, shopID, service.AddItemRequest{
		ProductID: id,
		Quantity:  &quantity,
	})
}

func (c *shopContext) userChecksOut(userID, shopID string) error {
	order, err := c.services.Checkout.Checkout(context.Background(), service.CheckoutRequest{
		UserID: userID,
		ShopID: shopID,
		Shipment: models.Shipment{
			FullName:     "Ada Lovelace",
			Phone:        "+44 20 7946 0000",
			AddressLine1: "12 St James's Square",
			City:         "London",
			PostalCode:   "SW1Y 4JH",
			Country:      "GB",
		},
		Payment: models.Payment{Method: "card"},
	})
	if err != nil {
		return err
	}
	c.order = order
	return nil
}

func (c *shopContext) userHasOrdered(userID, product, shopID string) error {
	if err := c.userAddsToCart(userID, 1, product, shopID); err != nil {
		return err
	}
	return c.userChecksOut(userID, shopID)
}

func (c *shopContext) userTogglesConcurrently(userID, product, shopID string, times int) error {
	id, err := c.productID(product)
	if err != nil {
		return err
	}

	absent := false
	var wg sync.WaitGroup
	errs := make(chan error, times)
	for i := 0; i < times; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.services.Cart.Toggle(context.Background(), userID, shopID, service.ToggleRequest{
				AddItemRequest: service.AddItemRequest{ProductID: id},
				InCart:         &absent,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *shopContext) shopMovesOrder(shopID, status string) error {
	if c.order == nil {
		return errors.New("no order placed")
	}
	_, c.err = c.services.Orders.UpdateStatus(context.Background(), shopID, c.order.ID, models.OrderStatus(status))
	if c.err != nil && !errors.Is(c.err, models.ErrInvalidTransition) {
		return c.err
	}
	return nil
}

func (c *shopContext) orderTotalIs(total float64) error {
	if c.order == nil {
		return errors.New("no order placed")
	}
	if c.order.TotalAmount != total {
		return fmt.Errorf("expected total %.2f, got %.2f", total, c.order.TotalAmount)
	}
	return nil
}

func (c *shopContext) cartHasNoShop(userID, shopID string) error {
	view, err := c.services.Cart.Get(context.Background(), userID)
	if err != nil {
		return err
	}
	for _, shop := range view.Shops {
		if shop.ShopID == shopID {
			return fmt.Errorf("cart still holds shop %s", shopID)
		}
	}
	return nil
}

func (c *shopContext) cartHoldsItems(userID string, count int, shopID string) error {
	view, err := c.services.Cart.Get(context.Background(), userID)
	if err != nil {
		return err
	}
	for _, shop := range view.Shops {
		if shop.ShopID == shopID {
			if len(shop.Items) != count {
				return fmt.Errorf("expected %d items, got %d", count, len(shop.Items))
			}
			return nil
		}
	}
	if count == 0 {
		return nil
	}
	return fmt.Errorf("cart does not hold shop %s", shopID)
}

func (c *shopContext) transitionRejected() error {
	if !errors.Is(c.err, models.ErrInvalidTransition) {
		return fmt.Errorf("expected invalid transition, got %v", c.err)
	}
	return nil
}

func (c *shopContext) shopHasOrders(shopID string, count int64, kind string) error {
	stats, err := c.services.Stats.Get(context.Background(), shopID)
	if err != nil {
		return err
	}

	counters := map[string]int64{
		"pending":   stats.PendingOrders,
		"shipped":   stats.ShippedOrders,
		"delivered": stats.DeliveredOrders,
		"cancelled": stats.CancelledOrders,
	}
	got, ok := counters[kind]
	if !ok {
		return fmt.Errorf("unknown counter %q", kind)
	}
	if got != count {
		return fmt.Errorf("expected %d %s orders, got %d", count, kind, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &shopContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^shop "([^"]*)" sells product "([^"]*)" at (\d+) with a (\d+)% discount on an active sale$`, tc.shopSellsProductOnSale)
	ctx.Step(`^user "([^"]*)" has ordered product "([^"]*)" from shop "([^"]*)"$`, tc.userHasOrdered)

	// When steps
	ctx.Step(`^user "([^"]*)" adds (\d+) of product "([^"]*)" from shop "([^"]*)" to the cart$`, tc.userAddsToCart)
	ctx.Step(`^user "([^"]*)" checks out shop "([^"]*)"$`, tc.userChecksOut)
	ctx.Step(`^user "([^"]*)" toggles product "([^"]*)" from shop "([^"]*)" (\d+) times concurrently$`, tc.userTogglesConcurrently)
	ctx.Step(`^shop "([^"]*)" moves the order to "([^"]*)"$`, tc.shopMovesOrder)

	// Then steps
	ctx.Step(`^the order total is (\d+)$`, tc.orderTotalIs)
	ctx.Step(`^the cart of user "([^"]*)" does not contain shop "([^"]*)"$`, tc.cartHasNoShop)
	ctx.Step(`^the cart of user "([^"]*)" holds (\d+) items for shop "([^"]*)"$`, tc.cartHoldsItems)
	ctx.Step(`^the transition is rejected as invalid$`, tc.transitionRejected)
	ctx.Step(`^shop "([^"]*)" has (\d+) (pending|shipped|delivered|cancelled) orders$`, tc.shopHasOrders)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
