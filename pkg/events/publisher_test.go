package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/example/shopfront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderCreatedEvent(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	order := &models.Order{
		ID:          "o1",
		ShopID:      "s1",
		UserID:      "u1",
		TrackingID:  123456789012,
		TotalAmount: 2700,
		Currency:    "USD",
		CreatedAt:   created,
	}

	data, err := json.Marshal(NewOrderCreatedEvent(order))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"order_id": "o1",
		"shop_id": "s1",
		"user_id": "u1",
		"tracking_id": 123456789012,
		"total_amount": 2700,
		"currency": "USD",
		"created_at": "2024-03-01T10:00:00Z"
	}`, string(data))
}

func TestOrderStatusChangedEvent(t *testing.T) {
	order := &models.Order{ID: "o1", ShopID: "s1", Status: models.StatusShipped, UpdatedAt: time.Unix(0, 0).UTC()}

	ev := NewOrderStatusChangedEvent(order, models.StatusProcessing)
	assert.Equal(t, "processing", ev.From)
	assert.Equal(t, "shipped", ev.To)
}

func TestProductStatusChangedEvent(t *testing.T) {
	p := &models.Product{ID: "p1", ShopID: "s1", Status: models.ProductActive}

	ev := NewProductStatusChangedEvent(p, "")
	assert.Empty(t, ev.From)
	assert.Equal(t, "active", ev.To)
	assert.False(t, ev.Deleted)

	p.IsDeleted = true
	ev = NewProductStatusChangedEvent(p, models.ProductActive)
	assert.True(t, ev.Deleted)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishOrderCreated(context.Background(), &models.Order{}))
	assert.NoError(t, p.PublishOrderStatusChanged(context.Background(), &models.Order{}, models.StatusProcessing))
	assert.NoError(t, p.PublishProductStatusChanged(context.Background(), &models.Product{}, models.ProductDraft))
	p.Close()
}
