package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconciler_RetriesUntilDetached(t *testing.T) {
	var calls, done int32
	detach := func(ctx context.Context, order *models.Order) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("cart store unavailable")
		}
		atomic.StoreInt32(&done, 1)
		return nil
	}

	r, err := New(actor.NewActorSystem(), detach, config.ReconcileConfig{MaxAttempts: 5, Backoff: 5 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	defer r.Stop()

	r.Retry(&models.Order{ID: "o1", ShopID: "s1", UserID: "u1"})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&done) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestReconciler_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	detach := func(ctx context.Context, order *models.Order) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("still down")
	}

	r, err := New(actor.NewActorSystem(), detach, config.ReconcileConfig{MaxAttempts: 3, Backoff: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	defer r.Stop()

	r.Retry(&models.Order{ID: "o1"})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDetachActor_Delay(t *testing.T) {
	a := &detachActor{backoff: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, a.delay(1))
	assert.Equal(t, 200*time.Millisecond, a.delay(2))
	assert.Equal(t, 400*time.Millisecond, a.delay(3))
	assert.LessOrEqual(t, a.delay(20), 2*time.Minute)
}
