package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/models"
	"go.uber.org/zap"
)

// DetachFunc completes cart detachment for one order. It must be idempotent.
type DetachFunc func(ctx context.Context, order *models.Order) error

// detachJob is the only message the actor handles besides lifecycle events.
type detachJob struct {
	order   *models.Order
	attempt int
}

// Reconciler retries cart-slice detachment for orders whose inline detach
// failed. Jobs run one at a time inside a single actor; failed jobs are re-sent
// to it after an exponential backoff until max attempts.
type Reconciler struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func New(system *actor.ActorSystem, detach DetachFunc, cfg config.ReconcileConfig, logger *zap.Logger) (*Reconciler, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &detachActor{
			detach:      detach,
			maxAttempts: cfg.MaxAttempts,
			backoff:     cfg.Backoff,
			timeout:     10 * time.Second,
			logger:      logger,
		}
	})
	pid, err := system.Root.SpawnNamed(props, "cart-reconciler")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn reconciler actor: %w", err)
	}
	return &Reconciler{system: system, pid: pid, logger: logger}, nil
}

// Retry schedules order for detachment. It never blocks the caller.
func (r *Reconciler) Retry(order *models.Order) {
	r.system.Root.Send(r.pid, &detachJob{order: order, attempt: 1})
}

func (r *Reconciler) Stop() {
	if err := r.system.Root.StopFuture(r.pid).Wait(); err != nil {
		r.logger.Warn("Reconciler did not stop cleanly", zap.Error(err))
	}
}

type detachActor struct {
	detach      DetachFunc
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration
	logger      *zap.Logger
}

func (a *detachActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *detachJob:
		a.run(ctx, msg)

	case *actor.Started:
		a.logger.Info("Reconciler actor started")

	case *actor.Stopping:
		a.logger.Info("Reconciler actor stopping")
	}
}

func (a *detachActor) run(ctx actor.Context, job *detachJob) {
	log := a.logger.With(
		zap.String("order_id", job.order.ID),
		zap.String("shop_id", job.order.ShopID),
		zap.Int("attempt", job.attempt))

	runCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
	err := a.detach(runCtx, job.order)
	cancel()

	if err == nil {
		log.Info("Cart slice detached")
		return
	}
	if job.attempt >= a.maxAttempts {
		log.Error("Giving up on cart detachment, next cart read will reconcile", zap.Error(err))
		return
	}

	delay := a.delay(job.attempt)
	log.Warn("Cart detachment failed, retrying", zap.Duration("delay", delay), zap.Error(err))

	root, self := ctx.ActorSystem().Root, ctx.Self()
	next := &detachJob{order: job.order, attempt: job.attempt + 1}
	time.AfterFunc(delay, func() {
		root.Send(self, next)
	})
}

func (a *detachActor) delay(attempt int) time.Duration {
	d := a.backoff
	for i := 1; i < attempt && d < time.Minute; i++ {
		d *= 2
	}
	return d
}
