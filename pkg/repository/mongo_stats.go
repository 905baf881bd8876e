package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatsRepositoryMongo keeps one counters document per shop, keyed by shop id.
// Counters only ever move through $inc.
type StatsRepositoryMongo struct {
	stats     *mongo.Collection
	customers *mongo.Collection
}

func NewStatsRepositoryMongo(stats, customers *mongo.Collection) *StatsRepositoryMongo {
	return &StatsRepositoryMongo{stats: stats, customers: customers}
}

func (r *StatsRepositoryMongo) ApplyDelta(ctx context.Context, shopID string, delta models.Delta) error {
	if len(delta) == 0 {
		return nil
	}
	_, err := r.stats.UpdateOne(ctx, bson.M{"_id": shopID}, deltaUpdate(delta, time.Now()), options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to apply stats delta: %w", err)
	}
	return nil
}

func (r *StatsRepositoryMongo) Get(ctx context.Context, shopID string) (*models.ShopStats, error) {
	var stats models.ShopStats
	err := r.stats.FindOne(ctx, bson.M{"_id": shopID}).Decode(&stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &models.ShopStats{ShopID: shopID}, nil
		}
		return nil, fmt.Errorf("failed to read shop stats: %w", err)
	}
	return &stats, nil
}

func (r *StatsRepositoryMongo) AddCustomer(ctx context.Context, shopID, userID string) (bool, error) {
	_, err := r.customers.InsertOne(ctx, bson.M{
		"shopId":    shopID,
		"userId":    userID,
		"createdAt": time.Now(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record customer: %w", err)
	}
	return true, nil
}

func deltaUpdate(delta models.Delta, now time.Time) bson.M {
	inc := bson.M{}
	for name, n := range delta {
		inc[name] = n
	}
	return bson.M{
		"$inc": inc,
		"$set": bson.M{"updatedAt": now},
	}
}
