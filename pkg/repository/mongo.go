package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/config"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	cartsCollection     = "carts"
	productsCollection  = "products"
	statsCollection     = "shop_stats"
	customersCollection = "shop_customers"
	auditCollection     = "audit_logs"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return openMongoRepository(ctx, client, cfg)
}

// openMongoRepository checks a connected client and prepares its indexes,
// disconnecting the client when either step fails.
func openMongoRepository(ctx context.Context, client *mongo.Client, cfg *config.MongoDBConfig) (*MongoRepository, error) {
	m := &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}

	err := client.Ping(ctx, nil)
	if err != nil {
		err = fmt.Errorf("failed to ping MongoDB: %w", err)
	} else {
		err = m.ensureIndexes(ctx)
	}
	if err != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return m, nil
}

func (m *MongoRepository) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		cartsCollection: {{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		productsCollection: {{
			Keys: bson.D{{Key: "shopId", Value: 1}, {Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"isDeleted": false}),
		}},
		customersCollection: {{
			Keys:    bson.D{{Key: "shopId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		auditCollection: {{
			Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}},
		}},
	}

	for name, models := range indexes {
		if _, err := m.database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepository) Carts() *CartRepositoryMongo {
	return &CartRepositoryMongo{collection: m.database.Collection(cartsCollection)}
}

func (m *MongoRepository) Products() *ProductRepositoryMongo {
	return &ProductRepositoryMongo{collection: m.database.Collection(productsCollection)}
}

func (m *MongoRepository) Stats() *StatsRepositoryMongo {
	return &StatsRepositoryMongo{
		stats:     m.database.Collection(statsCollection),
		customers: m.database.Collection(customersCollection),
	}
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Service   string    `bson:"service" json:"service"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entityId"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	collection := m.database.Collection(auditCollection)
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	log.CreatedAt = time.Now()
	_, err := collection.InsertOne(ctx, log)
	return err
}

func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error) {
	collection := m.database.Collection(auditCollection)

	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
