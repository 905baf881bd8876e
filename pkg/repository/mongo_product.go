package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/shopfront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProductRepositoryMongo struct {
	collection *mongo.Collection
}

func NewProductRepositoryMongo(collection *mongo.Collection) *ProductRepositoryMongo {
	return &ProductRepositoryMongo{collection: collection}
}

func (r *ProductRepositoryMongo) Create(ctx context.Context, p *models.Product) error {
	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: product %s or slug %q already exists", models.ErrConflict, p.ID, p.Slug)
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *ProductRepositoryMongo) GetByID(ctx context.Context, productID string) (*models.Product, error) {
	var p models.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, productID)
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepositoryMongo) GetMany(ctx context.Context, productIDs []string) (map[string]*models.Product, error) {
	out := make(map[string]*models.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": productIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepositoryMongo) Replace(ctx context.Context, p *models.Product, expected models.ProductStatus) error {
	filter := bson.M{"_id": p.ID, "isDeleted": false, "status": expected}
	result, err := r.collection.ReplaceOne(ctx, filter, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: slug %q already used in shop %s", models.ErrConflict, p.Slug, p.ShopID)
		}
		return fmt.Errorf("failed to replace product: %w", err)
	}
	if result.MatchedCount == 0 {
		current, err := r.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if current.IsDeleted {
			return fmt.Errorf("%w: product %s", models.ErrNotFound, p.ID)
		}
		return fmt.Errorf("%w: product %s is %s, not %s", models.ErrConflict, p.ID, current.Status, expected)
	}
	return nil
}

// SoftDelete flips isDeleted with a single guarded write, so two concurrent
// deletes cannot both report success.
func (r *ProductRepositoryMongo) SoftDelete(ctx context.Context, productID string) (*models.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	update := bson.M{"$set": bson.M{"isDeleted": true}, "$currentDate": bson.M{"updatedAt": true}}

	var before models.Product
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": productID, "isDeleted": false}, update, opts).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, productID)
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return &before, nil
}
