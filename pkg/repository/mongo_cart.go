package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CartRepositoryMongo keeps one document per user. Shop entries and their items
// are addressed with positional operators and array filters so that concurrent
// edits of different items never overwrite each other.
type CartRepositoryMongo struct {
	collection *mongo.Collection
}

func NewCartRepositoryMongo(collection *mongo.Collection) *CartRepositoryMongo {
	return &CartRepositoryMongo{collection: collection}
}

func (r *CartRepositoryMongo) FetchOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":       uuid.New().String(),
			"userId":    userID,
			"shops":     bson.A{},
			"createdAt": now,
			"updatedAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var cart models.Cart
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&cart)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race on the unique userId index; the winner's
		// document is there now.
		err = r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	return &cart, nil
}

func (r *CartRepositoryMongo) AddShop(ctx context.Context, userID, shopID string, item models.CartItem) error {
	// A leftover empty entry for this shop is equivalent to none.
	if _, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, pullEmptyShopUpdate(shopID)); err != nil {
		return fmt.Errorf("failed to prune cart: %w", err)
	}

	result, err := r.collection.UpdateOne(ctx, addShopFilter(userID, shopID), addShopUpdate(shopID, item, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to add shop to cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.classify(ctx, userID, shopID, "")
	}
	return nil
}

func (r *CartRepositoryMongo) AddItem(ctx context.Context, userID, shopID string, item models.CartItem) error {
	result, err := r.collection.UpdateOne(ctx, addItemFilter(userID, shopID, item.ProductID), addItemUpdate(item))
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.classify(ctx, userID, shopID, item.ProductID)
	}
	return nil
}

func (r *CartRepositoryMongo) UpdateItem(ctx context.Context, userID, shopID, productID string, upd models.ItemUpdate) error {
	set := itemSetFields(upd)
	if len(set) == 0 {
		return nil
	}

	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"s.shopId": shopID},
			bson.M{"i.productId": productID},
		},
	})
	result, err := r.collection.UpdateOne(ctx, itemFilter(userID, shopID, productID), bson.M{"$set": set}, opts)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: product %s not in cart for shop %s", models.ErrNotFound, productID, shopID)
	}
	return nil
}

func (r *CartRepositoryMongo) RemoveItem(ctx context.Context, userID, shopID, productID string) error {
	update := bson.M{
		"$pull": bson.M{"shops.$.items": bson.M{"productId": productID}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, itemFilter(userID, shopID, productID), update)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: product %s not in cart for shop %s", models.ErrNotFound, productID, shopID)
	}
	return nil
}

func (r *CartRepositoryMongo) PruneEmpty(ctx context.Context, userID string) error {
	update := bson.M{"$pull": bson.M{"shops": bson.M{"items": bson.M{"$size": 0}}}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, update); err != nil {
		return fmt.Errorf("failed to prune cart: %w", err)
	}
	return nil
}

func (r *CartRepositoryMongo) DetachShop(ctx context.Context, userID, shopID string, notAfter time.Time) error {
	if _, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, detachShopUpdate(shopID, notAfter)); err != nil {
		return fmt.Errorf("failed to detach shop from cart: %w", err)
	}
	return nil
}

// classify explains why a guarded write matched nothing. productID is empty
// for shop-level writes.
func (r *CartRepositoryMongo) classify(ctx context.Context, userID, shopID, productID string) error {
	var cart models.Cart
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: cart for user %s", models.ErrNotFound, userID)
	}
	if err != nil {
		return fmt.Errorf("failed to read cart: %w", err)
	}

	slice := cart.Slice(shopID)
	if productID == "" {
		if slice != nil {
			return fmt.Errorf("%w: shop %s already in cart", models.ErrConflict, shopID)
		}
		return fmt.Errorf("failed to add shop %s: cart changed concurrently", shopID)
	}
	if slice == nil {
		return fmt.Errorf("%w: shop %s not in cart", models.ErrNotFound, shopID)
	}
	return fmt.Errorf("%w: product %s already in cart", models.ErrConflict, productID)
}

func addShopFilter(userID, shopID string) bson.M {
	return bson.M{
		"userId":       userID,
		"shops.shopId": bson.M{"$ne": shopID},
	}
}

func addShopUpdate(shopID string, item models.CartItem, now time.Time) bson.M {
	return bson.M{
		"$push": bson.M{"shops": models.ShopSlice{
			ShopID:    shopID,
			Items:     []models.CartItem{item},
			CreatedAt: now,
		}},
		"$set": bson.M{"updatedAt": now},
	}
}

func addItemFilter(userID, shopID, productID string) bson.M {
	return bson.M{
		"userId": userID,
		"shops": bson.M{"$elemMatch": bson.M{
			"shopId":          shopID,
			"items.0":         bson.M{"$exists": true},
			"items.productId": bson.M{"$ne": productID},
		}},
	}
}

func addItemUpdate(item models.CartItem) bson.M {
	return bson.M{
		"$push": bson.M{"shops.$.items": item},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
}

func itemFilter(userID, shopID, productID string) bson.M {
	return bson.M{
		"userId": userID,
		"shops": bson.M{"$elemMatch": bson.M{
			"shopId":          shopID,
			"items.productId": productID,
		}},
	}
}

func itemSetFields(upd models.ItemUpdate) bson.M {
	set := bson.M{}
	if upd.Quantity != nil {
		set["shops.$[s].items.$[i].quantity"] = *upd.Quantity
	}
	if upd.VariantID != nil {
		set["shops.$[s].items.$[i].variantId"] = *upd.VariantID
	}
	if len(set) > 0 {
		set["updatedAt"] = time.Now()
	}
	return set
}

func pullEmptyShopUpdate(shopID string) bson.M {
	return bson.M{"$pull": bson.M{"shops": bson.M{
		"shopId": shopID,
		"items":  bson.M{"$size": 0},
	}}}
}

func detachShopUpdate(shopID string, notAfter time.Time) bson.M {
	cond := bson.M{"shopId": shopID}
	if !notAfter.IsZero() {
		cond["createdAt"] = bson.M{"$lte": notAfter}
	}
	return bson.M{
		"$pull": bson.M{"shops": cond},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
}
