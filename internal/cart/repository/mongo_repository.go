package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    int64              `bson:"user_id"`
	Items     []itemDocument     `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// itemDocument keeps the discount as a decimal string; BSON has no exact
// decimal that round-trips through shopspring/decimal.
type itemDocument struct {
	ProductID int64     `bson:"product_id"`
	Quantity  int       `bson:"quantity"`
	Discount  string    `bson:"discount"`
	AddedAt   time.Time `bson:"added_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
		now:        time.Now,
	}
}

func (m *MongoRepository) Get(ctx context.Context, userID int64) (*domain.CartSnapshot, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	snap := &domain.CartSnapshot{
		UserID:    doc.UserID,
		Items:     make([]domain.CartItem, 0, len(doc.Items)),
		UpdatedAt: doc.UpdatedAt,
	}
	for _, it := range doc.Items {
		d, err := decimal.NewFromString(it.Discount)
		if err != nil {
			return nil, fmt.Errorf("cart %d product %d: bad discount %q: %w", userID, it.ProductID, it.Discount, err)
		}
		snap.Items = append(snap.Items, domain.CartItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Discount:  d,
			AddedAt:   it.AddedAt,
		})
	}
	return snap, nil
}

// Save replaces the stored items and stamps updated_at.
func (m *MongoRepository) Save(ctx context.Context, userID int64, items []domain.CartItem) error {
	now := m.now().UTC()

	docs := make([]itemDocument, 0, len(items))
	for _, it := range items {
		docs = append(docs, itemDocument{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Discount:  it.Discount.String(),
			AddedAt:   it.AddedAt,
		})
	}

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set":         bson.M{"items": docs, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) Delete(ctx context.Context, userID int64) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteIfNotUpdatedSince(ctx context.Context, userID int64, t time.Time) (bool, error) {
	filter := bson.M{
		"user_id":    userID,
		"updated_at": bson.M{"$lte": t},
	}
	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete stale cart: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // abandoned carts
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
