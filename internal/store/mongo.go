package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/cart-widget/internal/domain"
)

type cartDocument struct {
	CartKey   string            `bson:"cart_key"`
	Items     []domain.LineItem `bson:"items"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// MongoStore keeps one document per cart key. Saves replace the whole
// items array: the store contract is wholesale snapshots, so per-item
// update operators are not used here.
type MongoStore struct {
	collection *mongo.Collection
	key        string
}

func NewMongoStore(db *mongo.Database, key string) *MongoStore {
	return &MongoStore{
		collection: db.Collection("carts"),
		key:        key,
	}
}

func (m *MongoStore) Load(ctx context.Context) ([]domain.LineItem, error) {
	var doc cartDocument

	filter := bson.M{"cart_key": m.key}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return doc.Items, nil
}

func (m *MongoStore) Save(ctx context.Context, items []domain.LineItem) error {
	now := time.Now()

	filter := bson.M{"cart_key": m.key}
	update := bson.M{
		"$set": bson.M{
			"items":      items,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"cart_key":   m.key,
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "cart_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	if _, err := m.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
