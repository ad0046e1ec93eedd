package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoItem struct {
	ProductID string    `bson:"product_id"`
	Quantity  int       `bson:"quantity"`
	AddedAt   time.Time `bson:"added_at"`
}

type mongoCart struct {
	SessionID string      `bson:"sid"`
	Items     []mongoItem `bson:"items"`
	Version   int64       `bson:"version"`
	CreatedAt time.Time   `bson:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at"`
}

// MongoStore keeps one document per session in the carts collection.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection("carts")}
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *MongoStore) Get(ctx context.Context, key string) (Cart, error) {
	var doc mongoCart
	err := m.collection.FindOne(ctx, bson.M{"sid": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.cart(), nil
}

func (m *MongoStore) Save(ctx context.Context, key string, c Cart) error {
	now := time.Now()

	filter := bson.M{"sid": key}
	update := bson.M{
		"$set":         bson.M{"items": mongoItems(c, now), "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
		"$inc":         bson.M{"version": 1},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, key string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"sid": key})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

// Mutate applies fn with an optimistic check on the document version and retries
// when another writer got there first.
func (m *MongoStore) Mutate(ctx context.Context, key string, fn func(Cart) (Cart, error)) error {
	for i := 0; i < maxMutateAttempts; i++ {
		var doc mongoCart
		err := m.collection.FindOne(ctx, bson.M{"sid": key}).Decode(&doc)
		exists := true
		if errors.Is(err, mongo.ErrNoDocuments) {
			exists = false
		} else if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}

		next, err := fn(doc.cart())
		if err != nil {
			return err
		}

		now := time.Now()
		if !exists {
			if len(next) == 0 {
				return nil
			}
			_, err := m.collection.InsertOne(ctx, mongoCart{
				SessionID: key,
				Items:     mongoItems(next, now),
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to insert cart: %w", err)
			}
			return nil
		}

		filter := bson.M{"sid": key, "version": doc.Version}
		if len(next) == 0 {
			res, err := m.collection.DeleteOne(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to delete cart: %w", err)
			}
			if res.DeletedCount == 0 {
				continue
			}
			return nil
		}

		res, err := m.collection.UpdateOne(ctx, filter, bson.M{
			"$set": bson.M{"items": mongoItems(next, now), "updated_at": now},
			"$inc": bson.M{"version": 1},
		})
		if err != nil {
			return fmt.Errorf("failed to update cart: %w", err)
		}
		if res.MatchedCount == 0 {
			continue
		}
		return nil
	}
	return ErrConcurrentUpdate
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (d mongoCart) cart() Cart {
	c := make(Cart, len(d.Items))
	for _, it := range d.Items {
		c[it.ProductID] = it.Quantity
	}
	return c
}

func mongoItems(c Cart, now time.Time) []mongoItem {
	items := make([]mongoItem, 0, len(c))
	for id, qty := range c {
		items = append(items, mongoItem{ProductID: id, Quantity: qty, AddedAt: now})
	}
	return items
}
