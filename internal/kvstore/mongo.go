package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoCollection     = "kv_entries"
	mongoLockCollection = "kv_locks"
)

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoLock struct {
	Key       string    `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// MongoStorage keeps one document per key
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	locks      *mongo.Collection
}

// NewMongoStorage connects to MongoDB and pings the primary
func NewMongoStorage(ctx context.Context, uri, database string) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	locks := db.Collection(mongoLockCollection)

	// Locks left behind by a crashed replica are purged by the server.
	_, err = locks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo lock index: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: db.Collection(mongoCollection),
		locks:      locks,
	}, nil
}

// Get reads the value stored at key
func (m *MongoStorage) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var entry mongoEntry
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

// Set upserts value at key
func (m *MongoStorage) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Delete removes key
func (m *MongoStorage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// AcquireLock takes lockKey for ttl. The upsert only matches an expired lock;
// a live one makes the insert fail on the unique _id.
func (m *MongoStorage) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	lock := mongoLock{Key: lockKey, Token: uuid.New().String(), ExpiresAt: now.Add(ttl)}

	_, err := m.locks.UpdateOne(ctx,
		bson.M{"_id": lockKey, "expires_at": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"token": lock.Token, "expires_at": lock.ExpiresAt}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongo acquire lock %s: %w", lockKey, err)
	}
	return lock.Token, true, nil
}

// ReleaseLock frees lockKey if token still holds it
func (m *MongoStorage) ReleaseLock(ctx context.Context, lockKey, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.locks.DeleteOne(ctx, bson.M{"_id": lockKey, "token": token})
	return err
}

// Close disconnects the client
func (m *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
