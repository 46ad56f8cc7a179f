package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection is the name of the collection holding one document per user.
const UsersCollection = "users"

// DB is the process-wide store handle. It is opened once at startup with
// Open and released once at shutdown with Close; every request borrows it.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger
}

// Open establishes a connection to MongoDB, verifies it with a ping and
// makes sure the users collection carries its unique email index.
func Open(ctx context.Context, uri, dbName string, log *slog.Logger) (*DB, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	d := &DB{client: client, db: client.Database(dbName), log: log}
	if err := EnsureIndexes(ctx, d.Users()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to MongoDB", "database", dbName)
	return d, nil
}

// Users returns the users collection.
func (d *DB) Users() *mongo.Collection {
	return d.db.Collection(UsersCollection)
}

// Close disconnects from MongoDB. It is safe to call on a nil DB.
func (d *DB) Close(ctx context.Context) error {
	if d == nil || d.client == nil {
		return nil
	}
	if err := d.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	d.log.Info("disconnected from MongoDB")
	return nil
}

// EnsureIndexes creates the unique index on email. This is the backstop
// against two concurrent registrations of the same address.
func EnsureIndexes(ctx context.Context, users *mongo.Collection) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	}
	if _, err := users.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}
