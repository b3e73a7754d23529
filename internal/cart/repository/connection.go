package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Cart documents are read on nearly every request, so a few connections
// are kept open even when idle.
const (
	connectTimeout  = 10 * time.Second
	selectTimeout   = 5 * time.Second
	maxPoolSize     = 100
	minIdleConns    = 10
	shutdownTimeout = 5 * time.Second
)

// ConnectMongoDB returns the cart database once the primary answers a ping.
// A client that cannot reach the primary is closed before returning.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(selectTimeout).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minIdleConns))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = Disconnect(client.Database(database))
		return nil, fmt.Errorf("ping mongodb primary: %w", err)
	}
	return client.Database(database), nil
}

// Disconnect closes the client behind db, bounded by shutdownTimeout.
func Disconnect(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return db.Client().Disconnect(ctx)
}
