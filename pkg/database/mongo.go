package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connection holds the dial settings for a document store.
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MongoDB bundles the client with the service's database handle.
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB dials MongoDB and verifies the connection with a primary ping,
// retrying per the Connection settings before giving up.
func NewMongoDB(ctx context.Context, c Connection, dbName string) (*MongoDB, error) {
	clientOpts := options.Client().ApplyURI(c.ConnectStr)

	var lastErr error
	for attempt := 0; attempt <= c.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(c.RetryInterval)
		}

		client, err := mongo.Connect(ctx, clientOpts)
		if err != nil {
			lastErr = err
			continue
		}

		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			lastErr = err
			_ = client.Disconnect(ctx)
			continue
		}

		return &MongoDB{
			Client:   client,
			Database: client.Database(dbName),
		}, nil
	}

	return nil, fmt.Errorf("mongodb connect failed after %d attempts: %w", c.RetryCount+1, lastErr)
}

// Close disconnects the underlying client.
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
