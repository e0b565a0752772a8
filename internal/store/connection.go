package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOptions bundles the dial settings for the cart database. Zero
// values fall back to defaults sized for a single-storefront widget,
// which holds one small pool rather than a per-user fleet.
type MongoOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// DialMongo connects, verifies the server answers a ping and returns
// the database handle the cart store writes to.
func DialMongo(ctx context.Context, opts MongoOptions) (*mongo.Database, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.MaxPoolSize == 0 {
		opts.MaxPoolSize = 16
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout).
		SetMaxPoolSize(opts.MaxPoolSize))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	return client.Database(opts.Database), nil
}
