package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-channel-subscription/internal/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	channelsCollection      = "channels"
	subscriptionsCollection = "subscriptions"
)

var ErrFailedToConnect = errors.New("failed to connect to mongo")

// Connect opens a client, retrying a few times while the server comes up, and
// returns the configured database.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.URL).
				SetConnectTimeout(5 * time.Second).
				SetRetryWrites(true).
				SetRetryReads(true),
		)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pctx, nil)
			cancel()
			if err == nil {
				return client, client.Database(cfg.Database), nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil, nil, errors.Join(ErrFailedToConnect, lastErr)
}

// EnsureIndexes creates the indexes the repositories rely on. Safe to run on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(subscriptionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "channel_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "expires_at", Value: 1}, {Key: "user_id", Value: 1}, {Key: "channel_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("subscription indexes: %w", err)
	}
	_, err = db.Collection(channelsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "admin_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("channel indexes: %w", err)
	}
	return nil
}

// Healthcheck returns a ping probe for the liveness endpoint.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}
