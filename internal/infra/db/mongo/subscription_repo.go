package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionDoc struct {
	UserID    int64     `bson:"user_id"`
	ChannelID int64     `bson:"channel_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func (d subscriptionDoc) toModel() model.Subscription {
	return model.Subscription{UserID: d.UserID, ChannelID: d.ChannelID, ExpiresAt: d.ExpiresAt.UTC()}
}

type subscriptionRepo struct {
	coll *mongo.Collection
}

func NewSubscriptionRepo(db *mongo.Database) *subscriptionRepo {
	return &subscriptionRepo{coll: db.Collection(subscriptionsCollection)}
}

func pairFilter(userID, channelID int64) bson.M {
	return bson.M{"user_id": userID, "channel_id": channelID}
}

// Upsert relies on the unique (user_id, channel_id) index; the last write wins.
func (r *subscriptionRepo) Upsert(ctx context.Context, s model.Subscription) error {
	if s.UserID <= 0 || s.ChannelID == 0 {
		return domain.ErrInvalidArgument
	}
	// BSON datetimes carry milliseconds
	expires := s.ExpiresAt.UTC().Truncate(time.Millisecond)
	update := bson.M{"$set": bson.M{"expires_at": expires}}
	_, err := r.coll.UpdateOne(ctx, pairFilter(s.UserID, s.ChannelID), update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: upsert subscription: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

func (r *subscriptionRepo) Find(ctx context.Context, userID, channelID int64) (*model.Subscription, error) {
	var doc subscriptionDoc
	if err := r.coll.FindOne(ctx, pairFilter(userID, channelID)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	s := doc.toModel()
	return &s, nil
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, userID int64) ([]model.Subscription, error) {
	return r.list(ctx, bson.M{"user_id": userID}, 0)
}

func (r *subscriptionRepo) ListExpired(ctx context.Context, now time.Time, after *repository.ExpiredCursor, limit int) ([]model.Subscription, error) {
	filter := bson.M{"expires_at": bson.M{"$lte": now.UTC()}}
	if after != nil {
		at := after.ExpiresAt.UTC()
		filter["$or"] = bson.A{
			bson.M{"expires_at": bson.M{"$gt": at}},
			bson.M{"expires_at": at, "user_id": bson.M{"$gt": after.UserID}},
			bson.M{"expires_at": at, "user_id": after.UserID, "channel_id": bson.M{"$gt": after.ChannelID}},
		}
	}
	return r.list(ctx, filter, limit)
}

// Delete matches on expires_at too, so a renewal written after the read survives.
func (r *subscriptionRepo) Delete(ctx context.Context, userID, channelID int64, expiresAt time.Time) (bool, error) {
	filter := pairFilter(userID, channelID)
	filter["expires_at"] = expiresAt.UTC()
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("%w: delete subscription: %v", domain.ErrOperationFailed, err)
	}
	return res.DeletedCount == 1, nil
}

func (r *subscriptionRepo) CountActive(ctx context.Context, now time.Time) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"expires_at": bson.M{"$gt": now.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return int(n), nil
}

func (r *subscriptionRepo) list(ctx context.Context, filter bson.M, limit int) ([]model.Subscription, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "expires_at", Value: 1},
		{Key: "user_id", Value: 1},
		{Key: "channel_id", Value: 1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
	var docs []subscriptionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	out := make([]model.Subscription, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}
