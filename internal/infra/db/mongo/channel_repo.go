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

var _ repository.ChannelRepository = (*channelRepo)(nil)

type channelDoc struct {
	ID        int64        `bson:"_id"`
	Name      string       `bson:"name"`
	AdminID   int64        `bson:"admin_id"`
	Plans     []model.Plan `bson:"plans"`
	CreatedAt time.Time    `bson:"created_at"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

func (d channelDoc) toModel() *model.Channel {
	return &model.Channel{
		ID:        d.ID,
		Name:      d.Name,
		AdminID:   d.AdminID,
		Plans:     model.Catalog(d.Plans),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type channelRepo struct {
	coll *mongo.Collection
}

func NewChannelRepo(db *mongo.Database) *channelRepo {
	return &channelRepo{coll: db.Collection(channelsCollection)}
}

func (r *channelRepo) Save(ctx context.Context, ch *model.Channel) error {
	if ch == nil || ch.ID == 0 {
		return domain.ErrInvalidArgument
	}
	plans := []model.Plan(ch.Plans)
	if plans == nil {
		plans = []model.Plan{}
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"name": ch.Name, "admin_id": ch.AdminID, "updated_at": now},
		"$setOnInsert": bson.M{"plans": plans, "created_at": now},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": ch.ID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: save channel: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

// ReplacePlans rewrites the embedded plans array in one document update.
func (r *channelRepo) ReplacePlans(ctx context.Context, channelID int64, plans model.Catalog) error {
	update := bson.M{"$set": bson.M{"plans": []model.Plan(plans), "updated_at": time.Now().UTC()}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": channelID}, update)
	if err != nil {
		return fmt.Errorf("%w: replace plans: %v", domain.ErrOperationFailed, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

func (r *channelRepo) FindByID(ctx context.Context, id int64) (*model.Channel, error) {
	var doc channelDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return doc.toModel(), nil
}

func (r *channelRepo) ListByAdmin(ctx context.Context, adminID int64) ([]*model.Channel, error) {
	cur, err := r.coll.Find(ctx, bson.M{"admin_id": adminID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list channels: %v", domain.ErrOperationFailed, err)
	}
	var docs []channelDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	out := make([]*model.Channel, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}
