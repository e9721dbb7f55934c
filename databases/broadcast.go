package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pushforge/push-delivery-api/models"
)

const broadcastCollectionName = "broadcasts"

// BroadcastDatabase contains the methods to use with the broadcasts collection
type BroadcastDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Broadcast, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Broadcast, error)
	InsertOne(ctx context.Context, broadcast models.Broadcast) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type broadcastDatabase struct {
	db DatabaseHelper
}

// NewBroadcastDatabase initializes a new instance of broadcast database with the provided db connection
func NewBroadcastDatabase(db DatabaseHelper) BroadcastDatabase {
	return &broadcastDatabase{
		db: db,
	}
}

func (b *broadcastDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Broadcast, error) {
	broadcast := &models.Broadcast{}
	err := b.db.Collection(broadcastCollectionName).FindOne(ctx, filter, opts...).Decode(broadcast)
	if err != nil {
		return nil, err
	}
	return broadcast, nil
}

func (b *broadcastDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Broadcast, error) {
	var broadcasts []models.Broadcast
	cur, err := b.db.Collection(broadcastCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	err = cur.All(ctx, &broadcasts)
	if err != nil {
		return nil, err
	}
	return broadcasts, nil
}

func (b *broadcastDatabase) InsertOne(ctx context.Context, broadcast models.Broadcast) (InsertOneResultHelper, error) {
	return b.db.Collection(broadcastCollectionName).InsertOne(ctx, broadcast)
}

func (b *broadcastDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return b.db.Collection(broadcastCollectionName).UpdateOne(ctx, filter, update, opts...)
}
