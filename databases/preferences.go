package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pushforge/push-delivery-api/models"
)

const preferencesCollectionName = "preferences"

// PreferencesDatabase contains the methods to use with the preferences collection
type PreferencesDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Preferences, error)
	InsertOne(ctx context.Context, preferences models.Preferences) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type preferencesDatabase struct {
	db DatabaseHelper
}

// NewPreferencesDatabase initializes a new instance of preferences database with the provided db connection
func NewPreferencesDatabase(db DatabaseHelper) PreferencesDatabase {
	return &preferencesDatabase{
		db: db,
	}
}

func (p *preferencesDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Preferences, error) {
	preferences := &models.Preferences{}
	err := p.db.Collection(preferencesCollectionName).FindOne(ctx, filter, opts...).Decode(preferences)
	if err != nil {
		return nil, err
	}
	return preferences, nil
}

func (p *preferencesDatabase) InsertOne(ctx context.Context, preferences models.Preferences) (InsertOneResultHelper, error) {
	return p.db.Collection(preferencesCollectionName).InsertOne(ctx, preferences)
}

func (p *preferencesDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return p.db.Collection(preferencesCollectionName).UpdateOne(ctx, filter, update, opts...)
}

func (p *preferencesDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return p.db.Collection(preferencesCollectionName).DeleteOne(ctx, filter, opts...)
}
