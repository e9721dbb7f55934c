package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pushforge/push-delivery-api/models"
)

const endpointCollectionName = "endpoints"

// EndpointDatabase contains the methods to use with the endpoints collection
type EndpointDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Endpoint, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Endpoint, error)
	InsertOne(ctx context.Context, endpoint models.Endpoint) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type endpointDatabase struct {
	db DatabaseHelper
}

// NewEndpointDatabase initializes a new instance of endpoint database with the provided db connection
func NewEndpointDatabase(db DatabaseHelper) EndpointDatabase {
	return &endpointDatabase{
		db: db,
	}
}

func (e *endpointDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Endpoint, error) {
	endpoint := &models.Endpoint{}
	err := e.db.Collection(endpointCollectionName).FindOne(ctx, filter, opts...).Decode(endpoint)
	if err != nil {
		return nil, err
	}
	return endpoint, nil
}

func (e *endpointDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint
	cur, err := e.db.Collection(endpointCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	err = cur.All(ctx, &endpoints)
	if err != nil {
		return nil, err
	}
	return endpoints, nil
}

func (e *endpointDatabase) InsertOne(ctx context.Context, endpoint models.Endpoint) (InsertOneResultHelper, error) {
	return e.db.Collection(endpointCollectionName).InsertOne(ctx, endpoint)
}

func (e *endpointDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return e.db.Collection(endpointCollectionName).UpdateOne(ctx, filter, update, opts...)
}

func (e *endpointDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return e.db.Collection(endpointCollectionName).UpdateMany(ctx, filter, update, opts...)
}

func (e *endpointDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return e.db.Collection(endpointCollectionName).DeleteMany(ctx, filter, opts...)
}

func (e *endpointDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return e.db.Collection(endpointCollectionName).CountDocuments(ctx, filter, opts...)
}
