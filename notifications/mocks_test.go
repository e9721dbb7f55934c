package notifications_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pushforge/push-delivery-api/databases"
	"github.com/pushforge/push-delivery-api/fcm"
	"github.com/pushforge/push-delivery-api/models"
)

type mockInsertResult struct{ id interface{} }

func (m mockInsertResult) Decode() interface{} { return m.id }

// MockEndpointDatabase is a hand-written mock for databases.EndpointDatabase
type MockEndpointDatabase struct {
	mock.Mock
}

func (m *MockEndpointDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Endpoint, error) {
	args := m.Called(ctx, filter)
	var endpoint *models.Endpoint
	if args.Get(0) != nil {
		endpoint = args.Get(0).(*models.Endpoint)
	}
	return endpoint, args.Error(1)
}

func (m *MockEndpointDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Endpoint, error) {
	args := m.Called(ctx, filter)
	var endpoints []models.Endpoint
	if args.Get(0) != nil {
		endpoints = args.Get(0).([]models.Endpoint)
	}
	return endpoints, args.Error(1)
}

func (m *MockEndpointDatabase) InsertOne(ctx context.Context, endpoint models.Endpoint) (databases.InsertOneResultHelper, error) {
	args := m.Called(ctx, endpoint)
	return mockInsertResult{id: endpoint.ID}, args.Error(1)
}

func (m *MockEndpointDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := m.Called(ctx, filter, update)
	var res *mongo.UpdateResult
	if args.Get(0) != nil {
		res = args.Get(0).(*mongo.UpdateResult)
	}
	return res, args.Error(1)
}

func (m *MockEndpointDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := m.Called(ctx, filter, update)
	var res *mongo.UpdateResult
	if args.Get(0) != nil {
		res = args.Get(0).(*mongo.UpdateResult)
	}
	return res, args.Error(1)
}

func (m *MockEndpointDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEndpointDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotificationDatabase is a hand-written mock for databases.NotificationDatabase
type MockNotificationDatabase struct {
	mock.Mock
}

func (m *MockNotificationDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.NotificationRecord, error) {
	args := m.Called(ctx, filter)
	var record *models.NotificationRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*models.NotificationRecord)
	}
	return record, args.Error(1)
}

func (m *MockNotificationDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.NotificationRecord, error) {
	args := m.Called(ctx, filter)
	var records []models.NotificationRecord
	if args.Get(0) != nil {
		records = args.Get(0).([]models.NotificationRecord)
	}
	return records, args.Error(1)
}

func (m *MockNotificationDatabase) InsertOne(ctx context.Context, record models.NotificationRecord) (databases.InsertOneResultHelper, error) {
	args := m.Called(ctx, record)
	return mockInsertResult{id: record.ID}, args.Error(1)
}

func (m *MockNotificationDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := m.Called(ctx, filter, update)
	var res *mongo.UpdateResult
	if args.Get(0) != nil {
		res = args.Get(0).(*mongo.UpdateResult)
	}
	return res, args.Error(1)
}

func (m *MockNotificationDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationDatabase) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (databases.CursorHelper, error) {
	args := m.Called(ctx, pipeline)
	var cur databases.CursorHelper
	if args.Get(0) != nil {
		cur = args.Get(0).(databases.CursorHelper)
	}
	return cur, args.Error(1)
}

// MockBroadcastDatabase is a hand-written mock for databases.BroadcastDatabase
type MockBroadcastDatabase struct {
	mock.Mock
}

func (m *MockBroadcastDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Broadcast, error) {
	args := m.Called(ctx, filter)
	var broadcast *models.Broadcast
	if args.Get(0) != nil {
		broadcast = args.Get(0).(*models.Broadcast)
	}
	return broadcast, args.Error(1)
}

func (m *MockBroadcastDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Broadcast, error) {
	args := m.Called(ctx, filter)
	var broadcasts []models.Broadcast
	if args.Get(0) != nil {
		broadcasts = args.Get(0).([]models.Broadcast)
	}
	return broadcasts, args.Error(1)
}

func (m *MockBroadcastDatabase) InsertOne(ctx context.Context, broadcast models.Broadcast) (databases.InsertOneResultHelper, error) {
	args := m.Called(ctx, broadcast)
	return mockInsertResult{id: broadcast.ID}, args.Error(1)
}

func (m *MockBroadcastDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := m.Called(ctx, filter, update)
	var res *mongo.UpdateResult
	if args.Get(0) != nil {
		res = args.Get(0).(*mongo.UpdateResult)
	}
	return res, args.Error(1)
}

// MockPreferencesDatabase is a hand-written mock for databases.PreferencesDatabase
type MockPreferencesDatabase struct {
	mock.Mock
}

func (m *MockPreferencesDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Preferences, error) {
	args := m.Called(ctx, filter)
	var prefs *models.Preferences
	if args.Get(0) != nil {
		prefs = args.Get(0).(*models.Preferences)
	}
	return prefs, args.Error(1)
}

func (m *MockPreferencesDatabase) InsertOne(ctx context.Context, preferences models.Preferences) (databases.InsertOneResultHelper, error) {
	args := m.Called(ctx, preferences)
	return mockInsertResult{id: preferences.ID}, args.Error(1)
}

func (m *MockPreferencesDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	args := m.Called(ctx, filter, update)
	var res *mongo.UpdateResult
	if args.Get(0) != nil {
		res = args.Get(0).(*mongo.UpdateResult)
	}
	return res, args.Error(1)
}

func (m *MockPreferencesDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	args := m.Called(ctx, filter)
	return args.Error(0)
}

// fakeSender scripts multicast responses per call, recording each batch
type fakeSender struct {
	respond func(call int, tokens []string) (*fcm.MulticastResponse, error)
	batches [][]string
}

func (f *fakeSender) SendMulticast(ctx context.Context, title, body string, data map[string]string, tokens []string) (*fcm.MulticastResponse, error) {
	call := len(f.batches)
	f.batches = append(f.batches, append([]string(nil), tokens...))
	return f.respond(call, tokens)
}

// allOK responds with a success result per token
func allOK(call int, tokens []string) (*fcm.MulticastResponse, error) {
	resp := &fcm.MulticastResponse{SuccessCount: len(tokens)}
	for range tokens {
		resp.Results = append(resp.Results, fcm.SendResult{Success: true, MessageID: "m"})
	}
	return resp, nil
}
