package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pushforge/push-delivery-api/api/handlers"
	"github.com/pushforge/push-delivery-api/models"
	"github.com/pushforge/push-delivery-api/notifications"
)

func newHandlerOrchestrator(db *MockBroadcastDatabase, endpointDB *MockEndpointDatabase) *notifications.Orchestrator {
	return &notifications.Orchestrator{
		DB:         db,
		Registry:   &notifications.Registry{DB: endpointDB},
		Dispatcher: &notifications.Dispatcher{Sender: &fakeSender{respond: allOK}, Endpoints: endpointDB},
		Recorder:   &notifications.Recorder{DB: &MockNotificationDatabase{}},
	}
}

func TestBroadcast_CreateBroadcastHandler_MissingFields(t *testing.T) {
	b := handlers.Broadcast{Orchestrator: newHandlerOrchestrator(&MockBroadcastDatabase{}, &MockEndpointDatabase{})}

	req := httptest.NewRequest("POST", "/api/v1/broadcasts", strings.NewReader(`{"title":"only"}`))
	rr := httptest.NewRecorder()

	http.HandlerFunc(b.CreateBroadcastHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBroadcast_CreateBroadcastHandler_FutureScheduled(t *testing.T) {
	db := &MockBroadcastDatabase{}
	db.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	b := handlers.Broadcast{Orchestrator: newHandlerOrchestrator(db, &MockEndpointDatabase{})}

	body := `{"title":"t","body":"b","scheduledFor":"2099-01-01T00:00:00Z"}`
	req := httptest.NewRequest("POST", "/api/v1/broadcasts", strings.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(b.CreateBroadcastHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"scheduled"`)
}

func TestBroadcast_BroadcastByIDHandler_InvalidID(t *testing.T) {
	b := handlers.Broadcast{Orchestrator: newHandlerOrchestrator(&MockBroadcastDatabase{}, &MockEndpointDatabase{})}

	req := httptest.NewRequest("GET", "/api/v1/broadcasts/zzz", nil)
	req = mux.SetURLVars(req, map[string]string{"broadcast_id": "zzz"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(b.BroadcastByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPreferences_GetPreferencesHandler_Defaults(t *testing.T) {
	db := &MockPreferencesDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	p := handlers.Preferences{DB: db}

	req := httptest.NewRequest("GET", "/api/v1/users/u1/preferences", nil)
	req = mux.SetURLVars(req, map[string]string{"user_id": "u1"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(p.GetPreferencesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"globalEnabled":true`)
}

func TestPreferences_UpdatePreferencesHandler_InvalidFrequency(t *testing.T) {
	p := handlers.Preferences{DB: &MockPreferencesDatabase{}}

	req := httptest.NewRequest("PUT", "/api/v1/users/u1/preferences", strings.NewReader(`{"frequency":"hourly"}`))
	req = mux.SetURLVars(req, map[string]string{"user_id": "u1"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(p.UpdatePreferencesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPreferences_UpdatePreferencesHandler_MergesCategories(t *testing.T) {
	db := &MockPreferencesDatabase{}
	prefs := models.DefaultPreferences("u1")
	db.On("FindOne", mock.Anything, mock.Anything).Return(&prefs, nil)
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	p := handlers.Preferences{DB: db}

	req := httptest.NewRequest("PUT", "/api/v1/users/u1/preferences", strings.NewReader(`{"categories":{"marketing":false}}`))
	req = mux.SetURLVars(req, map[string]string{"user_id": "u1"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(p.UpdatePreferencesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"marketing":false`)
	assert.Contains(t, rr.Body.String(), `"alerts":true`)
}

func TestPreferences_ResetPreferencesHandler(t *testing.T) {
	db := &MockPreferencesDatabase{}
	db.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)

	p := handlers.Preferences{DB: db}

	req := httptest.NewRequest("DELETE", "/api/v1/users/u1/preferences", nil)
	req = mux.SetURLVars(req, map[string]string{"user_id": "u1"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(p.ResetPreferencesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
