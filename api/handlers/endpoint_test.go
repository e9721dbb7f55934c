package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pushforge/push-delivery-api/api/handlers"
	"github.com/pushforge/push-delivery-api/models"
	"github.com/pushforge/push-delivery-api/notifications"
)

func TestEndpoint_RegisterEndpointHandler_Created(t *testing.T) {
	db := &MockEndpointDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	db.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{}, nil)
	db.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	e := handlers.Endpoint{Registry: &notifications.Registry{DB: db}}

	body := `{"userId":"u1","token":"tok-1","deviceId":"d1","deviceType":"ios"}`
	req := httptest.NewRequest("POST", "/api/v1/endpoints", strings.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(e.RegisterEndpointHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"token":"tok-1"`)
}

func TestEndpoint_RegisterEndpointHandler_BadBody(t *testing.T) {
	e := handlers.Endpoint{Registry: &notifications.Registry{DB: &MockEndpointDatabase{}}}

	req := httptest.NewRequest("POST", "/api/v1/endpoints", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()

	http.HandlerFunc(e.RegisterEndpointHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEndpoint_RegisterEndpointHandler_InvalidDeviceType(t *testing.T) {
	e := handlers.Endpoint{Registry: &notifications.Registry{DB: &MockEndpointDatabase{}}}

	body := `{"userId":"u1","token":"tok-1","deviceId":"d1","deviceType":"toaster"}`
	req := httptest.NewRequest("POST", "/api/v1/endpoints", strings.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(e.RegisterEndpointHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEndpoint_UserEndpointsHandler(t *testing.T) {
	db := &MockEndpointDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return([]models.Endpoint{
		{UserID: "u1", Token: "tok-1", IsActive: true},
	}, nil)

	e := handlers.Endpoint{Registry: &notifications.Registry{DB: db}}

	req := httptest.NewRequest("GET", "/api/v1/users/u1/endpoints", nil)
	req = mux.SetURLVars(req, map[string]string{"user_id": "u1"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(e.UserEndpointsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"tok-1"`)
}

func TestEndpoint_DeactivateEndpointHandler_NotFound(t *testing.T) {
	db := &MockEndpointDatabase{}
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	e := handlers.Endpoint{Registry: &notifications.Registry{DB: db}}

	req := httptest.NewRequest("DELETE", "/api/v1/endpoints/x", nil)
	req = mux.SetURLVars(req, map[string]string{"endpoint_id": primitive.NewObjectID().Hex()})
	rr := httptest.NewRecorder()

	http.HandlerFunc(e.DeactivateEndpointHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEndpoint_CleanupEndpointsHandler(t *testing.T) {
	db := &MockEndpointDatabase{}
	db.On("DeleteMany", mock.Anything, mock.Anything).Return(int64(7), nil)

	e := handlers.Endpoint{Registry: &notifications.Registry{DB: db}}

	req := httptest.NewRequest("POST", "/api/v1/endpoints/cleanup?days=14", nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(e.CleanupEndpointsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"removed":7`)
}

func TestEndpoint_ValidateTokensHandler(t *testing.T) {
	sender := &fakeSender{respond: allOK}
	e := handlers.Endpoint{Registry: &notifications.Registry{DB: &MockEndpointDatabase{}, Sender: sender}}

	req := httptest.NewRequest("POST", "/api/v1/endpoints/validate", strings.NewReader(`{"tokens":["a","b"]}`))
	rr := httptest.NewRecorder()

	http.HandlerFunc(e.ValidateTokensHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"valid":["a","b"]`)
}
