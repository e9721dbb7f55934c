package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/api"
	"github.com/pushforge/push-delivery-api/config"
	"github.com/pushforge/push-delivery-api/notifications"
)

// Endpoint exported for testing purposes
type Endpoint struct {
	Registry *notifications.Registry
}

// RegisterEndpointHandler registers or refreshes a device endpoint
func (e Endpoint) RegisterEndpointHandler(w http.ResponseWriter, r *http.Request) {
	var req notifications.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	endpoint, err := e.Registry.Register(ctx, req)
	if err != nil {
		engineError("failed to register endpoint", w, err)
		return
	}

	b, err := json.Marshal(endpoint)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// UserEndpointsHandler returns the endpoints registered for a user
func (e Endpoint) UserEndpointsHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	activeOnly := r.URL.Query().Get("active") != "false"

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	endpoints, err := e.Registry.ListForUser(ctx, userID, activeOnly)
	if err != nil {
		engineError("failed to get endpoints", w, err)
		return
	}

	b, err := json.Marshal(endpoints)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeactivateEndpointHandler marks an endpoint inactive
func (e Endpoint) DeactivateEndpointHandler(w http.ResponseWriter, r *http.Request) {
	endpointID := mux.Vars(r)["endpoint_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := e.Registry.Deactivate(ctx, endpointID); err != nil {
		engineError("failed to deactivate endpoint", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"deactivated": true}`))
}

// CleanupEndpointsHandler removes inactive endpoints unused for the given
// number of days (default 30)
func (e Endpoint) CleanupEndpointsHandler(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			config.ErrorStatus("days must be a positive integer", http.StatusBadRequest, w, err)
			return
		}
		days = parsed
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	removed, err := e.Registry.SweepStale(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		engineError("failed to clean up endpoints", w, err)
		return
	}
	zap.S().Infow("endpoint cleanup complete", "removed", removed, "days", days)

	b, err := json.Marshal(map[string]interface{}{"removed": removed, "days": days})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ValidateTokensHandler checks a list of tokens against the provider
func (e Endpoint) ValidateTokensHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tokens []string `json:"tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if len(req.Tokens) == 0 {
		config.ErrorStatus("tokens is required", http.StatusBadRequest, w, errors.New("empty token list"))
		return
	}

	validation := e.Registry.ValidateTokens(r.Context(), req.Tokens)

	b, err := json.Marshal(validation)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
