package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pushforge/push-delivery-api/api"
	"github.com/pushforge/push-delivery-api/config"
	"github.com/pushforge/push-delivery-api/notifications"
)

// Broadcast exported for testing purposes
type Broadcast struct {
	Orchestrator *notifications.Orchestrator
}

// CreateBroadcastHandler schedules a broadcast; one with no future
// scheduledFor is processed immediately
func (b Broadcast) CreateBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	var req notifications.CreateBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	broadcast, err := b.Orchestrator.Create(r.Context(), req)
	if err != nil {
		engineError("failed to create broadcast", w, err)
		return
	}

	resp, err := json.Marshal(broadcast)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(resp)
}

// BroadcastByIDHandler returns a broadcast by ID
func (b Broadcast) BroadcastByIDHandler(w http.ResponseWriter, r *http.Request) {
	broadcastID := mux.Vars(r)["broadcast_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	broadcast, err := b.Orchestrator.Get(ctx, broadcastID)
	if err != nil {
		engineError("failed to get broadcast", w, err)
		return
	}

	resp, err := json.Marshal(broadcast)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

// BroadcastsHandler lists broadcasts, newest first
func (b Broadcast) BroadcastsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	broadcasts, err := b.Orchestrator.List(ctx, q.Get("status"), page, limit)
	if err != nil {
		engineError("failed to get broadcasts", w, err)
		return
	}

	resp, err := json.Marshal(broadcasts)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}
