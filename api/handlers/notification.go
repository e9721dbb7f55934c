package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pushforge/push-delivery-api/api"
	"github.com/pushforge/push-delivery-api/config"
	"github.com/pushforge/push-delivery-api/notifications"
)

// Notification exported for testing purposes
type Notification struct {
	Service *notifications.Service
}

// SendHandler delivers a notification to a single user's devices
func (n Notification) SendHandler(w http.ResponseWriter, r *http.Request) {
	var req notifications.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	outcome, err := n.Service.SendToUser(r.Context(), req)
	if err != nil {
		engineError("failed to send notification", w, err)
		return
	}

	n.writeOutcome(w, outcome)
}

// SendMultipleHandler delivers a notification to a set of users
func (n Notification) SendMultipleHandler(w http.ResponseWriter, r *http.Request) {
	var req notifications.MultiSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	outcome, err := n.Service.SendToUsers(r.Context(), req)
	if err != nil {
		engineError("failed to send notifications", w, err)
		return
	}

	b, err := json.Marshal(outcome)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// SendTemplateHandler delivers a built-in template to a single user
func (n Notification) SendTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Template string        `json:"template"`
		UserID   string        `json:"userId"`
		Args     []interface{} `json:"args,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	sendReq, err := notifications.RenderTemplate(req.Template, req.UserID, req.Args...)
	if err != nil {
		engineError("failed to render template", w, err)
		return
	}

	outcome, err := n.Service.SendToUser(r.Context(), *sendReq)
	if err != nil {
		engineError("failed to send notification", w, err)
		return
	}

	n.writeOutcome(w, outcome)
}

// RetryHandler re-sends a failed notification
func (n Notification) RetryHandler(w http.ResponseWriter, r *http.Request) {
	notificationID := mux.Vars(r)["notification_id"]

	outcome, err := n.Service.RetryNotification(r.Context(), notificationID)
	if err != nil {
		engineError("failed to retry notification", w, err)
		return
	}

	n.writeOutcome(w, outcome)
}

// HistoryHandler lists notification history, newest first
func (n Notification) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	history, err := n.Service.History(ctx, notifications.HistoryFilter{
		UserID: q.Get("userId"),
		Status: q.Get("status"),
		Kind:   q.Get("type"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		engineError("failed to get notification history", w, err)
		return
	}

	b, err := json.Marshal(history)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// StatsHandler summarizes delivery outcomes
func (n Notification) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	query := r.URL.Query()
	filter := notifications.StatsFilter{
		UserID: query.Get("userId"),
		Kind:   query.Get("type"),
	}
	if raw := query.Get("startDate"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			config.ErrorStatus("failed to parse startDate", http.StatusBadRequest, w, err)
			return
		}
		filter.Since = &since
	}
	if raw := query.Get("endDate"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			config.ErrorStatus("failed to parse endDate", http.StatusBadRequest, w, err)
			return
		}
		filter.Until = &until
	}

	report, err := n.Service.Stats(ctx, filter)
	if err != nil {
		engineError("failed to get notification stats", w, err)
		return
	}

	b, err := json.Marshal(report)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (n Notification) writeOutcome(w http.ResponseWriter, outcome *notifications.SendOutcome) {
	b, err := json.Marshal(outcome)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
