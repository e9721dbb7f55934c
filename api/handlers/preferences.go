package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pushforge/push-delivery-api/api"
	"github.com/pushforge/push-delivery-api/config"
	"github.com/pushforge/push-delivery-api/databases"
	"github.com/pushforge/push-delivery-api/models"
)

// Preferences exported for testing purposes
type Preferences struct {
	DB databases.PreferencesDatabase
}

// GetPreferencesHandler returns a user's notification preferences, falling
// back to defaults when none are stored
func (p Preferences) GetPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	prefs, err := p.DB.FindOne(ctx, bson.M{"userId": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			defaults := models.DefaultPreferences(userID)
			prefs = &defaults
		} else {
			config.ErrorStatus("failed to get preferences", http.StatusInternalServerError, w, err)
			return
		}
	}

	b, err := json.Marshal(prefs)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdatePreferencesHandler stores a user's notification preferences,
// creating them on first write
func (p Preferences) UpdatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var req struct {
		GlobalEnabled *bool              `json:"globalEnabled,omitempty"`
		Categories    map[string]bool    `json:"categories,omitempty"`
		QuietHours    *models.QuietHours `json:"quietHours,omitempty"`
		Frequency     string             `json:"frequency,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Frequency != "" && !models.ValidFrequency(req.Frequency) {
		config.ErrorStatus("invalid frequency", http.StatusBadRequest, w, errors.New("frequency must be immediate, batched or daily_digest"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())

	prefs, err := p.DB.FindOne(ctx, bson.M{"userId": userID})
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("failed to get preferences", http.StatusInternalServerError, w, err)
			return
		}
		defaults := models.DefaultPreferences(userID)
		defaults.ID = primitive.NewObjectID()
		defaults.CreatedAt = now
		defaults.UpdatedAt = now
		if _, err := p.DB.InsertOne(ctx, defaults); err != nil {
			config.ErrorStatus("failed to create preferences", http.StatusInternalServerError, w, err)
			return
		}
		prefs = &defaults
	}

	set := bson.M{"updatedAt": now}
	if req.GlobalEnabled != nil {
		set["globalEnabled"] = *req.GlobalEnabled
		prefs.GlobalEnabled = *req.GlobalEnabled
	}
	if req.Categories != nil {
		// merge category by category so a partial update keeps the rest
		if prefs.Categories == nil {
			prefs.Categories = map[string]bool{}
		}
		for category, enabled := range req.Categories {
			prefs.Categories[category] = enabled
		}
		set["categories"] = prefs.Categories
	}
	if req.QuietHours != nil {
		set["quietHours"] = *req.QuietHours
		prefs.QuietHours = *req.QuietHours
	}
	if req.Frequency != "" {
		set["frequency"] = req.Frequency
		prefs.Frequency = req.Frequency
	}

	if _, err := p.DB.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update preferences", http.StatusInternalServerError, w, err)
		return
	}
	prefs.UpdatedAt = now

	b, err := json.Marshal(prefs)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ResetPreferencesHandler removes stored preferences so the user falls back
// to defaults
func (p Preferences) ResetPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := p.DB.DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
		config.ErrorStatus("failed to reset preferences", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"reset": true}`))
}
