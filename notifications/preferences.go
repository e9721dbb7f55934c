package notifications

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/databases"
)

// Block reasons returned by CanDeliver
const (
	ReasonDefaultPreferences = "default_preferences"
	ReasonAllowed            = "allowed"
	ReasonGloballyDisabled   = "globally_disabled"
	ReasonQuietHours         = "quiet_hours"
	ReasonErrorDefaultAllow  = "error_default_allow"
)

// DeliveryDecision is the outcome of a preference check
type DeliveryDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Filter decides whether delivery to a user is currently permitted. Now is
// the clock used for the quiet-hours comparison and defaults to time.Now.
type Filter struct {
	DB  databases.PreferencesDatabase
	Now func() time.Time
}

// CanDeliver checks the user's preferences for the given category. A missing
// preferences document permits everything, and any lookup fault fails open:
// delivery must never be starved by a preference-store error.
func (f *Filter) CanDeliver(ctx context.Context, userID, category string, urgent bool) DeliveryDecision {
	prefs, err := f.DB.FindOne(ctx, bson.M{"userId": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return DeliveryDecision{Allowed: true, Reason: ReasonDefaultPreferences}
		}
		zap.S().Errorw("preference lookup failed, allowing delivery", "error", err, "userId", userID)
		return DeliveryDecision{Allowed: true, Reason: ReasonErrorDefaultAllow}
	}

	if !prefs.GlobalEnabled {
		return DeliveryDecision{Allowed: false, Reason: ReasonGloballyDisabled}
	}

	if category != "" {
		if enabled, ok := prefs.Categories[category]; ok && !enabled {
			return DeliveryDecision{Allowed: false, Reason: "category_disabled:" + category}
		}
	}

	if prefs.QuietHours.Enabled && !urgent {
		now := time.Now()
		if f.Now != nil {
			now = f.Now()
		}
		// Simplified hour-of-day comparison in UTC; the stored timezone is
		// not consulted.
		hour := now.UTC().Hour()
		start, startErr := parseHour(prefs.QuietHours.StartTime)
		end, endErr := parseHour(prefs.QuietHours.EndTime)
		if startErr == nil && endErr == nil && inQuietWindow(hour, start, end) {
			return DeliveryDecision{Allowed: false, Reason: ReasonQuietHours}
		}
	}

	return DeliveryDecision{Allowed: true, Reason: ReasonAllowed}
}

// inQuietWindow reports whether hour falls in [start, end), where a start
// greater than the end means the window wraps midnight
func inQuietWindow(hour, start, end int) bool {
	if start > end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

func parseHour(hhmm string) (int, error) {
	h, _, _ := strings.Cut(hhmm, ":")
	return strconv.Atoi(h)
}
