package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery frequency options
const (
	FrequencyImmediate   = "immediate"
	FrequencyBatched     = "batched"
	FrequencyDailyDigest = "daily_digest"
)

// ValidFrequency reports whether f is a known delivery frequency
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyImmediate, FrequencyBatched, FrequencyDailyDigest:
		return true
	}
	return false
}

// Preferences holds the structure for the preferences collection in mongo,
// one document per user
type Preferences struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID        string             `json:"userId" bson:"userId"`
	GlobalEnabled bool               `json:"globalEnabled" bson:"globalEnabled"`
	Categories    map[string]bool    `json:"categories" bson:"categories"`
	QuietHours    QuietHours         `json:"quietHours" bson:"quietHours"`
	Frequency     string             `json:"frequency" bson:"frequency"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt     primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// QuietHours is a per-user window during which non-urgent notifications are
// suppressed. Times are "HH:MM" in 24hr format.
type QuietHours struct {
	Enabled   bool   `json:"enabled" bson:"enabled"`
	StartTime string `json:"startTime" bson:"startTime"`
	EndTime   string `json:"endTime" bson:"endTime"`
	Timezone  string `json:"timezone" bson:"timezone"`
}

// DefaultPreferences returns the all-defaults-permit preferences document
// for a user that has never saved any
func DefaultPreferences(userID string) Preferences {
	now := primitive.NewDateTimeFromTime(time.Now())
	return Preferences{
		UserID:        userID,
		GlobalEnabled: true,
		Categories: map[string]bool{
			"marketing":     true,
			"transactional": true,
			"alerts":        true,
			"social":        true,
			"news":          true,
		},
		QuietHours: QuietHours{
			Enabled:   false,
			StartTime: "22:00",
			EndTime:   "08:00",
			Timezone:  "UTC",
		},
		Frequency: FrequencyImmediate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
