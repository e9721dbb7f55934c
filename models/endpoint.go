package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Allowed device types for an endpoint
const (
	DeviceTypeIOS     = "ios"
	DeviceTypeAndroid = "android"
	DeviceTypeWeb     = "web"
)

// Endpoint holds the structure for the endpoints collection in mongo. One
// endpoint is one registered device channel (provider token + device
// metadata) for a user.
type Endpoint struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID     string             `json:"userId" bson:"userId"`
	Token      string             `json:"token" bson:"token"` // provider registration token, globally unique
	DeviceID   string             `json:"deviceId" bson:"deviceId"`
	DeviceType string             `json:"deviceType" bson:"deviceType"` // "ios", "android" or "web"
	AppVersion string             `json:"appVersion,omitempty" bson:"appVersion,omitempty"`
	IsActive   bool               `json:"isActive" bson:"isActive"`
	LastUsedAt primitive.DateTime `json:"lastUsedAt" bson:"lastUsedAt"`
	CreatedAt  primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt  primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// ValidDeviceType reports whether t is one of the allowed device types
func ValidDeviceType(t string) bool {
	return t == DeviceTypeIOS || t == DeviceTypeAndroid || t == DeviceTypeWeb
}
