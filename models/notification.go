package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Notification kinds
const (
	KindSingle    = "single"
	KindMultiple  = "multiple"
	KindBroadcast = "broadcast"
)

// Notification statuses
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusPartial = "partial"
)

// NotificationRecord holds the structure for the notifications collection in
// mongo, one row per delivery attempt
type NotificationRecord struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID           string             `json:"userId" bson:"userId"`
	Title            string             `json:"title" bson:"title"`
	Body             string             `json:"body" bson:"body"`
	Data             map[string]string  `json:"data" bson:"data"`
	Kind             string             `json:"type" bson:"type"` // "single", "multiple" or "broadcast"
	Status           string             `json:"status" bson:"status"`
	SentAt           primitive.DateTime `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	Delivery         DeliveryDetails    `json:"deliveryDetails" bson:"deliveryDetails"`
	ProviderResponse interface{}        `json:"providerResponse,omitempty" bson:"providerResponse,omitempty"`
	Error            string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt        primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// DeliveryDetails captures the per-record outcome counts
type DeliveryDetails struct {
	TotalEndpoints int      `json:"totalEndpoints" bson:"totalEndpoints"`
	SuccessCount   int      `json:"successCount" bson:"successCount"`
	FailureCount   int      `json:"failureCount" bson:"failureCount"`
	InvalidTokens  []string `json:"invalidTokens,omitempty" bson:"invalidTokens,omitempty"`
}
