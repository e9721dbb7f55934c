package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Broadcast statuses
const (
	BroadcastScheduled  = "scheduled"
	BroadcastProcessing = "processing"
	BroadcastCompleted  = "completed"
	BroadcastFailed     = "failed"
)

// Broadcast holds the structure for the broadcasts collection in mongo, a
// deferred or immediate multi-recipient send
type Broadcast struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title"`
	Body           string             `json:"body" bson:"body"`
	Data           map[string]string  `json:"data" bson:"data"`
	TargetCriteria TargetCriteria     `json:"targetCriteria" bson:"targetCriteria"`
	ScheduledFor   primitive.DateTime `json:"scheduledFor" bson:"scheduledFor"`
	Status         string             `json:"status" bson:"status"`
	Stats          BroadcastStats     `json:"stats" bson:"stats"`
	CreatedBy      string             `json:"createdBy" bson:"createdBy"`
	CreatedAt      primitive.DateTime `json:"createdAt" bson:"createdAt"`
	CompletedAt    primitive.DateTime `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// TargetCriteria narrows the endpoints a broadcast addresses. Empty criteria
// means all active endpoints.
type TargetCriteria struct {
	UserIDs     []string `json:"userIds,omitempty" bson:"userIds,omitempty"`
	DeviceTypes []string `json:"deviceTypes,omitempty" bson:"deviceTypes,omitempty"`
}

// BroadcastStats holds the aggregate outcome of a processed broadcast
type BroadcastStats struct {
	TotalTargeted int `json:"totalTargeted" bson:"totalTargeted"`
	TotalSent     int `json:"totalSent" bson:"totalSent"`
	TotalFailed   int `json:"totalFailed" bson:"totalFailed"`
}
