package notifications

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pushforge/push-delivery-api/databases"
	"github.com/pushforge/push-delivery-api/models"
)

// Recorder persists one history record per (recipient, notification) pair
type Recorder struct {
	DB databases.NotificationDatabase
}

// RecordHandle refers to an open (pending) notification record. It must be
// closed exactly once.
type RecordHandle struct {
	ID     primitive.ObjectID
	UserID string

	total  int
	closed bool
}

// DeriveStatus computes the final record status from the outcome counts
func DeriveStatus(total, success, failure int) string {
	switch {
	case failure == total:
		return models.StatusFailed
	case success == total:
		return models.StatusSent
	default:
		return models.StatusPartial
	}
}

// Open creates a pending record for a delivery that is about to be attempted
func (r *Recorder) Open(ctx context.Context, userID, title, body string, data map[string]string, kind string, totalTargets int) (*RecordHandle, error) {
	record := models.NotificationRecord{
		ID:     primitive.NewObjectID(),
		UserID: userID,
		Title:  title,
		Body:   body,
		Data:   data,
		Kind:   kind,
		Status: models.StatusPending,
		Delivery: models.DeliveryDetails{
			TotalEndpoints: totalTargets,
		},
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
	}
	if _, err := r.DB.InsertOne(ctx, record); err != nil {
		return nil, err
	}
	return &RecordHandle{ID: record.ID, UserID: userID, total: totalTargets}, nil
}

// Close finalizes a record with the dispatch outcome. Closing a handle twice
// is a programming error and panics.
func (r *Recorder) Close(ctx context.Context, h *RecordHandle, outcome *DispatchOutcome, providerResponse interface{}) error {
	h.markClosed()
	update := bson.M{"$set": bson.M{
		"status":                        DeriveStatus(h.total, outcome.SuccessCount, outcome.FailureCount),
		"sentAt":                        primitive.NewDateTimeFromTime(time.Now()),
		"deliveryDetails.successCount":  outcome.SuccessCount,
		"deliveryDetails.failureCount":  outcome.FailureCount,
		"deliveryDetails.invalidTokens": outcome.InvalidTokens,
		"providerResponse":              providerResponse,
	}}
	_, err := r.DB.UpdateOne(ctx, bson.M{"_id": h.ID}, update)
	return err
}

// CloseFailed finalizes a record for a send that failed as a whole, storing
// the error text. Closing a handle twice is a programming error and panics.
func (r *Recorder) CloseFailed(ctx context.Context, h *RecordHandle, sendErr error) error {
	h.markClosed()
	update := bson.M{"$set": bson.M{
		"status":                       models.StatusFailed,
		"sentAt":                       primitive.NewDateTimeFromTime(time.Now()),
		"deliveryDetails.failureCount": h.total,
		"error":                        sendErr.Error(),
	}}
	_, err := r.DB.UpdateOne(ctx, bson.M{"_id": h.ID}, update)
	return err
}

func (h *RecordHandle) markClosed() {
	if h.closed {
		panic("notification record " + h.ID.Hex() + " closed twice")
	}
	h.closed = true
}

// RecordCompleted inserts an already-finalized record in one write. Used on
// paths that compute the outcome per recipient after the fact, where there is
// no pending phase to close.
func (r *Recorder) RecordCompleted(ctx context.Context, userID, title, body string, data map[string]string, kind string, details models.DeliveryDetails) error {
	record := models.NotificationRecord{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Data:      data,
		Kind:      kind,
		Status:    DeriveStatus(details.TotalEndpoints, details.SuccessCount, details.FailureCount),
		SentAt:    primitive.NewDateTimeFromTime(time.Now()),
		Delivery:  details,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
	}
	_, err := r.DB.InsertOne(ctx, record)
	return err
}
