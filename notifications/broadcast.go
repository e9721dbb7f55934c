package notifications

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/databases"
	"github.com/pushforge/push-delivery-api/fcm"
	"github.com/pushforge/push-delivery-api/models"
)

// Orchestrator owns the broadcast lifecycle: a broadcast is created as
// scheduled, claimed into processing by exactly one worker, and finishes
// completed or failed
type Orchestrator struct {
	DB         databases.BroadcastDatabase
	Registry   *Registry
	Dispatcher *Dispatcher
	Recorder   *Recorder

	// RecordPerRecipient writes an individual history record for every
	// user a broadcast reaches. Off by default, the per-recipient volume
	// is significant on large fleets.
	RecordPerRecipient bool

	// Now is swappable for tests
	Now func() time.Time
}

// CreateBroadcastRequest describes a broadcast to schedule
type CreateBroadcastRequest struct {
	Title          string                `json:"title"`
	Body           string                `json:"body"`
	Data           map[string]string     `json:"data,omitempty"`
	TargetCriteria models.TargetCriteria `json:"targetCriteria,omitempty"`
	ScheduledFor   *time.Time            `json:"scheduledFor,omitempty"`
	CreatedBy      string                `json:"createdBy,omitempty"`
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Create schedules a broadcast. A broadcast whose scheduledFor is absent or
// already past is processed immediately on the caller's goroutine; processing
// failures are logged, the stored broadcast carries the outcome either way.
func (o *Orchestrator) Create(ctx context.Context, req CreateBroadcastRequest) (*models.Broadcast, error) {
	if req.Title == "" || req.Body == "" {
		return nil, newValidationError("missing required fields: title, body")
	}

	now := o.now()
	scheduledFor := now
	if req.ScheduledFor != nil {
		scheduledFor = *req.ScheduledFor
	}

	broadcast := models.Broadcast{
		ID:             primitive.NewObjectID(),
		Title:          req.Title,
		Body:           req.Body,
		Data:           req.Data,
		TargetCriteria: req.TargetCriteria,
		ScheduledFor:   primitive.NewDateTimeFromTime(scheduledFor),
		Status:         models.BroadcastScheduled,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      primitive.NewDateTimeFromTime(now),
	}
	if _, err := o.DB.InsertOne(ctx, broadcast); err != nil {
		return nil, err
	}

	if !scheduledFor.After(now) {
		if err := o.Process(ctx, broadcast.ID); err != nil {
			zap.S().Errorw("immediate broadcast processing failed", "error", err, "broadcastId", broadcast.ID.Hex())
		}
		return o.Get(ctx, broadcast.ID.Hex())
	}
	return &broadcast, nil
}

// Get loads one broadcast by hex id
func (o *Orchestrator) Get(ctx context.Context, broadcastID string) (*models.Broadcast, error) {
	oid, err := primitive.ObjectIDFromHex(broadcastID)
	if err != nil {
		return nil, newValidationError("invalid broadcast id %q", broadcastID)
	}
	broadcast, err := o.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, newNotFoundError("broadcast %s not found", broadcastID)
		}
		return nil, err
	}
	return broadcast, nil
}

// List pages broadcasts, optionally filtered by status, newest first
func (o *Orchestrator) List(ctx context.Context, status string, page, limit int) ([]models.Broadcast, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := databases.Paginate(limit, page).SetSort(bson.M{"createdAt": -1})
	broadcasts, err := o.DB.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if broadcasts == nil {
		broadcasts = []models.Broadcast{}
	}
	return broadcasts, nil
}

// Process claims and runs one scheduled broadcast. The claim is a conditional
// update on status, so concurrent workers racing for the same broadcast
// resolve to a single winner and the losers return nil without side effects.
func (o *Orchestrator) Process(ctx context.Context, id primitive.ObjectID) error {
	broadcast, err := o.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return newNotFoundError("broadcast %s not found", id.Hex())
		}
		return err
	}
	if broadcast.Status != models.BroadcastScheduled {
		return nil
	}

	res, err := o.DB.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.BroadcastScheduled},
		bson.M{"$set": bson.M{"status": models.BroadcastProcessing}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// another worker claimed it first
		return nil
	}

	stats, err := o.run(ctx, broadcast)
	if err != nil {
		o.markFailed(ctx, id, err)
		return err
	}

	_, err = o.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":      models.BroadcastCompleted,
		"stats":       stats,
		"completedAt": primitive.NewDateTimeFromTime(o.now()),
	}})
	if err != nil {
		// never strand the broadcast in processing
		o.markFailed(ctx, id, err)
		return err
	}
	zap.S().Infow("broadcast completed",
		"broadcastId", id.Hex(),
		"targeted", stats.TotalTargeted,
		"sent", stats.TotalSent,
		"failed", stats.TotalFailed,
	)
	return nil
}

// run resolves the target endpoints and drives them through the dispatcher
// in provider-sized chunks
func (o *Orchestrator) run(ctx context.Context, broadcast *models.Broadcast) (*models.BroadcastStats, error) {
	endpoints, err := o.Registry.ResolveActive(ctx, broadcast.TargetCriteria.UserIDs, broadcast.TargetCriteria.DeviceTypes)
	if err != nil {
		return nil, err
	}

	stats := &models.BroadcastStats{TotalTargeted: len(endpoints)}
	if len(endpoints) == 0 {
		return stats, nil
	}

	var invalidTokens []string
	for i := 0; i < len(endpoints); i += fcm.MaxTokensPerMulticast {
		end := i + fcm.MaxTokensPerMulticast
		if end > len(endpoints) {
			end = len(endpoints)
		}
		chunk := endpoints[i:end]

		outcome := o.Dispatcher.Send(ctx, chunk, broadcast.Title, broadcast.Body, broadcast.Data)
		stats.TotalSent += outcome.SuccessCount
		stats.TotalFailed += outcome.FailureCount
		invalidTokens = append(invalidTokens, outcome.InvalidTokens...)

		if o.RecordPerRecipient {
			o.recordRecipients(ctx, broadcast, chunk, outcome)
		}
	}

	if len(invalidTokens) > 0 {
		if pruned, err := o.Registry.PruneInvalid(ctx, invalidTokens); err != nil {
			zap.S().Errorw("failed to prune invalid tokens", "error", err, "broadcastId", broadcast.ID.Hex())
		} else {
			zap.S().Infow("pruned invalid endpoints", "count", pruned, "broadcastId", broadcast.ID.Hex())
		}
	}
	return stats, nil
}

func (o *Orchestrator) recordRecipients(ctx context.Context, broadcast *models.Broadcast, endpoints []models.Endpoint, outcome *DispatchOutcome) {
	perUser := make(map[string]*models.DeliveryDetails)
	for _, e := range endpoints {
		details, ok := perUser[e.UserID]
		if !ok {
			details = &models.DeliveryDetails{}
			perUser[e.UserID] = details
		}
		details.TotalEndpoints++
		if outcome.TokenSuccess[e.Token] {
			details.SuccessCount++
		} else {
			details.FailureCount++
		}
	}
	for userID, details := range perUser {
		if err := o.Recorder.RecordCompleted(ctx, userID, broadcast.Title, broadcast.Body, broadcast.Data, models.KindBroadcast, *details); err != nil {
			zap.S().Errorw("failed to record broadcast delivery", "error", err, "userId", userID, "broadcastId", broadcast.ID.Hex())
		}
	}
}

// markFailed is best effort; the processing error it annotates has already
// been surfaced to the caller
func (o *Orchestrator) markFailed(ctx context.Context, id primitive.ObjectID, cause error) {
	_, err := o.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":      models.BroadcastFailed,
		"completedAt": primitive.NewDateTimeFromTime(o.now()),
	}})
	if err != nil {
		zap.S().Errorw("failed to mark broadcast failed", "error", err, "broadcastId", id.Hex(), "cause", cause)
	}
}

// ProcessDue claims and runs every broadcast whose scheduled time has
// arrived, returning how many were picked up
func (o *Orchestrator) ProcessDue(ctx context.Context) (int, error) {
	due, err := o.DB.Find(ctx, bson.M{
		"status":       models.BroadcastScheduled,
		"scheduledFor": bson.M{"$lte": primitive.NewDateTimeFromTime(o.now())},
	})
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, b := range due {
		if err := o.Process(ctx, b.ID); err != nil {
			zap.S().Errorw("scheduled broadcast processing failed", "error", err, "broadcastId", b.ID.Hex())
			continue
		}
		processed++
	}
	return processed, nil
}
