package notifications

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/databases"
	"github.com/pushforge/push-delivery-api/fcm"
	"github.com/pushforge/push-delivery-api/models"
)

const validationBatchSize = 100

// Registry owns the device-endpoint records and their lifecycle
type Registry struct {
	DB     databases.EndpointDatabase
	Sender fcm.Sender
}

// RegisterRequest carries the fields of an endpoint registration
type RegisterRequest struct {
	UserID     string `json:"userId"`
	Token      string `json:"token"`
	DeviceID   string `json:"deviceId"`
	DeviceType string `json:"deviceType"`
	AppVersion string `json:"appVersion,omitempty"`
}

// Register stores or refreshes an endpoint. Re-registering a known token
// updates it in place; a new token for a known device deactivates the
// device's previous endpoint first.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*models.Endpoint, error) {
	if req.UserID == "" || req.Token == "" || req.DeviceID == "" || req.DeviceType == "" {
		return nil, newValidationError("missing required fields: userId, token, deviceId, deviceType")
	}
	if !models.ValidDeviceType(req.DeviceType) {
		return nil, newValidationError("invalid deviceType %q, allowed values are ios, android, web", req.DeviceType)
	}

	now := primitive.NewDateTimeFromTime(time.Now())

	existing, err := r.DB.FindOne(ctx, bson.M{"token": req.Token})
	if err == nil {
		update := bson.M{"$set": bson.M{
			"userId":     req.UserID,
			"deviceId":   req.DeviceID,
			"deviceType": req.DeviceType,
			"appVersion": req.AppVersion,
			"isActive":   true,
			"lastUsedAt": now,
			"updatedAt":  now,
		}}
		if _, err := r.DB.UpdateOne(ctx, bson.M{"_id": existing.ID}, update); err != nil {
			return nil, err
		}
		existing.UserID = req.UserID
		existing.DeviceID = req.DeviceID
		existing.DeviceType = req.DeviceType
		existing.AppVersion = req.AppVersion
		existing.IsActive = true
		existing.LastUsedAt = now
		existing.UpdatedAt = now
		return existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// New token: supersede any active endpoint on the same device first
	_, err = r.DB.UpdateMany(ctx,
		bson.M{"userId": req.UserID, "deviceId": req.DeviceID, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}},
	)
	if err != nil {
		return nil, err
	}

	endpoint := models.Endpoint{
		ID:         primitive.NewObjectID(),
		UserID:     req.UserID,
		Token:      req.Token,
		DeviceID:   req.DeviceID,
		DeviceType: req.DeviceType,
		AppVersion: req.AppVersion,
		IsActive:   true,
		LastUsedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := r.DB.InsertOne(ctx, endpoint); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// ListForUser returns a user's endpoints, newest first
func (r *Registry) ListForUser(ctx context.Context, userID string, activeOnly bool) ([]models.Endpoint, error) {
	filter := bson.M{"userId": userID}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	endpoints, err := r.DB.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if endpoints == nil {
		endpoints = []models.Endpoint{}
	}
	return endpoints, nil
}

// Deactivate marks a single endpoint inactive by its ID
func (r *Registry) Deactivate(ctx context.Context, endpointID string) error {
	oid, err := primitive.ObjectIDFromHex(endpointID)
	if err != nil {
		return newValidationError("invalid endpoint id %q", endpointID)
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := r.DB.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return newNotFoundError("endpoint %s not found", endpointID)
	}
	return nil
}

// ResolveActive returns all active endpoints matching the given userID and
// deviceType membership. Empty slices mean no constraint on that field.
func (r *Registry) ResolveActive(ctx context.Context, userIDs, deviceTypes []string) ([]models.Endpoint, error) {
	filter := bson.M{"isActive": true}
	if len(userIDs) > 0 {
		filter["userId"] = bson.M{"$in": userIDs}
	}
	if len(deviceTypes) > 0 {
		filter["deviceType"] = bson.M{"$in": deviceTypes}
	}
	endpoints, err := r.DB.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return endpoints, nil
}

// PruneInvalid marks the given tokens inactive. Idempotent: tokens already
// inactive are not counted again.
func (r *Registry) PruneInvalid(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := r.DB.UpdateMany(ctx,
		bson.M{"token": bson.M{"$in": tokens}, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SweepStale hard-deletes endpoints that are inactive and have not been used
// within the given duration
func (r *Registry) SweepStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := primitive.NewDateTimeFromTime(time.Now().Add(-olderThan))
	return r.DB.DeleteMany(ctx, bson.M{
		"isActive":   false,
		"lastUsedAt": bson.M{"$lt": cutoff},
	})
}

// InvalidToken pairs a rejected token with the provider's error code
type InvalidToken struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

// TokenValidation is the outcome of a validation sweep over a token list
type TokenValidation struct {
	Valid   []string       `json:"valid"`
	Invalid []InvalidToken `json:"invalid"`
}

// ValidateTokens probes the provider with a test payload and splits the
// tokens into valid and invalid sets. A whole-batch failure marks every
// token in that batch invalid.
func (r *Registry) ValidateTokens(ctx context.Context, tokens []string) *TokenValidation {
	result := &TokenValidation{Valid: []string{}, Invalid: []InvalidToken{}}
	if len(tokens) == 0 {
		return result
	}

	for i := 0; i < len(tokens); i += validationBatchSize {
		end := i + validationBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[i:end]

		resp, err := r.Sender.SendMulticast(ctx, "", "", map[string]string{"test": "validation"}, batch)
		if err != nil {
			zap.S().Warnw("token validation batch failed", "error", err, "batchStart", i)
			for _, token := range batch {
				result.Invalid = append(result.Invalid, InvalidToken{Token: token, Error: "batch_validation_failed"})
			}
			continue
		}

		for j, res := range resp.Results {
			if j >= len(batch) {
				break
			}
			if res.Success {
				result.Valid = append(result.Valid, batch[j])
			} else {
				result.Invalid = append(result.Invalid, InvalidToken{Token: batch[j], Error: res.ErrorCode})
			}
		}
	}
	return result
}
