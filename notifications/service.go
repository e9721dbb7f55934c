package notifications

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/databases"
	"github.com/pushforge/push-delivery-api/models"
)

const (
	// DefaultCategory is assumed when a send request names no category
	DefaultCategory = "general"

	// maximum users accepted by one multi-user send request
	maxUsersPerSend = 500

	// users are resolved to endpoints in groups of this size
	userBatchSize = 100
)

// Service ties the registry, filter, dispatcher and recorder into the
// single-user and multi-user delivery pipelines
type Service struct {
	Registry   *Registry
	Filter     *Filter
	Dispatcher *Dispatcher
	Recorder   *Recorder
	DB         databases.NotificationDatabase
}

// SendRequest is a single-user delivery request
type SendRequest struct {
	UserID   string            `json:"userId"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Category string            `json:"category,omitempty"`
	Urgent   bool              `json:"urgent,omitempty"`
}

// SendOutcome summarizes a single-user delivery
type SendOutcome struct {
	NotificationID string   `json:"notificationId,omitempty"`
	TotalEndpoints int      `json:"totalEndpoints"`
	SuccessCount   int      `json:"successCount"`
	FailureCount   int      `json:"failureCount"`
	InvalidTokens  []string `json:"invalidTokens,omitempty"`
	Blocked        bool     `json:"blocked,omitempty"`
	BlockReason    string   `json:"blockReason,omitempty"`
}

// SendToUser resolves the user's active endpoints and delivers one message
// to all of them, recording the outcome. Preference blocks short-circuit
// before any endpoint is resolved.
func (s *Service) SendToUser(ctx context.Context, req SendRequest) (*SendOutcome, error) {
	if req.UserID == "" || req.Title == "" || req.Body == "" {
		return nil, newValidationError("missing required fields: userId, title, body")
	}

	category := req.Category
	if category == "" {
		category = DefaultCategory
	}
	if decision := s.Filter.CanDeliver(ctx, req.UserID, category, req.Urgent); !decision.Allowed {
		return &SendOutcome{Blocked: true, BlockReason: decision.Reason}, nil
	}

	endpoints, err := s.Registry.ListForUser(ctx, req.UserID, true)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, newNotFoundError("no active endpoints found for user %s", req.UserID)
	}

	handle, err := s.Recorder.Open(ctx, req.UserID, req.Title, req.Body, req.Data, models.KindSingle, len(endpoints))
	if err != nil {
		return nil, err
	}

	outcome := s.Dispatcher.Send(ctx, endpoints, req.Title, req.Body, req.Data)

	// Every batch failing at the transport level means the provider never
	// took the message at all; close the record as failed and surface it.
	if outcome.SuccessCount == 0 && len(outcome.PerBatchErrors) > 0 && len(outcome.InvalidTokens) == 0 {
		sendErr := &ProviderError{Err: errors.New(outcome.PerBatchErrors[0])}
		if cerr := s.Recorder.CloseFailed(ctx, handle, sendErr); cerr != nil {
			zap.S().Errorw("failed to close notification record", "error", cerr, "notificationId", handle.ID.Hex())
		}
		return nil, sendErr
	}

	s.pruneInvalid(ctx, outcome.InvalidTokens)

	if err := s.Recorder.Close(ctx, handle, outcome, rawResponses(outcome)); err != nil {
		// The send already happened; losing the history row is a logged
		// degradation, not a send failure.
		zap.S().Errorw("failed to close notification record", "error", err, "notificationId", handle.ID.Hex())
	}

	return &SendOutcome{
		NotificationID: handle.ID.Hex(),
		TotalEndpoints: outcome.TotalEndpoints,
		SuccessCount:   outcome.SuccessCount,
		FailureCount:   outcome.FailureCount,
		InvalidTokens:  outcome.InvalidTokens,
	}, nil
}

// MultiSendRequest is a delivery request addressed to a set of users
type MultiSendRequest struct {
	UserIDs  []string          `json:"userIds"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Category string            `json:"category,omitempty"`
	Urgent   bool              `json:"urgent,omitempty"`
}

// BatchResult is the outcome of one recipient batch within a multi-user send
type BatchResult struct {
	Batch          int    `json:"batch"`
	TotalEndpoints int    `json:"totalEndpoints"`
	SuccessCount   int    `json:"successCount"`
	FailureCount   int    `json:"failureCount"`
	Error          string `json:"error,omitempty"`
}

// MultiSendOutcome summarizes a multi-user delivery
type MultiSendOutcome struct {
	TotalUsers   int           `json:"totalUsers"`
	BlockedUsers int           `json:"blockedUsers"`
	TotalSuccess int           `json:"totalSuccess"`
	TotalFailure int           `json:"totalFailure"`
	BatchResults []BatchResult `json:"batchResults"`
}

// SendToUsers delivers one message to every listed user, batching recipients
// in groups of 100 before endpoint resolution to bound per-call size. Each
// user gets an individual history record.
func (s *Service) SendToUsers(ctx context.Context, req MultiSendRequest) (*MultiSendOutcome, error) {
	if len(req.UserIDs) == 0 || req.Title == "" || req.Body == "" {
		return nil, newValidationError("missing required fields: userIds, title, body")
	}
	if len(req.UserIDs) > maxUsersPerSend {
		return nil, newValidationError("maximum %d users allowed per request", maxUsersPerSend)
	}

	category := req.Category
	if category == "" {
		category = DefaultCategory
	}

	result := &MultiSendOutcome{TotalUsers: len(req.UserIDs), BatchResults: []BatchResult{}}
	var invalidTokens []string

	for i := 0; i < len(req.UserIDs); i += userBatchSize {
		end := i + userBatchSize
		if end > len(req.UserIDs) {
			end = len(req.UserIDs)
		}
		batchNumber := i/userBatchSize + 1

		var permitted []string
		for _, userID := range req.UserIDs[i:end] {
			if decision := s.Filter.CanDeliver(ctx, userID, category, req.Urgent); !decision.Allowed {
				result.BlockedUsers++
				continue
			}
			permitted = append(permitted, userID)
		}
		if len(permitted) == 0 {
			continue
		}

		endpoints, err := s.Registry.ResolveActive(ctx, permitted, nil)
		if err != nil {
			result.BatchResults = append(result.BatchResults, BatchResult{Batch: batchNumber, Error: err.Error()})
			continue
		}
		if len(endpoints) == 0 {
			continue
		}

		outcome := s.Dispatcher.Send(ctx, endpoints, req.Title, req.Body, req.Data)
		result.TotalSuccess += outcome.SuccessCount
		result.TotalFailure += outcome.FailureCount
		invalidTokens = append(invalidTokens, outcome.InvalidTokens...)

		s.recordPerUser(ctx, req, endpoints, outcome)

		batchResult := BatchResult{
			Batch:          batchNumber,
			TotalEndpoints: outcome.TotalEndpoints,
			SuccessCount:   outcome.SuccessCount,
			FailureCount:   outcome.FailureCount,
		}
		if len(outcome.PerBatchErrors) > 0 {
			batchResult.Error = outcome.PerBatchErrors[0]
		}
		result.BatchResults = append(result.BatchResults, batchResult)
	}

	s.pruneInvalid(ctx, invalidTokens)
	return result, nil
}

// recordPerUser writes one completed history record per user reached in a
// multi-user batch
func (s *Service) recordPerUser(ctx context.Context, req MultiSendRequest, endpoints []models.Endpoint, outcome *DispatchOutcome) {
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
		if err := s.Recorder.RecordCompleted(ctx, userID, req.Title, req.Body, req.Data, models.KindMultiple, *details); err != nil {
			zap.S().Errorw("failed to record multi-user delivery", "error", err, "userId", userID)
		}
	}
}

// RetryNotification re-runs a failed single-user notification
func (s *Service) RetryNotification(ctx context.Context, notificationID string) (*SendOutcome, error) {
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return nil, newValidationError("invalid notification id %q", notificationID)
	}

	record, err := s.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, newNotFoundError("notification %s not found", notificationID)
		}
		return nil, err
	}

	if record.Status != models.StatusFailed {
		return nil, newValidationError("only failed notifications can be retried, status is %q", record.Status)
	}
	if record.Kind != models.KindSingle {
		return nil, newValidationError("retry is only supported for single notifications, kind is %q", record.Kind)
	}

	return s.SendToUser(ctx, SendRequest{
		UserID: record.UserID,
		Title:  record.Title,
		Body:   record.Body,
		Data:   record.Data,
	})
}

// HistoryFilter narrows and pages a notification history query
type HistoryFilter struct {
	UserID string
	Status string
	Kind   string
	Page   int
	Limit  int
}

// HistoryPage is one page of notification history, newest first
type HistoryPage struct {
	Records []models.NotificationRecord `json:"data"`
	Page    int                         `json:"page"`
	Limit   int                         `json:"limit"`
	Total   int64                       `json:"total"`
	Pages   int                         `json:"pages"`
}

// History lists notification records matching the filter
func (s *Service) History(ctx context.Context, f HistoryFilter) (*HistoryPage, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Kind != "" {
		filter["type"] = f.Kind
	}

	opts := databases.Paginate(f.Limit, f.Page).SetSort(bson.M{"createdAt": -1})
	records, err := s.DB.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}

	total, err := s.DB.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &HistoryPage{
		Records: records,
		Page:    f.Page,
		Limit:   f.Limit,
		Total:   total,
		Pages:   int(math.Ceil(float64(total) / float64(f.Limit))),
	}, nil
}

func (s *Service) pruneInvalid(ctx context.Context, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	pruned, err := s.Registry.PruneInvalid(ctx, tokens)
	if err != nil {
		zap.S().Errorw("failed to prune invalid tokens", "error", err, "tokens", len(tokens))
		return
	}
	zap.S().Infow("pruned invalid endpoints", "count", pruned)
}

// rawResponses flattens the provider responses of an outcome for storage on
// the history record
func rawResponses(outcome *DispatchOutcome) interface{} {
	if len(outcome.Responses) == 1 {
		return outcome.Responses[0]
	}
	if len(outcome.Responses) == 0 {
		return nil
	}
	return outcome.Responses
}
