package notifications

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/databases"
	"github.com/pushforge/push-delivery-api/fcm"
	"github.com/pushforge/push-delivery-api/models"
)

// DispatchOutcome aggregates per-endpoint results across every batch of one
// send call. SuccessCount+FailureCount always equals TotalEndpoints.
type DispatchOutcome struct {
	TotalEndpoints int                      `json:"totalEndpoints"`
	SuccessCount   int                      `json:"successCount"`
	FailureCount   int                      `json:"failureCount"`
	InvalidTokens  []string                 `json:"invalidTokens,omitempty"`
	PerBatchErrors []string                 `json:"perBatchErrors,omitempty"`
	TokenSuccess   map[string]bool          `json:"-"`
	Responses      []*fcm.MulticastResponse `json:"-"`
}

// Dispatcher partitions endpoint lists into provider-sized batches and sends
// them, absorbing batch-level failures into the aggregate outcome
type Dispatcher struct {
	Sender    fcm.Sender
	Endpoints databases.EndpointDatabase
}

// Send delivers one message to every given endpoint. Batches that fail
// entirely count all of their tokens as failed; dispatch always continues
// with the remaining batches. Pruning the returned invalid tokens is the
// caller's responsibility.
func (d *Dispatcher) Send(ctx context.Context, endpoints []models.Endpoint, title, body string, data map[string]string) *DispatchOutcome {
	outcome := &DispatchOutcome{
		TotalEndpoints: len(endpoints),
		TokenSuccess:   make(map[string]bool, len(endpoints)),
	}
	if len(endpoints) == 0 {
		return outcome
	}

	tokens := make([]string, len(endpoints))
	for i, e := range endpoints {
		tokens[i] = e.Token
	}

	for i := 0; i < len(tokens); i += fcm.MaxTokensPerMulticast {
		end := i + fcm.MaxTokensPerMulticast
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[i:end]

		resp, err := d.Sender.SendMulticast(ctx, title, body, data, batch)
		if err != nil {
			zap.S().Errorw("multicast batch failed", "error", err, "batchStart", i, "batchSize", len(batch))
			outcome.FailureCount += len(batch)
			outcome.PerBatchErrors = append(outcome.PerBatchErrors, err.Error())
			continue
		}
		outcome.Responses = append(outcome.Responses, resp)

		if len(resp.Results) == len(batch) {
			for j, res := range resp.Results {
				outcome.TokenSuccess[batch[j]] = res.Success
				if res.Success {
					outcome.SuccessCount++
					continue
				}
				outcome.FailureCount++
				if fcm.IsInvalidToken(res.ErrorCode) {
					outcome.InvalidTokens = append(outcome.InvalidTokens, batch[j])
				}
			}
		} else {
			// Results did not line up with the batch; fall back to the
			// provider's counts so the aggregate invariant still holds.
			zap.S().Warnw("provider result count mismatch",
				"expected", len(batch), "got", len(resp.Results))
			success := resp.SuccessCount
			if success > len(batch) {
				success = len(batch)
			}
			outcome.SuccessCount += success
			outcome.FailureCount += len(batch) - success
		}
	}

	d.refreshLastUsed(ctx, tokens)
	return outcome
}

// refreshLastUsed stamps lastUsedAt on every attempted token. Best effort:
// a failure here never affects the dispatch outcome.
func (d *Dispatcher) refreshLastUsed(ctx context.Context, tokens []string) {
	now := primitive.NewDateTimeFromTime(time.Now())
	_, err := d.Endpoints.UpdateMany(ctx,
		bson.M{"token": bson.M{"$in": tokens}},
		bson.M{"$set": bson.M{"lastUsedAt": now}},
	)
	if err != nil {
		zap.S().Warnw("failed to refresh lastUsedAt", "error", err, "tokens", len(tokens))
	}
}

// StringifyData coerces an arbitrary payload map to the string-valued map
// the provider requires
func StringifyData(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
