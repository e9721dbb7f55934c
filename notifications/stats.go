package notifications

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatsFilter narrows the aggregation to a user, kind or time window.
// Zero values leave the corresponding dimension unfiltered.
type StatsFilter struct {
	UserID string
	Kind   string
	Since  *time.Time
	Until  *time.Time
}

// StatsReport aggregates delivery history over a window
type StatsReport struct {
	TotalNotifications int64            `json:"totalNotifications"`
	ByStatus           map[string]int64 `json:"byStatus"`
	ByKind             map[string]int64 `json:"byType"`
	TotalSuccess       int64            `json:"totalSuccess"`
	TotalFailure       int64            `json:"totalFailure"`
	SuccessRate        float64          `json:"successRate"`
}

type statsRow struct {
	ID struct {
		Status string `bson:"status"`
		Kind   string `bson:"type"`
	} `bson:"_id"`
	Count   int64   `bson:"count"`
	Success int64   `bson:"success"`
	Failure int64   `bson:"failure"`
	RateSum float64 `bson:"rateSum"`
}

// Stats summarizes notification outcomes. SuccessRate is the average of each
// record's own success ratio, so a small broadcast and a huge one weigh the
// same.
func (s *Service) Stats(ctx context.Context, filter StatsFilter) (*StatsReport, error) {
	match := bson.M{}
	if filter.UserID != "" {
		match["userId"] = filter.UserID
	}
	if filter.Kind != "" {
		match["type"] = filter.Kind
	}
	if filter.Since != nil || filter.Until != nil {
		created := bson.M{}
		if filter.Since != nil {
			created["$gte"] = primitive.NewDateTimeFromTime(*filter.Since)
		}
		if filter.Until != nil {
			created["$lte"] = primitive.NewDateTimeFromTime(*filter.Until)
		}
		match["createdAt"] = created
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":     bson.M{"status": "$status", "type": "$type"},
			"count":   bson.M{"$sum": 1},
			"success": bson.M{"$sum": bson.M{"$ifNull": []interface{}{"$deliveryDetails.successCount", 0}}},
			"failure": bson.M{"$sum": bson.M{"$ifNull": []interface{}{"$deliveryDetails.failureCount", 0}}},
			"rateSum": bson.M{"$sum": bson.M{"$cond": []interface{}{
				bson.M{"$gt": []interface{}{"$deliveryDetails.totalEndpoints", 0}},
				bson.M{"$divide": []interface{}{"$deliveryDetails.successCount", "$deliveryDetails.totalEndpoints"}},
				0,
			}}},
		}},
	}

	cur, err := s.DB.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []statsRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	report := &StatsReport{
		ByStatus: map[string]int64{},
		ByKind:   map[string]int64{},
	}
	var rateSum float64
	for _, row := range rows {
		report.TotalNotifications += row.Count
		report.ByStatus[row.ID.Status] += row.Count
		report.ByKind[row.ID.Kind] += row.Count
		report.TotalSuccess += row.Success
		report.TotalFailure += row.Failure
		rateSum += row.RateSum
	}
	if report.TotalNotifications > 0 {
		report.SuccessRate = rateSum / float64(report.TotalNotifications)
	}
	return report, nil
}
