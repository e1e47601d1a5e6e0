package projections

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/cjdquick/putaway-service/internal/domain"
	pkgmongo "github.com/cjdquick/putaway-service/pkg/mongodb"
	"github.com/cjdquick/putaway-service/pkg/tenant"
)

// SummaryRepository computes dashboard counts straight off the task
// collection. The counts are small and the queries are covered by the
// status index, so no separate read model is maintained.
type SummaryRepository struct {
	collection *pkgmongo.CircuitBreakerCollection
}

// NewSummaryRepository creates a new SummaryRepository reading the given
// task collection.
func NewSummaryRepository(client *pkgmongo.CircuitBreakerClient, taskCollection string) *SummaryRepository {
	return &SummaryRepository{
		collection: client.Collection(taskCollection),
	}
}

// Summarize returns the open-task counts for the scope plus the number of
// tasks completed during the calendar day of now, in now's own location.
func (r *SummaryRepository) Summarize(ctx context.Context, scope *tenant.Scope, now time.Time) (*domain.TaskSummary, error) {
	summary := &domain.TaskSummary{}

	counts := []struct {
		status domain.TaskStatus
		target *int64
	}{
		{domain.TaskStatusPending, &summary.Pending},
		{domain.TaskStatusAssigned, &summary.Assigned},
		{domain.TaskStatusInProgress, &summary.InProgress},
	}
	for _, c := range counts {
		n, err := r.collection.CountDocuments(ctx, scope.FilterWith(bson.M{"status": c.status}))
		if err != nil {
			return nil, fmt.Errorf("failed to count %s tasks: %w", c.status, err)
		}
		*c.target = n
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	// A calendar day is not always 24 hours.
	endOfDay := startOfDay.AddDate(0, 0, 1)

	completedToday, err := r.collection.CountDocuments(ctx, scope.FilterWith(bson.M{
		"status":      domain.TaskStatusCompleted,
		"completedAt": bson.M{"$gte": startOfDay, "$lt": endOfDay},
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	summary.CompletedToday = completedToday

	summary.Total = summary.Pending + summary.Assigned + summary.InProgress
	return summary, nil
}
