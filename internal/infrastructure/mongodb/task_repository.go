package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cjdquick/putaway-service/internal/domain"
	infrakafka "github.com/cjdquick/putaway-service/internal/infrastructure/kafka"
	"github.com/cjdquick/putaway-service/pkg/cloudevents"
	"github.com/cjdquick/putaway-service/pkg/logging"
	pkgmongo "github.com/cjdquick/putaway-service/pkg/mongodb"
	"github.com/cjdquick/putaway-service/pkg/outbox"
	outboxMongo "github.com/cjdquick/putaway-service/pkg/outbox/mongodb"
	"github.com/cjdquick/putaway-service/pkg/tenant"
)

const taskCollection = "putaway_tasks"

// TaskRepository implements domain.TaskRepository on MongoDB. Status writes
// are conditional on the status the task was read in, and domain events are
// stored in the outbox within the same transaction as the task write.
type TaskRepository struct {
	client       *pkgmongo.CircuitBreakerClient
	collection   *pkgmongo.CircuitBreakerCollection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	logger       *logging.Logger
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(client *pkgmongo.CircuitBreakerClient, eventFactory *cloudevents.EventFactory, logger *logging.Logger) *TaskRepository {
	repo := &TaskRepository{
		client:       client,
		collection:   client.Collection(taskCollection),
		outboxRepo:   outboxMongo.NewOutboxRepository(client.Database()),
		eventFactory: eventFactory,
		logger:       logger,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *TaskRepository) ensureIndexes(ctx context.Context) {
	indexes := append(tenant.Indexes(),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}, {Key: "taskNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		mongo.IndexModel{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}, {Key: "status", Value: 1}, {Key: "priority", Value: 1}, {Key: "createdAt", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}, {Key: "assignedToId", Value: 1}, {Key: "status", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}, {Key: "grnId", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}, {Key: "status", Value: 1}, {Key: "completedAt", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	)
	if _, err := r.collection.CreateIndexes(ctx, indexes); err != nil && r.logger != nil {
		r.logger.WithError(err).Warn("Failed to create task indexes")
	}

	if err := r.outboxRepo.EnsureIndexes(ctx); err != nil && r.logger != nil {
		r.logger.WithError(err).Warn("Failed to create outbox indexes")
	}
}

// Create persists a new task, runs the effects, and stores the task's domain
// events in the outbox, all in one transaction.
func (r *TaskRepository) Create(ctx context.Context, task *domain.PutawayTask, effects ...domain.EffectFn) error {
	return r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.collection.InsertOne(sessCtx, task); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("task number %s already exists: %w", task.TaskNumber, err)
			}
			return fmt.Errorf("failed to insert task: %w", err)
		}

		for _, effect := range effects {
			if err := effect(sessCtx, task); err != nil {
				return err
			}
		}

		if err := r.saveOutboxEvents(sessCtx, task); err != nil {
			return err
		}
		task.ClearDomainEvents()
		return nil
	})
}

// FindByNumber retrieves a task by its task number within the scope
func (r *TaskRepository) FindByNumber(ctx context.Context, scope *tenant.Scope, taskNumber string) (*domain.PutawayTask, error) {
	var task domain.PutawayTask
	err := r.collection.FindOne(ctx, scope.FilterWith(bson.M{"taskNumber": taskNumber})).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// List retrieves tasks matching the filter, highest priority first, oldest
// first within a priority.
func (r *TaskRepository) List(ctx context.Context, scope *tenant.Scope, filter domain.TaskFilter, pagination domain.Pagination) ([]*domain.PutawayTask, error) {
	opts := options.Find().
		SetSort(pkgmongo.SortMultiple(
			pkgmongo.SortField{Field: "priority"},
			pkgmongo.SortField{Field: "createdAt"},
		)).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, r.filterQuery(scope, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*domain.PutawayTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// Count returns the number of tasks matching the filter
func (r *TaskRepository) Count(ctx context.Context, scope *tenant.Scope, filter domain.TaskFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, r.filterQuery(scope, filter))
}

func (r *TaskRepository) filterQuery(scope *tenant.Scope, filter domain.TaskFilter) bson.M {
	extra := bson.M{}
	if filter.Status != nil {
		extra["status"] = *filter.Status
	}
	if filter.AssignedToID != nil {
		extra["assignedToId"] = *filter.AssignedToID
	}
	if filter.SKUCode != nil {
		extra["skuCode"] = *filter.SKUCode
	}
	if filter.GRNID != nil {
		extra["grnId"] = *filter.GRNID
	}
	return scope.FilterWith(extra)
}

// ExecuteTransition loads the task, applies fn, and persists the result with
// a write conditioned on the status the task was read in. A concurrent status
// change between read and write aborts the transaction with
// domain.ErrTransitionConflict and no effect runs against the stored state.
func (r *TaskRepository) ExecuteTransition(ctx context.Context, scope *tenant.Scope, taskNumber string, fn domain.TransitionFn, effects ...domain.EffectFn) (*domain.PutawayTask, error) {
	var result *domain.PutawayTask

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var task domain.PutawayTask
		err := r.collection.FindOne(sessCtx, scope.FilterWith(bson.M{"taskNumber": taskNumber})).Decode(&task)
		if err == mongo.ErrNoDocuments {
			return domain.ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load task: %w", err)
		}

		readStatus := task.Status
		if err := fn(&task); err != nil {
			return err
		}

		res, err := r.collection.UpdateOne(sessCtx,
			scope.FilterWith(bson.M{"taskNumber": taskNumber, "status": readStatus}),
			bson.M{"$set": &task},
		)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrTransitionConflict
		}

		for _, effect := range effects {
			if err := effect(sessCtx, &task); err != nil {
				return err
			}
		}

		if err := r.saveOutboxEvents(sessCtx, &task); err != nil {
			return err
		}
		task.ClearDomainEvents()
		result = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// saveOutboxEvents converts the task's domain events to CloudEvents and
// stores one outbox row per target topic.
func (r *TaskRepository) saveOutboxEvents(sessCtx mongo.SessionContext, task *domain.PutawayTask) error {
	events := task.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		ce := infrakafka.ToCloudEvent(sessCtx, r.eventFactory, event)
		if ce == nil {
			continue
		}
		for _, topic := range infrakafka.TopicsFor(event) {
			outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(task.TaskNumber, "PutawayTask", topic, ce)
			if err != nil {
				return fmt.Errorf("failed to create outbox event: %w", err)
			}
			outboxEvents = append(outboxEvents, outboxEvent)
		}
	}

	if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

// OutboxRepository exposes the outbox store for the publisher loop
func (r *TaskRepository) OutboxRepository() outbox.Repository {
	return r.outboxRepo
}
