package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjdquick/putaway-service/internal/domain"
	apperrors "github.com/cjdquick/putaway-service/pkg/errors"
	"github.com/cjdquick/putaway-service/pkg/logging"
	"github.com/cjdquick/putaway-service/pkg/metrics"
	"github.com/cjdquick/putaway-service/pkg/tenant"
)

// taskSequenceName is the per-company counter used for task numbers
const taskSequenceName = "putaway_task"

// PutawayService implements the application layer for putaway task operations
type PutawayService struct {
	taskRepo  domain.TaskRepository
	binRepo   domain.BinRepository
	workers   domain.WorkerDirectory
	sequences domain.SequenceRepository
	summaries domain.SummaryReader
	suggester *BinSuggester
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewPutawayService creates a new PutawayService
func NewPutawayService(
	taskRepo domain.TaskRepository,
	binRepo domain.BinRepository,
	workers domain.WorkerDirectory,
	sequences domain.SequenceRepository,
	summaries domain.SummaryReader,
	suggester *BinSuggester,
	m *metrics.Metrics,
	logger *logging.Logger,
) *PutawayService {
	return &PutawayService{
		taskRepo:  taskRepo,
		binRepo:   binRepo,
		workers:   workers,
		sequences: sequences,
		summaries: summaries,
		suggester: suggester,
		metrics:   m,
		logger:    logger,
	}
}

// CreateTaskCommand represents the command to create a putaway task
type CreateTaskCommand struct {
	GRNID      string
	GRNNumber  string
	SKUID      string
	SKUCode    string
	SKUName    string
	Quantity   int
	BatchNo    string
	LotNo      string
	ExpiryDate *time.Time
	FromBinID  string
	ToBinID    string
	Priority   int
	Notes      string
}

// CreateTask creates a new putaway task. When the command names a destination
// bin, capacity is reserved on it in the same transaction as the task insert.
// When it does not, the highest ranked candidate bin is planned in; if no bin
// qualifies the task is created unplanned and waits for manual routing.
func (s *PutawayService) CreateTask(ctx context.Context, scope *tenant.Scope, cmd CreateTaskCommand) (*domain.PutawayTask, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}
	if cmd.SKUID == "" || cmd.SKUCode == "" {
		return nil, apperrors.ErrValidation("skuId and skuCode are required")
	}
	if cmd.Quantity <= 0 {
		return nil, apperrors.ErrValidation("quantity must be positive")
	}
	if cmd.Priority < 0 || cmd.Priority > 5 {
		return nil, apperrors.ErrValidation("priority must be between 1 and 5")
	}

	toBinID := cmd.ToBinID
	toBinCode := ""

	if toBinID != "" {
		bin, err := s.binRepo.FindByID(ctx, scope, toBinID)
		if err != nil {
			return nil, apperrors.ErrInternal("failed to look up bin").Wrap(err)
		}
		if bin == nil {
			return nil, apperrors.ErrNotFoundWithID("bin", toBinID)
		}
		if !bin.Active {
			return nil, apperrors.ErrValidation("bin is not active").WithDetail("binId", toBinID)
		}
		toBinCode = bin.BinCode
	} else if s.suggester != nil {
		suggestion, err := s.suggester.Best(ctx, scope, domain.SuggestionRequest{
			SKUID:         cmd.SKUID,
			Quantity:      cmd.Quantity,
			PreferSameSKU: true,
		})
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("No bin suggestion for new task", "skuCode", cmd.SKUCode)
		} else if suggestion != nil {
			toBinID = suggestion.BinID
			toBinCode = suggestion.BinCode
		}
	}

	seq, err := s.sequences.Next(ctx, scope.CompanyID, taskSequenceName)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to allocate task number").Wrap(err)
	}
	taskNumber := fmt.Sprintf("PTW-%06d", seq)

	task := domain.NewPutawayTask(domain.NewTaskParams{
		TaskNumber: taskNumber,
		CompanyID:  scope.CompanyID,
		LocationID: scope.LocationID,
		GRNID:      cmd.GRNID,
		GRNNumber:  cmd.GRNNumber,
		SKUID:      cmd.SKUID,
		SKUCode:    cmd.SKUCode,
		SKUName:    cmd.SKUName,
		Quantity:   cmd.Quantity,
		BatchNo:    cmd.BatchNo,
		LotNo:      cmd.LotNo,
		ExpiryDate: cmd.ExpiryDate,
		FromBinID:  cmd.FromBinID,
		ToBinID:    toBinID,
		ToBinCode:  toBinCode,
		Priority:   cmd.Priority,
		Notes:      cmd.Notes,
	})

	var effects []domain.EffectFn
	if task.ToBinID != "" {
		effects = append(effects, func(ctx context.Context, t *domain.PutawayTask) error {
			return s.binRepo.Reserve(ctx, scope, t.ToBinID, t.Quantity)
		})
	}

	if err := s.taskRepo.Create(ctx, task, effects...); err != nil {
		if errors.Is(err, domain.ErrBinCapacityExceeded) {
			return nil, apperrors.ErrCapacityConflict(task.ToBinCode, task.Quantity).Wrap(err)
		}
		s.logger.WithContext(ctx).WithError(err).Error("Failed to create putaway task", "taskNumber", taskNumber)
		return nil, apperrors.ErrInternal("failed to create putaway task").Wrap(err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCreated(task.Priority)
	}

	s.logger.WithContext(ctx).Info("Created putaway task",
		"taskNumber", task.TaskNumber,
		"skuCode", task.SKUCode,
		"quantity", task.Quantity,
		"toBinCode", task.ToBinCode,
		"grnNumber", task.GRNNumber,
	)

	return task, nil
}

// AssignTaskCommand represents the command to assign a task to a worker
type AssignTaskCommand struct {
	TaskNumber string
	WorkerID   string
}

// AssignTask assigns a pending task to a worker. The worker is resolved
// against the user directory before the transition runs.
func (s *PutawayService) AssignTask(ctx context.Context, scope *tenant.Scope, cmd AssignTaskCommand) (*domain.PutawayTask, error) {
	if cmd.WorkerID == "" {
		return nil, apperrors.ErrValidation("workerId is required")
	}

	worker, err := s.resolveWorker(ctx, cmd.WorkerID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.ExecuteTransition(ctx, scope, cmd.TaskNumber, func(t *domain.PutawayTask) error {
		return t.Assign(worker.ID, worker.Name)
	})
	if err != nil {
		return nil, s.mapTransitionError("assign", err)
	}

	s.logger.WithContext(ctx).Info("Assigned putaway task",
		"taskNumber", task.TaskNumber,
		"workerId", worker.ID,
	)

	return task, nil
}

// StartTaskCommand represents the command to start a task
type StartTaskCommand struct {
	TaskNumber string
	// WorkerID defaults to the acting user from the tenant scope
	WorkerID string
}

// StartTask begins task execution. Starting a pending task implicitly assigns
// it to the starting worker.
func (s *PutawayService) StartTask(ctx context.Context, scope *tenant.Scope, cmd StartTaskCommand) (*domain.PutawayTask, error) {
	workerID := cmd.WorkerID
	if workerID == "" {
		workerID = scope.UserID
	}
	if workerID == "" {
		return nil, apperrors.ErrValidation("workerId is required")
	}

	worker, err := s.resolveWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.ExecuteTransition(ctx, scope, cmd.TaskNumber, func(t *domain.PutawayTask) error {
		return t.Start(worker.ID, worker.Name)
	})
	if err != nil {
		return nil, s.mapTransitionError("start", err)
	}

	s.logger.WithContext(ctx).Info("Started putaway task",
		"taskNumber", task.TaskNumber,
		"workerId", worker.ID,
	)

	return task, nil
}

// CompleteTaskCommand represents the command to complete a task
type CompleteTaskCommand struct {
	TaskNumber string
	// ActualBinID overrides the planned destination bin
	ActualBinID string
	// ActualQty overrides the expected quantity; a lower value marks the
	// task short-shipped, a higher one is recorded as delivered
	ActualQty *int
	Notes     string
}

// CompleteTask finishes an in-progress task and converts the bin reservation
// into occupancy. The placement runs in the same transaction as the status
// write so the task and the bin cannot diverge.
func (s *PutawayService) CompleteTask(ctx context.Context, scope *tenant.Scope, cmd CompleteTaskCommand) (*domain.PutawayTask, error) {
	actualBinCode := ""
	if cmd.ActualBinID != "" {
		bin, err := s.binRepo.FindByID(ctx, scope, cmd.ActualBinID)
		if err != nil {
			return nil, apperrors.ErrInternal("failed to look up bin").Wrap(err)
		}
		if bin == nil {
			return nil, apperrors.ErrNotFoundWithID("bin", cmd.ActualBinID)
		}
		if !bin.Active {
			return nil, apperrors.ErrValidation("bin is not active").WithDetail("binId", cmd.ActualBinID)
		}
		actualBinCode = bin.BinCode
	}

	var placedQty int
	var placedBinCode string

	task, err := s.taskRepo.ExecuteTransition(ctx, scope, cmd.TaskNumber,
		func(t *domain.PutawayTask) error {
			if err := t.Complete(domain.CompleteParams{
				ActualBinID:   cmd.ActualBinID,
				ActualBinCode: actualBinCode,
				ActualQty:     cmd.ActualQty,
				Notes:         cmd.Notes,
			}); err != nil {
				return err
			}
			if t.ActualBinID == "" {
				return apperrors.ErrValidation("completion requires a destination bin")
			}
			return nil
		},
		func(ctx context.Context, t *domain.PutawayTask) error {
			placeQty := t.Quantity
			if t.ActualQty != nil {
				placeQty = *t.ActualQty
			}
			placedQty = placeQty
			placedBinCode = t.ActualBinCode

			// Only planned bins carry a reservation to release.
			reservedBinID := t.ToBinID
			releaseQty := 0
			if reservedBinID != "" {
				releaseQty = t.Quantity
			}

			return s.binRepo.Place(ctx, scope, t.ActualBinID, t.SKUID, placeQty, reservedBinID, releaseQty)
		},
	)
	if err != nil {
		if errors.Is(err, domain.ErrBinCapacityExceeded) {
			return nil, apperrors.ErrCapacityConflict(placedBinCode, placedQty).Wrap(err)
		}
		return nil, s.mapTransitionError("complete", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCompleted(task.ShortShipped)
	}

	s.logger.WithContext(ctx).Info("Completed putaway task",
		"taskNumber", task.TaskNumber,
		"skuCode", task.SKUCode,
		"actualBinCode", task.ActualBinCode,
		"actualQty", task.ActualQty,
		"shortShipped", task.ShortShipped,
	)

	return task, nil
}

// CancelTaskCommand represents the command to cancel a task
type CancelTaskCommand struct {
	TaskNumber string
	Reason     string
}

// CancelTask cancels an open task and releases its capacity reservation
func (s *PutawayService) CancelTask(ctx context.Context, scope *tenant.Scope, cmd CancelTaskCommand) (*domain.PutawayTask, error) {
	task, err := s.taskRepo.ExecuteTransition(ctx, scope, cmd.TaskNumber,
		func(t *domain.PutawayTask) error {
			return t.Cancel(cmd.Reason)
		},
		func(ctx context.Context, t *domain.PutawayTask) error {
			if t.ToBinID == "" {
				return nil
			}
			return s.binRepo.Release(ctx, scope, t.ToBinID, t.Quantity)
		},
	)
	if err != nil {
		return nil, s.mapTransitionError("cancel", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCancelled()
	}

	s.logger.WithContext(ctx).Info("Cancelled putaway task",
		"taskNumber", task.TaskNumber,
		"reason", cmd.Reason,
	)

	return task, nil
}

// GetTask retrieves a task by its task number
func (s *PutawayService) GetTask(ctx context.Context, scope *tenant.Scope, taskNumber string) (*domain.PutawayTask, error) {
	task, err := s.taskRepo.FindByNumber(ctx, scope, taskNumber)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to find task").Wrap(err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFoundWithID("task", taskNumber)
	}
	return task, nil
}

// TaskDetail pairs a task with a freshly computed suggestion set
type TaskDetail struct {
	Task        *domain.PutawayTask    `json:"task"`
	Suggestions []domain.BinSuggestion `json:"suggestions,omitempty"`
}

// GetTaskDetail retrieves a task together with current bin suggestions for
// its SKU. Terminal tasks carry no suggestions, and a suggestion failure
// does not fail the read.
func (s *PutawayService) GetTaskDetail(ctx context.Context, scope *tenant.Scope, taskNumber string) (*TaskDetail, error) {
	task, err := s.GetTask(ctx, scope, taskNumber)
	if err != nil {
		return nil, err
	}

	detail := &TaskDetail{Task: task}
	if task.Status.IsTerminal() {
		return detail, nil
	}

	suggestions, err := s.suggester.Suggest(ctx, scope, domain.SuggestionRequest{
		SKUID:         task.SKUID,
		Quantity:      task.Quantity,
		PreferSameSKU: true,
	}, 0)
	if err != nil {
		if !errors.Is(err, domain.ErrNoEligibleBins) {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to compute suggestions for task",
				"taskNumber", task.TaskNumber,
			)
		}
		return detail, nil
	}
	detail.Suggestions = suggestions

	return detail, nil
}

// ListTasksQuery represents the filter and pagination options for task listing
type ListTasksQuery struct {
	Status       string
	AssignedToID string
	SKUCode      string
	GRNID        string
	Pagination   domain.Pagination
}

// TaskList is a page of tasks with the total match count
type TaskList struct {
	Tasks    []*domain.PutawayTask `json:"tasks"`
	Total    int64                 `json:"total"`
	Page     int64                 `json:"page"`
	PageSize int64                 `json:"pageSize"`
}

// ListTasks retrieves tasks ordered by priority then age
func (s *PutawayService) ListTasks(ctx context.Context, scope *tenant.Scope, query ListTasksQuery) (*TaskList, error) {
	filter := domain.TaskFilter{}

	if query.Status != "" {
		status := domain.TaskStatus(query.Status)
		if !status.IsValid() {
			return nil, apperrors.ErrValidation("invalid status filter").WithDetail("status", query.Status)
		}
		filter.Status = &status
	}
	if query.AssignedToID != "" {
		filter.AssignedToID = &query.AssignedToID
	}
	if query.SKUCode != "" {
		filter.SKUCode = &query.SKUCode
	}
	if query.GRNID != "" {
		filter.GRNID = &query.GRNID
	}

	pagination := query.Pagination
	if pagination.Page < 1 || pagination.PageSize < 1 {
		pagination = domain.DefaultPagination()
	}

	tasks, err := s.taskRepo.List(ctx, scope, filter, pagination)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to list tasks").Wrap(err)
	}

	total, err := s.taskRepo.Count(ctx, scope, filter)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to count tasks").Wrap(err)
	}

	return &TaskList{
		Tasks:    tasks,
		Total:    total,
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
	}, nil
}

// GetSummary computes the dashboard counts for the tenant scope. The
// completed-today window follows the caller's calendar day; timezone is an
// IANA zone name and defaults to UTC.
func (s *PutawayService) GetSummary(ctx context.Context, scope *tenant.Scope, timezone string) (*domain.TaskSummary, error) {
	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, apperrors.ErrValidation("unknown timezone").WithDetail("tz", timezone)
		}
	}

	summary, err := s.summaries.Summarize(ctx, scope, time.Now().In(loc))
	if err != nil {
		return nil, apperrors.ErrInternal("failed to compute task summary").Wrap(err)
	}
	return summary, nil
}

// resolveWorker validates a worker against the user directory. An unknown or
// inactive worker is a validation failure; an unreachable directory surfaces
// as a dependency error so callers can retry.
func (s *PutawayService) resolveWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	worker, err := s.workers.GetWorker(ctx, workerID)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.ErrDependencyUnavailable("user directory").Wrap(err)
	}
	if worker == nil {
		return nil, apperrors.ErrValidation("unknown worker").WithDetail("workerId", workerID)
	}
	if !worker.Active {
		return nil, apperrors.ErrValidation("worker is not active").WithDetail("workerId", workerID)
	}
	return worker, nil
}

// mapTransitionError translates transition failures into transport errors
func (s *PutawayService) mapTransitionError(action string, err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var transitionErr *domain.StateTransitionError
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return apperrors.ErrNotFound("task").Wrap(err)
	case errors.As(err, &transitionErr):
		return apperrors.ErrInvalidStateTransition(string(transitionErr.Current), transitionErr.Attempted).Wrap(err)
	case errors.Is(err, domain.ErrTransitionConflict):
		if s.metrics != nil {
			s.metrics.RecordTransitionConflict(action)
		}
		return apperrors.ErrConflict("task was modified concurrently, retry").Wrap(err)
	case errors.Is(err, domain.ErrReasonRequired),
		errors.Is(err, domain.ErrNegativeQuantity),
		errors.Is(err, domain.ErrInvalidTaskStatus):
		return apperrors.ErrValidation(err.Error()).Wrap(err)
	default:
		s.logger.WithError(err).Error("Task transition failed", "action", action)
		return apperrors.ErrInternal("failed to " + action + " task").Wrap(err)
	}
}
