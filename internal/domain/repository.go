package domain

import (
	"context"
	"errors"
	"time"

	"github.com/cjdquick/putaway-service/pkg/tenant"
)

// ErrTransitionConflict is returned when a task's status changed between the
// transition's read and its conditional write. The caller lost the race and
// must re-read before retrying.
var ErrTransitionConflict = errors.New("task status changed concurrently")

// TransitionFn applies a lifecycle transition to a loaded task. Returning an
// error aborts the transition without persisting anything.
type TransitionFn func(task *PutawayTask) error

// EffectFn runs a side effect inside the same storage transaction as the
// status write. Capacity mutations use this so a task is never completed
// without its bin update, or vice versa.
type EffectFn func(ctx context.Context, task *PutawayTask) error

// TaskRepository defines the interface for putaway task persistence
type TaskRepository interface {
	// Create persists a new task and runs the given effects in the same
	// transaction. Outbox events recorded on the task are stored atomically.
	Create(ctx context.Context, task *PutawayTask, effects ...EffectFn) error

	// FindByNumber retrieves a task by its task number within the scope.
	// Returns (nil, nil) when no task matches.
	FindByNumber(ctx context.Context, scope *tenant.Scope, taskNumber string) (*PutawayTask, error)

	// List retrieves tasks matching the filter, ordered by priority then age
	List(ctx context.Context, scope *tenant.Scope, filter TaskFilter, pagination Pagination) ([]*PutawayTask, error)

	// Count returns the number of tasks matching the filter
	Count(ctx context.Context, scope *tenant.Scope, filter TaskFilter) (int64, error)

	// ExecuteTransition loads the task, applies fn, and persists the result
	// with a conditional write keyed on the status the task was read in.
	// Effects run in the same transaction. Returns ErrTransitionConflict
	// when the conditional write matches nothing.
	ExecuteTransition(ctx context.Context, scope *tenant.Scope, taskNumber string, fn TransitionFn, effects ...EffectFn) (*PutawayTask, error)
}

// BinRepository defines the interface for the bin directory
type BinRepository interface {
	// FindByID retrieves a bin within the scope. Returns (nil, nil) when
	// no bin matches.
	FindByID(ctx context.Context, scope *tenant.Scope, binID string) (*Bin, error)

	// FindCandidates retrieves active bins with free capacity in the scope
	FindCandidates(ctx context.Context, scope *tenant.Scope, limit int) ([]Bin, error)

	// Reserve adds a capacity reservation on a bin, failing with
	// ErrBinCapacityExceeded when the bin cannot hold the quantity
	Reserve(ctx context.Context, scope *tenant.Scope, binID string, quantity int) error

	// Release removes a capacity reservation from a bin
	Release(ctx context.Context, scope *tenant.Scope, binID string, quantity int) error

	// Place converts stock into bin occupancy: increments the SKU quantity
	// in placeBinID and releases releaseQty of reservation on reservedBinID.
	// Fails with ErrBinCapacityExceeded when placeBinID cannot hold the
	// quantity.
	Place(ctx context.Context, scope *tenant.Scope, placeBinID, skuID string, quantity int, reservedBinID string, releaseQty int) error
}

// Worker is an operator resolved from the user directory
type Worker struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// WorkerDirectory resolves and validates operators
type WorkerDirectory interface {
	// GetWorker returns the worker, (nil, nil) when unknown, or a
	// dependency error when the directory is unreachable
	GetWorker(ctx context.Context, workerID string) (*Worker, error)
}

// SequenceRepository allocates monotonic per-company counters
type SequenceRepository interface {
	// Next returns the next value of the named sequence for the company
	Next(ctx context.Context, companyID, name string) (int64, error)
}

// TaskSummary holds the dashboard counts for a tenant scope
type TaskSummary struct {
	Pending        int64 `json:"pending"`
	Assigned       int64 `json:"assigned"`
	InProgress     int64 `json:"inProgress"`
	CompletedToday int64 `json:"completedToday"`
	Total          int64 `json:"total"` // open (non-terminal) tasks
}

// SummaryReader computes task counts for dashboards
type SummaryReader interface {
	Summarize(ctx context.Context, scope *tenant.Scope, now time.Time) (*TaskSummary, error)
}

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 20,
	}
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}

// TaskFilter represents filter options for querying tasks
type TaskFilter struct {
	Status       *TaskStatus
	AssignedToID *string
	SKUCode      *string
	GRNID        *string
}
