package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjdquick/putaway-service/internal/domain"
	apperrors "github.com/cjdquick/putaway-service/pkg/errors"
	"github.com/cjdquick/putaway-service/pkg/logging"
	"github.com/cjdquick/putaway-service/pkg/tenant"
)

// --- mocks ---

type mockTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.PutawayTask

	createErr error
	// beforeWrite runs after the transition function but before the
	// conditional write, outside the lock. Used to force write conflicts.
	beforeWrite func(taskNumber string)
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*domain.PutawayTask)}
}

func (m *mockTaskRepo) Create(ctx context.Context, task *domain.PutawayTask, effects ...domain.EffectFn) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, effect := range effects {
		if err := effect(ctx, task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.TaskNumber] = task
	return nil
}

func (m *mockTaskRepo) FindByNumber(ctx context.Context, scope *tenant.Scope, taskNumber string) (*domain.PutawayTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskNumber]
	if !ok || task.CompanyID != scope.CompanyID || task.LocationID != scope.LocationID {
		return nil, nil
	}
	clone := *task
	return &clone, nil
}

func (m *mockTaskRepo) List(ctx context.Context, scope *tenant.Scope, filter domain.TaskFilter, pagination domain.Pagination) ([]*domain.PutawayTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.PutawayTask
	for _, task := range m.tasks {
		if task.CompanyID != scope.CompanyID || task.LocationID != scope.LocationID {
			continue
		}
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		if filter.AssignedToID != nil && task.AssignedToID != *filter.AssignedToID {
			continue
		}
		clone := *task
		result = append(result, &clone)
	}
	return result, nil
}

func (m *mockTaskRepo) Count(ctx context.Context, scope *tenant.Scope, filter domain.TaskFilter) (int64, error) {
	tasks, _ := m.List(ctx, scope, filter, domain.DefaultPagination())
	return int64(len(tasks)), nil
}

func (m *mockTaskRepo) ExecuteTransition(ctx context.Context, scope *tenant.Scope, taskNumber string, fn domain.TransitionFn, effects ...domain.EffectFn) (*domain.PutawayTask, error) {
	m.mu.Lock()
	stored, ok := m.tasks[taskNumber]
	if !ok || stored.CompanyID != scope.CompanyID || stored.LocationID != scope.LocationID {
		m.mu.Unlock()
		return nil, domain.ErrTaskNotFound
	}
	readStatus := stored.Status
	clone := *stored
	m.mu.Unlock()

	if err := fn(&clone); err != nil {
		return nil, err
	}
	for _, effect := range effects {
		if err := effect(ctx, &clone); err != nil {
			return nil, err
		}
	}

	if m.beforeWrite != nil {
		m.beforeWrite(taskNumber)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.tasks[taskNumber]
	if current.Status != readStatus {
		return nil, domain.ErrTransitionConflict
	}
	m.tasks[taskNumber] = &clone
	return &clone, nil
}

type mockBinRepo struct {
	mu   sync.Mutex
	bins map[string]*domain.Bin

	reserveCalls []string
	releaseCalls []string
	placeCalls   []string
}

func newMockBinRepo(bins ...*domain.Bin) *mockBinRepo {
	m := &mockBinRepo{bins: make(map[string]*domain.Bin)}
	for _, bin := range bins {
		m.bins[bin.BinID] = bin
	}
	return m
}

func (m *mockBinRepo) FindByID(ctx context.Context, scope *tenant.Scope, binID string) (*domain.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bin, ok := m.bins[binID]
	if !ok {
		return nil, nil
	}
	clone := *bin
	return &clone, nil
}

func (m *mockBinRepo) FindCandidates(ctx context.Context, scope *tenant.Scope, limit int) ([]domain.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Bin
	for _, bin := range m.bins {
		if bin.Active && bin.AvailableCapacity() > 0 {
			result = append(result, *bin)
		}
	}
	return result, nil
}

func (m *mockBinRepo) Reserve(ctx context.Context, scope *tenant.Scope, binID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserveCalls = append(m.reserveCalls, fmt.Sprintf("%s:%d", binID, quantity))
	bin, ok := m.bins[binID]
	if !ok || !bin.CanAccept(quantity) {
		return domain.ErrBinCapacityExceeded
	}
	bin.ReservedQuantity += quantity
	return nil
}

func (m *mockBinRepo) Release(ctx context.Context, scope *tenant.Scope, binID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls = append(m.releaseCalls, fmt.Sprintf("%s:%d", binID, quantity))
	if bin, ok := m.bins[binID]; ok {
		bin.ReservedQuantity -= quantity
	}
	return nil
}

func (m *mockBinRepo) Place(ctx context.Context, scope *tenant.Scope, placeBinID, skuID string, quantity int, reservedBinID string, releaseQty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeCalls = append(m.placeCalls, fmt.Sprintf("%s:%s:%d:%s:%d", placeBinID, skuID, quantity, reservedBinID, releaseQty))

	if reservedBinID != "" {
		if reserved, ok := m.bins[reservedBinID]; ok {
			reserved.ReservedQuantity -= releaseQty
		}
	}

	bin, ok := m.bins[placeBinID]
	if !ok {
		return domain.ErrBinCapacityExceeded
	}
	if bin.AvailableCapacity() < quantity {
		return domain.ErrBinCapacityExceeded
	}
	bin.CurrentQuantity += quantity
	if bin.Contents == nil {
		bin.Contents = make(map[string]int)
	}
	bin.Contents[skuID] += quantity
	return nil
}

type mockWorkerDirectory struct {
	workers map[string]*domain.Worker
	err     error
}

func (m *mockWorkerDirectory) GetWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.workers[workerID], nil
}

type mockSequences struct {
	mu   sync.Mutex
	next int64
}

func (m *mockSequences) Next(ctx context.Context, companyID, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return m.next, nil
}

type mockSummaryReader struct {
	summary *domain.TaskSummary
	err     error
	lastNow time.Time
}

func (m *mockSummaryReader) Summarize(ctx context.Context, scope *tenant.Scope, now time.Time) (*domain.TaskSummary, error) {
	m.lastNow = now
	return m.summary, m.err
}

// --- fixtures ---

func testScope() *tenant.Scope {
	return &tenant.Scope{CompanyID: "comp-1", LocationID: "loc-1", UserID: "user-1"}
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "putaway-service-test",
		Output:      io.Discard,
	})
}

func testBin(binID, binCode string, capacity int) *domain.Bin {
	return &domain.Bin{
		BinID:      binID,
		BinCode:    binCode,
		Zone:       "A",
		CompanyID:  "comp-1",
		LocationID: "loc-1",
		Capacity:   capacity,
		Active:     true,
	}
}

type serviceFixture struct {
	service   *PutawayService
	taskRepo  *mockTaskRepo
	binRepo   *mockBinRepo
	workers   *mockWorkerDirectory
	summaries *mockSummaryReader
}

func newServiceFixture(bins ...*domain.Bin) *serviceFixture {
	taskRepo := newMockTaskRepo()
	binRepo := newMockBinRepo(bins...)
	workers := &mockWorkerDirectory{workers: map[string]*domain.Worker{
		"user-1":   {ID: "user-1", Name: "Asha", Active: true},
		"user-2":   {ID: "user-2", Name: "Bart", Active: true},
		"inactive": {ID: "inactive", Name: "Gone", Active: false},
	}}
	summaries := &mockSummaryReader{summary: &domain.TaskSummary{}}
	logger := testLogger()
	suggester := NewBinSuggester(binRepo, nil, logger)

	service := NewPutawayService(
		taskRepo,
		binRepo,
		workers,
		&mockSequences{},
		summaries,
		suggester,
		nil,
		logger,
	)

	return &serviceFixture{
		service:   service,
		taskRepo:  taskRepo,
		binRepo:   binRepo,
		workers:   workers,
		summaries: summaries,
	}
}

func (f *serviceFixture) createTask(t *testing.T, cmd CreateTaskCommand) *domain.PutawayTask {
	t.Helper()
	task, err := f.service.CreateTask(context.Background(), testScope(), cmd)
	require.NoError(t, err)
	return task
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

// --- tests ---

func TestCreateTask(t *testing.T) {
	t.Run("reserves capacity on the planned bin", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))

		task := f.createTask(t, CreateTaskCommand{
			SKUID:    "sku-1",
			SKUCode:  "WIDGET-01",
			Quantity: 25,
			ToBinID:  "bin-1",
		})

		assert.Equal(t, "PTW-000001", task.TaskNumber)
		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Equal(t, "A-01-01", task.ToBinCode)
		assert.Equal(t, 3, task.Priority)
		assert.Equal(t, []string{"bin-1:25"}, f.binRepo.reserveCalls)
		assert.Equal(t, 25, f.binRepo.bins["bin-1"].ReservedQuantity)
	})

	t.Run("task numbers increment per company", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))

		first := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 1, ToBinID: "bin-1"})
		second := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 1, ToBinID: "bin-1"})

		assert.Equal(t, "PTW-000001", first.TaskNumber)
		assert.Equal(t, "PTW-000002", second.TaskNumber)
	})

	t.Run("plans the best suggested bin when none is given", func(t *testing.T) {
		small := testBin("bin-small", "A-01-01", 10)
		large := testBin("bin-large", "A-01-02", 100)
		f := newServiceFixture(small, large)

		task := f.createTask(t, CreateTaskCommand{
			SKUID:    "sku-1",
			SKUCode:  "WIDGET-01",
			Quantity: 40,
		})

		assert.Equal(t, "bin-large", task.ToBinID)
		assert.Equal(t, "A-01-02", task.ToBinCode)
		assert.Equal(t, 40, f.binRepo.bins["bin-large"].ReservedQuantity)
	})

	t.Run("creates unplanned when no bin qualifies", func(t *testing.T) {
		full := testBin("bin-full", "A-01-01", 10)
		full.CurrentQuantity = 10
		f := newServiceFixture(full)

		task := f.createTask(t, CreateTaskCommand{
			SKUID:    "sku-1",
			SKUCode:  "WIDGET-01",
			Quantity: 5,
		})

		assert.Empty(t, task.ToBinID)
		assert.Empty(t, f.binRepo.reserveCalls)
	})

	t.Run("rejects unknown bin", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.CreateTask(context.Background(), testScope(), CreateTaskCommand{
			SKUID:    "sku-1",
			SKUCode:  "WIDGET-01",
			Quantity: 5,
			ToBinID:  "missing",
		})

		assertAppErrorCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("rejects invalid quantity", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.CreateTask(context.Background(), testScope(), CreateTaskCommand{
			SKUID:    "sku-1",
			SKUCode:  "WIDGET-01",
			Quantity: 0,
		})

		assertAppErrorCode(t, err, apperrors.CodeValidationError)
	})

	t.Run("maps a failed reservation to a capacity conflict", func(t *testing.T) {
		tight := testBin("bin-1", "A-01-01", 10)
		tight.CurrentQuantity = 8
		f := newServiceFixture(tight)

		_, err := f.service.CreateTask(context.Background(), testScope(), CreateTaskCommand{
			SKUID:    "sku-1",
			SKUCode:  "WIDGET-01",
			Quantity: 5,
			ToBinID:  "bin-1",
		})

		assertAppErrorCode(t, err, apperrors.CodeCapacityConflict)
	})

	t.Run("emits a created event", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))

		task := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		events := task.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "putaway.task.created", events[0].EventType())
	})
}

func TestAssignTask(t *testing.T) {
	t.Run("assigns a pending task", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		task, err := f.service.AssignTask(context.Background(), testScope(), AssignTaskCommand{
			TaskNumber: created.TaskNumber,
			WorkerID:   "user-2",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusAssigned, task.Status)
		assert.Equal(t, "user-2", task.AssignedToID)
		assert.Equal(t, "Bart", task.AssignedToName)
		require.NotNil(t, task.AssignedAt)
	})

	t.Run("rejects an unknown worker", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		_, err := f.service.AssignTask(context.Background(), testScope(), AssignTaskCommand{
			TaskNumber: created.TaskNumber,
			WorkerID:   "nobody",
		})

		assertAppErrorCode(t, err, apperrors.CodeValidationError)
	})

	t.Run("rejects an inactive worker", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		_, err := f.service.AssignTask(context.Background(), testScope(), AssignTaskCommand{
			TaskNumber: created.TaskNumber,
			WorkerID:   "inactive",
		})

		assertAppErrorCode(t, err, apperrors.CodeValidationError)
	})

	t.Run("surfaces an unreachable directory as dependency failure", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		f.workers.err = errors.New("connection refused")

		_, err := f.service.AssignTask(context.Background(), testScope(), AssignTaskCommand{
			TaskNumber: created.TaskNumber,
			WorkerID:   "user-2",
		})

		assertAppErrorCode(t, err, apperrors.CodeDependencyUnavailable)
	})

	t.Run("rejects assignment of a started task", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		_, err := f.service.StartTask(context.Background(), testScope(), StartTaskCommand{TaskNumber: created.TaskNumber})
		require.NoError(t, err)

		_, err = f.service.AssignTask(context.Background(), testScope(), AssignTaskCommand{
			TaskNumber: created.TaskNumber,
			WorkerID:   "user-2",
		})

		assertAppErrorCode(t, err, apperrors.CodeInvalidStateTransition)
	})

	t.Run("returns not found outside the tenant scope", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		otherScope := &tenant.Scope{CompanyID: "comp-2", LocationID: "loc-9", UserID: "user-1"}
		_, err := f.service.AssignTask(context.Background(), otherScope, AssignTaskCommand{
			TaskNumber: created.TaskNumber,
			WorkerID:   "user-2",
		})

		assertAppErrorCode(t, err, apperrors.CodeNotFound)
	})
}

func TestStartTask(t *testing.T) {
	t.Run("starting a pending task assigns the acting user", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		task, err := f.service.StartTask(context.Background(), testScope(), StartTaskCommand{TaskNumber: created.TaskNumber})

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, task.Status)
		assert.Equal(t, "user-1", task.AssignedToID)
		require.NotNil(t, task.StartedAt)
	})

	t.Run("starting an assigned task keeps the assignee", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		_, err := f.service.AssignTask(context.Background(), testScope(), AssignTaskCommand{TaskNumber: created.TaskNumber, WorkerID: "user-2"})
		require.NoError(t, err)

		task, err := f.service.StartTask(context.Background(), testScope(), StartTaskCommand{TaskNumber: created.TaskNumber, WorkerID: "user-2"})

		require.NoError(t, err)
		assert.Equal(t, "user-2", task.AssignedToID)
	})

	t.Run("a lost write race maps to a conflict", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		interfered := false
		f.taskRepo.beforeWrite = func(taskNumber string) {
			if interfered {
				return
			}
			interfered = true
			f.taskRepo.mu.Lock()
			f.taskRepo.tasks[taskNumber].Status = domain.TaskStatusAssigned
			f.taskRepo.mu.Unlock()
		}

		_, err := f.service.StartTask(context.Background(), testScope(), StartTaskCommand{TaskNumber: created.TaskNumber})

		assertAppErrorCode(t, err, apperrors.CodeConflict)
	})

	t.Run("only one of two concurrent starts wins", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				workerID := fmt.Sprintf("user-%d", i+1)
				_, errs[i] = f.service.StartTask(context.Background(), testScope(), StartTaskCommand{
					TaskNumber: created.TaskNumber,
					WorkerID:   workerID,
				})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Contains(t, []string{apperrors.CodeConflict, apperrors.CodeInvalidStateTransition}, appErr.Code)
		}
		assert.Equal(t, 1, succeeded)

		task, err := f.service.GetTask(context.Background(), testScope(), created.TaskNumber)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, task.Status)
	})
}

func TestCompleteTask(t *testing.T) {
	startTask := func(t *testing.T, f *serviceFixture, cmd CreateTaskCommand) *domain.PutawayTask {
		t.Helper()
		created := f.createTask(t, cmd)
		task, err := f.service.StartTask(context.Background(), testScope(), StartTaskCommand{TaskNumber: created.TaskNumber})
		require.NoError(t, err)
		return task
	}

	t.Run("defaults to the planned bin and expected quantity", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		started := startTask(t, f, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 25, ToBinID: "bin-1"})

		task, err := f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{TaskNumber: started.TaskNumber})

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, task.Status)
		assert.Equal(t, "bin-1", task.ActualBinID)
		require.NotNil(t, task.ActualQty)
		assert.Equal(t, 25, *task.ActualQty)
		assert.False(t, task.ShortShipped)

		bin := f.binRepo.bins["bin-1"]
		assert.Equal(t, 25, bin.CurrentQuantity)
		assert.Equal(t, 0, bin.ReservedQuantity)
		assert.Equal(t, 25, bin.Contents["sku-1"])
	})

	t.Run("a lower actual quantity marks the task short-shipped", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		started := startTask(t, f, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 25, ToBinID: "bin-1"})

		actual := 20
		task, err := f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{
			TaskNumber: started.TaskNumber,
			ActualQty:  &actual,
		})

		require.NoError(t, err)
		assert.True(t, task.ShortShipped)
		assert.Equal(t, 20, f.binRepo.bins["bin-1"].CurrentQuantity)
		// The full reservation is released even when less stock arrives.
		assert.Equal(t, 0, f.binRepo.bins["bin-1"].ReservedQuantity)
	})

	t.Run("placing into a different bin releases the planned reservation", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100), testBin("bin-2", "A-01-02", 100))
		started := startTask(t, f, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 25, ToBinID: "bin-1"})

		task, err := f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{
			TaskNumber:  started.TaskNumber,
			ActualBinID: "bin-2",
		})

		require.NoError(t, err)
		assert.Equal(t, "bin-2", task.ActualBinID)
		assert.Equal(t, "A-01-02", task.ActualBinCode)
		assert.Equal(t, 0, f.binRepo.bins["bin-1"].ReservedQuantity)
		assert.Equal(t, 25, f.binRepo.bins["bin-2"].CurrentQuantity)
	})

	t.Run("places an over-count when the bin can take it", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		started := startTask(t, f, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 25, ToBinID: "bin-1"})

		actual := 30
		task, err := f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{
			TaskNumber: started.TaskNumber,
			ActualQty:  &actual,
		})

		require.NoError(t, err)
		require.NotNil(t, task.ActualQty)
		assert.Equal(t, 30, *task.ActualQty)
		assert.False(t, task.ShortShipped)
		assert.Equal(t, 30, f.binRepo.bins["bin-1"].CurrentQuantity)
		assert.Equal(t, 0, f.binRepo.bins["bin-1"].ReservedQuantity)
	})

	t.Run("maps an over-count beyond bin capacity to a capacity conflict", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 28))
		started := startTask(t, f, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 25, ToBinID: "bin-1"})

		actual := 30
		_, err := f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{
			TaskNumber: started.TaskNumber,
			ActualQty:  &actual,
		})

		assertAppErrorCode(t, err, apperrors.CodeCapacityConflict)
	})

	t.Run("rejects a negative quantity", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		started := startTask(t, f, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 25, ToBinID: "bin-1"})

		actual := -1
		_, err := f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{
			TaskNumber: started.TaskNumber,
			ActualQty:  &actual,
		})

		assertAppErrorCode(t, err, apperrors.CodeValidationError)
	})

	t.Run("maps a full override bin to a capacity conflict", func(t *testing.T) {
		tight := testBin("bin-2", "A-01-02", 10)
		tight.CurrentQuantity = 9
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100), tight)
		started := startTask(t, f, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 25, ToBinID: "bin-1"})

		_, err := f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{
			TaskNumber:  started.TaskNumber,
			ActualBinID: "bin-2",
		})

		assertAppErrorCode(t, err, apperrors.CodeCapacityConflict)
	})

	t.Run("rejects completion of a pending task", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		_, err := f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{TaskNumber: created.TaskNumber})

		assertAppErrorCode(t, err, apperrors.CodeInvalidStateTransition)
	})

	t.Run("requires a destination bin for unplanned tasks", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5})
		_, err := f.service.StartTask(context.Background(), testScope(), StartTaskCommand{TaskNumber: created.TaskNumber})
		require.NoError(t, err)

		_, err = f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{TaskNumber: created.TaskNumber})

		assertAppErrorCode(t, err, apperrors.CodeValidationError)
	})
}

func TestCancelTask(t *testing.T) {
	t.Run("releases the reservation", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 25, ToBinID: "bin-1"})
		require.Equal(t, 25, f.binRepo.bins["bin-1"].ReservedQuantity)

		task, err := f.service.CancelTask(context.Background(), testScope(), CancelTaskCommand{
			TaskNumber: created.TaskNumber,
			Reason:     "damaged stock",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCancelled, task.Status)
		assert.Equal(t, "damaged stock", task.CancellationReason)
		assert.Equal(t, 0, f.binRepo.bins["bin-1"].ReservedQuantity)
	})

	t.Run("requires a reason", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

		_, err := f.service.CancelTask(context.Background(), testScope(), CancelTaskCommand{TaskNumber: created.TaskNumber})

		assertAppErrorCode(t, err, apperrors.CodeValidationError)
	})

	t.Run("rejects cancelling a completed task", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})
		_, err := f.service.StartTask(context.Background(), testScope(), StartTaskCommand{TaskNumber: created.TaskNumber})
		require.NoError(t, err)
		_, err = f.service.CompleteTask(context.Background(), testScope(), CompleteTaskCommand{TaskNumber: created.TaskNumber})
		require.NoError(t, err)

		_, err = f.service.CancelTask(context.Background(), testScope(), CancelTaskCommand{
			TaskNumber: created.TaskNumber,
			Reason:     "too late",
		})

		assertAppErrorCode(t, err, apperrors.CodeInvalidStateTransition)
	})

	t.Run("does not release for unplanned tasks", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5})

		_, err := f.service.CancelTask(context.Background(), testScope(), CancelTaskCommand{
			TaskNumber: created.TaskNumber,
			Reason:     "duplicate",
		})

		require.NoError(t, err)
		assert.Empty(t, f.binRepo.releaseCalls)
	})
}

func TestListTasks(t *testing.T) {
	t.Run("filters by status", func(t *testing.T) {
		f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
		f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 1, ToBinID: "bin-1"})
		second := f.createTask(t, CreateTaskCommand{SKUID: "sku-2", SKUCode: "WIDGET-02", Quantity: 1, ToBinID: "bin-1"})
		_, err := f.service.StartTask(context.Background(), testScope(), StartTaskCommand{TaskNumber: second.TaskNumber})
		require.NoError(t, err)

		list, err := f.service.ListTasks(context.Background(), testScope(), ListTasksQuery{Status: "pending"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), list.Total)
		require.Len(t, list.Tasks, 1)
		assert.Equal(t, domain.TaskStatusPending, list.Tasks[0].Status)
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.ListTasks(context.Background(), testScope(), ListTasksQuery{Status: "sleeping"})

		assertAppErrorCode(t, err, apperrors.CodeValidationError)
	})
}

func TestGetSummary(t *testing.T) {
	t.Run("passes the caller's local clock to the reader", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.GetSummary(context.Background(), testScope(), "America/New_York")

		require.NoError(t, err)
		assert.Equal(t, "America/New_York", f.summaries.lastNow.Location().String())
	})

	t.Run("defaults to UTC", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.GetSummary(context.Background(), testScope(), "")

		require.NoError(t, err)
		assert.Equal(t, "UTC", f.summaries.lastNow.Location().String())
	})

	t.Run("rejects an unknown timezone", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.GetSummary(context.Background(), testScope(), "Mars/Olympus_Mons")

		assertAppErrorCode(t, err, apperrors.CodeValidationError)
	})
}

func TestGetTask(t *testing.T) {
	f := newServiceFixture(testBin("bin-1", "A-01-01", 100))
	created := f.createTask(t, CreateTaskCommand{SKUID: "sku-1", SKUCode: "WIDGET-01", Quantity: 5, ToBinID: "bin-1"})

	task, err := f.service.GetTask(context.Background(), testScope(), created.TaskNumber)
	require.NoError(t, err)
	assert.Equal(t, created.TaskNumber, task.TaskNumber)

	_, err = f.service.GetTask(context.Background(), testScope(), "PTW-999999")
	assertAppErrorCode(t, err, apperrors.CodeNotFound)

	t.Run("detail includes suggestions for open task", func(t *testing.T) {
		detail, err := f.service.GetTaskDetail(context.Background(), testScope(), created.TaskNumber)
		require.NoError(t, err)
		assert.Equal(t, created.TaskNumber, detail.Task.TaskNumber)
		require.NotEmpty(t, detail.Suggestions)
		assert.Equal(t, "A-01-01", detail.Suggestions[0].BinCode)
	})

	t.Run("detail omits suggestions for terminal task", func(t *testing.T) {
		_, err := f.service.CancelTask(context.Background(), testScope(), CancelTaskCommand{
			TaskNumber: created.TaskNumber,
			Reason:     "damaged stock",
		})
		require.NoError(t, err)

		detail, err := f.service.GetTaskDetail(context.Background(), testScope(), created.TaskNumber)
		require.NoError(t, err)
		assert.Empty(t, detail.Suggestions)
	})
}
