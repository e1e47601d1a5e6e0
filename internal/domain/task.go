package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PutawayTask errors
var (
	ErrTaskNotFound        = errors.New("putaway task not found")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrNegativeQuantity    = errors.New("actual quantity cannot be negative")
	ErrReasonRequired      = errors.New("cancellation reason is required")
	ErrBinCapacityExceeded = errors.New("bin capacity exceeded")
	ErrNoEligibleBins      = errors.New("no eligible bins for putaway")
)

// TaskStatus represents the status of a putaway task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status admits no further transitions
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// CanTransitionTo checks if the status can transition to another status
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	validTransitions := map[TaskStatus][]TaskStatus{
		TaskStatusPending:    {TaskStatusAssigned, TaskStatusInProgress, TaskStatusCancelled},
		TaskStatusAssigned:   {TaskStatusInProgress, TaskStatusCancelled},
		TaskStatusInProgress: {TaskStatusCompleted, TaskStatusCancelled},
		TaskStatusCompleted:  {},
		TaskStatusCancelled:  {},
	}

	allowedTargets, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, allowed := range allowedTargets {
		if target == allowed {
			return true
		}
	}
	return false
}

// StateTransitionError reports a disallowed lifecycle action against a task.
// It names the task, the status it was found in, and the attempted action so
// callers can refresh and retry from the real state.
type StateTransitionError struct {
	TaskNumber string
	Current    TaskStatus
	Attempted  string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("task %s: cannot %s while %s", e.TaskNumber, e.Attempted, e.Current)
}

func newTransitionError(t *PutawayTask, attempted string) error {
	return &StateTransitionError{
		TaskNumber: t.TaskNumber,
		Current:    t.Status,
		Attempted:  attempted,
	}
}

// PutawayTask represents a unit of received stock that has to be moved from
// the receiving area into a storage bin.
type PutawayTask struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TaskNumber string             `bson:"taskNumber" json:"taskNumber"`

	CompanyID  string `bson:"companyId" json:"companyId"`
	LocationID string `bson:"locationId" json:"locationId"`

	// Goods receipt provenance
	GRNID     string `bson:"grnId,omitempty" json:"grnId,omitempty"`
	GRNNumber string `bson:"grnNumber,omitempty" json:"grnNumber,omitempty"`

	SKUID   string `bson:"skuId" json:"skuId"`
	SKUCode string `bson:"skuCode" json:"skuCode"`
	SKUName string `bson:"skuName,omitempty" json:"skuName,omitempty"`

	Quantity   int        `bson:"quantity" json:"quantity"`
	BatchNo    string     `bson:"batchNo,omitempty" json:"batchNo,omitempty"`
	LotNo      string     `bson:"lotNo,omitempty" json:"lotNo,omitempty"`
	ExpiryDate *time.Time `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`

	FromBinID     string `bson:"fromBinId,omitempty" json:"fromBinId,omitempty"`
	ToBinID       string `bson:"toBinId,omitempty" json:"toBinId,omitempty"`
	ToBinCode     string `bson:"toBinCode,omitempty" json:"toBinCode,omitempty"`
	ActualBinID   string `bson:"actualBinId,omitempty" json:"actualBinId,omitempty"`
	ActualBinCode string `bson:"actualBinCode,omitempty" json:"actualBinCode,omitempty"`

	// ActualQty is recorded at completion; nil until then.
	ActualQty    *int `bson:"actualQty,omitempty" json:"actualQty,omitempty"`
	ShortShipped bool `bson:"shortShipped" json:"shortShipped"`

	Status TaskStatus `bson:"status" json:"status"`

	AssignedToID   string `bson:"assignedToId,omitempty" json:"assignedToId,omitempty"`
	AssignedToName string `bson:"assignedToName,omitempty" json:"assignedToName,omitempty"`

	Priority           int    `bson:"priority" json:"priority"` // 1=highest, 5=lowest
	Notes              string `bson:"notes,omitempty" json:"notes,omitempty"`
	CancellationReason string `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`

	AssignedAt  *time.Time `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
	StartedAt   *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewTaskParams holds the inputs for creating a putaway task
type NewTaskParams struct {
	TaskNumber string
	CompanyID  string
	LocationID string
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
	ToBinCode  string
	Priority   int
	Notes      string
}

// NewPutawayTask creates a pending putaway task
func NewPutawayTask(p NewTaskParams) *PutawayTask {
	now := time.Now().UTC()
	priority := p.Priority
	if priority == 0 {
		priority = 3
	}

	task := &PutawayTask{
		ID:           primitive.NewObjectID(),
		TaskNumber:   p.TaskNumber,
		CompanyID:    p.CompanyID,
		LocationID:   p.LocationID,
		GRNID:        p.GRNID,
		GRNNumber:    p.GRNNumber,
		SKUID:        p.SKUID,
		SKUCode:      p.SKUCode,
		SKUName:      p.SKUName,
		Quantity:     p.Quantity,
		BatchNo:      p.BatchNo,
		LotNo:        p.LotNo,
		ExpiryDate:   p.ExpiryDate,
		FromBinID:    p.FromBinID,
		ToBinID:      p.ToBinID,
		ToBinCode:    p.ToBinCode,
		Status:       TaskStatusPending,
		Priority:     priority,
		Notes:        p.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	task.addDomainEvent(&TaskCreatedEvent{
		TaskNumber: p.TaskNumber,
		CompanyID:  p.CompanyID,
		LocationID: p.LocationID,
		SKUID:      p.SKUID,
		SKUCode:    p.SKUCode,
		Quantity:   p.Quantity,
		ToBinID:    p.ToBinID,
		ToBinCode:  p.ToBinCode,
		GRNID:      p.GRNID,
		GRNNumber:  p.GRNNumber,
		Priority:   priority,
		CreatedAt:  now,
	})

	return task
}

// Assign assigns the task to a worker
func (t *PutawayTask) Assign(workerID, workerName string) error {
	if t.Status != TaskStatusPending {
		return newTransitionError(t, "assign")
	}

	now := time.Now().UTC()
	t.AssignedToID = workerID
	t.AssignedToName = workerName
	t.Status = TaskStatusAssigned
	t.AssignedAt = &now
	t.UpdatedAt = now

	t.addDomainEvent(&TaskAssignedEvent{
		TaskNumber: t.TaskNumber,
		CompanyID:  t.CompanyID,
		LocationID: t.LocationID,
		WorkerID:   workerID,
		WorkerName: workerName,
		AssignedAt: now,
	})

	return nil
}

// Start begins task execution. A worker may start a pending task directly,
// which implicitly assigns it to them.
func (t *PutawayTask) Start(workerID, workerName string) error {
	switch t.Status {
	case TaskStatusAssigned:
		// Started by whoever it was assigned to.
	case TaskStatusPending:
		now := time.Now().UTC()
		t.AssignedToID = workerID
		t.AssignedToName = workerName
		t.AssignedAt = &now
	default:
		return newTransitionError(t, "start")
	}

	now := time.Now().UTC()
	t.Status = TaskStatusInProgress
	t.StartedAt = &now
	t.UpdatedAt = now

	t.addDomainEvent(&TaskStartedEvent{
		TaskNumber: t.TaskNumber,
		CompanyID:  t.CompanyID,
		LocationID: t.LocationID,
		WorkerID:   t.AssignedToID,
		StartedAt:  now,
	})

	return nil
}

// CompleteParams holds the optional overrides recorded at completion
type CompleteParams struct {
	ActualBinID   string
	ActualBinCode string
	ActualQty     *int
	Notes         string
}

// Complete finishes the task. The actual bin defaults to the planned bin and
// the actual quantity defaults to the expected quantity. An actual quantity
// below the expected one marks the task short-shipped; over-counts are
// recorded as delivered.
func (t *PutawayTask) Complete(p CompleteParams) error {
	if t.Status != TaskStatusInProgress {
		return newTransitionError(t, "complete")
	}

	actualBinID := p.ActualBinID
	actualBinCode := p.ActualBinCode
	if actualBinID == "" {
		actualBinID = t.ToBinID
		actualBinCode = t.ToBinCode
	}

	actualQty := t.Quantity
	if p.ActualQty != nil {
		if *p.ActualQty < 0 {
			return ErrNegativeQuantity
		}
		actualQty = *p.ActualQty
	}

	now := time.Now().UTC()
	t.ActualBinID = actualBinID
	t.ActualBinCode = actualBinCode
	t.ActualQty = &actualQty
	t.ShortShipped = actualQty < t.Quantity
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	if p.Notes != "" {
		t.Notes = p.Notes
	}

	t.addDomainEvent(&TaskCompletedEvent{
		TaskNumber:    t.TaskNumber,
		CompanyID:     t.CompanyID,
		LocationID:    t.LocationID,
		SKUID:         t.SKUID,
		SKUCode:       t.SKUCode,
		WorkerID:      t.AssignedToID,
		ActualBinID:   actualBinID,
		ActualBinCode: actualBinCode,
		ActualQty:     actualQty,
		ExpectedQty:   t.Quantity,
		ShortShipped:  t.ShortShipped,
		CompletedAt:   now,
	})

	if t.ShortShipped {
		t.addDomainEvent(&TaskShortShippedEvent{
			TaskNumber:  t.TaskNumber,
			CompanyID:   t.CompanyID,
			LocationID:  t.LocationID,
			SKUID:       t.SKUID,
			SKUCode:     t.SKUCode,
			ExpectedQty: t.Quantity,
			ActualQty:   actualQty,
			ReportedAt:  now,
		})
	}

	t.addDomainEvent(&InventoryPlacedEvent{
		TaskNumber: t.TaskNumber,
		CompanyID:  t.CompanyID,
		LocationID: t.LocationID,
		SKUID:      t.SKUID,
		SKUCode:    t.SKUCode,
		BinID:      actualBinID,
		BinCode:    actualBinCode,
		Quantity:   actualQty,
		BatchNo:    t.BatchNo,
		LotNo:      t.LotNo,
		PlacedAt:   now,
	})

	return nil
}

// Cancel cancels the task. Completed and cancelled tasks stay as they are.
func (t *PutawayTask) Cancel(reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if t.Status.IsTerminal() {
		return newTransitionError(t, "cancel")
	}

	now := time.Now().UTC()
	t.Status = TaskStatusCancelled
	t.CancellationReason = reason
	t.CancelledAt = &now
	t.UpdatedAt = now

	t.addDomainEvent(&TaskCancelledEvent{
		TaskNumber:  t.TaskNumber,
		CompanyID:   t.CompanyID,
		LocationID:  t.LocationID,
		Reason:      reason,
		CancelledAt: now,
	})

	return nil
}

// addDomainEvent adds a domain event
func (t *PutawayTask) addDomainEvent(event DomainEvent) {
	t.DomainEvents = append(t.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (t *PutawayTask) GetDomainEvents() []DomainEvent {
	return t.DomainEvents
}

// ClearDomainEvents clears all domain events
func (t *PutawayTask) ClearDomainEvents() {
	t.DomainEvents = make([]DomainEvent, 0)
}
