package domain

import "time"

// DomainEvent represents a domain event interface
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// TaskCreatedEvent is emitted when a putaway task is created
type TaskCreatedEvent struct {
	TaskNumber string    `json:"taskNumber"`
	CompanyID  string    `json:"companyId"`
	LocationID string    `json:"locationId"`
	SKUID      string    `json:"skuId"`
	SKUCode    string    `json:"skuCode"`
	Quantity   int       `json:"quantity"`
	ToBinID    string    `json:"toBinId,omitempty"`
	ToBinCode  string    `json:"toBinCode,omitempty"`
	GRNID      string    `json:"grnId,omitempty"`
	GRNNumber  string    `json:"grnNumber,omitempty"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (e *TaskCreatedEvent) EventType() string     { return "putaway.task.created" }
func (e *TaskCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// TaskAssignedEvent is emitted when a task is assigned to a worker
type TaskAssignedEvent struct {
	TaskNumber string    `json:"taskNumber"`
	CompanyID  string    `json:"companyId"`
	LocationID string    `json:"locationId"`
	WorkerID   string    `json:"workerId"`
	WorkerName string    `json:"workerName,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
}

func (e *TaskAssignedEvent) EventType() string     { return "putaway.task.assigned" }
func (e *TaskAssignedEvent) OccurredAt() time.Time { return e.AssignedAt }

// TaskStartedEvent is emitted when a worker begins executing a task
type TaskStartedEvent struct {
	TaskNumber string    `json:"taskNumber"`
	CompanyID  string    `json:"companyId"`
	LocationID string    `json:"locationId"`
	WorkerID   string    `json:"workerId"`
	StartedAt  time.Time `json:"startedAt"`
}

func (e *TaskStartedEvent) EventType() string     { return "putaway.task.started" }
func (e *TaskStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// TaskCompletedEvent is emitted when a task is completed
type TaskCompletedEvent struct {
	TaskNumber    string    `json:"taskNumber"`
	CompanyID     string    `json:"companyId"`
	LocationID    string    `json:"locationId"`
	SKUID         string    `json:"skuId"`
	SKUCode       string    `json:"skuCode"`
	WorkerID      string    `json:"workerId"`
	ActualBinID   string    `json:"actualBinId"`
	ActualBinCode string    `json:"actualBinCode"`
	ActualQty     int       `json:"actualQty"`
	ExpectedQty   int       `json:"expectedQty"`
	ShortShipped  bool      `json:"shortShipped"`
	CompletedAt   time.Time `json:"completedAt"`
}

func (e *TaskCompletedEvent) EventType() string     { return "putaway.task.completed" }
func (e *TaskCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// TaskShortShippedEvent is emitted alongside completion when the recorded
// quantity falls short of the expected quantity. Routed to the notification
// topic so supervisors see it.
type TaskShortShippedEvent struct {
	TaskNumber  string    `json:"taskNumber"`
	CompanyID   string    `json:"companyId"`
	LocationID  string    `json:"locationId"`
	SKUID       string    `json:"skuId"`
	SKUCode     string    `json:"skuCode"`
	ExpectedQty int       `json:"expectedQty"`
	ActualQty   int       `json:"actualQty"`
	ReportedAt  time.Time `json:"reportedAt"`
}

func (e *TaskShortShippedEvent) EventType() string     { return "putaway.task.short-shipped" }
func (e *TaskShortShippedEvent) OccurredAt() time.Time { return e.ReportedAt }

// TaskCancelledEvent is emitted when a task is cancelled
type TaskCancelledEvent struct {
	TaskNumber  string    `json:"taskNumber"`
	CompanyID   string    `json:"companyId"`
	LocationID  string    `json:"locationId"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *TaskCancelledEvent) EventType() string     { return "putaway.task.cancelled" }
func (e *TaskCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// InventoryPlacedEvent records the stock movement effect of a completion
type InventoryPlacedEvent struct {
	TaskNumber string    `json:"taskNumber"`
	CompanyID  string    `json:"companyId"`
	LocationID string    `json:"locationId"`
	SKUID      string    `json:"skuId"`
	SKUCode    string    `json:"skuCode"`
	BinID      string    `json:"binId"`
	BinCode    string    `json:"binCode"`
	Quantity   int       `json:"quantity"`
	BatchNo    string    `json:"batchNo,omitempty"`
	LotNo      string    `json:"lotNo,omitempty"`
	PlacedAt   time.Time `json:"placedAt"`
}

func (e *InventoryPlacedEvent) EventType() string     { return "putaway.inventory.placed" }
func (e *InventoryPlacedEvent) OccurredAt() time.Time { return e.PlacedAt }
