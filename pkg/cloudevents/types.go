package cloudevents

import (
	"time"
)

// EventType constants for putaway domain events
const (
	// Task lifecycle events
	TaskCreated      = "putaway.task.created"
	TaskAssigned     = "putaway.task.assigned"
	TaskStarted      = "putaway.task.started"
	TaskCompleted    = "putaway.task.completed"
	TaskShortShipped = "putaway.task.short-shipped"
	TaskCancelled    = "putaway.task.cancelled"

	// Inventory events
	InventoryPlaced = "putaway.inventory.placed"

	// Inbound events from the receiving service
	GRNCompleted = "grn.completed"
)

// Source constants for event sources
const (
	SourcePutaway   = "/oms/putaway-service"
	SourceReceiving = "/oms/receiving-service"
	SourceInventory = "/oms/inventory-service"
)

// OMSCloudEvent represents a CloudEvents v1.0 compliant event
type OMSCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// OMS-specific extensions
	CorrelationID string `json:"omscorrelationid,omitempty"`
	CompanyID     string `json:"omscompanyid,omitempty"`
	LocationID    string `json:"omslocationid,omitempty"`
	TaskNumber    string `json:"omstasknumber,omitempty"`
	GRNID         string `json:"omsgrnid,omitempty"`
	UserID        string `json:"omsuserid,omitempty"`
}

// TaskCreatedData represents the data payload for TaskCreated event
type TaskCreatedData struct {
	TaskNumber string `json:"taskNumber"`
	GRNID      string `json:"grnId,omitempty"`
	GRNNumber  string `json:"grnNumber,omitempty"`
	SKUID      string `json:"skuId"`
	SKUCode    string `json:"skuCode"`
	Quantity   int    `json:"quantity"`
	ToBinID    string `json:"toBinId,omitempty"`
	ToBinCode  string `json:"toBinCode,omitempty"`
	Priority   int    `json:"priority"`
}

// TaskAssignedData represents the data payload for TaskAssigned event
type TaskAssignedData struct {
	TaskNumber     string `json:"taskNumber"`
	AssignedToID   string `json:"assignedToId"`
	AssignedToName string `json:"assignedToName,omitempty"`
}

// TaskStartedData represents the data payload for TaskStarted event
type TaskStartedData struct {
	TaskNumber string `json:"taskNumber"`
	WorkerID   string `json:"workerId"`
}

// TaskCompletedData represents the data payload for TaskCompleted event
type TaskCompletedData struct {
	TaskNumber    string `json:"taskNumber"`
	SKUID         string `json:"skuId"`
	SKUCode       string `json:"skuCode"`
	Quantity      int    `json:"quantity"`
	ActualQty     int    `json:"actualQty"`
	ActualBinID   string `json:"actualBinId"`
	ActualBinCode string `json:"actualBinCode"`
	ShortShipped  bool   `json:"shortShipped"`
	WorkerID      string `json:"workerId,omitempty"`
}

// TaskShortShippedData represents the data payload for TaskShortShipped event
type TaskShortShippedData struct {
	TaskNumber   string `json:"taskNumber"`
	SKUID        string `json:"skuId"`
	SKUCode      string `json:"skuCode"`
	ExpectedQty  int    `json:"expectedQty"`
	ActualQty    int    `json:"actualQty"`
	ShortfallQty int    `json:"shortfallQty"`
}

// TaskCancelledData represents the data payload for TaskCancelled event
type TaskCancelledData struct {
	TaskNumber string `json:"taskNumber"`
	Reason     string `json:"reason"`
}

// InventoryPlacedData represents the data payload for InventoryPlaced event
type InventoryPlacedData struct {
	TaskNumber string `json:"taskNumber"`
	SKUID      string `json:"skuId"`
	SKUCode    string `json:"skuCode"`
	Quantity   int    `json:"quantity"`
	BinID      string `json:"binId"`
	BinCode    string `json:"binCode"`
	BatchNo    string `json:"batchNo,omitempty"`
	LotNo      string `json:"lotNo,omitempty"`
}
