package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for putaway domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new OMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *OMSCloudEvent {
	event := &OMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
) *OMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	return event
}

// CreateTaskCreatedEvent creates a TaskCreated event
func (f *EventFactory) CreateTaskCreatedEvent(ctx context.Context, data TaskCreatedData) *OMSCloudEvent {
	event := f.CreateEvent(ctx, TaskCreated, "putaway-task/"+data.TaskNumber, data)
	event.TaskNumber = data.TaskNumber
	event.GRNID = data.GRNID
	return event
}

// CreateTaskAssignedEvent creates a TaskAssigned event
func (f *EventFactory) CreateTaskAssignedEvent(ctx context.Context, data TaskAssignedData) *OMSCloudEvent {
	event := f.CreateEvent(ctx, TaskAssigned, "putaway-task/"+data.TaskNumber, data)
	event.TaskNumber = data.TaskNumber
	return event
}

// CreateTaskStartedEvent creates a TaskStarted event
func (f *EventFactory) CreateTaskStartedEvent(ctx context.Context, data TaskStartedData) *OMSCloudEvent {
	event := f.CreateEvent(ctx, TaskStarted, "putaway-task/"+data.TaskNumber, data)
	event.TaskNumber = data.TaskNumber
	return event
}

// CreateTaskCompletedEvent creates a TaskCompleted event
func (f *EventFactory) CreateTaskCompletedEvent(ctx context.Context, data TaskCompletedData) *OMSCloudEvent {
	event := f.CreateEvent(ctx, TaskCompleted, "putaway-task/"+data.TaskNumber, data)
	event.TaskNumber = data.TaskNumber
	return event
}

// CreateTaskShortShippedEvent creates a TaskShortShipped event
func (f *EventFactory) CreateTaskShortShippedEvent(ctx context.Context, data TaskShortShippedData) *OMSCloudEvent {
	event := f.CreateEvent(ctx, TaskShortShipped, "putaway-task/"+data.TaskNumber, data)
	event.TaskNumber = data.TaskNumber
	return event
}

// CreateTaskCancelledEvent creates a TaskCancelled event
func (f *EventFactory) CreateTaskCancelledEvent(ctx context.Context, data TaskCancelledData) *OMSCloudEvent {
	event := f.CreateEvent(ctx, TaskCancelled, "putaway-task/"+data.TaskNumber, data)
	event.TaskNumber = data.TaskNumber
	return event
}

// CreateInventoryPlacedEvent creates an InventoryPlaced event
func (f *EventFactory) CreateInventoryPlacedEvent(ctx context.Context, data InventoryPlacedData) *OMSCloudEvent {
	event := f.CreateEvent(ctx, InventoryPlaced, "bin/"+data.BinID, data)
	event.TaskNumber = data.TaskNumber
	return event
}
