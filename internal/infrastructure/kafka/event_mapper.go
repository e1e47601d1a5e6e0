package kafka

import (
	"context"

	"github.com/cjdquick/putaway-service/internal/domain"
	"github.com/cjdquick/putaway-service/pkg/cloudevents"
	"github.com/cjdquick/putaway-service/pkg/kafka"
)

// TopicsFor returns the Kafka topics a domain event is routed to.
// Short-shipment events additionally go to the notification topic so
// supervisors are alerted; inventory placements go to the inventory topic
// consumed by the stock ledger.
func TopicsFor(event domain.DomainEvent) []string {
	switch event.(type) {
	case *domain.InventoryPlacedEvent:
		return []string{kafka.Topics.InventoryEvents}
	case *domain.TaskShortShippedEvent:
		return []string{kafka.Topics.PutawayEvents, kafka.Topics.NotificationEvents}
	default:
		return []string{kafka.Topics.PutawayEvents}
	}
}

// ToCloudEvent converts a domain event to its wire representation.
// Returns nil for event types that are not published externally.
func ToCloudEvent(ctx context.Context, factory *cloudevents.EventFactory, event domain.DomainEvent) *cloudevents.OMSCloudEvent {
	var ce *cloudevents.OMSCloudEvent
	companyID := ""
	locationID := ""

	switch e := event.(type) {
	case *domain.TaskCreatedEvent:
		ce = factory.CreateTaskCreatedEvent(ctx, cloudevents.TaskCreatedData{
			TaskNumber: e.TaskNumber,
			GRNID:      e.GRNID,
			GRNNumber:  e.GRNNumber,
			SKUID:      e.SKUID,
			SKUCode:    e.SKUCode,
			Quantity:   e.Quantity,
			ToBinID:    e.ToBinID,
			ToBinCode:  e.ToBinCode,
			Priority:   e.Priority,
		})
		ce.Time = e.CreatedAt
		companyID, locationID = e.CompanyID, e.LocationID

	case *domain.TaskAssignedEvent:
		ce = factory.CreateTaskAssignedEvent(ctx, cloudevents.TaskAssignedData{
			TaskNumber:     e.TaskNumber,
			AssignedToID:   e.WorkerID,
			AssignedToName: e.WorkerName,
		})
		ce.Time = e.AssignedAt
		companyID, locationID = e.CompanyID, e.LocationID

	case *domain.TaskStartedEvent:
		ce = factory.CreateTaskStartedEvent(ctx, cloudevents.TaskStartedData{
			TaskNumber: e.TaskNumber,
			WorkerID:   e.WorkerID,
		})
		ce.Time = e.StartedAt
		companyID, locationID = e.CompanyID, e.LocationID

	case *domain.TaskCompletedEvent:
		ce = factory.CreateTaskCompletedEvent(ctx, cloudevents.TaskCompletedData{
			TaskNumber:    e.TaskNumber,
			SKUID:         e.SKUID,
			SKUCode:       e.SKUCode,
			Quantity:      e.ExpectedQty,
			ActualQty:     e.ActualQty,
			ActualBinID:   e.ActualBinID,
			ActualBinCode: e.ActualBinCode,
			ShortShipped:  e.ShortShipped,
			WorkerID:      e.WorkerID,
		})
		ce.Time = e.CompletedAt
		companyID, locationID = e.CompanyID, e.LocationID

	case *domain.TaskShortShippedEvent:
		ce = factory.CreateTaskShortShippedEvent(ctx, cloudevents.TaskShortShippedData{
			TaskNumber:   e.TaskNumber,
			SKUID:        e.SKUID,
			SKUCode:      e.SKUCode,
			ExpectedQty:  e.ExpectedQty,
			ActualQty:    e.ActualQty,
			ShortfallQty: e.ExpectedQty - e.ActualQty,
		})
		ce.Time = e.ReportedAt
		companyID, locationID = e.CompanyID, e.LocationID

	case *domain.TaskCancelledEvent:
		ce = factory.CreateTaskCancelledEvent(ctx, cloudevents.TaskCancelledData{
			TaskNumber: e.TaskNumber,
			Reason:     e.Reason,
		})
		ce.Time = e.CancelledAt
		companyID, locationID = e.CompanyID, e.LocationID

	case *domain.InventoryPlacedEvent:
		ce = factory.CreateInventoryPlacedEvent(ctx, cloudevents.InventoryPlacedData{
			TaskNumber: e.TaskNumber,
			SKUID:      e.SKUID,
			SKUCode:    e.SKUCode,
			Quantity:   e.Quantity,
			BinID:      e.BinID,
			BinCode:    e.BinCode,
			BatchNo:    e.BatchNo,
			LotNo:      e.LotNo,
		})
		ce.Time = e.PlacedAt
		companyID, locationID = e.CompanyID, e.LocationID

	default:
		return nil
	}

	ce.CompanyID = companyID
	ce.LocationID = locationID
	return ce
}
