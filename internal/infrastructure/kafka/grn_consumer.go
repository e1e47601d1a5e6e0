package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cjdquick/putaway-service/internal/application"
	"github.com/cjdquick/putaway-service/pkg/cloudevents"
	apperrors "github.com/cjdquick/putaway-service/pkg/errors"
	"github.com/cjdquick/putaway-service/pkg/kafka"
	"github.com/cjdquick/putaway-service/pkg/logging"
	"github.com/cjdquick/putaway-service/pkg/tenant"
)

// GRNLine is one received line item in a completed goods receipt
type GRNLine struct {
	SKUID      string     `json:"skuId"`
	SKUCode    string     `json:"skuCode"`
	SKUName    string     `json:"skuName,omitempty"`
	Quantity   int        `json:"quantity"`
	BatchNo    string     `json:"batchNo,omitempty"`
	LotNo      string     `json:"lotNo,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Priority   int        `json:"priority,omitempty"`
}

// GRNCompletedData is the payload of a grn.completed event from the
// receiving service
type GRNCompletedData struct {
	GRNID     string    `json:"grnId"`
	GRNNumber string    `json:"grnNumber"`
	Lines     []GRNLine `json:"lines"`
}

// GRNConsumer creates putaway tasks from completed goods receipts.
// One task is created per received line; a line that fails validation is
// logged and skipped, while infrastructure failures fail the whole event
// so it is redelivered.
type GRNConsumer struct {
	consumer *kafka.CircuitBreakerConsumer
	service  *application.PutawayService
	logger   *logging.Logger
}

// NewGRNConsumer creates a new GRNConsumer and registers its subscription
func NewGRNConsumer(consumer *kafka.CircuitBreakerConsumer, service *application.PutawayService, logger *logging.Logger) *GRNConsumer {
	c := &GRNConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
	consumer.Subscribe(kafka.Topics.GRNEvents, cloudevents.GRNCompleted, c.handleGRNCompleted)
	return c
}

// Start starts consuming. Blocks until the context is cancelled.
func (c *GRNConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the underlying consumer
func (c *GRNConsumer) Close() error {
	return c.consumer.Close()
}

func (c *GRNConsumer) handleGRNCompleted(ctx context.Context, event *cloudevents.OMSCloudEvent) error {
	if event.CompanyID == "" || event.LocationID == "" {
		c.logger.WithContext(ctx).Warn("Dropping GRN event without tenant scope", "eventId", event.ID)
		return nil
	}

	scope := &tenant.Scope{
		CompanyID:  event.CompanyID,
		LocationID: event.LocationID,
		UserID:     event.UserID,
	}

	data, err := decodeGRNData(event)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Dropping malformed GRN event", "eventId", event.ID)
		return nil
	}
	if data.GRNID == "" {
		data.GRNID = event.GRNID
	}

	for i, line := range data.Lines {
		_, err := c.service.CreateTask(ctx, scope, application.CreateTaskCommand{
			GRNID:      data.GRNID,
			GRNNumber:  data.GRNNumber,
			SKUID:      line.SKUID,
			SKUCode:    line.SKUCode,
			SKUName:    line.SKUName,
			Quantity:   line.Quantity,
			BatchNo:    line.BatchNo,
			LotNo:      line.LotNo,
			ExpiryDate: line.ExpiryDate,
			Priority:   line.Priority,
		})
		if err != nil {
			if appErr, ok := apperrors.AsAppError(err); ok && appErr.HTTPStatus < 500 {
				c.logger.WithContext(ctx).WithError(err).Warn("Skipping unprocessable GRN line",
					"grnNumber", data.GRNNumber,
					"line", i,
					"skuCode", line.SKUCode,
				)
				continue
			}
			return fmt.Errorf("failed to create task for GRN %s line %d: %w", data.GRNNumber, i, err)
		}
	}

	c.logger.WithContext(ctx).Info("Created putaway tasks from GRN",
		"grnNumber", data.GRNNumber,
		"lines", len(data.Lines),
	)

	return nil
}

// decodeGRNData extracts the typed payload from the event's generic data
func decodeGRNData(event *cloudevents.OMSCloudEvent) (*GRNCompletedData, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	var data GRNCompletedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode GRN payload: %w", err)
	}
	if len(data.Lines) == 0 {
		return nil, fmt.Errorf("GRN event has no lines")
	}
	return &data, nil
}
