package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cjdquick/putaway-service/internal/domain"
	apperrors "github.com/cjdquick/putaway-service/pkg/errors"
	"github.com/cjdquick/putaway-service/pkg/logging"
	"github.com/cjdquick/putaway-service/pkg/resilience"
)

// WorkerClientConfig holds configuration for the user service client
type WorkerClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultWorkerClientConfig returns default configuration
func DefaultWorkerClientConfig() *WorkerClientConfig {
	return &WorkerClientConfig{
		BaseURL: "http://user-service:8080",
		Timeout: 5 * time.Second,
	}
}

// WorkerClient resolves workers against the user service over HTTP.
// Calls run through a circuit breaker so a down directory fails fast
// instead of stalling every assignment.
type WorkerClient struct {
	baseURL        string
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
	logger         *logging.Logger
}

// NewWorkerClient creates a new WorkerClient
func NewWorkerClient(config *WorkerClientConfig, logger *logging.Logger) *WorkerClient {
	if config == nil {
		config = DefaultWorkerClientConfig()
	}

	cbConfig := &resilience.CircuitBreakerConfig{
		Name:                  "user-service",
		MaxRequests:           3,
		Interval:              time.Minute,
		Timeout:               15 * time.Second,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}

	var slogLogger *slog.Logger
	if logger != nil && logger.Logger != nil {
		slogLogger = logger.Logger
	} else {
		slogLogger = slog.Default()
	}

	return &WorkerClient{
		baseURL:        config.BaseURL,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: resilience.NewCircuitBreaker(cbConfig, slogLogger),
		logger:         logger,
	}
}

type workerResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// GetWorker returns the worker, (nil, nil) when the directory does not know
// the ID, or a dependency error when the directory cannot be reached.
func (c *WorkerClient) GetWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.fetchWorker(ctx, workerID)
	})
	if err != nil {
		if c.logger != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("User service lookup failed", "workerId", workerID)
		}
		return nil, apperrors.ErrDependencyUnavailable("user service").Wrap(err)
	}

	worker, _ := result.(*domain.Worker)
	return worker, nil
}

func (c *WorkerClient) fetchWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, workerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("user service returned status %d", resp.StatusCode)
	}

	var body workerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}

	return &domain.Worker{
		ID:     body.ID,
		Name:   body.Name,
		Active: body.Active,
	}, nil
}
