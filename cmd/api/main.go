package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cjdquick/putaway-service/internal/application"
	"github.com/cjdquick/putaway-service/internal/domain"
	"github.com/cjdquick/putaway-service/internal/infrastructure/clients"
	infrakafka "github.com/cjdquick/putaway-service/internal/infrastructure/kafka"
	mongoRepo "github.com/cjdquick/putaway-service/internal/infrastructure/mongodb"
	"github.com/cjdquick/putaway-service/internal/infrastructure/projections"
	"github.com/cjdquick/putaway-service/pkg/cloudevents"
	"github.com/cjdquick/putaway-service/pkg/kafka"
	"github.com/cjdquick/putaway-service/pkg/logging"
	"github.com/cjdquick/putaway-service/pkg/metrics"
	"github.com/cjdquick/putaway-service/pkg/middleware"
	"github.com/cjdquick/putaway-service/pkg/mongodb"
	"github.com/cjdquick/putaway-service/pkg/outbox"
	"github.com/cjdquick/putaway-service/pkg/tracing"
)

const serviceName = "putaway-service"

func main() {
	// Setup structured logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting putaway-service API")

	// Load configuration
	config := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB with instrumentation and circuit breaker
	mongoClient, err := mongodb.NewProductionClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer and consumer
	kafkaProducer := kafka.NewProductionProducer(config.Kafka, m, logger)
	defer kafkaProducer.Close()
	kafkaConsumer := kafka.NewProductionConsumer(config.Kafka, m, logger)
	defer kafkaConsumer.Close()
	logger.Info("Kafka initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourcePutaway)

	// Initialize repositories
	taskRepo := mongoRepo.NewTaskRepository(mongoClient, eventFactory, logger)
	binRepo := mongoRepo.NewBinRepository(mongoClient, logger)
	sequenceRepo := mongoRepo.NewSequenceRepository(mongoClient)
	summaryRepo := projections.NewSummaryRepository(mongoClient, "putaway_tasks")

	// Initialize user service client
	workerClient := clients.NewWorkerClient(config.WorkerClient, logger)

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(
		taskRepo.OutboxRepository(),
		kafkaProducer.Underlying(),
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize application services
	suggester := application.NewBinSuggester(binRepo, m, logger)
	putawayService := application.NewPutawayService(
		taskRepo,
		binRepo,
		workerClient,
		sequenceRepo,
		summaryRepo,
		suggester,
		m,
		logger,
	)

	// Start GRN event consumer
	grnConsumer := infrakafka.NewGRNConsumer(kafkaConsumer, putawayService, logger)
	go func() {
		if err := grnConsumer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("GRN consumer stopped")
		}
	}()
	logger.Info("GRN consumer started", "topic", kafka.Topics.GRNEvents)

	// Setup Gin router with middleware
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes, tenant scoped
	api := router.Group("/api/v1/putaway")
	api.Use(middleware.TenantAuth())
	{
		tasks := api.Group("/tasks")
		{
			tasks.GET("", listTasksHandler(putawayService, logger))
			tasks.POST("", createTaskHandler(putawayService, logger))
			tasks.GET("/summary", summaryHandler(putawayService, logger))
			tasks.GET("/:taskNumber", getTaskHandler(putawayService, logger))
			tasks.POST("/:taskNumber/assign", assignTaskHandler(putawayService, logger))
			tasks.POST("/:taskNumber/start", startTaskHandler(putawayService, logger))
			tasks.POST("/:taskNumber/complete", completeTaskHandler(putawayService, logger))
			tasks.POST("/:taskNumber/cancel", cancelTaskHandler(putawayService, logger))
		}

		api.POST("/suggest-bin", suggestBinHandler(suggester, logger))
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	// Stop the consumer loop before the deferred closes run
	cancel()

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr   string
	MongoDB      *mongodb.Config
	Kafka        *kafka.Config
	WorkerClient *clients.WorkerClientConfig
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8012"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "oms_putaway"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
		WorkerClient: &clients.WorkerClientConfig{
			BaseURL: getEnv("WORKER_DIRECTORY_URL", "http://user-service:8080"),
			Timeout: 5 * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTP Handlers

func createTaskHandler(service *application.PutawayService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		var req struct {
			GRNID      string     `json:"grnId"`
			GRNNumber  string     `json:"grnNumber"`
			SKUID      string     `json:"skuId" binding:"required"`
			SKUCode    string     `json:"skuCode" binding:"required,sku"`
			SKUName    string     `json:"skuName"`
			Quantity   int        `json:"quantity" binding:"required,min=1"`
			BatchNo    string     `json:"batchNo"`
			LotNo      string     `json:"lotNo"`
			ExpiryDate *time.Time `json:"expiryDate"`
			FromBinID  string     `json:"fromBinId"`
			ToBinID    string     `json:"toBinId"`
			Priority   int        `json:"priority" binding:"omitempty,gte=0,lte=5"`
			Notes      string     `json:"notes" binding:"omitempty,max=500"`
		}

		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.CreateTaskCommand{
			GRNID:      req.GRNID,
			GRNNumber:  req.GRNNumber,
			SKUID:      req.SKUID,
			SKUCode:    req.SKUCode,
			SKUName:    req.SKUName,
			Quantity:   req.Quantity,
			BatchNo:    req.BatchNo,
			LotNo:      req.LotNo,
			ExpiryDate: req.ExpiryDate,
			FromBinID:  req.FromBinID,
			ToBinID:    req.ToBinID,
			Priority:   req.Priority,
			Notes:      req.Notes,
		}

		task, err := service.CreateTask(c.Request.Context(), scope, cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, task)
	}
}

func getTaskHandler(service *application.PutawayService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		detail, err := service.GetTaskDetail(c.Request.Context(), scope, c.Param("taskNumber"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, detail)
	}
}

func listTasksHandler(service *application.PutawayService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		query := application.ListTasksQuery{
			Status:       c.Query("status"),
			AssignedToID: c.Query("assignedTo"),
			SKUCode:      c.Query("skuCode"),
			GRNID:        c.Query("grnId"),
			Pagination:   paginationFromQuery(c),
		}

		list, err := service.ListTasks(c.Request.Context(), scope, query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

func summaryHandler(service *application.PutawayService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		summary, err := service.GetSummary(c.Request.Context(), scope, c.Query("tz"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

func assignTaskHandler(service *application.PutawayService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		var req struct {
			AssignedToID string `json:"assignedToId" binding:"required"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		task, err := service.AssignTask(c.Request.Context(), scope, application.AssignTaskCommand{
			TaskNumber: c.Param("taskNumber"),
			WorkerID:   req.AssignedToID,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func startTaskHandler(service *application.PutawayService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		var req struct {
			WorkerID string `json:"workerId"`
		}
		// Body is optional; the acting user starts the task by default
		if c.Request.ContentLength > 0 {
			if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
				responder.RespondWithAppError(appErr)
				return
			}
		}

		task, err := service.StartTask(c.Request.Context(), scope, application.StartTaskCommand{
			TaskNumber: c.Param("taskNumber"),
			WorkerID:   req.WorkerID,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func completeTaskHandler(service *application.PutawayService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		var req struct {
			ActualBinID string `json:"actualBinId"`
			ActualQty   *int   `json:"actualQty" binding:"omitempty,gte=0"`
			Notes       string `json:"notes" binding:"omitempty,max=500"`
		}
		if c.Request.ContentLength > 0 {
			if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
				responder.RespondWithAppError(appErr)
				return
			}
		}

		task, err := service.CompleteTask(c.Request.Context(), scope, application.CompleteTaskCommand{
			TaskNumber:  c.Param("taskNumber"),
			ActualBinID: req.ActualBinID,
			ActualQty:   req.ActualQty,
			Notes:       req.Notes,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func cancelTaskHandler(service *application.PutawayService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		var req struct {
			Reason string `json:"reason" binding:"required,max=500"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		task, err := service.CancelTask(c.Request.Context(), scope, application.CancelTaskCommand{
			TaskNumber: c.Param("taskNumber"),
			Reason:     req.Reason,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func suggestBinHandler(suggester *application.BinSuggester, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		scope := middleware.GetTenantScope(c)

		var req struct {
			SKUID             string `json:"skuId" binding:"required"`
			Quantity          int    `json:"quantity" binding:"required,min=1"`
			PreferSameSKU     bool   `json:"preferSameSkuBins"`
			PreferEmpty       bool   `json:"preferEmptyBins"`
			PreferredZoneType string `json:"preferredZoneType"`
			Limit             int    `json:"limit" binding:"omitempty,min=1,max=50"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		suggestions, err := suggester.Suggest(c.Request.Context(), scope, domain.SuggestionRequest{
			SKUID:             req.SKUID,
			Quantity:          req.Quantity,
			PreferSameSKU:     req.PreferSameSKU,
			PreferEmpty:       req.PreferEmpty,
			PreferredZoneType: req.PreferredZoneType,
		}, req.Limit)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "total": len(suggestions)})
	}
}

func paginationFromQuery(c *gin.Context) domain.Pagination {
	p := domain.DefaultPagination()
	if v, err := strconv.ParseInt(c.Query("page"), 10, 64); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.ParseInt(c.Query("pageSize"), 10, 64); err == nil && v > 0 {
		p.PageSize = v
		if p.PageSize > 100 {
			p.PageSize = 100
		}
	}
	return p
}
