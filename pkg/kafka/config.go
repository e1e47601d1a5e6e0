package kafka

import (
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack

	// Consumer settings
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	CommitTimeout time.Duration

	// TLS settings
	TLSEnabled bool
	TLSCert    string
	TLSKey     string
	TLSCA      string

	// SASL settings
	SASLEnabled   bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "putaway-service",
		ClientID:      "putaway-service",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1, // All replicas

		MinBytes:      1,
		MaxBytes:      10e6, // 10MB
		MaxWait:       500 * time.Millisecond,
		CommitTimeout: 5 * time.Second,

		TLSEnabled:  false,
		SASLEnabled: false,
	}
}

// Topics contains all Kafka topic names this service touches
var Topics = struct {
	// Inbound topics
	GRNEvents string

	// Domain event topics
	PutawayEvents   string
	InventoryEvents string

	// Notification topics
	NotificationEvents string
}{
	GRNEvents: "oms.grn.events",

	PutawayEvents:   "oms.putaway.events",
	InventoryEvents: "oms.inventory.events",

	NotificationEvents: "oms.notifications.events",
}

// TopicConfig holds configuration for a Kafka topic
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

// DefaultTopicConfigs returns default configurations for the topics this service publishes to
func DefaultTopicConfigs() []TopicConfig {
	return []TopicConfig{
		{Name: Topics.PutawayEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 7 * 24 * 60 * 60 * 1000},  // 7 days
		{Name: Topics.InventoryEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 7 * 24 * 60 * 60 * 1000},
		{Name: Topics.NotificationEvents, Partitions: 3, ReplicationFactor: 3, RetentionMs: 24 * 60 * 60 * 1000}, // 1 day
	}
}
