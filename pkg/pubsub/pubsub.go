package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "analysis_status")
	Type    string          `json:"type"`    // Event type (e.g., "started", "collecting_signals", "completed")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// TopicAnalysis carries analysis progress and completion events.
const TopicAnalysis = "analysis_status"

// AnalysisStatus describes the state of a running or finished analysis
type AnalysisStatus struct {
	ReportID string `json:"report_id,omitempty"`
	State    string `json:"state"`   // started, building_graph, collecting_signals, ranking, completed, failed
	Message  string `json:"message"` // Human-readable status message
	Findings int    `json:"findings,omitempty"`
}
