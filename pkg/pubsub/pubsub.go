// Package pubsub fans catalog updates out to server-sent event subscribers.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the server.
const (
	TopicDocuments = "documents"
	TopicCatalog   = "catalog"
)

// Event types on TopicDocuments.
const (
	EventLoaded  = "loaded"
	EventRemoved = "removed"
	EventError   = "error"
)

// EventSummary is the only event type on TopicCatalog.
const EventSummary = "summary"

// Event is one published message.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic, starts at 1
}

// Subscription receives the events of one topic.
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher manages subscriptions and publishing.
type Publisher interface {
	// Subscribe creates a subscription that is closed when ctx is done.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish marshals data and sends it to every subscriber of topic.
	Publish(topic string, eventType string, data any) error

	Close() error
}

// DocumentStatus is the payload of TopicDocuments events.
type DocumentStatus struct {
	ID         string `json:"id"`
	Valid      bool   `json:"valid"`
	ErrorCount int    `json:"error_count"`
	Nodes      int    `json:"nodes"`
	Links      int    `json:"links"`
	Error      string `json:"error,omitempty"` // read failure, EventError only
}

// CatalogSummary is the payload of TopicCatalog events.
type CatalogSummary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// DefaultTopics returns the buffering used for the server's topics.
func DefaultTopics() map[string]TopicConfig {
	return map[string]TopicConfig{
		TopicDocuments: {BufferSize: 20, ReplayAll: false},
		TopicCatalog:   {BufferSize: 5, ReplayAll: false},
	}
}
