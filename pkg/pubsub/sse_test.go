package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEventBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic("test", TopicConfig{BufferSize: 3, ReplayAll: true})

	for i := 1; i <= 5; i++ {
		if err := pub.Publish("test", EventLoaded, DocumentStatus{ID: "doc", Nodes: i}); err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// last 3 of 5
	for want := 3; want <= 5; want++ {
		select {
		case event := <-sub.Events():
			if event.Version != want {
				t.Errorf("Expected version %d, got %d", want, event.Version)
			}
			var status DocumentStatus
			if err := json.Unmarshal(event.Data, &status); err != nil {
				t.Fatalf("bad payload: %v", err)
			}
			if status.Nodes != want {
				t.Errorf("Expected payload nodes %d, got %d", want, status.Nodes)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for version %d", want)
		}
	}
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	for topic, config := range DefaultTopics() {
		pub.ConfigureTopic(topic, config)
	}

	for i := 1; i <= 3; i++ {
		if err := pub.Publish(TopicCatalog, EventSummary, CatalogSummary{Total: i}); err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicCatalog)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		if event.Version != 3 {
			t.Errorf("Expected version 3, got %d", event.Version)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}

	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected extra event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	for i := 1; i <= 3; i++ {
		if err := pub.Publish("test", "event", map[string]int{"num": i}); err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}

	if err := pub.Publish("test", "event", map[string]int{"num": 4}); err != nil {
		t.Fatalf("Failed to publish new event: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Version != 4 {
			t.Errorf("Expected version 4, got %d", event.Version)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new event")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicDocuments)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if err := pub.Publish(TopicCatalog, EventSummary, CatalogSummary{}); err != nil {
		t.Fatal(err)
	}
	select {
	case event := <-sub.Events():
		t.Errorf("received event from another topic: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClosedPublisher(t *testing.T) {
	pub := NewSSEPublisher()

	sub, err := pub.Subscribe(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Close(); err != nil {
		t.Fatal(err)
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("expected subscriber channel to be closed")
	}
	if err := pub.Publish("test", "event", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Publish, got %v", err)
	}
	if _, err := pub.Subscribe(context.Background(), "test"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Subscribe, got %v", err)
	}
}

func TestUnmarshalablePayload(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	if err := pub.Publish("test", "event", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{Topic: TopicDocuments, Type: EventRemoved, Data: json.RawMessage(`{"id":"a.json"}`), Version: 7}
	if err := WriteSSE(&buf, event); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "id: 7\ndata: ") || !strings.HasSuffix(out, "\n\n") {
		t.Errorf("unexpected framing %q", out)
	}
	if !strings.Contains(out, `"type":"removed"`) || !strings.Contains(out, `"data":{"id":"a.json"}`) {
		t.Errorf("unexpected payload %q", out)
	}
}
