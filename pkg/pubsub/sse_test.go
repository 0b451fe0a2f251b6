package pubsub

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestReplayAllBufferedEvents(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicAnalysis, TopicConfig{
		BufferSize: 3,
		ReplayAll:  true,
	})

	// Five published, buffer keeps the last three
	for i := 1; i <= 5; i++ {
		status := AnalysisStatus{State: "ranking", Findings: i}
		if err := pub.Publish(TopicAnalysis, "progress", status); err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicAnalysis)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	for received := 0; received < 3; received++ {
		select {
		case event := <-sub.Events():
			expectedVersion := received + 3
			if event.Version != expectedVersion {
				t.Errorf("Expected version %d, got %d", expectedVersion, event.Version)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for replayed event %d", received+1)
		}
	}
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicAnalysis, TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	states := []string{"started", "collecting_signals", "completed"}
	for _, state := range states {
		if err := pub.Publish(TopicAnalysis, "progress", AnalysisStatus{State: state}); err != nil {
			t.Fatalf("Failed to publish %q: %v", state, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicAnalysis)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Only the most recent event is replayed
	select {
	case event := <-sub.Events():
		if event.Version != 3 {
			t.Errorf("Expected version 3, got %d", event.Version)
		}
		var status AnalysisStatus
		if err := json.Unmarshal(event.Data, &status); err != nil {
			t.Fatalf("Failed to decode event data: %v", err)
		}
		if status.State != "completed" {
			t.Errorf("Expected state completed, got %q", status.State)
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

func TestNoBufferDeliversOnlyLiveEvents(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicAnalysis, TopicConfig{
		BufferSize: 0,
		ReplayAll:  false,
	})

	for i := 1; i <= 3; i++ {
		if err := pub.Publish(TopicAnalysis, "progress", AnalysisStatus{Findings: i}); err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicAnalysis)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}

	if err := pub.Publish(TopicAnalysis, "progress", AnalysisStatus{Findings: 4}); err != nil {
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

func TestPublishAfterCloseFails(t *testing.T) {
	pub := NewSSEPublisher()
	if err := pub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := pub.Publish(TopicAnalysis, "progress", AnalysisStatus{State: "started"})
	if err == nil {
		t.Fatal("Expected publish on closed publisher to fail")
	}

	if _, err := pub.Subscribe(context.Background(), TopicAnalysis); err == nil {
		t.Fatal("Expected subscribe on closed publisher to fail")
	}
}

func TestWriteSSEFormat(t *testing.T) {
	var sb strings.Builder
	event := Event{
		Topic:   TopicAnalysis,
		Type:    "completed",
		Data:    json.RawMessage(`{"state":"completed"}`),
		Version: 7,
	}

	if err := WriteSSE(&sb, event); err != nil {
		t.Fatalf("WriteSSE failed: %v", err)
	}

	out := sb.String()
	if !strings.HasPrefix(out, "data: ") {
		t.Errorf("Expected data: prefix, got %q", out)
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Errorf("Expected double newline terminator, got %q", out)
	}
	if !strings.Contains(out, `"version":7`) {
		t.Errorf("Expected version in payload, got %q", out)
	}
}
