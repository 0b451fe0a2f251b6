package watcher

import (
	"context"
	"testing"
	"time"
)

func TestDebouncerBatchesBurst(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 50*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// A burst of writes within the quiet period collapses to one event
	for i := 0; i < 5; i++ {
		input <- ChangeEvent{Paths: []string{"/tmp/inventory.json"}, Timestamp: time.Now()}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case event := <-d.Output():
		if len(event.Paths) != 1 {
			t.Errorf("Expected deduplicated single path, got %v", event.Paths)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for debounced event")
	}

	select {
	case event := <-d.Output():
		t.Errorf("Unexpected second event: %v", event.Paths)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerMaxWaitBoundsSteadyStream(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 100*time.Millisecond, 250*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep sending faster than the quiet period; maxWait must still flush
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.After(600 * time.Millisecond)
		for {
			select {
			case input <- ChangeEvent{Paths: []string{"/tmp/inventory.json"}, Timestamp: time.Now()}:
				time.Sleep(30 * time.Millisecond)
			case <-deadline:
				return
			}
		}
	}()

	select {
	case <-d.Output():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("maxWait did not force a flush under steady input")
	}
	<-done
}

func TestDebouncerFlushesOnCancel(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	input <- ChangeEvent{Paths: []string{"/tmp/inventory.json"}, Timestamp: time.Now()}
	cancel()

	select {
	case event, ok := <-d.Output():
		if !ok {
			t.Fatal("Output closed before flushing pending event")
		}
		if len(event.Paths) != 1 {
			t.Errorf("Expected pending path, got %v", event.Paths)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for flush on cancel")
	}

	if _, ok := <-d.Output(); ok {
		t.Error("Expected output channel to be closed")
	}
}
