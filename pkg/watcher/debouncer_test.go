package watcher

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestDebouncerMergesBurst(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 50*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Paths: []string{"a.json"}}
	input <- ChangeEvent{Paths: []string{"b.json", "a.json"}}
	input <- ChangeEvent{Paths: []string{"c.md"}}

	select {
	case event := <-d.Output():
		want := []string{"a.json", "b.json", "c.md"}
		if !reflect.DeepEqual(event.Paths, want) {
			t.Errorf("expected paths %v, got %v", want, event.Paths)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced event")
	}

	select {
	case event := <-d.Output():
		t.Errorf("expected a single event, got another: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 80*time.Millisecond, 150*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the quiet period from ever expiring.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case input <- ChangeEvent{Paths: []string{"busy.json"}}:
				case <-stop:
					return
				}
			}
		}
	}()
	defer close(stop)

	select {
	case event := <-d.Output():
		if len(event.Paths) != 1 || event.Paths[0] != "busy.json" {
			t.Errorf("unexpected paths %v", event.Paths)
		}
	case <-time.After(time.Second):
		t.Fatal("max wait did not force a flush")
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Paths: []string{"last.txt"}}
	close(input)

	event, ok := <-d.Output()
	if !ok {
		t.Fatal("expected pending paths to be flushed before close")
	}
	if len(event.Paths) != 1 || event.Paths[0] != "last.txt" {
		t.Errorf("unexpected paths %v", event.Paths)
	}
	if _, ok := <-d.Output(); ok {
		t.Error("expected output to be closed")
	}
}
