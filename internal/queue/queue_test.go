package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	Notify(ctx, q, Event{Type: TypeQuizAttempted, Key: "quiz-1"})
	Notify(ctx, q, Event{Type: TypeFeedbackSubmitted, Key: "overall"})

	events, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	for _, want := range []string{"quiz-1", "overall"} {
		select {
		case evt := <-events:
			if evt.Key != want {
				t.Fatalf("key = %q, want %q", evt.Key, want)
			}
			if evt.At.IsZero() {
				t.Fatalf("event %q has no timestamp", evt.Key)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestInMemoryPublishWhenFull(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, Event{Type: TypeAttendanceMarked}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := q.Publish(ctx, Event{Type: TypeAttendanceMarked}); !errors.Is(err, ErrFull) {
		t.Fatalf("second publish err = %v, want ErrFull", err)
	}
}

func TestConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events, _ := NewInMemory(1).Consume(ctx)
	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("unexpected event after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestDecodeRejectsUntypedEvents(t *testing.T) {
	if _, err := decode(`{"key":"x"}`); err == nil {
		t.Fatal("expected error for event without type")
	}
	if _, err := decode("checkin|abc"); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
	evt, err := decode(`{"type":"attendance.marked","key":"b1"}`)
	if err != nil || evt.Key != "b1" {
		t.Fatalf("decode = %+v, %v", evt, err)
	}
}

func TestNotifyIgnoresNilPublisher(t *testing.T) {
	Notify(context.Background(), nil, Event{Type: TypeAttendanceMarked})
}
