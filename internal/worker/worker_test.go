package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studentdesk/internal/queue"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
	done chan struct{}
	want int
}

func (r *recorder) Refresh(_ context.Context, evt queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, evt.Key)
	if len(r.seen) == r.want {
		close(r.done)
	}
	if evt.Key == "bad" {
		return errors.New("boom")
	}
	return nil
}

func TestRunRefreshesEachEvent(t *testing.T) {
	q := queue.NewInMemory(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &recorder{done: make(chan struct{}), want: 3}
	for _, key := range []string{"q1", "bad", "q2"} {
		if err := q.Publish(ctx, queue.Event{Type: queue.TypeQuizAttempted, Key: key}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	stopped := make(chan error, 1)
	go func() { stopped <- Run(ctx, q, r) }()

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("refreshed %v before timeout", r.seen)
	}
	cancel()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	if r.seen[0] != "q1" || r.seen[1] != "bad" || r.seen[2] != "q2" {
		t.Fatalf("seen = %v", r.seen)
	}
}
