// Package worker rebuilds cached analytics from queue events.
package worker

import (
	"context"
	"log"

	"studentdesk/internal/metrics"
	"studentdesk/internal/queue"
)

// Refresher recomputes the aggregates an event made stale.
type Refresher interface {
	Refresh(ctx context.Context, evt queue.Event) error
}

// Run consumes q until ctx is done or the stream closes. A failed refresh is
// logged and the loop moves on; the cache TTL bounds the staleness.
func Run(ctx context.Context, q queue.Queue, r Refresher) error {
	events, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	log.Println("worker started, waiting for events...")
	for evt := range events {
		outcome := "ok"
		if err := r.Refresh(ctx, evt); err != nil {
			outcome = "failed"
			log.Printf("refresh %s %s failed: %v", evt.Type, evt.Key, err)
		}
		metrics.EventsProcessed.WithLabelValues(evt.Type, outcome).Inc()
	}
	log.Println("worker stopped")
	return nil
}
