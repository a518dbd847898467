package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types published after successful writes.
const (
	TypeAttendanceMarked  = "attendance.marked"
	TypeQuizAttempted     = "quiz.attempted"
	TypeQuizDeleted       = "quiz.deleted"
	TypeFeedbackSubmitted = "feedback.submitted"
)

// DefaultKey is the redis list shared by the api and the worker.
const DefaultKey = "studentdesk:events"

// Event tells the worker which cached analytics went stale. Key identifies the
// affected aggregate: a batch id, a quiz id, or a feedback scope.
type Event struct {
	Type string    `json:"type"`
	Key  string    `json:"key"`
	At   time.Time `json:"at"`
}

// Publisher is the write side used by the engines.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publisher
	Consume(ctx context.Context) (<-chan Event, error)
}

// Notify publishes evt when p is set. Failures are logged and dropped since
// the cached analytics expire on their own.
func Notify(ctx context.Context, p Publisher, evt Event) {
	if p == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, evt); err != nil {
		log.Printf("queue publish %s failed: %v", evt.Type, err)
	}
}

// InMemory is a channel-backed queue for dev and tests. Publishing never
// blocks; events beyond the buffer are dropped.
type InMemory struct {
	ch chan Event
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Event, size)}
}

var ErrFull = errors.New("queue: buffer full")

// Publish enqueues an event.
func (q *InMemory) Publish(ctx context.Context, evt Event) error {
	select {
	case q.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-q.ch:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues an event as JSON.
func (q *RedisQueue) Publish(ctx context.Context, evt Event) error {
	body, err := encode(evt)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, body).Err()
}

// Consume streams events using BRPOP. Malformed entries are skipped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					log.Printf("queue brpop failed: %v", err)
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			evt, err := decode(res[1])
			if err != nil {
				log.Printf("queue dropped malformed event: %v", err)
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func encode(evt Event) (string, error) {
	b, err := json.Marshal(evt)
	return string(b), err
}

func decode(s string) (Event, error) {
	var evt Event
	if err := json.Unmarshal([]byte(s), &evt); err != nil {
		return Event{}, err
	}
	if evt.Type == "" {
		return Event{}, errors.New("event without type")
	}
	return evt, nil
}
