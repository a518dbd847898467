package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"studentdesk/internal/attendance"
	"studentdesk/internal/cache"
	"studentdesk/internal/config"
	"studentdesk/internal/feedback"
	"studentdesk/internal/queue"
	"studentdesk/internal/quiz"
	"studentdesk/internal/store"
	"studentdesk/internal/worker"
)

// Worker consumes analytics events from redis and rebuilds the cached
// aggregates they touch.
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory: events are handled inside the api process, no worker needed")
	}

	db, err := store.Open(ctx, store.Driver(cfg.DBDriver), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	repo := store.NewRepository(db)

	rdb := store.NewRedis(cfg.RedisAddr)
	if rdb == nil {
		log.Fatal("REDIS_ADDR is required for the worker")
	}
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		log.Println("WARNING: redis not reachable yet, consumer will keep retrying")
	}

	att := attendance.NewService(repo, attendance.Options{Location: cfg.Location})
	quizzes := quiz.NewService(repo, quiz.Options{})
	fb := feedback.NewService(repo, nil)
	stats := cache.NewAnalytics(cache.New(rdb.Client, cfg.AnalyticsCacheTTL), att, quizzes, fb)

	q := queue.NewRedisQueue(rdb.Client, queue.DefaultKey)
	if err := worker.Run(ctx, q, stats); err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}
}
