// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttendanceMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studentdesk_attendance_marked_total",
		Help: "Attendance records created, by marking method.",
	}, []string{"method"})

	QuizAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studentdesk_quiz_attempts_total",
		Help: "Graded quiz attempts.",
	})

	QuizScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studentdesk_quiz_score",
		Help:    "Distribution of quiz attempt scores.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	FeedbackSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studentdesk_feedback_submitted_total",
		Help: "Feedback entries submitted, by type.",
	}, []string{"type"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studentdesk_analytics_cache_total",
		Help: "Analytics cache lookups, by result.",
	}, []string{"result"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studentdesk_worker_events_total",
		Help: "Queue events handled by the worker, by type and outcome.",
	}, []string{"type", "outcome"})
)
