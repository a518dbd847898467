package cache

import (
	"context"
	"fmt"
	"strings"

	"studentdesk/internal/analytics"
	"studentdesk/internal/queue"
)

type AttendanceSource interface {
	BatchAnalytics(ctx context.Context, batchID string) (analytics.AttendanceStats, error)
	OverallAnalytics(ctx context.Context) (analytics.AttendanceStats, error)
}

type QuizSource interface {
	QuizAnalytics(ctx context.Context, quizID string) (analytics.ScoreStats, error)
}

type FeedbackSource interface {
	TrainerAnalytics(ctx context.Context, trainerID string) (analytics.RatingStats, error)
	CourseAnalytics(ctx context.Context, courseID string) (analytics.RatingStats, error)
	OverallAnalytics(ctx context.Context) (analytics.RatingStats, error)
}

// Analytics serves the cached aggregate reads and rebuilds them from queue
// events.
type Analytics struct {
	cache      *Cache
	attendance AttendanceSource
	quizzes    QuizSource
	feedback   FeedbackSource
}

func NewAnalytics(c *Cache, att AttendanceSource, quizzes QuizSource, fb FeedbackSource) *Analytics {
	return &Analytics{cache: c, attendance: att, quizzes: quizzes, feedback: fb}
}

func (a *Analytics) BatchAttendance(ctx context.Context, batchID string) (analytics.AttendanceStats, error) {
	return load(ctx, a.cache, "attendance:batch:"+batchID, func(ctx context.Context) (analytics.AttendanceStats, error) {
		return a.attendance.BatchAnalytics(ctx, batchID)
	})
}

func (a *Analytics) OverallAttendance(ctx context.Context) (analytics.AttendanceStats, error) {
	return load(ctx, a.cache, "attendance:overall", a.attendance.OverallAnalytics)
}

func (a *Analytics) Quiz(ctx context.Context, quizID string) (analytics.ScoreStats, error) {
	return load(ctx, a.cache, "quiz:"+quizID, func(ctx context.Context) (analytics.ScoreStats, error) {
		return a.quizzes.QuizAnalytics(ctx, quizID)
	})
}

func (a *Analytics) TrainerFeedback(ctx context.Context, trainerID string) (analytics.RatingStats, error) {
	return load(ctx, a.cache, "feedback:trainer:"+trainerID, func(ctx context.Context) (analytics.RatingStats, error) {
		return a.feedback.TrainerAnalytics(ctx, trainerID)
	})
}

func (a *Analytics) CourseFeedback(ctx context.Context, courseID string) (analytics.RatingStats, error) {
	return load(ctx, a.cache, "feedback:course:"+courseID, func(ctx context.Context) (analytics.RatingStats, error) {
		return a.feedback.CourseAnalytics(ctx, courseID)
	})
}

func (a *Analytics) OverallFeedback(ctx context.Context) (analytics.RatingStats, error) {
	return load(ctx, a.cache, "feedback:overall", a.feedback.OverallAnalytics)
}

// Refresh recomputes every snapshot touched by evt.
func (a *Analytics) Refresh(ctx context.Context, evt queue.Event) error {
	switch evt.Type {
	case queue.TypeAttendanceMarked:
		if evt.Key != "" {
			if err := refresh(ctx, a.cache, "attendance:batch:"+evt.Key, func(ctx context.Context) (analytics.AttendanceStats, error) {
				return a.attendance.BatchAnalytics(ctx, evt.Key)
			}); err != nil {
				return err
			}
		}
		return refresh(ctx, a.cache, "attendance:overall", a.attendance.OverallAnalytics)

	case queue.TypeQuizAttempted:
		return refresh(ctx, a.cache, "quiz:"+evt.Key, func(ctx context.Context) (analytics.ScoreStats, error) {
			return a.quizzes.QuizAnalytics(ctx, evt.Key)
		})

	case queue.TypeQuizDeleted:
		return a.cache.drop(ctx, "quiz:"+evt.Key)

	case queue.TypeFeedbackSubmitted:
		kind, id, _ := strings.Cut(evt.Key, ":")
		switch kind {
		case "trainer":
			if err := refresh(ctx, a.cache, "feedback:trainer:"+id, func(ctx context.Context) (analytics.RatingStats, error) {
				return a.feedback.TrainerAnalytics(ctx, id)
			}); err != nil {
				return err
			}
		case "course":
			if err := refresh(ctx, a.cache, "feedback:course:"+id, func(ctx context.Context) (analytics.RatingStats, error) {
				return a.feedback.CourseAnalytics(ctx, id)
			}); err != nil {
				return err
			}
		}
		return refresh(ctx, a.cache, "feedback:overall", a.feedback.OverallAnalytics)
	}
	return fmt.Errorf("unknown event type %q", evt.Type)
}
