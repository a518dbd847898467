package feedback

import (
	"context"

	"studentdesk/internal/analytics"
	"studentdesk/internal/apperr"
	"studentdesk/internal/model"
	"studentdesk/internal/store"
)

func (s *Service) list(ctx context.Context, f store.FeedbackFilter) ([]model.FeedbackView, error) {
	entries, err := s.repo.ListFeedback(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]model.FeedbackView, len(entries))
	for i, e := range entries {
		out[i] = e.View()
	}
	return out, nil
}

func (s *Service) All(ctx context.Context) ([]model.FeedbackView, error) {
	return s.list(ctx, store.FeedbackFilter{})
}

func (s *Service) ByStudent(ctx context.Context, studentID string) ([]model.FeedbackView, error) {
	if err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	return s.list(ctx, store.FeedbackFilter{StudentID: studentID})
}

// AttributedByStudent is the staff view of one student's entries. Anonymous
// entries are left out so the listing cannot attribute them.
func (s *Service) AttributedByStudent(ctx context.Context, studentID string) ([]model.FeedbackView, error) {
	if err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	no := false
	return s.list(ctx, store.FeedbackFilter{StudentID: studentID, Anonymous: &no})
}

func (s *Service) ByTrainer(ctx context.Context, trainerID string) ([]model.FeedbackView, error) {
	if err := s.trainer(ctx, trainerID); err != nil {
		return nil, err
	}
	return s.list(ctx, store.FeedbackFilter{TrainerID: trainerID})
}

func (s *Service) ByCourse(ctx context.Context, courseID string) ([]model.FeedbackView, error) {
	if err := s.course(ctx, courseID); err != nil {
		return nil, err
	}
	return s.list(ctx, store.FeedbackFilter{CourseID: courseID})
}

func (s *Service) ByType(ctx context.Context, t model.FeedbackType) ([]model.FeedbackView, error) {
	if !t.Valid() {
		return nil, apperr.Validation("Invalid feedback type %q", t)
	}
	return s.list(ctx, store.FeedbackFilter{Type: t})
}

func (s *Service) ByRating(ctx context.Context, rating int) ([]model.FeedbackView, error) {
	if err := checkRating(rating); err != nil {
		return nil, err
	}
	return s.list(ctx, store.FeedbackFilter{Rating: rating})
}

func (s *Service) Anonymous(ctx context.Context) ([]model.FeedbackView, error) {
	yes := true
	return s.list(ctx, store.FeedbackFilter{Anonymous: &yes})
}

func (s *Service) NonAnonymous(ctx context.Context) ([]model.FeedbackView, error) {
	no := false
	return s.list(ctx, store.FeedbackFilter{Anonymous: &no})
}

// Recent returns up to limit entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.FeedbackView, error) {
	if limit <= 0 {
		return []model.FeedbackView{}, nil
	}
	return s.list(ctx, store.FeedbackFilter{Limit: limit})
}

// Analytics

func (s *Service) reduce(ctx context.Context, f store.FeedbackFilter) (analytics.RatingStats, error) {
	entries, err := s.repo.ListFeedback(ctx, f)
	if err != nil {
		return analytics.RatingStats{}, err
	}
	ratings := make([]int, len(entries))
	anonymous := make([]bool, len(entries))
	for i, e := range entries {
		ratings[i], anonymous[i] = e.Rating, e.Anonymous
	}
	return analytics.Ratings(ratings, anonymous), nil
}

func (s *Service) TrainerAnalytics(ctx context.Context, trainerID string) (analytics.RatingStats, error) {
	if err := s.trainer(ctx, trainerID); err != nil {
		return analytics.RatingStats{}, err
	}
	return s.reduce(ctx, store.FeedbackFilter{TrainerID: trainerID})
}

func (s *Service) CourseAnalytics(ctx context.Context, courseID string) (analytics.RatingStats, error) {
	if err := s.course(ctx, courseID); err != nil {
		return analytics.RatingStats{}, err
	}
	return s.reduce(ctx, store.FeedbackFilter{CourseID: courseID})
}

func (s *Service) OverallAnalytics(ctx context.Context) (analytics.RatingStats, error) {
	return s.reduce(ctx, store.FeedbackFilter{})
}

func (s *Service) TypeAnalytics(ctx context.Context, t model.FeedbackType) (analytics.RatingStats, error) {
	if !t.Valid() {
		return analytics.RatingStats{}, apperr.Validation("Invalid feedback type %q", t)
	}
	return s.reduce(ctx, store.FeedbackFilter{Type: t})
}

// Summary counts entries per type alongside the overall average.
type Summary struct {
	Total         int                        `json:"total_feedback"`
	ByType        map[model.FeedbackType]int `json:"by_type"`
	AverageRating float64                    `json:"average_rating"`
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	entries, err := s.repo.ListFeedback(ctx, store.FeedbackFilter{})
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Total: len(entries), ByType: make(map[model.FeedbackType]int, len(model.FeedbackTypes))}
	for _, t := range model.FeedbackTypes {
		sum.ByType[t] = 0
	}
	ratings := make([]int, len(entries))
	for i, e := range entries {
		sum.ByType[e.Type]++
		ratings[i] = e.Rating
	}
	sum.AverageRating = analytics.Ratings(ratings, nil).Average
	return sum, nil
}
