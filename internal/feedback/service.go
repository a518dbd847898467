// Package feedback collects rated student feedback and aggregates it per
// trainer, course and type.
package feedback

import (
	"context"
	"errors"
	"time"

	"studentdesk/internal/apperr"
	"studentdesk/internal/metrics"
	"studentdesk/internal/model"
	"studentdesk/internal/queue"
	"studentdesk/internal/store"
)

// Spec is the submission and update input.
type Spec struct {
	TrainerID string             `json:"trainer_id"`
	CourseID  string             `json:"course_id"`
	Type      model.FeedbackType `json:"feedback_type"`
	Rating    int                `json:"rating"`
	Comments  string             `json:"comments"`
	Anonymous bool               `json:"anonymous"`
}

type Service struct {
	repo   *store.Repository
	events queue.Publisher
	now    func() time.Time
}

// NewService creates a service. events may be nil.
func NewService(repo *store.Repository, events queue.Publisher) *Service {
	return &Service{repo: repo, events: events, now: time.Now}
}

func checkRating(r int) error {
	if r < 1 || r > 5 {
		return apperr.Validation("Rating must be between 1 and 5")
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, id string) (model.Feedback, error) {
	f, err := s.repo.Feedback(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return f, apperr.NotFound("Feedback not found")
	}
	return f, err
}

func (s *Service) student(ctx context.Context, id string) error {
	_, err := s.repo.Student(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Student not found")
	}
	return err
}

func (s *Service) trainer(ctx context.Context, id string) error {
	_, err := s.repo.Trainer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Trainer not found")
	}
	return err
}

func (s *Service) course(ctx context.Context, id string) error {
	_, err := s.repo.Course(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Course not found")
	}
	return err
}

// SubmitFeedback stores feedback from studentID. An empty type means
// GENERAL_FEEDBACK; trainer and course references are checked when set.
func (s *Service) SubmitFeedback(ctx context.Context, spec Spec, studentID string) (model.FeedbackView, error) {
	if spec.Type == "" {
		spec.Type = model.FeedbackGeneral
	}
	if !spec.Type.Valid() {
		return model.FeedbackView{}, apperr.Validation("Invalid feedback type %q", spec.Type)
	}
	if err := s.student(ctx, studentID); err != nil {
		return model.FeedbackView{}, err
	}
	if spec.TrainerID != "" {
		if err := s.trainer(ctx, spec.TrainerID); err != nil {
			return model.FeedbackView{}, err
		}
	}
	if spec.CourseID != "" {
		if err := s.course(ctx, spec.CourseID); err != nil {
			return model.FeedbackView{}, err
		}
	}
	if err := checkRating(spec.Rating); err != nil {
		return model.FeedbackView{}, err
	}

	f := model.Feedback{
		StudentID:   studentID,
		TrainerID:   spec.TrainerID,
		CourseID:    spec.CourseID,
		Type:        spec.Type,
		Rating:      spec.Rating,
		Comments:    spec.Comments,
		Anonymous:   spec.Anonymous,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.repo.CreateFeedback(ctx, &f); err != nil {
		return model.FeedbackView{}, err
	}

	metrics.FeedbackSubmitted.WithLabelValues(string(f.Type)).Inc()
	s.announce(ctx, f)
	return s.Feedback(ctx, f.ID)
}

// announce publishes one event per scope the entry touches.
func (s *Service) announce(ctx context.Context, f model.Feedback) {
	var keys []string
	if f.TrainerID != "" {
		keys = append(keys, "trainer:"+f.TrainerID)
	}
	if f.CourseID != "" {
		keys = append(keys, "course:"+f.CourseID)
	}
	if len(keys) == 0 {
		keys = append(keys, "overall")
	}
	for _, k := range keys {
		queue.Notify(ctx, s.events, queue.Event{Type: queue.TypeFeedbackSubmitted, Key: k})
	}
}

func (s *Service) SubmitCourseFeedback(ctx context.Context, studentID, courseID string, rating int, comments string, anonymous bool) (model.FeedbackView, error) {
	if courseID == "" {
		return model.FeedbackView{}, apperr.Validation("Course is required")
	}
	return s.SubmitFeedback(ctx, Spec{CourseID: courseID, Type: model.FeedbackCourse, Rating: rating, Comments: comments, Anonymous: anonymous}, studentID)
}

func (s *Service) SubmitTrainerFeedback(ctx context.Context, studentID, trainerID string, rating int, comments string, anonymous bool) (model.FeedbackView, error) {
	if trainerID == "" {
		return model.FeedbackView{}, apperr.Validation("Trainer is required")
	}
	return s.SubmitFeedback(ctx, Spec{TrainerID: trainerID, Type: model.FeedbackTrainer, Rating: rating, Comments: comments, Anonymous: anonymous}, studentID)
}

func (s *Service) SubmitSystemFeedback(ctx context.Context, studentID string, rating int, comments string, anonymous bool) (model.FeedbackView, error) {
	return s.SubmitFeedback(ctx, Spec{Type: model.FeedbackSystem, Rating: rating, Comments: comments, Anonymous: anonymous}, studentID)
}

// UpdateFeedback changes rating, comments and the anonymous flag only. A
// non-empty studentID restricts the update to that student's own entry.
func (s *Service) UpdateFeedback(ctx context.Context, id string, spec Spec, studentID string) (model.FeedbackView, error) {
	f, err := s.lookup(ctx, id)
	if err != nil {
		return model.FeedbackView{}, err
	}
	if studentID != "" && f.StudentID != studentID {
		return model.FeedbackView{}, apperr.Forbidden("You can only update your own feedback")
	}
	if err := checkRating(spec.Rating); err != nil {
		return model.FeedbackView{}, err
	}
	if err := s.repo.UpdateFeedback(ctx, id, spec.Rating, spec.Comments, spec.Anonymous); err != nil {
		return model.FeedbackView{}, err
	}
	f.Rating, f.Comments, f.Anonymous = spec.Rating, spec.Comments, spec.Anonymous
	s.announce(ctx, f)
	return f.View(), nil
}

func (s *Service) DeleteFeedback(ctx context.Context, id string) error {
	f, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFeedback(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Feedback not found")
		}
		return err
	}
	s.announce(ctx, f)
	return nil
}

func (s *Service) Feedback(ctx context.Context, id string) (model.FeedbackView, error) {
	f, err := s.lookup(ctx, id)
	if err != nil {
		return model.FeedbackView{}, err
	}
	return f.View(), nil
}
