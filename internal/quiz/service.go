// Package quiz authors timed quizzes, grades single attempts and reports
// score analytics.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"studentdesk/internal/analytics"
	"studentdesk/internal/apperr"
	"studentdesk/internal/metrics"
	"studentdesk/internal/model"
	"studentdesk/internal/queue"
	"studentdesk/internal/store"
	"studentdesk/internal/validate"
)

// QuestionSpec is the authoring input for one question.
type QuestionSpec struct {
	Text          string `json:"question_text" validate:"required"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"correct_answer" validate:"required,oneof=A B C D"`
	Marks         int    `json:"marks" validate:"gte=0"`
}

// Spec is the authoring input for a quiz. BatchRef is resolved best-effort
// unless strict batch references are enabled.
type Spec struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	CourseType  model.CourseType `json:"course_type" validate:"omitempty,oneof=FULL_STACK DATA_SCIENCE DEVOPS MOBILE OTHER"`
	BatchRef    string           `json:"batch_id"`
	TimeLimit   int              `json:"time_limit" validate:"gte=0"`
	StartTime   time.Time        `json:"start_time" validate:"required"`
	EndTime     time.Time        `json:"end_time" validate:"required,gtfield=StartTime"`
	Active      bool             `json:"active"`
	Questions   []QuestionSpec   `json:"questions" validate:"dive"`
}

// Options configures a Service.
type Options struct {
	StrictBatchRef bool
	Events         queue.Publisher
}

// Service implements quiz authoring, submission and analytics.
type Service struct {
	repo   *store.Repository
	strict bool
	events queue.Publisher
	now    func() time.Time
}

func NewService(repo *store.Repository, opts Options) *Service {
	return &Service{repo: repo, strict: opts.StrictBatchRef, events: opts.Events, now: time.Now}
}

func (s *Service) quiz(ctx context.Context, id string) (model.Quiz, error) {
	q, err := s.repo.Quiz(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return q, apperr.NotFound("Quiz not found")
	}
	return q, err
}

func (s *Service) trainer(ctx context.Context, id string) (model.Trainer, error) {
	t, err := s.repo.Trainer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return t, apperr.NotFound("Trainer not found")
	}
	return t, err
}

func (s *Service) student(ctx context.Context, id string) (model.Student, error) {
	st, err := s.repo.Student(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return st, apperr.NotFound("Student not found")
	}
	return st, err
}

// resolveBatch maps a batch reference to a batch id. Unparseable or unknown
// references yield "" unless strict mode is on.
func (s *Service) resolveBatch(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if _, err := uuid.Parse(ref); err != nil {
		if s.strict {
			return "", apperr.Validation("Invalid batch reference")
		}
		return "", nil
	}
	b, err := s.repo.Batch(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		if s.strict {
			return "", apperr.Validation("Invalid batch reference")
		}
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return b.ID, nil
}

// CreateQuiz stores a quiz owned by trainerID together with its questions.
func (s *Service) CreateQuiz(ctx context.Context, spec Spec, trainerID string) (model.QuizView, error) {
	if err := validate.Struct(spec); err != nil {
		return model.QuizView{}, err
	}
	if _, err := s.trainer(ctx, trainerID); err != nil {
		return model.QuizView{}, err
	}
	batchID, err := s.resolveBatch(ctx, spec.BatchRef)
	if err != nil {
		return model.QuizView{}, err
	}

	q := model.Quiz{
		Title:       spec.Title,
		Description: spec.Description,
		TrainerID:   trainerID,
		CourseType:  spec.CourseType,
		BatchID:     batchID,
		TimeLimit:   spec.TimeLimit,
		StartTime:   spec.StartTime,
		EndTime:     spec.EndTime,
		Active:      spec.Active,
		CreatedAt:   s.now().UTC(),
	}
	err = s.repo.WithTx(ctx, func(tx *store.Repository) error {
		if err := tx.CreateQuiz(ctx, &q); err != nil {
			return err
		}
		for i, qs := range spec.Questions {
			question := newQuestion(q.ID, i+1, qs)
			if err := tx.CreateQuestion(ctx, &question); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.QuizView{}, err
	}
	return s.view(ctx, q.ID)
}

func newQuestion(quizID string, position int, qs QuestionSpec) model.Question {
	return model.Question{
		QuizID:        quizID,
		Position:      position,
		Text:          qs.Text,
		OptionA:       qs.OptionA,
		OptionB:       qs.OptionB,
		OptionC:       qs.OptionC,
		OptionD:       qs.OptionD,
		CorrectAnswer: qs.CorrectAnswer,
		Marks:         qs.Marks,
	}
}

// UpdateQuiz changes title, description, time limit, window and active flag.
// Only the owning trainer may update; an empty trainerID skips the check.
func (s *Service) UpdateQuiz(ctx context.Context, id string, spec Spec, trainerID string) (model.QuizView, error) {
	q, err := s.owned(ctx, id, trainerID)
	if err != nil {
		return model.QuizView{}, err
	}
	spec.Questions = nil
	if err := validate.Struct(spec); err != nil {
		return model.QuizView{}, err
	}

	q.Title = spec.Title
	q.Description = spec.Description
	q.TimeLimit = spec.TimeLimit
	q.StartTime = spec.StartTime
	q.EndTime = spec.EndTime
	q.Active = spec.Active
	if err := s.repo.UpdateQuiz(ctx, q); err != nil {
		return model.QuizView{}, err
	}
	return s.view(ctx, id)
}

// DeleteQuiz removes the quiz with its questions and attempts and drops its
// cached analytics.
func (s *Service) DeleteQuiz(ctx context.Context, id string) error {
	err := s.repo.DeleteQuiz(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Quiz not found")
	}
	if err != nil {
		return err
	}
	queue.Notify(ctx, s.events, queue.Event{Type: queue.TypeQuizDeleted, Key: id})
	return nil
}

func (s *Service) ActivateQuiz(ctx context.Context, id, trainerID string) error {
	return s.setActive(ctx, id, trainerID, true)
}

func (s *Service) DeactivateQuiz(ctx context.Context, id, trainerID string) error {
	return s.setActive(ctx, id, trainerID, false)
}

func (s *Service) setActive(ctx context.Context, id, trainerID string, active bool) error {
	if _, err := s.owned(ctx, id, trainerID); err != nil {
		return err
	}
	err := s.repo.SetQuizActive(ctx, id, active)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Quiz not found")
	}
	return err
}

// SubmitQuizAttempt grades answers keyed by question id and stores the
// student's only attempt for the quiz.
func (s *Service) SubmitQuizAttempt(ctx context.Context, studentID, quizID string, answers map[string]string) (model.Attempt, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return model.Attempt{}, err
	}
	q, err := s.quiz(ctx, quizID)
	if err != nil {
		return model.Attempt{}, err
	}
	attempted, err := s.repo.AttemptExists(ctx, studentID, quizID)
	if err != nil {
		return model.Attempt{}, err
	}
	if attempted {
		return model.Attempt{}, apperr.Validation("Quiz already attempted")
	}
	now := s.now()
	if !q.Active || now.After(q.EndTime) {
		return model.Attempt{}, apperr.Validation("Quiz is not available for submission")
	}

	questions, err := s.repo.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return model.Attempt{}, err
	}
	correct := Grade(questions, answers)
	if answers == nil {
		answers = map[string]string{}
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return model.Attempt{}, err
	}

	a := model.Attempt{
		StudentID:      studentID,
		QuizID:         quizID,
		StartTime:      now.Add(-time.Duration(q.TimeLimit) * time.Minute).UTC(),
		EndTime:        now.UTC(),
		TotalQuestions: len(questions),
		CorrectAnswers: correct,
		Score:          Score(correct, len(questions)),
		Answers:        string(payload),
		Completed:      true,
	}
	if err := s.repo.CreateAttempt(ctx, &a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Attempt{}, apperr.Validation("Quiz already attempted")
		}
		return model.Attempt{}, err
	}

	metrics.QuizAttempts.Inc()
	metrics.QuizScore.Observe(float64(a.Score))
	queue.Notify(ctx, s.events, queue.Event{Type: queue.TypeQuizAttempted, Key: quizID})
	return a, nil
}

// Grade counts questions whose submitted label equals the stored one exactly.
func Grade(questions []model.Question, answers map[string]string) int {
	correct := 0
	for _, q := range questions {
		got, ok := answers[q.ID]
		if ok && got == q.CorrectAnswer {
			correct++
		}
	}
	return correct
}

// Score is floor(correct*100/total), 0 for an empty quiz.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return correct * 100 / total
}

func (s *Service) StudentAttempts(ctx context.Context, studentID string) ([]model.Attempt, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repo.AttemptsByStudent(ctx, studentID)
}

// QuizAttempts lists the quiz's attempts for its owner, or anyone when
// trainerID is empty.
func (s *Service) QuizAttempts(ctx context.Context, quizID, trainerID string) ([]model.Attempt, error) {
	if _, err := s.owned(ctx, quizID, trainerID); err != nil {
		return nil, err
	}
	return s.repo.AttemptsByQuiz(ctx, quizID)
}

// QuizResults lists one row per attempt, best score first.
func (s *Service) QuizResults(ctx context.Context, quizID, trainerID string) ([]model.QuizResult, error) {
	attempts, err := s.QuizAttempts(ctx, quizID, trainerID)
	if err != nil {
		return nil, err
	}
	out := make([]model.QuizResult, len(attempts))
	for i, a := range attempts {
		out[i] = model.QuizResult{
			StudentName:    a.StudentName,
			Score:          a.Score,
			CorrectAnswers: a.CorrectAnswers,
			TotalQuestions: a.TotalQuestions,
			CompletedAt:    a.EndTime,
		}
	}
	return out, nil
}

func (s *Service) QuizAnalytics(ctx context.Context, quizID string) (analytics.ScoreStats, error) {
	attempts, err := s.QuizAttempts(ctx, quizID, "")
	if err != nil {
		return analytics.ScoreStats{}, err
	}
	scores := make([]int, len(attempts))
	completed := make([]bool, len(attempts))
	for i, a := range attempts {
		scores[i], completed[i] = a.Score, a.Completed
	}
	return analytics.Scores(scores, completed), nil
}
