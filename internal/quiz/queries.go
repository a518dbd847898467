package quiz

import (
	"context"
	"errors"

	"studentdesk/internal/apperr"
	"studentdesk/internal/model"
	"studentdesk/internal/store"
	"studentdesk/internal/validate"
)

// view projects a quiz with student-safe questions.
func (s *Service) view(ctx context.Context, id string) (model.QuizView, error) {
	q, err := s.quiz(ctx, id)
	if err != nil {
		return model.QuizView{}, err
	}
	return s.project(ctx, q)
}

func (s *Service) project(ctx context.Context, q model.Quiz) (model.QuizView, error) {
	questions, err := s.repo.QuestionsByQuiz(ctx, q.ID)
	if err != nil {
		return model.QuizView{}, err
	}
	views := make([]model.QuestionView, len(questions))
	for i, question := range questions {
		views[i] = question.View()
	}
	return model.QuizView{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		TrainerName: q.TrainerName,
		CourseType:  q.CourseType,
		BatchName:   q.BatchName,
		TimeLimit:   q.TimeLimit,
		StartTime:   q.StartTime,
		EndTime:     q.EndTime,
		Active:      q.Active,
		Questions:   views,
	}, nil
}

func (s *Service) projectAll(ctx context.Context, quizzes []model.Quiz) ([]model.QuizView, error) {
	out := make([]model.QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		v, err := s.project(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) Quiz(ctx context.Context, id string) (model.QuizView, error) {
	return s.view(ctx, id)
}

func (s *Service) AllQuizzes(ctx context.Context) ([]model.QuizView, error) {
	quizzes, err := s.repo.ListQuizzes(ctx, store.QuizFilter{})
	if err != nil {
		return nil, err
	}
	return s.projectAll(ctx, quizzes)
}

func (s *Service) QuizzesByTrainer(ctx context.Context, trainerID string) ([]model.QuizView, error) {
	if _, err := s.trainer(ctx, trainerID); err != nil {
		return nil, err
	}
	quizzes, err := s.repo.ListQuizzes(ctx, store.QuizFilter{TrainerID: trainerID})
	if err != nil {
		return nil, err
	}
	return s.projectAll(ctx, quizzes)
}

func (s *Service) QuizzesByCourseType(ctx context.Context, courseType model.CourseType) ([]model.QuizView, error) {
	if !courseType.Valid() {
		return nil, apperr.Validation("Invalid course type %q", courseType)
	}
	quizzes, err := s.repo.ListQuizzes(ctx, store.QuizFilter{CourseType: courseType})
	if err != nil {
		return nil, err
	}
	return s.projectAll(ctx, quizzes)
}

// AvailableQuizzes lists quizzes that are active and open right now.
func (s *Service) AvailableQuizzes(ctx context.Context) ([]model.QuizView, error) {
	open, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	return s.projectAll(ctx, open)
}

// AvailableQuizzesForStudent narrows the open quizzes to the student's
// course type and batch. Unscoped quizzes match everyone.
func (s *Service) AvailableQuizzesForStudent(ctx context.Context, studentID string) ([]model.QuizView, error) {
	st, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	open, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	scoped := make([]model.Quiz, 0, len(open))
	for _, q := range open {
		if q.CourseType != "" && q.CourseType != st.EnrolledCourse {
			continue
		}
		if q.BatchID != "" && q.BatchID != st.BatchID {
			continue
		}
		scoped = append(scoped, q)
	}
	return s.projectAll(ctx, scoped)
}

func (s *Service) open(ctx context.Context) ([]model.Quiz, error) {
	active, err := s.repo.ListQuizzes(ctx, store.QuizFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	now := s.now()
	open := active[:0]
	for _, q := range active {
		if q.Available(now) {
			open = append(open, q)
		}
	}
	return open, nil
}

// Questions

// owned loads the quiz and checks ownership when trainerID is set. An empty
// trainerID is used by admins.
func (s *Service) owned(ctx context.Context, quizID, trainerID string) (model.Quiz, error) {
	q, err := s.quiz(ctx, quizID)
	if err != nil {
		return q, err
	}
	if trainerID != "" && q.TrainerID != trainerID {
		return q, apperr.Validation("You can only update your own quizzes")
	}
	return q, nil
}

// RequireOwner fails unless trainerID owns the quiz. An empty trainerID
// passes for any existing quiz.
func (s *Service) RequireOwner(ctx context.Context, quizID, trainerID string) error {
	_, err := s.owned(ctx, quizID, trainerID)
	return err
}

func (s *Service) question(ctx context.Context, id string) (model.Question, error) {
	q, err := s.repo.Question(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return q, apperr.NotFound("Question not found")
	}
	return q, err
}

// AddQuestion appends a question to the quiz.
func (s *Service) AddQuestion(ctx context.Context, quizID string, spec QuestionSpec, trainerID string) (model.Question, error) {
	if err := validate.Struct(spec); err != nil {
		return model.Question{}, err
	}
	if _, err := s.owned(ctx, quizID, trainerID); err != nil {
		return model.Question{}, err
	}
	existing, err := s.repo.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return model.Question{}, err
	}
	q := newQuestion(quizID, len(existing)+1, spec)
	if err := s.repo.CreateQuestion(ctx, &q); err != nil {
		return model.Question{}, err
	}
	return q, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, id string, spec QuestionSpec, trainerID string) (model.Question, error) {
	if err := validate.Struct(spec); err != nil {
		return model.Question{}, err
	}
	q, err := s.question(ctx, id)
	if err != nil {
		return model.Question{}, err
	}
	if _, err := s.owned(ctx, q.QuizID, trainerID); err != nil {
		return model.Question{}, err
	}
	updated := newQuestion(q.QuizID, q.Position, spec)
	updated.ID = q.ID
	if err := s.repo.UpdateQuestion(ctx, updated); err != nil {
		return model.Question{}, err
	}
	return updated, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id, trainerID string) error {
	q, err := s.question(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.owned(ctx, q.QuizID, trainerID); err != nil {
		return err
	}
	return s.repo.DeleteQuestion(ctx, id)
}

// QuizQuestions is the student-facing question list: no correct answers.
func (s *Service) QuizQuestions(ctx context.Context, quizID string) ([]model.QuestionView, error) {
	v, err := s.view(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return v.Questions, nil
}

// AuthoringQuestions returns full questions, answers included, to the owner.
func (s *Service) AuthoringQuestions(ctx context.Context, quizID, trainerID string) ([]model.Question, error) {
	if _, err := s.owned(ctx, quizID, trainerID); err != nil {
		return nil, err
	}
	return s.repo.QuestionsByQuiz(ctx, quizID)
}
