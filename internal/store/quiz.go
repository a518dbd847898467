package store

import (
	"context"
	"database/sql"

	"studentdesk/internal/model"
)

func (r *Repository) CreateQuiz(ctx context.Context, q *model.Quiz) error {
	if q.ID == "" {
		q.ID = newID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO quizzes (id, title, description, trainer_id, course_type, batch_id, time_limit, start_time, end_time, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, q.ID, q.Title, q.Description, q.TrainerID, string(q.CourseType), nullable(q.BatchID), q.TimeLimit,
		q.StartTime.UTC(), q.EndTime.UTC(), q.Active, q.CreatedAt)
	return mapInsertErr(err)
}

const quizSelect = `
	SELECT q.id, q.title, q.description, q.trainer_id, q.course_type, q.batch_id, q.time_limit,
	       q.start_time, q.end_time, q.active, q.created_at, u.first_name, u.last_name, b.name
	FROM quizzes q
	JOIN trainers t ON t.id = q.trainer_id
	JOIN users u ON u.id = t.user_id
	LEFT JOIN batches b ON b.id = q.batch_id`

func scanQuiz(row scanner) (model.Quiz, error) {
	var q model.Quiz
	var course, first, last string
	var batch, batchName sql.NullString
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.TrainerID, &course, &batch, &q.TimeLimit,
		&q.StartTime, &q.EndTime, &q.Active, &q.CreatedAt, &first, &last, &batchName)
	q.CourseType = model.CourseType(course)
	q.BatchID, q.BatchName = batch.String, batchName.String
	q.TrainerName = model.User{FirstName: first, LastName: last}.FullName()
	return q, err
}

func (r *Repository) Quiz(ctx context.Context, id string) (model.Quiz, error) {
	return queryOne(ctx, r.q, scanQuiz, quizSelect+` WHERE q.id = $1`, id)
}

// QuizFilter narrows ListQuizzes. Empty fields are ignored.
type QuizFilter struct {
	TrainerID  string
	CourseType model.CourseType
	ActiveOnly bool
}

// ListQuizzes returns quizzes matching f, newest first.
func (r *Repository) ListQuizzes(ctx context.Context, f QuizFilter) ([]model.Quiz, error) {
	var w where
	if f.TrainerID != "" {
		w.add("q.trainer_id = ?", f.TrainerID)
	}
	if f.CourseType != "" {
		w.add("q.course_type = ?", string(f.CourseType))
	}
	if f.ActiveOnly {
		w.add("q.active = ?", true)
	}
	return queryList(ctx, r.q, scanQuiz, quizSelect+w.String()+` ORDER BY q.created_at DESC`, w.args...)
}

// UpdateQuiz overwrites the mutable fields of a quiz.
func (r *Repository) UpdateQuiz(ctx context.Context, q model.Quiz) error {
	return r.execAffecting(ctx, `
		UPDATE quizzes
		SET title = $2, description = $3, time_limit = $4, start_time = $5, end_time = $6, active = $7
		WHERE id = $1
	`, q.ID, q.Title, q.Description, q.TimeLimit, q.StartTime.UTC(), q.EndTime.UTC(), q.Active)
}

func (r *Repository) SetQuizActive(ctx context.Context, id string, active bool) error {
	return r.execAffecting(ctx, `UPDATE quizzes SET active = $2 WHERE id = $1`, id, active)
}

// DeleteQuiz removes a quiz with its questions and attempts in one
// transaction.
func (r *Repository) DeleteQuiz(ctx context.Context, id string) error {
	return r.WithTx(ctx, func(tx *Repository) error {
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM quiz_attempts WHERE quiz_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = $1`, id); err != nil {
			return err
		}
		return tx.execAffecting(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	})
}

// Questions

func (r *Repository) CreateQuestion(ctx context.Context, q *model.Question) error {
	if q.ID == "" {
		q.ID = newID()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO questions (id, quiz_id, position, question_text, option_a, option_b, option_c, option_d, correct_answer, marks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, q.ID, q.QuizID, q.Position, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.Marks)
	return mapInsertErr(err)
}

const questionCols = `id, quiz_id, position, question_text, option_a, option_b, option_c, option_d, correct_answer, marks`

func scanQuestion(row scanner) (model.Question, error) {
	var q model.Question
	err := row.Scan(&q.ID, &q.QuizID, &q.Position, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer, &q.Marks)
	return q, err
}

func (r *Repository) Question(ctx context.Context, id string) (model.Question, error) {
	return queryOne(ctx, r.q, scanQuestion, `SELECT `+questionCols+` FROM questions WHERE id = $1`, id)
}

func (r *Repository) QuestionsByQuiz(ctx context.Context, quizID string) ([]model.Question, error) {
	return queryList(ctx, r.q, scanQuestion, `
		SELECT `+questionCols+` FROM questions WHERE quiz_id = $1 ORDER BY position, id
	`, quizID)
}

func (r *Repository) UpdateQuestion(ctx context.Context, q model.Question) error {
	return r.execAffecting(ctx, `
		UPDATE questions
		SET question_text = $2, option_a = $3, option_b = $4, option_c = $5, option_d = $6, correct_answer = $7, marks = $8
		WHERE id = $1
	`, q.ID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.Marks)
}

func (r *Repository) DeleteQuestion(ctx context.Context, id string) error {
	return r.execAffecting(ctx, `DELETE FROM questions WHERE id = $1`, id)
}

// Attempts

// CreateAttempt inserts a graded attempt. A second attempt for the same
// student and quiz returns ErrDuplicate.
func (r *Repository) CreateAttempt(ctx context.Context, a *model.Attempt) error {
	if a.ID == "" {
		a.ID = newID()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO quiz_attempts (id, student_id, quiz_id, start_time, end_time, total_questions, correct_answers, score, answers_json, completed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.StudentID, a.QuizID, a.StartTime.UTC(), a.EndTime.UTC(), a.TotalQuestions, a.CorrectAnswers, a.Score, a.Answers, a.Completed)
	return mapInsertErr(err)
}

func (r *Repository) AttemptExists(ctx context.Context, studentID, quizID string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM quiz_attempts WHERE student_id = $1 AND quiz_id = $2`, studentID, quizID)
}

const attemptSelect = `
	SELECT a.id, a.student_id, a.quiz_id, a.start_time, a.end_time, a.total_questions, a.correct_answers,
	       a.score, a.answers_json, a.completed, u.first_name, u.last_name
	FROM quiz_attempts a
	JOIN students s ON s.id = a.student_id
	JOIN users u ON u.id = s.user_id`

func scanAttempt(row scanner) (model.Attempt, error) {
	var a model.Attempt
	var first, last string
	err := row.Scan(&a.ID, &a.StudentID, &a.QuizID, &a.StartTime, &a.EndTime, &a.TotalQuestions, &a.CorrectAnswers,
		&a.Score, &a.Answers, &a.Completed, &first, &last)
	a.StudentName = model.User{FirstName: first, LastName: last}.FullName()
	return a, err
}

func (r *Repository) AttemptsByStudent(ctx context.Context, studentID string) ([]model.Attempt, error) {
	return queryList(ctx, r.q, scanAttempt, attemptSelect+` WHERE a.student_id = $1 ORDER BY a.end_time DESC`, studentID)
}

func (r *Repository) AttemptsByQuiz(ctx context.Context, quizID string) ([]model.Attempt, error) {
	return queryList(ctx, r.q, scanAttempt, attemptSelect+` WHERE a.quiz_id = $1 ORDER BY a.score DESC, a.end_time`, quizID)
}
