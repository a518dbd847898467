package store

import (
	"context"
	"database/sql"

	"studentdesk/internal/model"
)

func (r *Repository) CreateFeedback(ctx context.Context, f *model.Feedback) error {
	if f.ID == "" {
		f.ID = newID()
	}
	if f.SubmittedAt.IsZero() {
		f.SubmittedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO feedback (id, student_id, trainer_id, course_id, feedback_type, rating, comments, anonymous, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, f.ID, f.StudentID, nullable(f.TrainerID), nullable(f.CourseID), string(f.Type), f.Rating, f.Comments, f.Anonymous, f.SubmittedAt.UTC())
	return mapInsertErr(err)
}

const feedbackSelect = `
	SELECT f.id, f.student_id, f.trainer_id, f.course_id, f.feedback_type, f.rating, f.comments, f.anonymous, f.submitted_at,
	       su.first_name, su.last_name, tu.first_name, tu.last_name, c.name
	FROM feedback f
	JOIN students s ON s.id = f.student_id
	JOIN users su ON su.id = s.user_id
	LEFT JOIN trainers t ON t.id = f.trainer_id
	LEFT JOIN users tu ON tu.id = t.user_id
	LEFT JOIN courses c ON c.id = f.course_id`

func scanFeedback(row scanner) (model.Feedback, error) {
	var f model.Feedback
	var kind, studentFirst, studentLast string
	var trainer, course, trainerFirst, trainerLast, courseName sql.NullString
	err := row.Scan(&f.ID, &f.StudentID, &trainer, &course, &kind, &f.Rating, &f.Comments, &f.Anonymous, &f.SubmittedAt,
		&studentFirst, &studentLast, &trainerFirst, &trainerLast, &courseName)
	f.Type = model.FeedbackType(kind)
	f.TrainerID, f.CourseID, f.CourseName = trainer.String, course.String, courseName.String
	f.StudentName = model.User{FirstName: studentFirst, LastName: studentLast}.FullName()
	f.TrainerName = model.User{FirstName: trainerFirst.String, LastName: trainerLast.String}.FullName()
	return f, err
}

func (r *Repository) Feedback(ctx context.Context, id string) (model.Feedback, error) {
	return queryOne(ctx, r.q, scanFeedback, feedbackSelect+` WHERE f.id = $1`, id)
}

// FeedbackFilter narrows ListFeedback. Zero fields are ignored; Limit > 0 caps
// the result.
type FeedbackFilter struct {
	StudentID string
	TrainerID string
	CourseID  string
	Type      model.FeedbackType
	Rating    int
	Anonymous *bool
	Limit     int
}

// ListFeedback returns feedback matching f, newest first.
func (r *Repository) ListFeedback(ctx context.Context, f FeedbackFilter) ([]model.Feedback, error) {
	var w where
	if f.StudentID != "" {
		w.add("f.student_id = ?", f.StudentID)
	}
	if f.TrainerID != "" {
		w.add("f.trainer_id = ?", f.TrainerID)
	}
	if f.CourseID != "" {
		w.add("f.course_id = ?", f.CourseID)
	}
	if f.Type != "" {
		w.add("f.feedback_type = ?", string(f.Type))
	}
	if f.Rating != 0 {
		w.add("f.rating = ?", f.Rating)
	}
	if f.Anonymous != nil {
		w.add("f.anonymous = ?", *f.Anonymous)
	}
	query := feedbackSelect + w.String() + ` ORDER BY f.submitted_at DESC, f.id`
	if f.Limit > 0 {
		query += ` LIMIT ` + w.next(f.Limit)
	}
	return queryList(ctx, r.q, scanFeedback, query, w.args...)
}

// UpdateFeedback changes the mutable fields of an entry.
func (r *Repository) UpdateFeedback(ctx context.Context, id string, rating int, comments string, anonymous bool) error {
	return r.execAffecting(ctx, `
		UPDATE feedback SET rating = $2, comments = $3, anonymous = $4 WHERE id = $1
	`, id, rating, comments, anonymous)
}

func (r *Repository) DeleteFeedback(ctx context.Context, id string) error {
	return r.execAffecting(ctx, `DELETE FROM feedback WHERE id = $1`, id)
}
