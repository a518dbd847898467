package store

import (
	"context"
	"database/sql"

	"studentdesk/internal/model"
)

// CreateUser inserts a login identity. Username collisions return ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, first_name, last_name, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.FirstName, u.LastName, u.CreatedAt)
	return mapInsertErr(err)
}

const userCols = `id, username, email, password_hash, role, first_name, last_name, created_at`

func scanUser(row scanner) (model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.FirstName, &u.LastName, &u.CreatedAt)
	u.Role = model.Role(role)
	return u, err
}

func (r *Repository) UserByUsername(ctx context.Context, username string) (model.User, error) {
	return queryOne(ctx, r.q, scanUser, `SELECT `+userCols+` FROM users WHERE username = $1`, username)
}

func (r *Repository) UserByID(ctx context.Context, id string) (model.User, error) {
	return queryOne(ctx, r.q, scanUser, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
}

// UpdateUserDetails changes the display names and email of a user.
func (r *Repository) UpdateUserDetails(ctx context.Context, id, firstName, lastName, email string) error {
	return r.execAffecting(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, email = $4 WHERE id = $1
	`, id, firstName, lastName, email)
}

// Students

func (r *Repository) CreateStudent(ctx context.Context, s *model.Student) error {
	if s.ID == "" {
		s.ID = newID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO students (id, user_id, student_code, enrolled_course, batch_id, phone, photo_url, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, s.ID, s.UserID, s.StudentCode, string(s.EnrolledCourse), nullable(s.BatchID), s.Phone, s.PhotoURL, s.CreatedAt)
	return mapInsertErr(err)
}

const studentSelect = `
	SELECT s.id, s.user_id, s.student_code, s.enrolled_course, s.batch_id, s.phone, s.photo_url, s.created_at,
	       u.first_name, u.last_name, u.email
	FROM students s JOIN users u ON u.id = s.user_id`

func scanStudent(row scanner) (model.Student, error) {
	var s model.Student
	var course string
	var batch sql.NullString
	err := row.Scan(&s.ID, &s.UserID, &s.StudentCode, &course, &batch, &s.Phone, &s.PhotoURL, &s.CreatedAt,
		&s.FirstName, &s.LastName, &s.Email)
	s.EnrolledCourse = model.CourseType(course)
	s.BatchID = batch.String
	return s, err
}

func (r *Repository) Student(ctx context.Context, id string) (model.Student, error) {
	return queryOne(ctx, r.q, scanStudent, studentSelect+` WHERE s.id = $1`, id)
}

func (r *Repository) StudentByUser(ctx context.Context, userID string) (model.Student, error) {
	return queryOne(ctx, r.q, scanStudent, studentSelect+` WHERE s.user_id = $1`, userID)
}

func (r *Repository) Students(ctx context.Context) ([]model.Student, error) {
	return queryList(ctx, r.q, scanStudent, studentSelect+` ORDER BY s.student_code`)
}

func (r *Repository) StudentsByBatch(ctx context.Context, batchID string) ([]model.Student, error) {
	return queryList(ctx, r.q, scanStudent, studentSelect+` WHERE s.batch_id = $1 ORDER BY s.student_code`, batchID)
}

func (r *Repository) StudentExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM students WHERE id = $1`, id)
}

func (r *Repository) SetStudentBatch(ctx context.Context, id, batchID string) error {
	return r.execAffecting(ctx, `UPDATE students SET batch_id = $2 WHERE id = $1`, id, nullable(batchID))
}

func (r *Repository) SetStudentPhone(ctx context.Context, id, phone string) error {
	return r.execAffecting(ctx, `UPDATE students SET phone = $2 WHERE id = $1`, id, phone)
}

func (r *Repository) SetStudentPhoto(ctx context.Context, id, url string) error {
	return r.execAffecting(ctx, `UPDATE students SET photo_url = $2 WHERE id = $1`, id, url)
}

// Trainers

func (r *Repository) CreateTrainer(ctx context.Context, t *model.Trainer) error {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO trainers (id, user_id, specialization, phone, photo_url, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, t.ID, t.UserID, t.Specialization, t.Phone, t.PhotoURL, t.CreatedAt)
	return mapInsertErr(err)
}

const trainerSelect = `
	SELECT t.id, t.user_id, t.specialization, t.phone, t.photo_url, t.created_at,
	       u.first_name, u.last_name, u.email
	FROM trainers t JOIN users u ON u.id = t.user_id`

func scanTrainer(row scanner) (model.Trainer, error) {
	var t model.Trainer
	err := row.Scan(&t.ID, &t.UserID, &t.Specialization, &t.Phone, &t.PhotoURL, &t.CreatedAt,
		&t.FirstName, &t.LastName, &t.Email)
	return t, err
}

func (r *Repository) Trainer(ctx context.Context, id string) (model.Trainer, error) {
	return queryOne(ctx, r.q, scanTrainer, trainerSelect+` WHERE t.id = $1`, id)
}

func (r *Repository) TrainerByUser(ctx context.Context, userID string) (model.Trainer, error) {
	return queryOne(ctx, r.q, scanTrainer, trainerSelect+` WHERE t.user_id = $1`, userID)
}

func (r *Repository) Trainers(ctx context.Context) ([]model.Trainer, error) {
	return queryList(ctx, r.q, scanTrainer, trainerSelect+` ORDER BY u.last_name, u.first_name`)
}

func (r *Repository) UpdateTrainerContact(ctx context.Context, id, specialization, phone string) error {
	return r.execAffecting(ctx, `UPDATE trainers SET specialization = $2, phone = $3 WHERE id = $1`, id, specialization, phone)
}

func (r *Repository) SetTrainerPhoto(ctx context.Context, id, url string) error {
	return r.execAffecting(ctx, `UPDATE trainers SET photo_url = $2 WHERE id = $1`, id, url)
}

// Courses

func (r *Repository) CreateCourse(ctx context.Context, c *model.Course) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO courses (id, name, course_type, description, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, c.ID, c.Name, string(c.CourseType), c.Description, c.CreatedAt)
	return mapInsertErr(err)
}

func scanCourse(row scanner) (model.Course, error) {
	var c model.Course
	var kind string
	err := row.Scan(&c.ID, &c.Name, &kind, &c.Description, &c.CreatedAt)
	c.CourseType = model.CourseType(kind)
	return c, err
}

func (r *Repository) Course(ctx context.Context, id string) (model.Course, error) {
	return queryOne(ctx, r.q, scanCourse, `SELECT id, name, course_type, description, created_at FROM courses WHERE id = $1`, id)
}

func (r *Repository) Courses(ctx context.Context) ([]model.Course, error) {
	return queryList(ctx, r.q, scanCourse, `SELECT id, name, course_type, description, created_at FROM courses ORDER BY name`)
}

// Batches

func (r *Repository) CreateBatch(ctx context.Context, b *model.Batch) error {
	if b.ID == "" {
		b.ID = newID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO batches (id, name, course_id, trainer_id, start_date, end_date, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, b.ID, b.Name, nullable(b.CourseID), nullable(b.TrainerID), b.StartDate, b.EndDate, b.Active, b.CreatedAt)
	return mapInsertErr(err)
}

const batchCols = `id, name, course_id, trainer_id, start_date, end_date, active, created_at`

func scanBatch(row scanner) (model.Batch, error) {
	var b model.Batch
	var course, trainer sql.NullString
	err := row.Scan(&b.ID, &b.Name, &course, &trainer, &b.StartDate, &b.EndDate, &b.Active, &b.CreatedAt)
	b.CourseID, b.TrainerID = course.String, trainer.String
	return b, err
}

func (r *Repository) Batch(ctx context.Context, id string) (model.Batch, error) {
	return queryOne(ctx, r.q, scanBatch, `SELECT `+batchCols+` FROM batches WHERE id = $1`, id)
}

func (r *Repository) Batches(ctx context.Context) ([]model.Batch, error) {
	return queryList(ctx, r.q, scanBatch, `SELECT `+batchCols+` FROM batches ORDER BY name`)
}

func (r *Repository) BatchesByTrainer(ctx context.Context, trainerID string) ([]model.Batch, error) {
	return queryList(ctx, r.q, scanBatch, `SELECT `+batchCols+` FROM batches WHERE trainer_id = $1 ORDER BY name`, trainerID)
}
