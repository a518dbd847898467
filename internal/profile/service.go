// Package profile manages users, student and trainer profiles, courses and
// batches.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"studentdesk/internal/apperr"
	"studentdesk/internal/auth"
	"studentdesk/internal/cloudinary"
	"studentdesk/internal/model"
	"studentdesk/internal/store"
	"studentdesk/internal/validate"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename, subfolder, publicID string) (cloudinary.UploadResult, error)
	UploadDataURL(ctx context.Context, data, subfolder, publicID string) (cloudinary.UploadResult, error)
}

// Photo is an uploaded image, either a file stream or a base64 data URL.
type Photo struct {
	File     io.Reader
	Filename string
	DataURL  string
}

type Service struct {
	repo   *store.Repository
	photos Uploader
}

// NewService creates a service. photos may be nil when storage is not
// configured; uploads then fail validation.
func NewService(repo *store.Repository, photos Uploader) *Service {
	return &Service{repo: repo, photos: photos}
}

// Account is the login part of a new student or trainer.
type Account struct {
	Username  string `json:"username" validate:"required,min=3"`
	Password  string `json:"password" validate:"required,min=6"`
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
}

type StudentSpec struct {
	Account
	StudentCode    string           `json:"student_code" validate:"required"`
	EnrolledCourse model.CourseType `json:"enrolled_course" validate:"required,oneof=FULL_STACK DATA_SCIENCE DEVOPS MOBILE OTHER"`
	BatchID        string           `json:"batch_id"`
	Phone          string           `json:"phone"`
}

type TrainerSpec struct {
	Account
	Specialization string `json:"specialization"`
	Phone          string `json:"phone"`
}

type CourseSpec struct {
	Name        string           `json:"name" validate:"required"`
	CourseType  model.CourseType `json:"course_type" validate:"required,oneof=FULL_STACK DATA_SCIENCE DEVOPS MOBILE OTHER"`
	Description string           `json:"description"`
}

type BatchSpec struct {
	Name      string `json:"name" validate:"required"`
	CourseID  string `json:"course_id"`
	TrainerID string `json:"trainer_id"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// Update carries self-service profile changes. Empty fields keep their
// current value.
type Update struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
}

func (s *Service) newUser(ctx context.Context, a Account, role model.Role) (model.User, error) {
	if _, err := s.repo.UserByUsername(ctx, a.Username); err == nil {
		return model.User{}, apperr.Validation("Username already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, err
	}
	hash, err := auth.HashPassword(a.Password)
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
	}, nil
}

func duplicate(err error, msg string) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Validation("%s", msg)
	}
	return err
}

// CreateStudent creates the login and the student profile together.
func (s *Service) CreateStudent(ctx context.Context, spec StudentSpec) (model.Student, error) {
	if err := validate.Struct(spec); err != nil {
		return model.Student{}, err
	}
	if spec.BatchID != "" {
		if _, err := s.batch(ctx, spec.BatchID); err != nil {
			return model.Student{}, err
		}
	}
	u, err := s.newUser(ctx, spec.Account, model.RoleStudent)
	if err != nil {
		return model.Student{}, err
	}

	st := model.Student{
		StudentCode:    spec.StudentCode,
		EnrolledCourse: spec.EnrolledCourse,
		BatchID:        spec.BatchID,
		Phone:          spec.Phone,
	}
	err = s.repo.WithTx(ctx, func(tx *store.Repository) error {
		if err := tx.CreateUser(ctx, &u); err != nil {
			return duplicate(err, "Username already exists")
		}
		st.UserID = u.ID
		return duplicate(tx.CreateStudent(ctx, &st), "Student code already exists")
	})
	if err != nil {
		return model.Student{}, err
	}
	return s.repo.Student(ctx, st.ID)
}

func (s *Service) CreateTrainer(ctx context.Context, spec TrainerSpec) (model.Trainer, error) {
	if err := validate.Struct(spec); err != nil {
		return model.Trainer{}, err
	}
	u, err := s.newUser(ctx, spec.Account, model.RoleTrainer)
	if err != nil {
		return model.Trainer{}, err
	}
	tr := model.Trainer{Specialization: spec.Specialization, Phone: spec.Phone}
	err = s.repo.WithTx(ctx, func(tx *store.Repository) error {
		if err := tx.CreateUser(ctx, &u); err != nil {
			return duplicate(err, "Username already exists")
		}
		tr.UserID = u.ID
		return tx.CreateTrainer(ctx, &tr)
	})
	if err != nil {
		return model.Trainer{}, err
	}
	return s.repo.Trainer(ctx, tr.ID)
}

func (s *Service) CreateCourse(ctx context.Context, spec CourseSpec) (model.Course, error) {
	if err := validate.Struct(spec); err != nil {
		return model.Course{}, err
	}
	c := model.Course{Name: spec.Name, CourseType: spec.CourseType, Description: spec.Description}
	if err := s.repo.CreateCourse(ctx, &c); err != nil {
		return model.Course{}, err
	}
	return c, nil
}

func (s *Service) CreateBatch(ctx context.Context, spec BatchSpec) (model.Batch, error) {
	if err := validate.Struct(spec); err != nil {
		return model.Batch{}, err
	}
	if spec.StartDate != "" && spec.EndDate != "" && spec.EndDate < spec.StartDate {
		return model.Batch{}, apperr.Validation("End date must not be before start date")
	}
	if spec.CourseID != "" {
		if _, err := s.course(ctx, spec.CourseID); err != nil {
			return model.Batch{}, err
		}
	}
	if spec.TrainerID != "" {
		if _, err := s.trainer(ctx, spec.TrainerID); err != nil {
			return model.Batch{}, err
		}
	}
	b := model.Batch{
		Name:      spec.Name,
		CourseID:  spec.CourseID,
		TrainerID: spec.TrainerID,
		StartDate: spec.StartDate,
		EndDate:   spec.EndDate,
		Active:    true,
	}
	if err := s.repo.CreateBatch(ctx, &b); err != nil {
		return model.Batch{}, err
	}
	return b, nil
}

func (s *Service) ListStudents(ctx context.Context) ([]model.Student, error) {
	return s.repo.Students(ctx)
}

func (s *Service) ListTrainers(ctx context.Context) ([]model.Trainer, error) {
	return s.repo.Trainers(ctx)
}

func (s *Service) ListCourses(ctx context.Context) ([]model.Course, error) {
	return s.repo.Courses(ctx)
}

// ListBatches returns every batch, or only the trainer's when trainerID is set.
func (s *Service) ListBatches(ctx context.Context, trainerID string) ([]model.Batch, error) {
	if trainerID != "" {
		return s.repo.BatchesByTrainer(ctx, trainerID)
	}
	return s.repo.Batches(ctx)
}

// AssignBatch moves a student to a batch. An empty batchID unassigns.
func (s *Service) AssignBatch(ctx context.Context, studentID, batchID string) (model.Student, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return model.Student{}, err
	}
	if batchID != "" {
		if _, err := s.batch(ctx, batchID); err != nil {
			return model.Student{}, err
		}
	}
	if err := s.repo.SetStudentBatch(ctx, studentID, batchID); err != nil {
		return model.Student{}, err
	}
	return s.repo.Student(ctx, studentID)
}

func (s *Service) StudentByUser(ctx context.Context, userID string) (model.Student, error) {
	st, err := s.repo.StudentByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return st, apperr.NotFound("Student profile not found")
	}
	return st, err
}

func (s *Service) TrainerByUser(ctx context.Context, userID string) (model.Trainer, error) {
	tr, err := s.repo.TrainerByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return tr, apperr.NotFound("Trainer profile not found")
	}
	return tr, err
}

func (s *Service) UpdateStudentProfile(ctx context.Context, studentID string, u Update) (model.Student, error) {
	if err := validate.Struct(u); err != nil {
		return model.Student{}, err
	}
	st, err := s.student(ctx, studentID)
	if err != nil {
		return model.Student{}, err
	}
	err = s.repo.WithTx(ctx, func(tx *store.Repository) error {
		if err := tx.UpdateUserDetails(ctx, st.UserID, keep(u.FirstName, st.FirstName), keep(u.LastName, st.LastName), keep(u.Email, st.Email)); err != nil {
			return err
		}
		return tx.SetStudentPhone(ctx, st.ID, keep(u.Phone, st.Phone))
	})
	if err != nil {
		return model.Student{}, err
	}
	return s.repo.Student(ctx, studentID)
}

func (s *Service) UpdateTrainerProfile(ctx context.Context, trainerID string, u Update) (model.Trainer, error) {
	if err := validate.Struct(u); err != nil {
		return model.Trainer{}, err
	}
	tr, err := s.trainer(ctx, trainerID)
	if err != nil {
		return model.Trainer{}, err
	}
	err = s.repo.WithTx(ctx, func(tx *store.Repository) error {
		if err := tx.UpdateUserDetails(ctx, tr.UserID, keep(u.FirstName, tr.FirstName), keep(u.LastName, tr.LastName), keep(u.Email, tr.Email)); err != nil {
			return err
		}
		return tx.UpdateTrainerContact(ctx, tr.ID, keep(u.Specialization, tr.Specialization), keep(u.Phone, tr.Phone))
	})
	if err != nil {
		return model.Trainer{}, err
	}
	return s.repo.Trainer(ctx, trainerID)
}

func keep(next, current string) string {
	if strings.TrimSpace(next) == "" {
		return current
	}
	return strings.TrimSpace(next)
}

// UploadStudentPhoto stores the image and records its URL on the profile.
func (s *Service) UploadStudentPhoto(ctx context.Context, studentID string, p Photo) (model.Student, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return model.Student{}, err
	}
	url, err := s.upload(ctx, p, "students", studentID)
	if err != nil {
		return model.Student{}, err
	}
	if err := s.repo.SetStudentPhoto(ctx, studentID, url); err != nil {
		return model.Student{}, err
	}
	return s.repo.Student(ctx, studentID)
}

func (s *Service) UploadTrainerPhoto(ctx context.Context, trainerID string, p Photo) (model.Trainer, error) {
	if _, err := s.trainer(ctx, trainerID); err != nil {
		return model.Trainer{}, err
	}
	url, err := s.upload(ctx, p, "trainers", trainerID)
	if err != nil {
		return model.Trainer{}, err
	}
	if err := s.repo.SetTrainerPhoto(ctx, trainerID, url); err != nil {
		return model.Trainer{}, err
	}
	return s.repo.Trainer(ctx, trainerID)
}

func (s *Service) upload(ctx context.Context, p Photo, folder, id string) (string, error) {
	if s.photos == nil {
		return "", apperr.Validation("Photo storage is not configured")
	}
	var (
		res cloudinary.UploadResult
		err error
	)
	switch {
	case p.File != nil:
		res, err = s.photos.Upload(ctx, p.File, p.Filename, folder, id)
	case p.DataURL != "":
		res, err = s.photos.UploadDataURL(ctx, p.DataURL, folder, id)
	default:
		return "", apperr.Validation("Photo file is required")
	}
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	return res.SecureURL, nil
}

func (s *Service) student(ctx context.Context, id string) (model.Student, error) {
	st, err := s.repo.Student(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return st, apperr.NotFound("Student not found")
	}
	return st, err
}

func (s *Service) trainer(ctx context.Context, id string) (model.Trainer, error) {
	tr, err := s.repo.Trainer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return tr, apperr.NotFound("Trainer not found")
	}
	return tr, err
}

func (s *Service) course(ctx context.Context, id string) (model.Course, error) {
	c, err := s.repo.Course(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c, apperr.NotFound("Course not found")
	}
	return c, err
}

func (s *Service) batch(ctx context.Context, id string) (model.Batch, error) {
	b, err := s.repo.Batch(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return b, apperr.NotFound("Batch not found")
	}
	return b, err
}
