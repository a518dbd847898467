// Package storetest opens throwaway SQLite repositories and seeds fixtures
// for package tests.
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"studentdesk/internal/model"
	"studentdesk/internal/store"
)

// Open creates a fresh schema in a temp directory.
func Open(t testing.TB) *store.Repository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := store.Open(context.Background(), store.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return store.NewRepository(db)
}

// Fixtures builds related rows with predictable names.
type Fixtures struct {
	t    testing.TB
	repo *store.Repository
	n    int
}

func New(t testing.TB, repo *store.Repository) *Fixtures {
	return &Fixtures{t: t, repo: repo}
}

func (f *Fixtures) next() int {
	f.n++
	return f.n
}

func (f *Fixtures) user(role model.Role, first, last string) model.User {
	f.t.Helper()
	n := f.next()
	u := model.User{
		Username:     fmt.Sprintf("%s%d", role, n),
		Email:        fmt.Sprintf("user%d@example.test", n),
		PasswordHash: "unused",
		Role:         role,
		FirstName:    first,
		LastName:     last,
	}
	if err := f.repo.CreateUser(context.Background(), &u); err != nil {
		f.t.Fatalf("seed user: %v", err)
	}
	return u
}

// Trainer creates a trainer with its user.
func (f *Fixtures) Trainer(first, last string) model.Trainer {
	f.t.Helper()
	u := f.user(model.RoleTrainer, first, last)
	tr := model.Trainer{UserID: u.ID, Specialization: "Go", FirstName: first, LastName: last, Email: u.Email}
	if err := f.repo.CreateTrainer(context.Background(), &tr); err != nil {
		f.t.Fatalf("seed trainer: %v", err)
	}
	return tr
}

// Course creates a course of the given type.
func (f *Fixtures) Course(name string, kind model.CourseType) model.Course {
	f.t.Helper()
	c := model.Course{Name: name, CourseType: kind}
	if err := f.repo.CreateCourse(context.Background(), &c); err != nil {
		f.t.Fatalf("seed course: %v", err)
	}
	return c
}

// Batch creates an active batch. trainerID may be empty.
func (f *Fixtures) Batch(name, trainerID string) model.Batch {
	f.t.Helper()
	b := model.Batch{Name: name, TrainerID: trainerID, Active: true}
	if err := f.repo.CreateBatch(context.Background(), &b); err != nil {
		f.t.Fatalf("seed batch: %v", err)
	}
	return b
}

// Student creates a student with its user. batchID may be empty.
func (f *Fixtures) Student(first, last string, course model.CourseType, batchID string) model.Student {
	f.t.Helper()
	u := f.user(model.RoleStudent, first, last)
	s := model.Student{
		UserID:         u.ID,
		StudentCode:    fmt.Sprintf("STU-%03d", f.next()),
		EnrolledCourse: course,
		BatchID:        batchID,
		FirstName:      first,
		LastName:       last,
		Email:          u.Email,
	}
	if err := f.repo.CreateStudent(context.Background(), &s); err != nil {
		f.t.Fatalf("seed student: %v", err)
	}
	return s
}
