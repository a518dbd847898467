package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"studentdesk/internal/model"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "store.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := Open(context.Background(), DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func seedStudent(t *testing.T, repo *Repository, username, code string) model.Student {
	t.Helper()
	ctx := context.Background()
	u := model.User{Username: username, PasswordHash: "x", Role: model.RoleStudent, FirstName: "Stu", LastName: code}
	if err := repo.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	s := model.Student{UserID: u.ID, StudentCode: code, EnrolledCourse: model.CourseFullStack}
	if err := repo.CreateStudent(ctx, &s); err != nil {
		t.Fatalf("create student: %v", err)
	}
	return s
}

func TestAttendanceUniquePerDay(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	s := seedStudent(t, repo, "amy", "S-1")

	first := model.Attendance{StudentID: s.ID, Date: "2024-03-01", Status: model.StatusPresent}
	if err := repo.CreateAttendance(ctx, &first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := model.Attendance{StudentID: s.ID, Date: "2024-03-01", Status: model.StatusLate}
	if err := repo.CreateAttendance(ctx, &second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second insert err = %v, want ErrDuplicate", err)
	}

	exists, err := repo.AttendanceExists(ctx, s.ID, "2024-03-01")
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}
	exists, err = repo.AttendanceExists(ctx, s.ID, "2024-03-02")
	if err != nil || exists {
		t.Fatalf("exists on other day = %v, %v", exists, err)
	}
}

func TestListAttendanceFilters(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	a := seedStudent(t, repo, "amy", "S-1")
	b := seedStudent(t, repo, "ben", "S-2")

	for _, rec := range []model.Attendance{
		{StudentID: a.ID, Date: "2024-03-01", Status: model.StatusPresent},
		{StudentID: a.ID, Date: "2024-03-05", Status: model.StatusAbsent},
		{StudentID: b.ID, Date: "2024-03-01", Status: model.StatusLate},
	} {
		rec := rec
		if err := repo.CreateAttendance(ctx, &rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	byDate, err := repo.ListAttendance(ctx, AttendanceFilter{Date: "2024-03-01"})
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(byDate) != 2 {
		t.Fatalf("by date = %d records, want 2", len(byDate))
	}

	ranged, err := repo.ListAttendance(ctx, AttendanceFilter{StudentID: a.ID, From: "2024-03-02", To: "2024-03-31"})
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Status != model.StatusAbsent {
		t.Fatalf("ranged = %+v", ranged)
	}
	if ranged[0].StudentName != "Stu S-1" {
		t.Fatalf("student name = %q", ranged[0].StudentName)
	}
}

func TestAttemptUniquePerQuiz(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	s := seedStudent(t, repo, "amy", "S-1")

	tu := model.User{Username: "tess", PasswordHash: "x", Role: model.RoleTrainer}
	if err := repo.CreateUser(ctx, &tu); err != nil {
		t.Fatalf("create trainer user: %v", err)
	}
	tr := model.Trainer{UserID: tu.ID}
	if err := repo.CreateTrainer(ctx, &tr); err != nil {
		t.Fatalf("create trainer: %v", err)
	}
	start := time.Now().UTC().Add(-time.Hour)
	q := model.Quiz{Title: "Go", TrainerID: tr.ID, StartTime: start, EndTime: start.Add(2 * time.Hour), Active: true}
	if err := repo.CreateQuiz(ctx, &q); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	a := model.Attempt{StudentID: s.ID, QuizID: q.ID, StartTime: start, EndTime: start, Answers: "{}", Completed: true}
	if err := repo.CreateAttempt(ctx, &a); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	dup := model.Attempt{StudentID: s.ID, QuizID: q.ID, StartTime: start, EndTime: start, Answers: "{}"}
	if err := repo.CreateAttempt(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second attempt err = %v, want ErrDuplicate", err)
	}

	if err := repo.DeleteQuiz(ctx, q.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	attempts, err := repo.AttemptsByStudent(ctx, s.ID)
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("attempts after quiz delete = %d, want 0", len(attempts))
	}
}

func TestMissingRowsReportNotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if _, err := repo.Student(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Student err = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateAttendanceStatus(ctx, "missing", model.StatusLate); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateAttendanceStatus err = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteFeedback(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteFeedback err = %v, want ErrNotFound", err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx *Repository) error {
		u := model.User{Username: "ghost", PasswordHash: "x", Role: model.RoleStudent}
		if err := tx.CreateUser(ctx, &u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}
	if _, err := repo.UserByUsername(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user survived rollback: %v", err)
	}
}

func TestListFeedbackLimitAndAnonymousFilter(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	s := seedStudent(t, repo, "amy", "S-1")

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, anon := range []bool{true, false, true} {
		f := model.Feedback{
			StudentID:   s.ID,
			Type:        model.FeedbackGeneral,
			Rating:      i + 3,
			Anonymous:   anon,
			SubmittedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.CreateFeedback(ctx, &f); err != nil {
			t.Fatalf("create feedback: %v", err)
		}
	}

	recent, err := repo.ListFeedback(ctx, FeedbackFilter{Limit: 2})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Rating != 5 || recent[1].Rating != 4 {
		t.Fatalf("recent = %+v", recent)
	}

	yes := true
	anon, err := repo.ListFeedback(ctx, FeedbackFilter{Anonymous: &yes})
	if err != nil {
		t.Fatalf("anonymous: %v", err)
	}
	if len(anon) != 2 {
		t.Fatalf("anonymous count = %d, want 2", len(anon))
	}
}

func TestDeleteQuizIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	s := seedStudent(t, repo, "bea", "S-9")

	tu := model.User{Username: "tom", PasswordHash: "x", Role: model.RoleTrainer}
	if err := repo.CreateUser(ctx, &tu); err != nil {
		t.Fatalf("create trainer user: %v", err)
	}
	tr := model.Trainer{UserID: tu.ID}
	if err := repo.CreateTrainer(ctx, &tr); err != nil {
		t.Fatalf("create trainer: %v", err)
	}
	start := time.Now().UTC().Add(-time.Hour)
	q := model.Quiz{Title: "SQL", TrainerID: tr.ID, StartTime: start, EndTime: start.Add(2 * time.Hour), Active: true}
	if err := repo.CreateQuiz(ctx, &q); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	qs := model.Question{QuizID: q.ID, Position: 1, Text: "?", CorrectAnswer: "A"}
	if err := repo.CreateQuestion(ctx, &qs); err != nil {
		t.Fatalf("create question: %v", err)
	}
	a := model.Attempt{StudentID: s.ID, QuizID: q.ID, StartTime: start, EndTime: start, Answers: "{}", Completed: true}
	if err := repo.CreateAttempt(ctx, &a); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	if _, err := repo.db.ExecContext(ctx, `
		CREATE TRIGGER keep_quizzes BEFORE DELETE ON quizzes
		BEGIN SELECT RAISE(ABORT, 'quiz locked'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	if err := repo.DeleteQuiz(ctx, q.ID); err == nil {
		t.Fatal("DeleteQuiz succeeded despite trigger")
	}

	attempts, err := repo.AttemptsByQuiz(ctx, q.ID)
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	questions, err := repo.QuestionsByQuiz(ctx, q.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(attempts) != 1 || len(questions) != 1 {
		t.Fatalf("after failed delete: attempts = %d, questions = %d, want 1 and 1", len(attempts), len(questions))
	}
}
