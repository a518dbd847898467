package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/apperr"
	"studentdesk/internal/model"
	"studentdesk/internal/store"
	"studentdesk/internal/store/storetest"
)

var testKeys = Keys{SigningKey: "test-key", Issuer: "studentdesk-test", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

func seedStudent(t *testing.T, repo *store.Repository, username, password string) model.Student {
	t.Helper()
	ctx := context.Background()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := model.User{Username: username, Email: username + "@example.test", PasswordHash: hash, Role: model.RoleStudent, FirstName: "Ada", LastName: "Lovelace"}
	if err := repo.CreateUser(ctx, &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	st := model.Student{UserID: u.ID, StudentCode: "STU-100", EnrolledCourse: model.CourseFullStack}
	if err := repo.CreateStudent(ctx, &st); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	return st
}

func TestLoginResolvesActor(t *testing.T) {
	repo := storetest.Open(t)
	svc := NewService(repo, testKeys)
	st := seedStudent(t, repo, "ada", "s3cret")
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ada", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.ActorID != st.ID || sess.Role != model.RoleStudent || sess.Email != "ada@example.test" {
		t.Fatalf("session = %+v", sess)
	}

	claims, err := Parse(sess.AccessToken, testKeys.SigningKey, testKeys.Issuer)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.ActorID != st.ID || claims.Subject != st.UserID || claims.Kind != kindAccess {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := Parse(sess.AccessToken, testKeys.SigningKey, "someone-else"); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
	if _, err := Parse(sess.AccessToken, "other-key", testKeys.Issuer); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := storetest.Open(t)
	svc := NewService(repo, testKeys)
	seedStudent(t, repo, "ada", "s3cret")
	ctx := context.Background()

	for _, tc := range []struct{ user, pass string }{{"ada", "wrong"}, {"nobody", "s3cret"}} {
		_, err := svc.Login(ctx, tc.user, tc.pass)
		if apperr.KindOf(err) != apperr.KindUnauthorized || err.Error() != "Invalid username or password" {
			t.Fatalf("Login(%q) err = %v", tc.user, err)
		}
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	repo := storetest.Open(t)
	svc := NewService(repo, testKeys)
	seedStudent(t, repo, "ada", "s3cret")
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ada", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(time.Minute) }
	next, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.AccessToken == sess.AccessToken || next.ActorID != sess.ActorID {
		t.Fatalf("refreshed session = %+v", next)
	}

	_, err = svc.Refresh(ctx, sess.AccessToken)
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	repo := storetest.Open(t)
	svc := NewService(repo, testKeys)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.EnsureAdmin(ctx, "root", "pw"); err != nil {
			t.Fatalf("EnsureAdmin #%d: %v", i, err)
		}
	}
	sess, err := svc.Login(ctx, "root", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Role != model.RoleAdmin || sess.ActorID != "" {
		t.Fatalf("admin session = %+v", sess)
	}

	if err := svc.EnsureAdmin(ctx, "other", ""); err != nil {
		t.Fatalf("EnsureAdmin without password: %v", err)
	}
	if _, err := repo.UserByUsername(ctx, "other"); err == nil {
		t.Fatalf("admin created without a password")
	}
}

func TestMiddlewareEnforcesRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/trainer", Bearer(testKeys.SigningKey, testKeys.Issuer), RequireRoles(model.RoleAdmin, model.RoleTrainer), func(c *gin.Context) {
		a, _ := ActorFrom(c)
		c.String(http.StatusOK, a.ActorID)
	})

	now := time.Now()
	student, _ := Issue(Actor{UserID: "u1", Role: model.RoleStudent, ActorID: "s1"}, testKeys, now)
	trainer, _ := Issue(Actor{UserID: "u2", Role: model.RoleTrainer, ActorID: "t1"}, testKeys, now)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
		{"refresh token", "Bearer " + trainer.RefreshToken, http.StatusUnauthorized, ""},
		{"wrong role", "Bearer " + student.AccessToken, http.StatusForbidden, ""},
		{"allowed", "Bearer " + trainer.AccessToken, http.StatusOK, "t1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trainer", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body = %q, want %q", w.Body.String(), tc.body)
			}
		})
	}
}
