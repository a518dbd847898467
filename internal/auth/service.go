// Package auth issues and verifies JWT sessions for admins, trainers and
// students.
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"studentdesk/internal/apperr"
	"studentdesk/internal/model"
	"studentdesk/internal/store"
)

// Session is returned by Login and Refresh.
type Session struct {
	TokenPair
	UserID    string     `json:"user_id"`
	ActorID   string     `json:"actor_id,omitempty"`
	Role      model.Role `json:"role"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
}

type Service struct {
	repo *store.Repository
	keys Keys
	now  func() time.Time
}

func NewService(repo *store.Repository, keys Keys) *Service {
	return &Service{repo: repo, keys: keys, now: time.Now}
}

// Login checks credentials and opens a session. Unknown users and wrong
// passwords fail identically.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, apperr.Unauthorized("Invalid username or password")
	}
	if err != nil {
		return Session{}, err
	}
	if !checkPassword(u.PasswordHash, password) {
		return Session{}, apperr.Unauthorized("Invalid username or password")
	}
	return s.open(ctx, u)
}

// Refresh exchanges a refresh token for a new pair. The user is reloaded so
// role changes and deletions take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := Parse(refreshToken, s.keys.SigningKey, s.keys.Issuer)
	if err != nil || claims.Kind != kindRefresh {
		return Session{}, apperr.Unauthorized("Invalid refresh token")
	}
	u, err := s.repo.UserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, apperr.Unauthorized("Invalid refresh token")
	}
	if err != nil {
		return Session{}, err
	}
	return s.open(ctx, u)
}

func (s *Service) open(ctx context.Context, u model.User) (Session, error) {
	actorID, err := s.actorID(ctx, u)
	if err != nil {
		return Session{}, err
	}
	a := Actor{UserID: u.ID, Role: u.Role, ActorID: actorID}
	pair, err := Issue(a, s.keys, s.now())
	if err != nil {
		return Session{}, err
	}
	return Session{
		TokenPair: pair,
		UserID:    u.ID,
		ActorID:   actorID,
		Role:      u.Role,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}, nil
}

// actorID resolves the student or trainer profile behind a user. A missing
// profile leaves the id empty.
func (s *Service) actorID(ctx context.Context, u model.User) (string, error) {
	var (
		id  string
		err error
	)
	switch u.Role {
	case model.RoleStudent:
		var st model.Student
		st, err = s.repo.StudentByUser(ctx, u.ID)
		id = st.ID
	case model.RoleTrainer:
		var tr model.Trainer
		tr, err = s.repo.TrainerByUser(ctx, u.ID)
		id = tr.ID
	default:
		return "", nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return id, err
}

// EnsureAdmin creates the bootstrap admin when no user with that name exists.
// An empty password disables bootstrapping.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.repo.UserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u := model.User{Username: username, PasswordHash: hash, Role: model.RoleAdmin, FirstName: "Admin"}
	if err := s.repo.CreateUser(ctx, &u); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return err
	}
	log.Printf("bootstrap admin %q ready", username)
	return nil
}
