// Package auth registers users and checks their credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/sqliteblog/internal/models"
	"example.com/sqliteblog/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// FormError is a user-facing problem with submitted credentials.
type FormError struct {
	Notice string
}

func (e *FormError) Error() string { return e.Notice }

var (
	ErrUsernameRequired  = &FormError{Notice: "Username is required."}
	ErrPasswordRequired  = &FormError{Notice: "Password is required."}
	ErrIncorrectUsername = &FormError{Notice: "Incorrect username."}
	ErrIncorrectPassword = &FormError{Notice: "Incorrect password."}
)

type Service struct {
	store store.StoreInterface
	cost  int
}

func NewService(st store.StoreInterface) *Service {
	return &Service{store: st, cost: bcrypt.DefaultCost}
}

// Register creates a user with a bcrypt hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if password == "" {
		return models.User{}, ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.store.CreateUser(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return models.User{}, &FormError{Notice: fmt.Sprintf("User %s is already registered.", username)}
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return models.User{ID: id, Username: username}, nil
}

// Login returns the user when username and password match.
func (s *Service) Login(ctx context.Context, username, password string) (models.User, error) {
	u, hash, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrIncorrectUsername
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, ErrIncorrectPassword
	}
	return u, nil
}
