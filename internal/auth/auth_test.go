package auth

import (
	"context"
	"errors"
	"testing"

	"example.com/sqliteblog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	s := NewService(store.NewMock())
	s.cost = bcrypt.MinCost
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	got, err := s.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Register(ctx, "", "secret")
	assert.ErrorIs(t, err, ErrUsernameRequired)

	_, err = s.Register(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = s.Register(ctx, "alice", "secret")
	require.NoError(t, err)
	_, err = s.Register(ctx, "alice", "again")
	var fe *FormError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "User alice is already registered.", fe.Notice)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.Register(ctx, "alice", "secret")
	require.NoError(t, err)

	_, err = s.Login(ctx, "bob", "secret")
	assert.ErrorIs(t, err, ErrIncorrectUsername)

	_, err = s.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestStoreFailureIsNotAFormError(t *testing.T) {
	s := NewService(&store.MockStoreFail{})

	_, err := s.Login(context.Background(), "alice", "secret")
	require.Error(t, err)
	var fe *FormError
	assert.False(t, errors.As(err, &fe))
}
