package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boltshare/internal/repository"
)

func newAccountService() *AccountService {
	return NewAccountService(repository.NewMemoryAccountRepository())
}

func TestRegister(t *testing.T) {
	svc := newAccountService()

	account, err := svc.Register(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.NotEmpty(t, account.PasswordHash)
	assert.NotEqual(t, "password123", account.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	svc := newAccountService()

	_, err := svc.Register(context.Background(), "ab", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(context.Background(), "alice", "123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_UsernameTaken(t *testing.T) {
	svc := newAccountService()

	_, err := svc.Register(context.Background(), "alice", "password123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "different")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	svc := newAccountService()

	created, err := svc.Register(context.Background(), "alice", "password123")
	require.NoError(t, err)

	account, err := svc.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)

	// Неизвестный пользователь и неверный пароль неразличимы
	_, err = svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "bob", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetAccount(t *testing.T) {
	svc := newAccountService()

	created, err := svc.Register(context.Background(), "alice", "password123")
	require.NoError(t, err)

	account, err := svc.GetAccount(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)

	_, err = svc.GetAccount(context.Background(), uuid.New())
	assert.Error(t, err)
}
