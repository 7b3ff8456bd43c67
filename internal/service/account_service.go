package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"boltshare/internal/domain"
	"boltshare/internal/repository"
)

const (
	minUsernameLength = 3
	minPasswordLength = 4
)

// AccountService отвечает за регистрацию и проверку учётных записей
type AccountService struct {
	accountRepo repository.Accounts
}

func NewAccountService(accountRepo repository.Accounts) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

// Register создает новую учётную запись. Пароль хранится только в виде
// bcrypt-хеша.
func (s *AccountService) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	if len(username) < minUsernameLength {
		return nil, fmt.Errorf("%w: username must be at least %d characters", ErrInvalidCredentials, minUsernameLength)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidCredentials, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.Account{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
	}

	err = s.accountRepo.Create(ctx, account)
	if errors.Is(err, repository.ErrUsernameTaken) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// Login проверяет имя и пароль. Несуществующий пользователь и неверный
// пароль сообщаются одинаково.
func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// GetAccount возвращает учётную запись по идентификатору
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
