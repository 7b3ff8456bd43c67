package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account представляет зарегистрированного пользователя.
// Файлы могут принадлежать аккаунту или быть анонимными.
type Account struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
