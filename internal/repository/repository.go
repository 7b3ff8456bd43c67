package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"boltshare/internal/domain"
)

// Ошибки уровня хранилища.
var (
	// ErrNotFound — запись отсутствует или уже истекла.
	ErrNotFound = errors.New("record not found")
	// ErrCodeTaken — код доступа уже занят другой записью.
	ErrCodeTaken = errors.New("code already in use")
	// ErrUsernameTaken — имя пользователя уже зарегистрировано.
	ErrUsernameTaken = errors.New("username already exists")
)

// FileRecords — хранилище записей о файлах. Две реализации:
// PostgreSQL (для продакшена) и in-memory (для запуска без БД,
// только в рамках одного процесса).
type FileRecords interface {
	// Create сохраняет новую запись. Возвращает ErrCodeTaken,
	// если код доступа уже занят.
	Create(ctx context.Context, file *domain.File) error

	// GetByCode возвращает активную запись по коду доступа.
	// Истекшие записи неотличимы от несуществующих.
	GetByCode(ctx context.Context, code string) (*domain.File, error)

	// GetByID возвращает активную запись по идентификатору.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)

	// ConsumeDownload атомарно увеличивает счётчик скачиваний,
	// если лимит не исчерпан и запись активна. Возвращает false,
	// если увеличение не произошло. Проверка лимита и инкремент —
	// одна операция, параллельные запросы сериализуются хранилищем.
	ConsumeDownload(ctx context.Context, id uuid.UUID) (bool, error)

	// Delete удаляет запись. Идемпотентна: удаление несуществующего
	// id не является ошибкой.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListActive возвращает все активные записи, новые первыми.
	ListActive(ctx context.Context) ([]domain.File, error)

	// ListByOwner возвращает активные записи владельца, новые первыми.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.File, error)

	// ListExpired возвращает записи с expires_at <= now,
	// включая уже невидимые для обычных чтений. Используется сборщиком.
	ListExpired(ctx context.Context, now time.Time) ([]domain.File, error)
}

// Accounts — хранилище учётных записей.
type Accounts interface {
	// Create сохраняет нового пользователя. Возвращает ErrUsernameTaken
	// при конфликте имени.
	Create(ctx context.Context, account *domain.Account) error

	// GetByUsername ищет пользователя по имени.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// GetByID ищет пользователя по идентификатору.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}
