package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"boltshare/internal/domain"
)

// MemoryFileRepository — резервное хранилище записей в памяти процесса.
// Используется, когда база данных не сконфигурирована. Работает только
// в рамках одного процесса: состояние не разделяется между инстансами
// и теряется при рестарте.
type MemoryFileRepository struct {
	mu      sync.RWMutex
	files   map[uuid.UUID]*domain.File
	byCode  map[string]uuid.UUID
	nowFunc func() time.Time
}

func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{
		files:   make(map[uuid.UUID]*domain.File),
		byCode:  make(map[string]uuid.UUID),
		nowFunc: time.Now,
	}
}

func (r *MemoryFileRepository) Create(_ context.Context, file *domain.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Уникальность кода — глобальная, как и ограничение в PostgreSQL
	if _, taken := r.byCode[file.Code]; taken {
		return ErrCodeTaken
	}

	stored := *file
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.nowFunc()
	}
	r.files[stored.ID] = &stored
	r.byCode[stored.Code] = stored.ID
	file.CreatedAt = stored.CreatedAt

	return nil
}

func (r *MemoryFileRepository) GetByCode(_ context.Context, code string) (*domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return r.getActive(id)
}

func (r *MemoryFileRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getActive(id)
}

// getActive вызывается под удерживаемым мьютексом.
func (r *MemoryFileRepository) getActive(id uuid.UUID) (*domain.File, error) {
	file, ok := r.files[id]
	if !ok || !file.Active(r.nowFunc()) {
		return nil, ErrNotFound
	}
	copied := *file
	return &copied, nil
}

// ConsumeDownload проверяет лимит и увеличивает счётчик под одним
// мьютексом — аналог условного UPDATE в PostgreSQL-реализации.
func (r *MemoryFileRepository) ConsumeDownload(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok || !file.Active(r.nowFunc()) {
		return false, nil
	}
	if file.MaxDownloads != nil && file.DownloadCount >= *file.MaxDownloads {
		return false, nil
	}

	file.DownloadCount++
	return true, nil
}

func (r *MemoryFileRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if file, ok := r.files[id]; ok {
		delete(r.byCode, file.Code)
		delete(r.files, id)
	}
	return nil
}

func (r *MemoryFileRepository) ListActive(_ context.Context) ([]domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.nowFunc()
	var files []domain.File
	for _, file := range r.files {
		if file.Active(now) {
			files = append(files, *file)
		}
	}
	sortNewestFirst(files)

	return files, nil
}

func (r *MemoryFileRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.nowFunc()
	var files []domain.File
	for _, file := range r.files {
		if file.Active(now) && file.OwnerID != nil && *file.OwnerID == ownerID {
			files = append(files, *file)
		}
	}
	sortNewestFirst(files)

	return files, nil
}

func (r *MemoryFileRepository) ListExpired(_ context.Context, now time.Time) ([]domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var files []domain.File
	for _, file := range r.files {
		if !file.ExpiresAt.After(now) {
			files = append(files, *file)
		}
	}

	return files, nil
}

func sortNewestFirst(files []domain.File) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
}

// MemoryAccountRepository хранит учётные записи в памяти процесса.
// Парное к MemoryFileRepository резервное хранилище с теми же ограничениями.
type MemoryAccountRepository struct {
	mu         sync.RWMutex
	accounts   map[uuid.UUID]*domain.Account
	byUsername map[string]uuid.UUID
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts:   make(map[uuid.UUID]*domain.Account),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (r *MemoryAccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[account.Username]; taken {
		return ErrUsernameTaken
	}

	stored := *account
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.accounts[stored.ID] = &stored
	r.byUsername[stored.Username] = stored.ID
	account.CreatedAt = stored.CreatedAt

	return nil
}

func (r *MemoryAccountRepository) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r.accounts[id]
	return &copied, nil
}

func (r *MemoryAccountRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *account
	return &copied, nil
}
