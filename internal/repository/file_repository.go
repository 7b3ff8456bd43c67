package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"boltshare/internal/domain"
)

// Код ошибки PostgreSQL для нарушения уникального ограничения.
const pgUniqueViolation = "23505"

// FileRepository хранит записи о файлах в PostgreSQL
type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (
            id, code, original_name, mime_type, size_bytes, storage_key,
            password_hash, max_downloads, expiration_type, custom_message,
            owner_id, expires_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.ID,
		file.Code,
		file.OriginalName,
		file.MIMEType,
		file.SizeBytes,
		file.StorageKey,
		file.PasswordHash,
		file.MaxDownloads,
		file.Expiration,
		file.CustomMessage,
		file.OwnerID,
		file.ExpiresAt,
	).Scan(&file.CreatedAt)
	if err != nil {
		// Коллизия кода доступа ловится ограничением уникальности,
		// вызывающая сторона перегенерирует код
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrCodeTaken
		}
		return fmt.Errorf("failed to create file record: %w", err)
	}

	return nil
}

func (r *FileRepository) GetByCode(ctx context.Context, code string) (*domain.File, error) {
	var file domain.File
	query := `SELECT * FROM files WHERE code = $1 AND expires_at > NOW()`

	err := r.db.GetContext(ctx, &file, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file by code: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `SELECT * FROM files WHERE id = $1 AND expires_at > NOW()`

	err := r.db.GetContext(ctx, &file, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file by id: %w", err)
	}

	return &file, nil
}

// ConsumeDownload — единственное место, где меняется download_count.
// Проверка лимита и инкремент выполняются одним UPDATE, поэтому два
// параллельных запроса при max_downloads = 1 не получат разрешение оба.
func (r *FileRepository) ConsumeDownload(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
        UPDATE files
        SET download_count = download_count + 1
        WHERE id = $1
          AND expires_at > NOW()
          AND (max_downloads IS NULL OR download_count < max_downloads)`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to consume download: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected == 1, nil
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Удаление несуществующей записи — не ошибка, это упрощает
	// повторные проходы сборщика
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}

func (r *FileRepository) ListActive(ctx context.Context) ([]domain.File, error) {
	var files []domain.File
	query := `SELECT * FROM files WHERE expires_at > NOW() ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &files, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT * FROM files
        WHERE owner_id = $1 AND expires_at > NOW()
        ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &files, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files by owner: %w", err)
	}

	return files, nil
}

func (r *FileRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.File, error) {
	var files []domain.File
	query := `SELECT * FROM files WHERE expires_at <= $1`

	err := r.db.SelectContext(ctx, &files, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired files: %w", err)
	}

	return files, nil
}
