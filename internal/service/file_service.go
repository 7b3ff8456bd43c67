package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"boltshare/internal/domain"
	"boltshare/internal/repository"
	"boltshare/internal/service/s3"
)

// MaxFileSize — максимальный размер загружаемого файла (200MB)
const MaxFileSize = 200 * 1024 * 1024

// Определение констант для работы с файлами
const (
	minDownloadLimit = 1
	maxDownloadLimit = 1000
	maxMessageLength = 500

	// Стоимость bcrypt для паролей файлов
	passwordHashCost = 10

	// Префикс ключей объектов в S3
	storageKeyPrefix = "shared_files"
)

// FileService реализует жизненный цикл файловых записей: создание с
// генерацией кода, выдачу информации, авторизацию скачивания и удаление
type FileService struct {
	fileRepo repository.FileRecords
	s3Client s3.Storage
	now      func() time.Time
}

func NewFileService(fileRepo repository.FileRecords, s3Client s3.Storage) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		s3Client: s3Client,
		now:      time.Now,
	}
}

// UploadFile сохраняет байты в хранилище и создает запись о файле.
// Порядок строгий: сначала байты в S3, затем метаданные в БД. Если
// запись создать не удалось, загруженный объект удаляется — записи,
// ссылающиеся на отсутствующие байты, не должны существовать.
func (s *FileService) UploadFile(ctx context.Context, upload *domain.FileUpload) (*domain.File, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	// Хешируем пароль до любых побочных эффектов
	var passwordHash *string
	if upload.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(upload.Password), passwordHashCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		h := string(hash)
		passwordHash = &h
	}

	fileID := uuid.New()
	storageKey := fmt.Sprintf("%s/%s", storageKeyPrefix, fileID)

	if err := s.s3Client.UploadBytes(ctx, storageKey, upload.Data); err != nil {
		return nil, fmt.Errorf("failed to upload file to storage: %w", err)
	}

	var ownerID *string
	if upload.OwnerID != "" {
		ownerID = &upload.OwnerID
	}
	var customMessage *string
	if upload.CustomMessage != "" {
		customMessage = &upload.CustomMessage
	}

	file := &domain.File{
		ID:            fileID,
		OriginalName:  upload.OriginalName,
		MIMEType:      upload.MIMEType,
		SizeBytes:     upload.SizeBytes,
		StorageKey:    storageKey,
		PasswordHash:  passwordHash,
		MaxDownloads:  upload.MaxDownloads,
		Expiration:    upload.Expiration,
		CustomMessage: customMessage,
		OwnerID:       ownerID,
		ExpiresAt:     upload.Expiration.ExpiresAt(s.now()),
	}

	// Код уникален глобально (ограничение в БД); при коллизии
	// перегенерируем ограниченное число раз
	err := s.createWithUniqueCode(ctx, file)
	if err != nil {
		// Запись не создана — убираем уже загруженный объект,
		// чтобы не оставлять байты без метаданных
		if delErr := s.s3Client.DeleteObject(ctx, storageKey); delErr != nil {
			log.Printf("[FileService] Failed to clean up orphaned object %s: %v", storageKey, delErr)
		}
		return nil, err
	}

	return file, nil
}

func (s *FileService) createWithUniqueCode(ctx context.Context, file *domain.File) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return err
		}

		file.Code = code
		err = s.fileRepo.Create(ctx, file)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			log.Printf("[FileService] Code collision on %s, retrying (%d/%d)", code, attempt+1, maxCodeAttempts)
			continue
		}
		return fmt.Errorf("failed to create file record: %w", err)
	}

	return ErrCodeSpaceExhausted
}

func validateUpload(upload *domain.FileUpload) error {
	if upload == nil || upload.OriginalName == "" || len(upload.Data) == 0 {
		return fmt.Errorf("%w: missing required parameters", ErrInvalidFile)
	}
	if upload.SizeBytes > MaxFileSize {
		return fmt.Errorf("%w: max size is %d bytes", ErrFileTooLarge, MaxFileSize)
	}
	if !upload.Expiration.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidExpiration, upload.Expiration)
	}
	if upload.MaxDownloads != nil &&
		(*upload.MaxDownloads < minDownloadLimit || *upload.MaxDownloads > maxDownloadLimit) {
		return ErrInvalidDownloadLimit
	}
	if len([]rune(upload.CustomMessage)) > maxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// GetFileInfo возвращает активную запись по коду доступа
func (s *FileService) GetFileInfo(ctx context.Context, code string) (*domain.File, error) {
	file, err := s.fileRepo.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// GetFileByID возвращает активную запись по идентификатору
func (s *FileService) GetFileByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// AuthorizeDownload решает, можно ли выдать файл по коду и паролю.
// Последовательность проверок: существование, пароль, лимит скачиваний.
// Инкремент счётчика и проверка лимита — одна атомарная операция
// хранилища, поэтому гонки параллельных скачиваний исключены. Отказ
// не оставляет побочных эффектов; разрешение ровно один раз
// увеличивает счётчик.
func (s *FileService) AuthorizeDownload(ctx context.Context, code, password string) (*domain.DownloadGrant, error) {
	file, err := s.fileRepo.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	if file.HasPassword() {
		// Отсутствующий пароль сообщается так же, как неверный
		if password == "" {
			return nil, ErrWrongPassword
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*file.PasswordHash), []byte(password)); err != nil {
			return nil, ErrWrongPassword
		}
	}

	consumed, err := s.fileRepo.ConsumeDownload(ctx, file.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume download: %w", err)
	}
	if !consumed {
		// Запись могла истечь между чтением и инкрементом; истёкший
		// код сообщается так же, как несуществующий
		if _, err := s.fileRepo.GetByID(ctx, file.ID); errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, ErrDownloadLimitReached
	}

	return &domain.DownloadGrant{
		StorageKey:   file.StorageKey,
		OriginalName: file.OriginalName,
		MIMEType:     file.MIMEType,
		SizeBytes:    file.SizeBytes,
	}, nil
}

// GetFileData отдает содержимое файла из хранилища по выданному разрешению
func (s *FileService) GetFileData(ctx context.Context, grant *domain.DownloadGrant) (s3.S3Object, error) {
	obj, err := s.s3Client.GetObject(ctx, grant.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get file data: %w", err)
	}
	return obj, nil
}

// DeleteFile удаляет активную запись и её объект в хранилище.
// Повторное удаление возвращает ErrFileNotFound, что вызывающая
// сторона трактует как no-op.
func (s *FileService) DeleteFile(ctx context.Context, id uuid.UUID) error {
	file, err := s.fileRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrFileNotFound
	}
	if err != nil {
		return err
	}

	// Сначала объект, затем метаданные: если удаление из S3 не
	// удалось, запись остаётся и попадёт в следующий проход сборщика
	if err := s.s3Client.DeleteObject(ctx, file.StorageKey); err != nil {
		return fmt.Errorf("failed to delete object from storage: %w", err)
	}

	if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
		return err
	}

	return nil
}

// ListActiveFiles возвращает все активные файлы, новые первыми
func (s *FileService) ListActiveFiles(ctx context.Context) ([]domain.File, error) {
	return s.fileRepo.ListActive(ctx)
}

// ListFilesByOwner возвращает активные файлы владельца, новые первыми
func (s *FileService) ListFilesByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	return s.fileRepo.ListByOwner(ctx, ownerID)
}
