package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"boltshare/internal/repository"
	"boltshare/internal/service/s3"
)

// CleanupService удаляет истекшие файлы: метаданные из БД и объекты
// из S3. Запускается по таймеру из main, параллельно с обработкой
// запросов.
type CleanupService struct {
	fileRepo repository.FileRecords
	s3Client s3.Storage
	now      func() time.Time
}

func NewCleanupService(fileRepo repository.FileRecords, s3Client s3.Storage) *CleanupService {
	return &CleanupService{
		fileRepo: fileRepo,
		s3Client: s3Client,
		now:      time.Now,
	}
}

// Sweep удаляет все записи с истекшим сроком и возвращает количество
// удалённых. Ошибка по одной записи логируется и не прерывает проход:
// удаление идемпотентно, неудачная запись будет повторена в следующем
// запуске.
func (s *CleanupService) Sweep(ctx context.Context) (int, error) {
	expired, err := s.fileRepo.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired files: %w", err)
	}

	purged := 0
	for _, file := range expired {
		// Объект удаляется раньше записи: если S3 недоступен,
		// запись остаётся и попадёт в следующий проход
		if err := s.s3Client.DeleteObject(ctx, file.StorageKey); err != nil {
			log.Printf("[Cleanup] Failed to delete object %s: %v", file.StorageKey, err)
			continue
		}

		if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
			log.Printf("[Cleanup] Failed to delete record %s: %v", file.ID, err)
			continue
		}

		purged++
	}

	if purged > 0 {
		log.Printf("[Cleanup] Purged %d expired files", purged)
	}

	return purged, nil
}
