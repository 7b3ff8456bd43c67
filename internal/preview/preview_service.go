package preview

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/bimg"
	"github.com/jmoiron/sqlx"
	"github.com/xfrr/goffmpeg/transcoder"

	"boltshare/internal/domain"
	"boltshare/internal/service/s3"
)

const (
	maxImageSize  = 800             // максимальный размер превью в пикселях
	jpegQuality   = 85              // качество JPEG
	previewPrefix = "previews/"     // префикс для превью в S3
	tmpDir        = "/tmp/previews" // директория для временных файлов

	// Превью старше этого срока без живой записи о файле удаляются
	cleanupInterval = 24 * time.Hour
)

// Service генерирует и кеширует превью файлов: изображения через bimg,
// первый кадр видео через ffmpeg, первая страница PDF через pdftoppm.
// Готовые превью кешируются в S3 и учитываются в таблице file_previews.
type Service struct {
	s3Client s3.Storage
	db       *sqlx.DB
}

// NewService создает сервис превью. db может быть nil (запуск без БД);
// в этом случае превью кешируются только в S3 и не подчищаются.
func NewService(s3Client s3.Storage, db *sqlx.DB) *Service {
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		log.Printf("Warning: failed to create directory %s: %v", tmpDir, err)
	}

	return &Service{
		s3Client: s3Client,
		db:       db,
	}
}

// CanPreview сообщает, умеем ли мы строить превью для данного типа.
func CanPreview(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return true
	case strings.HasPrefix(mimeType, "video/"):
		return true
	case mimeType == "application/pdf":
		return true
	}
	return false
}

// GetOrGeneratePreview возвращает JPEG-превью файла, генерируя и
// кешируя его при первом обращении.
func (s *Service) GetOrGeneratePreview(ctx context.Context, file *domain.File) ([]byte, error) {
	previewKey := previewPrefix + file.ID.String()

	// Пытаемся получить существующее превью
	if cached, err := s.s3Client.GetObject(ctx, previewKey); err == nil {
		defer cached.Close()
		return io.ReadAll(cached)
	}

	obj, err := s.s3Client.GetObject(ctx, file.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get file data: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	var previewData []byte
	switch {
	case strings.HasPrefix(file.MIMEType, "image/"):
		previewData, err = s.optimizeImage(data)
	case strings.HasPrefix(file.MIMEType, "video/"):
		previewData, err = s.generateVideoPreview(data)
	case file.MIMEType == "application/pdf":
		previewData, err = s.generatePDFPreview(data)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", file.MIMEType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate preview: %w", err)
	}

	// Кеш — не часть ответа: неудачное сохранение только логируем
	if err := s.s3Client.UploadBytes(ctx, previewKey, previewData); err != nil {
		log.Printf("[Preview] Failed to cache preview %s: %v", previewKey, err)
	} else if s.db != nil {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO file_previews (file_id) VALUES ($1) ON CONFLICT (file_id) DO NOTHING`,
			file.ID)
		if err != nil {
			log.Printf("[Preview] Failed to record preview for %s: %v", file.ID, err)
		}
	}

	return previewData, nil
}

// optimizeImage приводит изображение к размеру превью
func (s *Service) optimizeImage(data []byte) ([]byte, error) {
	image := bimg.NewImage(data)

	size, err := image.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to get image size: %w", err)
	}

	width, height := calculateNewDimensions(size.Width, size.Height, maxImageSize)

	processed, err := image.Process(bimg.Options{
		Width:   width,
		Height:  height,
		Quality: jpegQuality,
		Type:    bimg.JPEG,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}

	return processed, nil
}

// calculateNewDimensions вычисляет новые размеры с сохранением пропорций
func calculateNewDimensions(width, height, maxSize int) (newWidth, newHeight int) {
	if width <= maxSize && height <= maxSize {
		return width, height
	}
	if width > height {
		newWidth = maxSize
		newHeight = (height * maxSize) / width
	} else {
		newHeight = maxSize
		newWidth = (width * maxSize) / height
	}
	return
}

// generateVideoPreview извлекает кадр с первой секунды видео
func (s *Service) generateVideoPreview(data []byte) ([]byte, error) {
	tmpPath := filepath.Join(tmpDir, fmt.Sprintf("preview_%d", time.Now().UnixNano()))
	if err := os.MkdirAll(tmpPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpPath)

	videoPath := filepath.Join(tmpPath, "input.mp4")
	if err := os.WriteFile(videoPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save video data: %w", err)
	}
	framePath := filepath.Join(tmpPath, "frame.jpg")

	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(videoPath, framePath); err != nil {
		return nil, fmt.Errorf("failed to initialize transcoder: %w", err)
	}

	trans.MediaFile().SetSeekTime("00:00:01")
	trans.MediaFile().SetVframes(1)
	trans.MediaFile().SetSkipAudio(true)

	done := trans.Run(false)
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to extract frame: %w", err)
	}

	imgData, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame image: %w", err)
	}

	return s.optimizeImage(imgData)
}

// generatePDFPreview конвертирует первую страницу PDF в изображение
func (s *Service) generatePDFPreview(data []byte) ([]byte, error) {
	tmpPath := filepath.Join(tmpDir, fmt.Sprintf("preview_%d", time.Now().UnixNano()))
	if err := os.MkdirAll(tmpPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpPath)

	pdfPath := filepath.Join(tmpPath, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write PDF file: %w", err)
	}

	outputPath := filepath.Join(tmpPath, "output")
	cmd := exec.Command("pdftoppm",
		"-jpeg",
		"-f", "1",
		"-l", "1",
		"-scale-to", fmt.Sprintf("%d", maxImageSize),
		"-singlefile",
		pdfPath,
		outputPath,
	)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to convert PDF: %w", err)
	}

	imgData, err := os.ReadFile(outputPath + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to read converted image: %w", err)
	}

	return s.optimizeImage(imgData)
}

// StartCleanupTask запускает периодическую очистку осиротевших превью.
// Останавливается при закрытии канала quit.
func (s *Service) StartCleanupTask(quit <-chan struct{}) {
	if s.db == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.cleanupOrphanedPreviews(context.Background())
			case <-quit:
				return
			}
		}
	}()
}

// cleanupOrphanedPreviews удаляет превью файлов, записи о которых
// уже удалены сборщиком или владельцем.
func (s *Service) cleanupOrphanedPreviews(ctx context.Context) {
	var orphaned []string

	query := `
        DELETE FROM file_previews fp
        WHERE NOT EXISTS (SELECT 1 FROM files f WHERE f.id = fp.file_id)
        RETURNING fp.file_id`

	if err := s.db.SelectContext(ctx, &orphaned, query); err != nil {
		log.Printf("[Preview] Failed to clean up preview records: %v", err)
		return
	}

	for _, fileID := range orphaned {
		if err := s.s3Client.DeleteObject(ctx, previewPrefix+fileID); err != nil {
			log.Printf("[Preview] Failed to delete preview object %s: %v", fileID, err)
		}
	}

	if len(orphaned) > 0 {
		log.Printf("[Preview] Removed %d orphaned previews", len(orphaned))
	}
}
