package preview

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"boltshare/internal/service"
)

type Handler struct {
	service     *Service
	fileService *service.FileService
}

func NewHandler(service *Service, fileService *service.FileService) *Handler {
	return &Handler{
		service:     service,
		fileService: fileService,
	}
}

// GetPreview отдает JPEG-превью файла по коду доступа. Превью не
// расходует лимит скачиваний и не требует пароля.
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	file, err := h.fileService.GetFileInfo(r.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			http.Error(w, "File not found or expired", http.StatusNotFound)
			return
		}
		log.Printf("[Preview] Failed to get file info: %v", err)
		http.Error(w, "Failed to get file info", http.StatusInternalServerError)
		return
	}

	if !CanPreview(file.MIMEType) {
		http.Error(w, "Preview not available for this file type", http.StatusUnsupportedMediaType)
		return
	}

	previewData, err := h.service.GetOrGeneratePreview(r.Context(), file)
	if err != nil {
		log.Printf("[Preview] Failed to generate preview for %s: %v", file.ID, err)
		http.Error(w, "Failed to generate preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400") // кешируем на 24 часа
	w.WriteHeader(http.StatusOK)
	w.Write(previewData)
}
