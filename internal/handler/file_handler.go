package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"boltshare/internal/auth"
	"boltshare/internal/domain"
	"boltshare/internal/service"
)

const (
	// Максимальный объём multipart-формы, удерживаемый в памяти.
	maxUploadMemory = 32 * 1024 * 1024

	// Запас на multipart-обрамление и остальные поля формы
	// поверх лимита размера самого файла.
	uploadFormOverhead = 1024 * 1024
)

type FileHandler struct {
	fileService *service.FileService
	sessions    *auth.SessionManager
	baseURL     string
	maxBodySize int64
}

func NewFileHandler(fileService *service.FileService, sessions *auth.SessionManager, baseURL string) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		sessions:    sessions,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxBodySize: service.MaxFileSize + uploadFormOverhead,
	}
}

// fileInfoResponse — внешнее представление записи о файле.
// Поля в snake_case; внутренняя схема остаётся канонической,
// преобразование имён происходит только на этой границе.
type fileInfoResponse struct {
	ID             string    `json:"id"`
	OriginalName   string    `json:"original_name"`
	Code           string    `json:"code"`
	Size           int64     `json:"size"`
	MIMEType       string    `json:"mime_type"`
	ExpiresAt      time.Time `json:"expires_at"`
	ExpirationType string    `json:"expiration_type"`
	DownloadCount  int       `json:"download_count"`
	MaxDownloads   *int      `json:"max_downloads,omitempty"`
	HasPassword    bool      `json:"hasPassword"`
	CustomMessage  *string   `json:"custom_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	IsOwned        bool      `json:"isOwned"`
}

func toFileInfoResponse(file *domain.File) fileInfoResponse {
	return fileInfoResponse{
		ID:             file.ID.String(),
		OriginalName:   file.OriginalName,
		Code:           file.Code,
		Size:           file.SizeBytes,
		MIMEType:       file.MIMEType,
		ExpiresAt:      file.ExpiresAt,
		ExpirationType: string(file.Expiration),
		DownloadCount:  file.DownloadCount,
		MaxDownloads:   file.MaxDownloads,
		HasPassword:    file.HasPassword(),
		CustomMessage:  file.CustomMessage,
		CreatedAt:      file.CreatedAt,
		IsOwned:        file.OwnerID != nil,
	}
}

// UploadFile принимает multipart-форму с файлом и параметрами шаринга
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	log.Printf("[Upload] Processing new upload request")

	// Лимит размера обрезает тело ещё на уровне транспорта,
	// до буферизации содержимого файла
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			log.Printf("[Upload] Request body exceeds %d bytes, rejecting", h.maxBodySize)
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		log.Printf("[Upload] Failed to parse multipart form: %v", err)
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}

	formFile, header, err := r.FormFile("file")
	if err != nil {
		log.Printf("[Upload] Failed to get form file: %v", err)
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer formFile.Close()

	data, err := io.ReadAll(formFile)
	if err != nil {
		log.Printf("[Upload] Failed to read file data: %v", err)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	expiration, err := domain.ParseExpirationClass(r.FormValue("expirationType"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expiration type")
		return
	}

	var maxDownloads *int
	if raw := r.FormValue("maxDownloads"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Max downloads must be between 1 and 1000")
			return
		}
		maxDownloads = &n
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	upload := &domain.FileUpload{
		OriginalName:  header.Filename,
		MIMEType:      mimeType,
		SizeBytes:     header.Size,
		Data:          data,
		Password:      r.FormValue("password"),
		MaxDownloads:  maxDownloads,
		Expiration:    expiration,
		CustomMessage: r.FormValue("customMessage"),
	}

	// Сессия необязательна: анонимные загрузки разрешены
	if accountID, err := h.sessions.FromRequest(r); err == nil {
		upload.OwnerID = accountID.String()
	}

	file, err := h.fileService.UploadFile(r.Context(), upload)
	if err != nil {
		log.Printf("[Upload] Failed to upload file: %v", err)
		writeServiceError(w, err, "Upload failed")
		return
	}

	log.Printf("[Upload] Created file %s with code %s", file.ID, file.Code)

	// Готовая ссылка для получателя, если сервису известен его адрес
	resp := struct {
		fileInfoResponse
		URL string `json:"url,omitempty"`
	}{fileInfoResponse: toFileInfoResponse(file)}
	if h.baseURL != "" {
		resp.URL = fmt.Sprintf("%s/api/file/%s", h.baseURL, file.Code)
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetFileInfo возвращает метаданные файла по коду доступа
func (h *FileHandler) GetFileInfo(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	file, err := h.fileService.GetFileInfo(r.Context(), code)
	if err != nil {
		writeServiceError(w, err, "Failed to get file info")
		return
	}

	writeJSON(w, http.StatusOK, toFileInfoResponse(file))
}

type downloadRequest struct {
	Password string `json:"password"`
}

// DownloadFile авторизует скачивание и отдает содержимое файла
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	var req downloadRequest
	if r.Body != nil {
		// Тело необязательно для файлов без пароля
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	grant, err := h.fileService.AuthorizeDownload(r.Context(), code, req.Password)
	if err != nil {
		log.Printf("[Download] Rejected download for code %s: %v", code, err)
		writeServiceError(w, err, "Download failed")
		return
	}

	obj, err := h.fileService.GetFileData(r.Context(), grant)
	if err != nil {
		log.Printf("[Download] Failed to get file data: %v", err)
		writeError(w, http.StatusInternalServerError, "Error accessing file storage")
		return
	}
	defer obj.Close()

	// Имя файла для Content-Disposition с учетом не-ASCII символов
	encodedName := url.QueryEscape(grant.OriginalName)
	asciiName := strings.ReplaceAll(grant.OriginalName, `"`, `\"`)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, encodedName))
	w.Header().Set("Content-Type", grant.MIMEType)
	w.Header().Set("Content-Length", strconv.FormatInt(grant.SizeBytes, 10))

	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("[Download] Failed to stream file: %v", err)
	}
}

// DeleteFile удаляет файл. Чужие файлы удалять нельзя; анонимные
// записи доступны для удаления любому, у кого есть идентификатор.
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	file, err := h.fileService.GetFileByID(r.Context(), fileID)
	if err != nil {
		writeServiceError(w, err, "Delete failed")
		return
	}

	// Проверка владения — забота этого слоя, ядро её не делает
	if file.OwnerID != nil {
		accountID, err := h.sessions.FromRequest(r)
		if err != nil || accountID.String() != *file.OwnerID {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}
	}

	if err := h.fileService.DeleteFile(r.Context(), fileID); err != nil {
		log.Printf("[Delete] Failed to delete file %s: %v", fileID, err)
		writeServiceError(w, err, "Delete failed")
		return
	}

	log.Printf("[Delete] Deleted file %s", fileID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted successfully"})
}

// ListFiles возвращает все активные файлы
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.fileService.ListActiveFiles(r.Context())
	if err != nil {
		log.Printf("[ListFiles] Failed to list files: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get files")
		return
	}

	writeFileList(w, files)
}

// ListUserFiles возвращает активные файлы текущего пользователя
func (h *FileHandler) ListUserFiles(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.sessions.FromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	files, err := h.fileService.ListFilesByOwner(r.Context(), accountID.String())
	if err != nil {
		log.Printf("[ListUserFiles] Failed to list files: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch files")
		return
	}

	writeFileList(w, files)
}

func writeFileList(w http.ResponseWriter, files []domain.File) {
	responses := make([]fileInfoResponse, 0, len(files))
	for i := range files {
		responses = append(responses, toFileInfoResponse(&files[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}
