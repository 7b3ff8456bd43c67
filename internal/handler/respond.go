package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"boltshare/internal/service"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeServiceError переводит ошибки ядра в HTTP-статусы.
// Истекшие и несуществующие файлы дают одинаковый 404 — причина
// отказа не детализируется дальше категорий ядра.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "File not found or expired")
	case errors.Is(err, service.ErrWrongPassword):
		writeError(w, http.StatusUnauthorized, "Invalid password")
	case errors.Is(err, service.ErrDownloadLimitReached):
		writeError(w, http.StatusForbidden, "Download limit reached")
	case errors.Is(err, service.ErrInvalidExpiration):
		writeError(w, http.StatusBadRequest, "Invalid expiration type")
	case errors.Is(err, service.ErrInvalidDownloadLimit):
		writeError(w, http.StatusBadRequest, "Max downloads must be between 1 and 1000")
	case errors.Is(err, service.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, "Custom message is too long")
	case errors.Is(err, service.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
	case errors.Is(err, service.ErrInvalidFile):
		writeError(w, http.StatusBadRequest, "No file provided")
	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "Username already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
