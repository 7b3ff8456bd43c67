package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"boltshare/internal/auth"
	"boltshare/internal/service"
)

type AuthHandler struct {
	accountService *service.AccountService
	sessions       *auth.SessionManager
}

func NewAuthHandler(accountService *service.AccountService, sessions *auth.SessionManager) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
		sessions:       sessions,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Signup регистрирует новую учётную запись
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if _, err := h.accountService.Register(r.Context(), req.Username, req.Password); err != nil {
		log.Printf("[Signup] Failed to register %q: %v", req.Username, err)
		writeServiceError(w, err, "Signup failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Account created successfully! Please login.",
	})
}

// Login проверяет учётные данные и выдает сессию
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	account, err := h.accountService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf("[Login] Failed login for %q: %v", req.Username, err)
		writeServiceError(w, err, "Login failed")
		return
	}

	if err := h.sessions.Issue(w, account.ID); err != nil {
		log.Printf("[Login] Failed to issue session: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		ID:        account.ID.String(),
		Username:  account.Username,
		CreatedAt: account.CreatedAt,
	})
}

// Logout завершает текущую сессию
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Revoke(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me возвращает текущую учётную запись
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.sessions.FromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		ID:        account.ID.String(),
		Username:  account.Username,
		CreatedAt: account.CreatedAt,
	})
}
