package domain

import (
	"time"

	"github.com/google/uuid"
)

// CodeLength задаёт длину кода доступа к файлу.
const CodeLength = 6

// CodeAlphabet — допустимые символы кода доступа.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// File представляет запись о загруженном файле
type File struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Code          string          `json:"code" db:"code"`
	OriginalName  string          `json:"original_name" db:"original_name"`
	MIMEType      string          `json:"mime_type" db:"mime_type"`
	SizeBytes     int64           `json:"size_bytes" db:"size_bytes"`
	StorageKey    string          `json:"-" db:"storage_key"`
	PasswordHash  *string         `json:"-" db:"password_hash"`
	MaxDownloads  *int            `json:"max_downloads,omitempty" db:"max_downloads"`
	DownloadCount int             `json:"download_count" db:"download_count"`
	Expiration    ExpirationClass `json:"expiration_type" db:"expiration_type"`
	CustomMessage *string         `json:"custom_message,omitempty" db:"custom_message"`
	OwnerID       *string         `json:"owner_id,omitempty" db:"owner_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at" db:"expires_at"`
}

// HasPassword сообщает, защищён ли файл паролем.
func (f *File) HasPassword() bool {
	return f.PasswordHash != nil && *f.PasswordHash != ""
}

// Active сообщает, доступен ли файл на момент now.
func (f *File) Active(now time.Time) bool {
	return f.ExpiresAt.After(now)
}

// FileUpload описывает параметры загрузки нового файла
type FileUpload struct {
	OriginalName  string
	MIMEType      string
	SizeBytes     int64
	Data          []byte
	Password      string
	MaxDownloads  *int
	Expiration    ExpirationClass
	CustomMessage string
	OwnerID       string
}

// DownloadGrant возвращается после успешной авторизации скачивания.
// Содержит всё необходимое для отдачи байтов из хранилища.
type DownloadGrant struct {
	StorageKey   string
	OriginalName string
	MIMEType     string
	SizeBytes    int64
}
