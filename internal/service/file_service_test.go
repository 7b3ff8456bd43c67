package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boltshare/internal/domain"
	"boltshare/internal/repository"
	"boltshare/internal/service/s3"
)

// fakeStorage подменяет S3 в тестах: объекты в карте, ошибки по запросу.
type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleteErr error
	deleted   []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) UploadBytes(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) GetObject(_ context.Context, key string) (s3.S3Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return &fakeObject{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		size:       int64(len(data)),
	}, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeObject struct {
	io.ReadCloser
	size int64
	mime string
}

func (o *fakeObject) ContentLength() int64 { return o.size }
func (o *fakeObject) ContentType() string  { return o.mime }

// failingRepo возвращает заданную ошибку на каждый Create.
type failingRepo struct {
	repository.FileRecords
	createErr error
}

func (r *failingRepo) Create(_ context.Context, _ *domain.File) error {
	return r.createErr
}

// vanishingRepo убирает запись непосредственно перед инкрементом
// счётчика, моделируя истечение срока между чтением и инкрементом.
type vanishingRepo struct {
	repository.FileRecords
}

func (r *vanishingRepo) ConsumeDownload(ctx context.Context, id uuid.UUID) (bool, error) {
	_ = r.FileRecords.Delete(ctx, id)
	return r.FileRecords.ConsumeDownload(ctx, id)
}

func newTestService() (*FileService, *repository.MemoryFileRepository, *fakeStorage) {
	repo := repository.NewMemoryFileRepository()
	storage := newFakeStorage()
	return NewFileService(repo, storage), repo, storage
}

func validUpload() *domain.FileUpload {
	return &domain.FileUpload{
		OriginalName: "report.pdf",
		MIMEType:     "application/pdf",
		SizeBytes:    4,
		Data:         []byte("data"),
		Expiration:   domain.DefaultExpiration,
	}
}

func TestUploadFile_Success(t *testing.T) {
	svc, _, storage := newTestService()
	fixed := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	file, err := svc.UploadFile(context.Background(), validUpload())
	require.NoError(t, err)

	assert.Len(t, file.Code, domain.CodeLength)
	for _, r := range file.Code {
		assert.True(t, strings.ContainsRune(domain.CodeAlphabet, r))
	}
	assert.Equal(t, fixed.Add(24*time.Hour), file.ExpiresAt)
	assert.Equal(t, 0, file.DownloadCount)
	assert.False(t, file.HasPassword())

	// Байты лежат в хранилище под ключом записи
	obj, err := storage.GetObject(context.Background(), file.StorageKey)
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestUploadFile_NeverExpires(t *testing.T) {
	svc, _, _ := newTestService()

	upload := validUpload()
	upload.Expiration = domain.ExpirationNever

	file, err := svc.UploadFile(context.Background(), upload)
	require.NoError(t, err)
	assert.Equal(t, domain.NeverExpiresAt, file.ExpiresAt)
}

func TestUploadFile_Validation(t *testing.T) {
	limit := func(n int) *int { return &n }

	tests := []struct {
		name    string
		mutate  func(u *domain.FileUpload)
		wantErr error
	}{
		{
			name:    "empty data",
			mutate:  func(u *domain.FileUpload) { u.Data = nil },
			wantErr: ErrInvalidFile,
		},
		{
			name:    "missing name",
			mutate:  func(u *domain.FileUpload) { u.OriginalName = "" },
			wantErr: ErrInvalidFile,
		},
		{
			name:    "too large",
			mutate:  func(u *domain.FileUpload) { u.SizeBytes = MaxFileSize + 1 },
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "unknown expiration",
			mutate:  func(u *domain.FileUpload) { u.Expiration = "2h" },
			wantErr: ErrInvalidExpiration,
		},
		{
			name:    "download limit zero",
			mutate:  func(u *domain.FileUpload) { u.MaxDownloads = limit(0) },
			wantErr: ErrInvalidDownloadLimit,
		},
		{
			name:    "download limit negative",
			mutate:  func(u *domain.FileUpload) { u.MaxDownloads = limit(-5) },
			wantErr: ErrInvalidDownloadLimit,
		},
		{
			name:    "download limit above cap",
			mutate:  func(u *domain.FileUpload) { u.MaxDownloads = limit(1001) },
			wantErr: ErrInvalidDownloadLimit,
		},
		{
			name:    "message too long",
			mutate:  func(u *domain.FileUpload) { u.CustomMessage = strings.Repeat("ы", 501) },
			wantErr: ErrMessageTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, storage := newTestService()

			upload := validUpload()
			tt.mutate(upload)

			_, err := svc.UploadFile(context.Background(), upload)
			assert.ErrorIs(t, err, tt.wantErr)

			// Невалидная загрузка не оставляет следов в хранилище
			assert.Equal(t, 0, storage.objectCount())
		})
	}
}

func TestUploadFile_MessageAtLimit(t *testing.T) {
	svc, _, _ := newTestService()

	// Лимит считается в символах, не в байтах
	upload := validUpload()
	upload.CustomMessage = strings.Repeat("ы", 500)

	_, err := svc.UploadFile(context.Background(), upload)
	assert.NoError(t, err)
}

func TestUploadFile_BoundaryDownloadLimits(t *testing.T) {
	svc, _, _ := newTestService()

	for _, n := range []int{1, 1000} {
		upload := validUpload()
		upload.MaxDownloads = &n

		_, err := svc.UploadFile(context.Background(), upload)
		assert.NoError(t, err)
	}
}

func TestUploadFile_StorageFailure(t *testing.T) {
	svc, repo, storage := newTestService()
	storage.uploadErr = errors.New("bucket unavailable")

	_, err := svc.UploadFile(context.Background(), validUpload())
	require.Error(t, err)

	// Записи без байтов не создаются
	files, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUploadFile_RecordFailureCleansUpObject(t *testing.T) {
	storage := newFakeStorage()
	repo := &failingRepo{createErr: errors.New("connection refused")}
	svc := NewFileService(repo, storage)

	_, err := svc.UploadFile(context.Background(), validUpload())
	require.Error(t, err)

	// Загруженный объект убран, байтов без метаданных не остается
	assert.Equal(t, 0, storage.objectCount())
	assert.Len(t, storage.deleted, 1)
}

func TestUploadFile_CodeSpaceExhausted(t *testing.T) {
	storage := newFakeStorage()
	repo := &failingRepo{createErr: repository.ErrCodeTaken}
	svc := NewFileService(repo, storage)

	_, err := svc.UploadFile(context.Background(), validUpload())
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, 0, storage.objectCount())
}

func TestGetFileInfo(t *testing.T) {
	svc, _, _ := newTestService()

	file, err := svc.UploadFile(context.Background(), validUpload())
	require.NoError(t, err)

	got, err := svc.GetFileInfo(context.Background(), file.Code)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)

	_, err = svc.GetFileInfo(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestGetFileInfo_Expired(t *testing.T) {
	svc, _, _ := newTestService()
	// Загрузка «в прошлом»: часовой срок истек за час до настоящего момента
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	upload := validUpload()
	upload.Expiration = domain.Expiration1Hour

	file, err := svc.UploadFile(context.Background(), upload)
	require.NoError(t, err)

	// Истекший файл неотличим от несуществующего
	_, err = svc.GetFileInfo(context.Background(), file.Code)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestAuthorizeDownload_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AuthorizeDownload(context.Background(), "AAAAAA", "")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestAuthorizeDownload_ExpiresDuringRequest(t *testing.T) {
	repo := repository.NewMemoryFileRepository()
	svc := NewFileService(&vanishingRepo{FileRecords: repo}, newFakeStorage())

	file, err := svc.UploadFile(context.Background(), validUpload())
	require.NoError(t, err)

	// Код, истекший между проверкой и инкрементом, сообщается как
	// несуществующий, а не как исчерпавший лимит
	_, err = svc.AuthorizeDownload(context.Background(), file.Code, "")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NotErrorIs(t, err, ErrDownloadLimitReached)
}

func TestAuthorizeDownload_PasswordGate(t *testing.T) {
	svc, _, _ := newTestService()

	upload := validUpload()
	upload.Password = "secret"

	file, err := svc.UploadFile(context.Background(), upload)
	require.NoError(t, err)

	// Пустой и неверный пароль сообщаются одинаково
	_, err = svc.AuthorizeDownload(context.Background(), file.Code, "")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = svc.AuthorizeDownload(context.Background(), file.Code, "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	grant, err := svc.AuthorizeDownload(context.Background(), file.Code, "secret")
	require.NoError(t, err)
	assert.Equal(t, file.StorageKey, grant.StorageKey)
	assert.Equal(t, "report.pdf", grant.OriginalName)
}

func TestAuthorizeDownload_RejectionHasNoSideEffects(t *testing.T) {
	svc, _, _ := newTestService()

	one := 1
	upload := validUpload()
	upload.Password = "secret"
	upload.MaxDownloads = &one

	file, err := svc.UploadFile(context.Background(), upload)
	require.NoError(t, err)

	// Отказ по паролю не тратит лимит скачиваний
	_, err = svc.AuthorizeDownload(context.Background(), file.Code, "wrong")
	require.ErrorIs(t, err, ErrWrongPassword)

	_, err = svc.AuthorizeDownload(context.Background(), file.Code, "secret")
	assert.NoError(t, err)
}

func TestAuthorizeDownload_Quota(t *testing.T) {
	svc, _, _ := newTestService()

	two := 2
	upload := validUpload()
	upload.MaxDownloads = &two

	file, err := svc.UploadFile(context.Background(), upload)
	require.NoError(t, err)

	_, err = svc.AuthorizeDownload(context.Background(), file.Code, "")
	require.NoError(t, err)
	_, err = svc.AuthorizeDownload(context.Background(), file.Code, "")
	require.NoError(t, err)

	_, err = svc.AuthorizeDownload(context.Background(), file.Code, "")
	assert.ErrorIs(t, err, ErrDownloadLimitReached)

	// Запись при этом остается видимой
	info, err := svc.GetFileInfo(context.Background(), file.Code)
	require.NoError(t, err)
	assert.Equal(t, 2, info.DownloadCount)
}

func TestAuthorizeDownload_UnlimitedWithoutCap(t *testing.T) {
	svc, _, _ := newTestService()

	file, err := svc.UploadFile(context.Background(), validUpload())
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := svc.AuthorizeDownload(context.Background(), file.Code, "")
		require.NoError(t, err)
	}
}

func TestAuthorizeDownload_ConcurrentSingleUse(t *testing.T) {
	svc, _, _ := newTestService()

	one := 1
	upload := validUpload()
	upload.MaxDownloads = &one

	file, err := svc.UploadFile(context.Background(), upload)
	require.NoError(t, err)

	const workers = 16
	var granted, denied int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AuthorizeDownload(context.Background(), file.Code, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				granted++
			} else if errors.Is(err, ErrDownloadLimitReached) {
				denied++
			}
		}()
	}
	wg.Wait()

	// Проверка и инкремент атомарны: ровно одно разрешение
	assert.Equal(t, int64(1), granted)
	assert.Equal(t, int64(workers-1), denied)
}

func TestGetFileData(t *testing.T) {
	svc, _, _ := newTestService()

	file, err := svc.UploadFile(context.Background(), validUpload())
	require.NoError(t, err)

	grant, err := svc.AuthorizeDownload(context.Background(), file.Code, "")
	require.NoError(t, err)

	obj, err := svc.GetFileData(context.Background(), grant)
	require.NoError(t, err)
	defer obj.Close()

	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestDeleteFile(t *testing.T) {
	svc, _, storage := newTestService()

	file, err := svc.UploadFile(context.Background(), validUpload())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFile(context.Background(), file.ID))

	_, err = svc.GetFileInfo(context.Background(), file.Code)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, 0, storage.objectCount())

	// Повторное удаление — no-op для вызывающей стороны
	err = svc.DeleteFile(context.Background(), file.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestDeleteFile_StorageFailureKeepsRecord(t *testing.T) {
	svc, _, storage := newTestService()

	file, err := svc.UploadFile(context.Background(), validUpload())
	require.NoError(t, err)

	storage.deleteErr = errors.New("bucket unavailable")
	err = svc.DeleteFile(context.Background(), file.ID)
	require.Error(t, err)

	// Запись не удалена, её подберет следующий проход сборщика
	_, err = svc.GetFileInfo(context.Background(), file.Code)
	assert.NoError(t, err)
}

func TestListFilesByOwner(t *testing.T) {
	svc, _, _ := newTestService()

	mine := validUpload()
	mine.OwnerID = "owner-1"
	_, err := svc.UploadFile(context.Background(), mine)
	require.NoError(t, err)

	other := validUpload()
	other.OwnerID = "owner-2"
	_, err = svc.UploadFile(context.Background(), other)
	require.NoError(t, err)

	anonymous := validUpload()
	_, err = svc.UploadFile(context.Background(), anonymous)
	require.NoError(t, err)

	files, err := svc.ListFilesByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "owner-1", *files[0].OwnerID)

	all, err := svc.ListActiveFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
