package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpirationClass(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ExpirationClass
		wantErr bool
	}{
		{name: "1 hour", input: "1h", want: Expiration1Hour},
		{name: "6 hours", input: "6h", want: Expiration6Hours},
		{name: "24 hours", input: "24h", want: Expiration24Hours},
		{name: "7 days", input: "7d", want: Expiration7Days},
		{name: "30 days", input: "30d", want: Expiration30Days},
		{name: "never", input: "never", want: ExpirationNever},
		{name: "empty means default", input: "", want: DefaultExpiration},
		{name: "unknown value", input: "2h", wantErr: true},
		{name: "wrong case", input: "NEVER", wantErr: true},
		{name: "garbage", input: "forever!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpirationClass(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpirationClass_ExpiresAt(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		class ExpirationClass
		want  time.Time
	}{
		{Expiration1Hour, now.Add(1 * time.Hour)},
		{Expiration6Hours, now.Add(6 * time.Hour)},
		{Expiration24Hours, now.Add(24 * time.Hour)},
		{Expiration7Days, now.Add(7 * 24 * time.Hour)},
		{Expiration30Days, now.Add(30 * 24 * time.Hour)},
		{ExpirationNever, NeverExpiresAt},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.class.ExpiresAt(now))
		})
	}
}

func TestExpirationNever_FarFuture(t *testing.T) {
	// «Никогда» хранится как фиксированная дата, чтобы фильтры по
	// expires_at работали для всех записей одинаково
	assert.True(t, NeverExpiresAt.After(time.Now().Add(50*365*24*time.Hour)))
}

func TestFile_Active(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	file := &File{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, file.Active(now))
	assert.True(t, file.Active(now.Add(59*time.Minute)))

	// Ровно в момент истечения файл уже недоступен
	assert.False(t, file.Active(now.Add(time.Hour)))
	assert.False(t, file.Active(now.Add(2*time.Hour)))
}

func TestFile_HasPassword(t *testing.T) {
	empty := ""
	hash := "$2a$10$abcdefghijklmnopqrstuv"

	assert.False(t, (&File{}).HasPassword())
	assert.False(t, (&File{PasswordHash: &empty}).HasPassword())
	assert.True(t, (&File{PasswordHash: &hash}).HasPassword())
}
