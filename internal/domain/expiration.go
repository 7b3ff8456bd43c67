package domain

import (
	"fmt"
	"time"
)

// ExpirationClass определяет срок хранения файла
type ExpirationClass string

const (
	Expiration1Hour   ExpirationClass = "1h"
	Expiration6Hours  ExpirationClass = "6h"
	Expiration24Hours ExpirationClass = "24h"
	Expiration7Days   ExpirationClass = "7d"
	Expiration30Days  ExpirationClass = "30d"
	ExpirationNever   ExpirationClass = "never"

	// DefaultExpiration применяется, если срок не указан
	DefaultExpiration = Expiration24Hours
)

// NeverExpiresAt — условная «бесконечность» для файлов без срока хранения.
// Фиксированная дата вместо настоящей бесконечности, чтобы сравнения
// expires_at > now работали одинаково для всех записей.
var NeverExpiresAt = time.Date(2099, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseExpirationClass проверяет и нормализует срок хранения.
// Пустая строка означает срок по умолчанию (24 часа).
func ParseExpirationClass(s string) (ExpirationClass, error) {
	if s == "" {
		return DefaultExpiration, nil
	}

	c := ExpirationClass(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown expiration class: %q", s)
	}
	return c, nil
}

// Valid проверяет, что значение входит в закрытый набор классов.
func (c ExpirationClass) Valid() bool {
	switch c {
	case Expiration1Hour, Expiration6Hours, Expiration24Hours,
		Expiration7Days, Expiration30Days, ExpirationNever:
		return true
	}
	return false
}

// ExpiresAt вычисляет абсолютное время истечения от момента now
func (c ExpirationClass) ExpiresAt(now time.Time) time.Time {
	switch c {
	case Expiration1Hour:
		return now.Add(1 * time.Hour)
	case Expiration6Hours:
		return now.Add(6 * time.Hour)
	case Expiration7Days:
		return now.Add(7 * 24 * time.Hour)
	case Expiration30Days:
		return now.Add(30 * 24 * time.Hour)
	case ExpirationNever:
		return NeverExpiresAt
	default:
		// 24h — класс по умолчанию
		return now.Add(24 * time.Hour)
	}
}
