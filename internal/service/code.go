package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"boltshare/internal/domain"
)

// Количество попыток подобрать свободный код доступа, прежде чем
// загрузка завершится ошибкой. На практике при 36^6 комбинаций
// предел недостижим, но бесконечный цикл недопустим.
const maxCodeAttempts = 10

// generateCode возвращает 6-символьный код доступа из A-Z0-9.
// Каждый символ выбирается равномерно через crypto/rand.
func generateCode() (string, error) {
	alphabetLen := big.NewInt(int64(len(domain.CodeAlphabet)))

	code := make([]byte, domain.CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		code[i] = domain.CodeAlphabet[n.Int64()]
	}

	return string(code), nil
}
