package service

import "errors"

// Ошибки ядра сервиса. Хендлеры транслируют их в HTTP-статусы.
var (
	// ErrFileNotFound — код неизвестен или запись истекла. Истекшие
	// файлы намеренно неотличимы от несуществующих.
	ErrFileNotFound = errors.New("file not found or expired")

	// ErrWrongPassword — пароль не указан или не подошёл. Обе ситуации
	// сообщаются одинаково, чтобы не раскрывать факт защиты паролем.
	ErrWrongPassword = errors.New("invalid password")

	// ErrDownloadLimitReached — лимит скачиваний исчерпан.
	ErrDownloadLimitReached = errors.New("download limit reached")

	// ErrInvalidExpiration — неизвестный класс срока хранения.
	ErrInvalidExpiration = errors.New("invalid expiration type")

	// ErrInvalidDownloadLimit — лимит скачиваний вне диапазона 1..1000.
	ErrInvalidDownloadLimit = errors.New("max downloads must be between 1 and 1000")

	// ErrMessageTooLong — сообщение получателю длиннее 500 символов.
	ErrMessageTooLong = errors.New("custom message is too long")

	// ErrFileTooLarge — размер файла превышает допустимый.
	ErrFileTooLarge = errors.New("file size exceeds maximum allowed size")

	// ErrInvalidFile — отсутствуют обязательные параметры загрузки.
	ErrInvalidFile = errors.New("invalid file")

	// ErrCodeSpaceExhausted — не удалось подобрать свободный код доступа
	// за отведённое число попыток.
	ErrCodeSpaceExhausted = errors.New("failed to generate unique code")

	// ErrAccessDenied — операция запрещена для данного пользователя.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken — имя пользователя уже зарегистрировано.
	ErrUsernameTaken = errors.New("username already exists")
)
