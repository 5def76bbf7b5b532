package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется, когда запрос пришел без идентификации вызывающего.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия
	// (чужая попытка, чужая аналитика, тест другой организации).
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных
	// (например, индекс варианта ответа вне диапазона вопроса).
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState используется для конфликтов состояния попытки:
	// мутация уже сданной попытки или гонка двух одновременных стартов.
	ErrInvalidState = errors.New("invalid attempt state")
)
