package repository

import (
	"github.com/yourusername/coaching-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками
type AttemptRepository interface {
	// Create вставляет новую попытку. Гонка двух одновременных стартов
	// резолвится частичным уникальным индексом: повторная вставка
	// in_progress для пары (user, test) возвращает ErrInvalidState.
	Create(attempt *entity.Attempt) error

	GetByPublicID(publicID string) (*entity.Attempt, error)

	// GetInProgress возвращает текущую незавершенную попытку пары (user, test)
	// или ErrNotFound.
	GetInProgress(userID, testID uint) (*entity.Attempt, error)

	// UpsertAnswer атомарно заменяет или добавляет ответ на вопрос
	// в рамках одной попытки.
	UpsertAnswer(attemptID uint, questionID uint, selected entity.IntArray) error

	// Submit переводит попытку в терминальный статус и фиксирует итоги.
	// Перепроверка статуса выполняется внутри транзакции: повторная сдача
	// возвращает ErrInvalidState.
	Submit(attemptID uint, breakdown entity.ScoreBreakdown) (*entity.Attempt, error)

	// GetSubmittedByUser возвращает все сданные попытки пользователя
	// с предзагруженными ответами.
	GetSubmittedByUser(userID uint) ([]entity.Attempt, error)

	// GetSubmittedByTests возвращает сданные попытки всех пользователей
	// по указанным тестам.
	GetSubmittedByTests(testIDs []uint) ([]entity.Attempt, error)

	// GetSubmittedByOrganization возвращает сданные попытки всех
	// пользователей организации.
	GetSubmittedByOrganization(orgID uint) ([]entity.Attempt, error)

	// GetUserAttempts возвращает все попытки пользователя (любой статус),
	// упорядоченные по startedAt по убыванию.
	GetUserAttempts(userID uint) ([]entity.Attempt, error)
}
