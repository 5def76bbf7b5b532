package repository

import (
	"github.com/yourusername/coaching-api/internal/domain/entity"
)

// TestRepository определяет методы для чтения каталога тестов.
// Каталог принадлежит внешней подсистеме, движку нужны только чтения.
type TestRepository interface {
	GetByID(id uint) (*entity.Test, error)

	// GetWithQuestions возвращает тест с вопросами в порядке теста
	GetWithQuestions(id uint) (*entity.Test, error)

	// GetByIDs возвращает тесты по списку идентификаторов (без вопросов)
	GetByIDs(ids []uint) ([]entity.Test, error)

	// GetByIDsWithQuestions возвращает тесты по списку идентификаторов
	// с предзагруженными вопросами
	GetByIDsWithQuestions(ids []uint) ([]entity.Test, error)

	// GetByBatch возвращает опубликованные тесты, привязанные к потоку
	GetByBatch(batchID uint) ([]entity.Test, error)
}

// QuestionRepository определяет методы для чтения вопросов каталога
type QuestionRepository interface {
	GetByID(id uint) (*entity.Question, error)
}
