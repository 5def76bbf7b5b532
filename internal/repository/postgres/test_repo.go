package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/coaching-api/internal/domain/entity"
	apperrors "github.com/yourusername/coaching-api/internal/pkg/errors"
)

// TestRepo реализует repository.TestRepository
type TestRepo struct {
	db *gorm.DB
}

// NewTestRepo создает новый репозиторий тестов
func NewTestRepo(db *gorm.DB) *TestRepo {
	return &TestRepo{db: db}
}

// GetByID возвращает тест без вопросов
func (r *TestRepo) GetByID(id uint) (*entity.Test, error) {
	var test entity.Test
	err := r.db.First(&test, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// GetWithQuestions возвращает тест с вопросами в порядке теста
func (r *TestRepo) GetWithQuestions(id uint) (*entity.Test, error) {
	var test entity.Test
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.position ASC, questions.id ASC")
	}).First(&test, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// GetByIDs возвращает тесты по списку идентификаторов
func (r *TestRepo) GetByIDs(ids []uint) ([]entity.Test, error) {
	if len(ids) == 0 {
		return []entity.Test{}, nil
	}
	var tests []entity.Test
	err := r.db.Where("id IN ?", ids).Find(&tests).Error
	return tests, err
}

// GetByIDsWithQuestions возвращает тесты с вопросами по списку идентификаторов
func (r *TestRepo) GetByIDsWithQuestions(ids []uint) ([]entity.Test, error) {
	if len(ids) == 0 {
		return []entity.Test{}, nil
	}
	var tests []entity.Test
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.position ASC, questions.id ASC")
	}).Where("id IN ?", ids).Find(&tests).Error
	return tests, err
}

// GetByBatch возвращает опубликованные тесты, привязанные к потоку.
// batch_ids хранится как JSONB-массив, поэтому фильтруем оператором @>.
func (r *TestRepo) GetByBatch(batchID uint) ([]entity.Test, error) {
	var tests []entity.Test
	err := r.db.Where("status = ? AND batch_ids @> ?::jsonb",
		entity.TestStatusPublished, fmt.Sprintf("[%d]", batchID)).
		Find(&tests).Error
	return tests, err
}
