package postgres

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/coaching-api/internal/domain/entity"
	apperrors "github.com/yourusername/coaching-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникального индекса
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// Create вставляет новую попытку.
// Частичный уникальный индекс uniq_attempts_in_progress гарантирует
// не более одной попытки in_progress на пару (user, test); нарушение
// индекса означает проигранную гонку старта.
func (r *AttemptRepo) Create(attempt *entity.Attempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			log.Printf("[AttemptRepo] Гонка старта попытки: user=%d test=%d", attempt.UserID, attempt.TestID)
			return fmt.Errorf("concurrent start for user %d test %d: %w", attempt.UserID, attempt.TestID, apperrors.ErrInvalidState)
		}
		return err
	}
	return nil
}

// GetByPublicID возвращает попытку по публичному идентификатору
func (r *AttemptRepo) GetByPublicID(publicID string) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.Preload("Answers").Where("public_id = ?", publicID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetInProgress возвращает незавершенную попытку пары (user, test)
func (r *AttemptRepo) GetInProgress(userID, testID uint) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.Preload("Answers").
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, entity.AttemptStatusInProgress).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// UpsertAnswer заменяет или добавляет ответ на вопрос в рамках попытки.
// Обе ветви идут через ON CONFLICT по (attempt_id, question_id), поэтому
// чтение-модификация-запись не гонится с параллельным сохранением.
func (r *AttemptRepo) UpsertAnswer(attemptID uint, questionID uint, selected entity.IntArray) error {
	answer := entity.AttemptAnswer{
		AttemptID:       attemptID,
		QuestionID:      questionID,
		SelectedOptions: selected,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_options", "updated_at"}),
	}).Create(&answer).Error
}

// Submit переводит попытку в терминальный статус внутри транзакции.
// Статус перепроверяется с блокировкой строки: повторная сдача или сдача
// чужой гонкой уже закрытой попытки возвращает ErrInvalidState.
func (r *AttemptRepo) Submit(attemptID uint, breakdown entity.ScoreBreakdown) (*entity.Attempt, error) {
	var submitted *entity.Attempt

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var attempt entity.Attempt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&attempt, attemptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		if !attempt.IsInProgress() {
			return fmt.Errorf("attempt %d already submitted: %w", attemptID, apperrors.ErrInvalidState)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":           entity.AttemptStatusSubmitted,
			"correct_count":    breakdown.Correct,
			"incorrect_count":  breakdown.Incorrect,
			"unanswered_count": breakdown.Unanswered,
			"score":            breakdown.Score,
			"submitted_at":     now,
		}
		if err := tx.Model(&attempt).Updates(updates).Error; err != nil {
			return err
		}

		attempt.Status = entity.AttemptStatusSubmitted
		attempt.CorrectCount = breakdown.Correct
		attempt.IncorrectCount = breakdown.Incorrect
		attempt.UnansweredCount = breakdown.Unanswered
		attempt.Score = breakdown.Score
		attempt.SubmittedAt = &now
		submitted = &attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	return submitted, nil
}

// GetSubmittedByUser возвращает все сданные попытки пользователя с ответами
func (r *AttemptRepo) GetSubmittedByUser(userID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Preload("Answers").
		Where("user_id = ? AND status = ?", userID, entity.AttemptStatusSubmitted).
		Order("started_at").
		Find(&attempts).Error
	return attempts, err
}

// GetSubmittedByTests возвращает сданные попытки по списку тестов
func (r *AttemptRepo) GetSubmittedByTests(testIDs []uint) ([]entity.Attempt, error) {
	if len(testIDs) == 0 {
		return []entity.Attempt{}, nil
	}
	var attempts []entity.Attempt
	err := r.db.Where("test_id IN ? AND status = ?", testIDs, entity.AttemptStatusSubmitted).
		Order("started_at").
		Find(&attempts).Error
	return attempts, err
}

// GetSubmittedByOrganization возвращает сданные попытки пользователей организации
func (r *AttemptRepo) GetSubmittedByOrganization(orgID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.
		Joins("JOIN users ON users.id = attempts.user_id").
		Where("users.organization_id = ? AND attempts.status = ?", orgID, entity.AttemptStatusSubmitted).
		Order("attempts.started_at").
		Find(&attempts).Error
	return attempts, err
}

// GetUserAttempts возвращает все попытки пользователя, новые первыми
func (r *AttemptRepo) GetUserAttempts(userID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}
