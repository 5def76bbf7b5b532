package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/coaching-api/internal/domain/entity"
	"github.com/yourusername/coaching-api/internal/domain/repository"
	apperrors "github.com/yourusername/coaching-api/internal/pkg/errors"
)

// submitGracePeriod - мягкий допуск к таймеру сдачи. Просроченная сдача
// логируется, но принимается: потерять ответы студента из-за сетевой
// задержки хуже, чем принять поздно. Это осознанная политика, не баг.
const submitGracePeriod = 30 * time.Second

// leaderboardVersionKey - счетчик версий лидерборда в кеше.
// Бамп на каждой сдаче инвалидирует закешированные выборки.
const leaderboardVersionKey = "leaderboard:version"

// AttemptService управляет жизненным циклом попытки:
// старт, сохранение ответов, сдача с зачетом.
type AttemptService struct {
	attemptRepo  repository.AttemptRepository
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		testRepo:     testRepo,
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
	}
}

// StartAttempt начинает или возобновляет попытку пары (user, test).
// Существующая попытка in_progress возвращается как есть, если не задан
// forceNew: тогда устаревшая автосдается с текущими ответами, и создается
// свежая. Гонка двух одновременных стартов резолвится повторным чтением
// строки-победителя.
func (s *AttemptService) StartAttempt(userID, orgID, testID uint, forceNew bool) (*entity.Attempt, error) {
	test, err := s.testRepo.GetWithQuestions(testID)
	if err != nil {
		return nil, err
	}
	if !test.IsPublished() {
		// Черновики и архив для студента неотличимы от отсутствующего теста
		return nil, fmt.Errorf("test %d is not published: %w", testID, apperrors.ErrNotFound)
	}
	if test.OrganizationID != orgID {
		// Тесты чужой организации закрыты для любых действий
		return nil, fmt.Errorf("test %d belongs to another organization: %w", testID, apperrors.ErrForbidden)
	}

	existing, err := s.attemptRepo.GetInProgress(userID, testID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		if !forceNew {
			return existing, nil
		}
		// Автосдача устаревшей попытки с теми ответами, что успели сохраниться
		breakdown := entity.ScoreAttempt(test, existing.Answers)
		if _, err := s.attemptRepo.Submit(existing.ID, breakdown); err != nil {
			return nil, fmt.Errorf("failed to auto-submit stale attempt %d: %w", existing.ID, err)
		}
		log.Printf("[AttemptService] Устаревшая попытка #%d автосдана перед новым стартом (user=%d test=%d)",
			existing.ID, userID, testID)
		s.bumpLeaderboardVersion()
	}

	attempt := &entity.Attempt{
		UserID:          userID,
		TestID:          testID,
		Status:          entity.AttemptStatusInProgress,
		UnansweredCount: test.QuestionCount(),
		StartedAt:       time.Now(),
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		if errors.Is(err, apperrors.ErrInvalidState) {
			// Параллельный старт успел раньше - возвращаем его попытку
			winner, readErr := s.attemptRepo.GetInProgress(userID, testID)
			if readErr == nil {
				return winner, nil
			}
		}
		return nil, err
	}

	log.Printf("[AttemptService] Начата попытка #%d (user=%d test=%d, вопросов: %d)",
		attempt.ID, userID, testID, test.QuestionCount())
	return attempt, nil
}

// SaveAnswer заменяет или добавляет ответ на вопрос идущей попытки.
// Балл при этом не пересчитывается - зачет происходит только при сдаче.
func (s *AttemptService) SaveAnswer(userID uint, publicID string, questionID uint, selected []int) error {
	attempt, err := s.attemptRepo.GetByPublicID(publicID)
	if err != nil {
		return err
	}
	if !attempt.OwnedBy(userID) {
		return fmt.Errorf("attempt %s is not owned by user %d: %w", publicID, userID, apperrors.ErrForbidden)
	}
	if !attempt.IsInProgress() {
		return fmt.Errorf("attempt %s is already submitted: %w", publicID, apperrors.ErrInvalidState)
	}

	question, err := s.questionRepo.GetByID(questionID)
	if err != nil {
		return err
	}
	if question.TestID != attempt.TestID {
		return fmt.Errorf("question %d does not belong to test %d: %w", questionID, attempt.TestID, apperrors.ErrValidation)
	}
	if !question.IsValidSelection(selected) {
		return fmt.Errorf("selected option index out of range for question %d (options: %d): %w",
			questionID, question.OptionsCount(), apperrors.ErrValidation)
	}

	return s.attemptRepo.UpsertAnswer(attempt.ID, questionID, entity.IntArray(selected))
}

// SubmitAttempt сдает попытку: классифицирует ответы по вопросам теста,
// считает балл и переводит попытку в терминальный статус. Повторная сдача
// всегда завершается ErrInvalidState, итоги первой не меняются.
func (s *AttemptService) SubmitAttempt(userID, orgID uint, publicID string) (*entity.Attempt, error) {
	attempt, err := s.attemptRepo.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if !attempt.OwnedBy(userID) {
		return nil, fmt.Errorf("attempt %s is not owned by user %d: %w", publicID, userID, apperrors.ErrForbidden)
	}
	if !attempt.IsInProgress() {
		return nil, fmt.Errorf("attempt %s is already submitted: %w", publicID, apperrors.ErrInvalidState)
	}

	test, err := s.testRepo.GetWithQuestions(attempt.TestID)
	if err != nil {
		return nil, err
	}
	if test.OrganizationID != orgID {
		return nil, fmt.Errorf("test %d belongs to another organization: %w", test.ID, apperrors.ErrForbidden)
	}

	// Мягкая проверка таймера: фиксируем просрочку, но сдачу не блокируем
	elapsed := time.Since(attempt.StartedAt)
	if allowed := test.Duration() + submitGracePeriod; elapsed >= allowed {
		log.Printf("[AttemptService] Поздняя сдача попытки #%d: прошло %s при лимите %s (принята)",
			attempt.ID, elapsed.Round(time.Second), allowed)
	}

	breakdown := entity.ScoreAttempt(test, attempt.Answers)
	submitted, err := s.attemptRepo.Submit(attempt.ID, breakdown)
	if err != nil {
		return nil, err
	}

	s.bumpLeaderboardVersion()

	log.Printf("[AttemptService] Попытка #%d сдана: %d/%d/%d (прав/неправ/пусто), балл %.2f",
		attempt.ID, breakdown.Correct, breakdown.Incorrect, breakdown.Unanswered, breakdown.Score)
	return submitted, nil
}

// GetAttemptByPublicID возвращает попытку, проверяя права вызывающего
func (s *AttemptService) GetAttemptByPublicID(callerID uint, isAdmin bool, publicID string) (*entity.Attempt, error) {
	attempt, err := s.attemptRepo.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !attempt.OwnedBy(callerID) {
		return nil, fmt.Errorf("attempt %s is not owned by user %d: %w", publicID, callerID, apperrors.ErrForbidden)
	}
	return attempt, nil
}

// GetAttemptDetail возвращает попытку вместе с ее тестом (без ключа ответов
// в вопросах - его скрывает сериализация слоя представления).
// Административный доступ ограничен рамками своей организации.
func (s *AttemptService) GetAttemptDetail(callerID uint, isAdmin bool, callerOrgID uint, publicID string) (*entity.Attempt, *entity.Test, error) {
	attempt, err := s.GetAttemptByPublicID(callerID, isAdmin, publicID)
	if err != nil {
		return nil, nil, err
	}
	test, err := s.testRepo.GetByID(attempt.TestID)
	if err != nil {
		return nil, nil, err
	}
	if test.OrganizationID != callerOrgID {
		return nil, nil, fmt.Errorf("test %d belongs to another organization: %w", test.ID, apperrors.ErrForbidden)
	}
	return attempt, test, nil
}

// GetResumableAttempt возвращает текущую незавершенную попытку пользователя
// для теста (проверка возобновления) или ErrNotFound.
func (s *AttemptService) GetResumableAttempt(userID, testID uint) (*entity.Attempt, error) {
	return s.attemptRepo.GetInProgress(userID, testID)
}

// AttemptSummary представляет строку списка попыток пользователя,
// обогащенную данными теста
type AttemptSummary struct {
	PublicID     string     `json:"public_id"`
	TestID       uint       `json:"test_id"`
	TestTitle    string     `json:"test_title"`
	TotalMarks   float64    `json:"total_marks"`
	Status       string     `json:"status"`
	Score        float64    `json:"score"`
	Percentage   float64    `json:"percentage"`
	ScoreVisible bool       `json:"score_visible"`
	StartedAt    time.Time  `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

// ListUserAttempts возвращает попытки пользователя, новые первыми.
// Детали зачета скрываются, пока ключ ответов теста не опубликован.
func (s *AttemptService) ListUserAttempts(callerID uint, isAdmin bool, userID uint) ([]AttemptSummary, error) {
	if !isAdmin && callerID != userID {
		return nil, fmt.Errorf("user %d cannot list attempts of user %d: %w", callerID, userID, apperrors.ErrForbidden)
	}

	attempts, err := s.attemptRepo.GetUserAttempts(userID)
	if err != nil {
		return nil, err
	}

	testIDs := make([]uint, 0, len(attempts))
	seen := make(map[uint]struct{}, len(attempts))
	for i := range attempts {
		if _, ok := seen[attempts[i].TestID]; !ok {
			seen[attempts[i].TestID] = struct{}{}
			testIDs = append(testIDs, attempts[i].TestID)
		}
	}
	tests, err := s.testRepo.GetByIDs(testIDs)
	if err != nil {
		return nil, err
	}
	testByID := make(map[uint]*entity.Test, len(tests))
	for i := range tests {
		testByID[tests[i].ID] = &tests[i]
	}

	summaries := make([]AttemptSummary, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		test, ok := testByID[a.TestID]
		if !ok {
			continue
		}
		summary := AttemptSummary{
			PublicID:    a.PublicID,
			TestID:      a.TestID,
			TestTitle:   test.Title,
			TotalMarks:  test.TotalMarks,
			Status:      a.Status,
			StartedAt:   a.StartedAt,
			SubmittedAt: a.SubmittedAt,
		}
		if a.IsSubmitted() && test.AnswerKeyPublished {
			summary.ScoreVisible = true
			summary.Score = a.Score
			if test.TotalMarks > 0 {
				summary.Percentage = a.Score / test.TotalMarks * 100
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// bumpLeaderboardVersion инвалидирует кеш лидерборда после сдачи.
// Кеш советующий, не авторитетный: ошибка здесь не должна ронять сдачу.
func (s *AttemptService) bumpLeaderboardVersion() {
	if s.cacheRepo == nil {
		return
	}
	if _, err := s.cacheRepo.Increment(leaderboardVersionKey); err != nil {
		log.Printf("[AttemptService] Не удалось бампнуть версию лидерборда: %v", err)
	}
}
