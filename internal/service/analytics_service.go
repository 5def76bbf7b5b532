package service

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/coaching-api/internal/domain/entity"
	"github.com/yourusername/coaching-api/internal/domain/repository"
	"github.com/yourusername/coaching-api/internal/service/performance"
)

// AnalyticsService строит аналитику студента по сданным попыткам.
// Конвейер фильтрации един для всех выборок и обязателен по порядку:
// 1) только сданные попытки; 2) только тесты с опубликованным ключом
// ответов; 3) дедупликация до канонических попыток.
type AnalyticsService struct {
	attemptRepo repository.AttemptRepository
	testRepo    repository.TestRepository
}

// NewAnalyticsService создает новый сервис аналитики
func NewAnalyticsService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
) *AnalyticsService {
	return &AnalyticsService{
		attemptRepo: attemptRepo,
		testRepo:    testRepo,
	}
}

// SubjectStat представляет счетчик правильных ответов по предмету
type SubjectStat struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// StudentSummary представляет сводную аналитику студента
type StudentSummary struct {
	TestsTaken     int                    `json:"tests_taken"`
	TotalCorrect   int                    `json:"total_correct"`
	TotalIncorrect int                    `json:"total_incorrect"`
	AverageScore   float64                `json:"average_score"`
	Subjects       map[string]SubjectStat `json:"subjects"`
}

// TrendPoint представляет точку тренда успеваемости
type TrendPoint struct {
	TestID      uint      `json:"test_id"`
	TestTitle   string    `json:"test_title"`
	Score       float64   `json:"score"`
	Accuracy    int       `json:"accuracy"` // проценты, округлены для отображения
	StartedAt   time.Time `json:"started_at"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// HeatmapBucket представляет активность за один календарный день
type HeatmapBucket struct {
	Date       string  `json:"date"` // YYYY-MM-DD, локальные календарные сутки
	Attempts   int     `json:"attempts"`
	TotalScore float64 `json:"total_score"`
}

// eligibleAttempts возвращает сданные попытки студента по тестам
// с опубликованным ключом ответов (без дедупликации) и карту тестов
// с предзагруженными вопросами.
func (s *AnalyticsService) eligibleAttempts(userID uint) ([]entity.Attempt, map[uint]*entity.Test, error) {
	attempts, err := s.attemptRepo.GetSubmittedByUser(userID)
	if err != nil {
		return nil, nil, err
	}

	testIDs := make([]uint, 0, len(attempts))
	seen := make(map[uint]struct{}, len(attempts))
	for i := range attempts {
		if _, ok := seen[attempts[i].TestID]; !ok {
			seen[attempts[i].TestID] = struct{}{}
			testIDs = append(testIDs, attempts[i].TestID)
		}
	}

	tests, err := s.testRepo.GetByIDsWithQuestions(testIDs)
	if err != nil {
		return nil, nil, err
	}
	testByID := make(map[uint]*entity.Test, len(tests))
	for i := range tests {
		if tests[i].AnswerKeyPublished {
			testByID[tests[i].ID] = &tests[i]
		}
	}

	eligible := make([]entity.Attempt, 0, len(attempts))
	for i := range attempts {
		if _, ok := testByID[attempts[i].TestID]; ok {
			eligible = append(eligible, attempts[i])
		}
	}
	return eligible, testByID, nil
}

// GetStudentSummary возвращает сводку: сколько тестов пройдено, суммарные
// правильные/неправильные, средний балл и разбивку по предметам.
func (s *AnalyticsService) GetStudentSummary(userID uint) (*StudentSummary, error) {
	eligible, tests, err := s.eligibleAttempts(userID)
	if err != nil {
		return nil, err
	}
	canonical := performance.Deduplicate(eligible)

	summary := &StudentSummary{
		Subjects: make(map[string]SubjectStat),
	}

	var totalScore float64
	for i := range canonical {
		a := &canonical[i]
		summary.TestsTaken++
		summary.TotalCorrect += a.CorrectCount
		summary.TotalIncorrect += a.IncorrectCount
		totalScore += a.Score

		// Предметная разбивка: идем по списку вопросов теста и сверяем
		// ответ точным совпадением множеств - тем же правилом, что зачет
		test := tests[a.TestID]
		for j := range test.Questions {
			q := &test.Questions[j]
			stat := summary.Subjects[q.Subject]
			stat.Total++
			if ans := a.AnswerFor(q.ID); ans != nil && q.MatchesSelection(ans.SelectedOptions) {
				stat.Correct++
			}
			summary.Subjects[q.Subject] = stat
		}
	}

	if summary.TestsTaken > 0 {
		summary.AverageScore = totalScore / float64(summary.TestsTaken)
	}
	return summary, nil
}

// GetPerformanceTrend возвращает до limit последних канонических попыток
// в хронологическом порядке. Точность округляется до целого процента -
// это единственное место, где округление допустимо, и только для показа.
func (s *AnalyticsService) GetPerformanceTrend(userID uint, limit int) ([]TrendPoint, error) {
	eligible, tests, err := s.eligibleAttempts(userID)
	if err != nil {
		return nil, err
	}
	canonical := performance.Deduplicate(eligible)

	sort.SliceStable(canonical, func(i, j int) bool {
		return canonical[i].StartedAt.After(canonical[j].StartedAt)
	})

	if limit <= 0 {
		limit = 10
	}
	if len(canonical) > limit {
		canonical = canonical[:limit]
	}

	points := make([]TrendPoint, 0, len(canonical))
	for i := range canonical {
		a := &canonical[i]
		point := TrendPoint{
			TestID:    a.TestID,
			TestTitle: tests[a.TestID].Title,
			Score:     a.Score,
			Accuracy:  int(math.Round(a.Accuracy())),
			StartedAt: a.StartedAt,
		}
		if a.SubmittedAt != nil {
			point.SubmittedAt = *a.SubmittedAt
		}
		points = append(points, point)
	}

	// Разворот к хронологическому порядку для графика
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// GetActivityHeatmap возвращает активность по календарным дням в диапазоне
// [from, to]. Сутки считаются по локальным компонентам даты сдачи, не по UTC.
func (s *AnalyticsService) GetActivityHeatmap(userID uint, from, to time.Time) ([]HeatmapBucket, error) {
	eligible, _, err := s.eligibleAttempts(userID)
	if err != nil {
		return nil, err
	}
	canonical := performance.Deduplicate(eligible)

	buckets := make(map[string]*HeatmapBucket)
	for i := range canonical {
		a := &canonical[i]
		if a.SubmittedAt == nil {
			continue
		}
		t := *a.SubmittedAt
		if t.Before(from) || t.After(to) {
			continue
		}
		date := t.Format("2006-01-02")
		bucket, ok := buckets[date]
		if !ok {
			bucket = &HeatmapBucket{Date: date}
			buckets[date] = bucket
		}
		bucket.Attempts++
		bucket.TotalScore += a.Score
	}

	result := make([]HeatmapBucket, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// GetAchievements возвращает бейджи студента. Детектор получает сырые
// (недедуплицированные) попытки: comeback-king смотрит на серии пересдач.
func (s *AnalyticsService) GetAchievements(userID uint) ([]performance.Achievement, error) {
	eligible, tests, err := s.eligibleAttempts(userID)
	if err != nil {
		return nil, err
	}
	return performance.DetectAchievements(eligible, tests, time.Now()), nil
}
