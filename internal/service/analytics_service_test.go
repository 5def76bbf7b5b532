package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/coaching-api/internal/domain/entity"
)

// analyticsTest строит тест с questionCount вопросами предмета subject,
// правильный вариант везде индекс 1
func analyticsTest(id uint, subject string, questionCount int, keyPublished bool) entity.Test {
	test := entity.Test{
		ID:                 id,
		Title:              "Тест " + subject,
		DurationMinutes:    60,
		TotalMarks:         float64(questionCount * 10),
		Status:             entity.TestStatusPublished,
		AnswerKeyPublished: keyPublished,
	}
	for i := 0; i < questionCount; i++ {
		test.Questions = append(test.Questions, entity.Question{
			ID:             id*100 + uint(i+1),
			TestID:         id,
			Position:       i,
			Options:        entity.StringArray{"A", "B", "C", "D"},
			CorrectOptions: entity.IntArray{1},
			Subject:        subject,
		})
	}
	return test
}

func submittedAt(day, hour int) (time.Time, *time.Time) {
	started := time.Date(2026, 5, day, hour, 0, 0, 0, time.UTC)
	submitted := started.Add(45 * time.Minute)
	return started, &submitted
}

func TestAnalyticsService_GetStudentSummary_UnpublishedKeyExcluded(t *testing.T) {
	// Arrange: две сданные попытки, но ключ опубликован только у теста 10
	mockAttemptRepo := new(MockAttemptRepository)
	mockTestRepo := new(MockTestRepository)

	started1, sub1 := submittedAt(1, 10)
	started2, sub2 := submittedAt(2, 10)
	attempts := []entity.Attempt{
		{ID: 1, UserID: 1, TestID: 10, Status: entity.AttemptStatusSubmitted,
			CorrectCount: 2, IncorrectCount: 0, UnansweredCount: 0, Score: 20,
			StartedAt: started1, SubmittedAt: sub1,
			Answers: []entity.AttemptAnswer{
				{QuestionID: 1001, SelectedOptions: entity.IntArray{1}},
				{QuestionID: 1002, SelectedOptions: entity.IntArray{1}},
			}},
		{ID: 2, UserID: 1, TestID: 20, Status: entity.AttemptStatusSubmitted,
			CorrectCount: 2, Score: 20, StartedAt: started2, SubmittedAt: sub2},
	}
	tests := []entity.Test{
		analyticsTest(10, "Физика", 2, true),
		analyticsTest(20, "Химия", 2, false),
	}

	mockAttemptRepo.On("GetSubmittedByUser", uint(1)).Return(attempts, nil)
	mockTestRepo.On("GetByIDsWithQuestions", []uint{10, 20}).Return(tests, nil)

	svc := NewAnalyticsService(mockAttemptRepo, mockTestRepo)

	// Act
	summary, err := svc.GetStudentSummary(1)

	// Assert: тест без ключа полностью выпадает из агрегатов
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TestsTaken)
	assert.Equal(t, 2, summary.TotalCorrect)
	assert.Equal(t, 20.0, summary.AverageScore)
	require.Contains(t, summary.Subjects, "Физика")
	assert.NotContains(t, summary.Subjects, "Химия")
	assert.Equal(t, 2, summary.Subjects["Физика"].Correct)
	assert.Equal(t, 2, summary.Subjects["Физика"].Total)
}

func TestAnalyticsService_GetStudentSummary_RetriesCollapsed(t *testing.T) {
	// Arrange: пересдача того же теста не удваивает TestsTaken
	mockAttemptRepo := new(MockAttemptRepository)
	mockTestRepo := new(MockTestRepository)

	started1, sub1 := submittedAt(1, 10)
	started2, sub2 := submittedAt(3, 10)
	attempts := []entity.Attempt{
		{ID: 1, UserID: 1, TestID: 10, Status: entity.AttemptStatusSubmitted,
			CorrectCount: 1, IncorrectCount: 1, Score: 10, StartedAt: started1, SubmittedAt: sub1},
		{ID: 2, UserID: 1, TestID: 10, Status: entity.AttemptStatusSubmitted,
			CorrectCount: 2, Score: 20, StartedAt: started2, SubmittedAt: sub2},
	}
	tests := []entity.Test{analyticsTest(10, "Физика", 2, true)}

	mockAttemptRepo.On("GetSubmittedByUser", uint(1)).Return(attempts, nil)
	mockTestRepo.On("GetByIDsWithQuestions", []uint{10}).Return(tests, nil)

	svc := NewAnalyticsService(mockAttemptRepo, mockTestRepo)

	// Act
	summary, err := svc.GetStudentSummary(1)

	// Assert: канонической остается ранняя попытка
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TestsTaken)
	assert.Equal(t, 1, summary.TotalCorrect)
	assert.Equal(t, 10.0, summary.AverageScore)
}

func TestAnalyticsService_GetPerformanceTrend_ChronologicalAndLimited(t *testing.T) {
	// Arrange: три канонических попытки, лимит 2
	mockAttemptRepo := new(MockAttemptRepository)
	mockTestRepo := new(MockTestRepository)

	attempts := []entity.Attempt{}
	testList := []entity.Test{}
	testIDs := []uint{}
	for i := 0; i < 3; i++ {
		started, sub := submittedAt(i+1, 10)
		id := uint(10 * (i + 1))
		attempts = append(attempts, entity.Attempt{
			ID: uint(i + 1), UserID: 1, TestID: id, Status: entity.AttemptStatusSubmitted,
			CorrectCount: 3, IncorrectCount: 1, Score: float64(10 * (i + 1)),
			StartedAt: started, SubmittedAt: sub,
		})
		testList = append(testList, analyticsTest(id, "Математика", 4, true))
		testIDs = append(testIDs, id)
	}

	mockAttemptRepo.On("GetSubmittedByUser", uint(1)).Return(attempts, nil)
	mockTestRepo.On("GetByIDsWithQuestions", testIDs).Return(testList, nil)

	svc := NewAnalyticsService(mockAttemptRepo, mockTestRepo)

	// Act
	trend, err := svc.GetPerformanceTrend(1, 2)

	// Assert: остаются две последние, в хронологическом порядке
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, 20.0, trend[0].Score)
	assert.Equal(t, 30.0, trend[1].Score)
	assert.True(t, trend[0].StartedAt.Before(trend[1].StartedAt))
	assert.Equal(t, 75, trend[0].Accuracy, "Точность округляется до целого процента только для показа")
}

func TestAnalyticsService_GetActivityHeatmap_BucketsByLocalDay(t *testing.T) {
	// Arrange: две сдачи в один день, одна в другой, одна вне диапазона
	mockAttemptRepo := new(MockAttemptRepository)
	mockTestRepo := new(MockTestRepository)

	s1, sub1 := submittedAt(1, 9)
	s2, sub2 := submittedAt(1, 15)
	s3, sub3 := submittedAt(2, 9)
	s4, sub4 := submittedAt(20, 9)
	attempts := []entity.Attempt{
		{ID: 1, UserID: 1, TestID: 10, Status: entity.AttemptStatusSubmitted, Score: 10, StartedAt: s1, SubmittedAt: sub1},
		{ID: 2, UserID: 1, TestID: 20, Status: entity.AttemptStatusSubmitted, Score: 20, StartedAt: s2, SubmittedAt: sub2},
		{ID: 3, UserID: 1, TestID: 30, Status: entity.AttemptStatusSubmitted, Score: 30, StartedAt: s3, SubmittedAt: sub3},
		{ID: 4, UserID: 1, TestID: 40, Status: entity.AttemptStatusSubmitted, Score: 40, StartedAt: s4, SubmittedAt: sub4},
	}
	tests := []entity.Test{
		analyticsTest(10, "Физика", 1, true),
		analyticsTest(20, "Физика", 1, true),
		analyticsTest(30, "Физика", 1, true),
		analyticsTest(40, "Физика", 1, true),
	}

	mockAttemptRepo.On("GetSubmittedByUser", uint(1)).Return(attempts, nil)
	mockTestRepo.On("GetByIDsWithQuestions", mock.AnythingOfType("[]uint")).Return(tests, nil)

	svc := NewAnalyticsService(mockAttemptRepo, mockTestRepo)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 10, 23, 59, 59, 0, time.UTC)

	// Act
	heatmap, err := svc.GetActivityHeatmap(1, from, to)

	// Assert
	require.NoError(t, err)
	require.Len(t, heatmap, 2)
	assert.Equal(t, "2026-05-01", heatmap[0].Date)
	assert.Equal(t, 2, heatmap[0].Attempts)
	assert.Equal(t, 30.0, heatmap[0].TotalScore)
	assert.Equal(t, "2026-05-02", heatmap[1].Date)
	assert.Equal(t, 1, heatmap[1].Attempts)
}

func TestAnalyticsService_GetAchievements_RawRetriesReachDetector(t *testing.T) {
	// Arrange: comeback-king возможен только если детектор видит пересдачи
	mockAttemptRepo := new(MockAttemptRepository)
	mockTestRepo := new(MockTestRepository)

	started1, sub1 := submittedAt(1, 10)
	started2, sub2 := submittedAt(5, 10)
	attempts := []entity.Attempt{
		{ID: 1, UserID: 1, TestID: 10, Status: entity.AttemptStatusSubmitted,
			CorrectCount: 2, IncorrectCount: 8, StartedAt: started1, SubmittedAt: sub1},
		{ID: 2, UserID: 1, TestID: 10, Status: entity.AttemptStatusSubmitted,
			CorrectCount: 6, IncorrectCount: 4, StartedAt: started2, SubmittedAt: sub2},
	}
	tests := []entity.Test{analyticsTest(10, "Физика", 10, true)}

	mockAttemptRepo.On("GetSubmittedByUser", uint(1)).Return(attempts, nil)
	mockTestRepo.On("GetByIDsWithQuestions", []uint{10}).Return(tests, nil)

	svc := NewAnalyticsService(mockAttemptRepo, mockTestRepo)

	// Act
	achievements, err := svc.GetAchievements(1)

	// Assert
	require.NoError(t, err)
	found := false
	for _, a := range achievements {
		if a.ID == "comeback-king" {
			found = true
		}
	}
	assert.True(t, found, "Детектор должен получать сырые попытки с пересдачами")
}
