package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// testWithQuestions строит тест из questionCount вопросов по 4 варианта,
// правильный вариант везде индекс 1
func testWithQuestions(questionCount int, totalMarks, negativeRate float64) *Test {
	test := &Test{
		ID:                  1,
		Title:               "Пробный экзамен",
		TotalMarks:          totalMarks,
		NegativeMarkingRate: negativeRate,
		Status:              TestStatusPublished,
	}
	for i := 0; i < questionCount; i++ {
		test.Questions = append(test.Questions, Question{
			ID:             uint(i + 1),
			TestID:         1,
			Position:       i,
			Options:        StringArray{"A", "B", "C", "D"},
			CorrectOptions: IntArray{1},
		})
	}
	return test
}

func TestScoreAttempt_MixedAnswers(t *testing.T) {
	// Arrange: 10 вопросов по 10 баллов, штраф 0.5
	test := testWithQuestions(10, 100, 0.5)

	// 7 правильных, 2 неправильных, 1 без ответа
	answers := []AttemptAnswer{}
	for q := uint(1); q <= 7; q++ {
		answers = append(answers, AttemptAnswer{QuestionID: q, SelectedOptions: IntArray{1}})
	}
	answers = append(answers,
		AttemptAnswer{QuestionID: 8, SelectedOptions: IntArray{0}},
		AttemptAnswer{QuestionID: 9, SelectedOptions: IntArray{2}},
	)

	// Act
	breakdown := ScoreAttempt(test, answers)

	// Assert: 7*10 - 2*0.5 = 69
	assert.Equal(t, 7, breakdown.Correct)
	assert.Equal(t, 2, breakdown.Incorrect)
	assert.Equal(t, 1, breakdown.Unanswered)
	assert.InDelta(t, 69.0, breakdown.Score, 1e-9, "Балл должен быть 7*10 - 2*0.5 без округления")
}

func TestScoreAttempt_ClampedAtZero(t *testing.T) {
	// Arrange: копеечные вопросы, жесткий штраф
	test := testWithQuestions(5, 5, 10)

	// Все пять ответов неправильные
	answers := []AttemptAnswer{}
	for q := uint(1); q <= 5; q++ {
		answers = append(answers, AttemptAnswer{QuestionID: q, SelectedOptions: IntArray{0}})
	}

	// Act
	breakdown := ScoreAttempt(test, answers)

	// Assert: 0*1 - 5*10 < 0, отсечка на нуле
	assert.Equal(t, 5, breakdown.Incorrect)
	assert.Equal(t, 0.0, breakdown.Score, "Отрицательный балл отсекается на нуле")
}

func TestScoreAttempt_EmptySelectionIsUnanswered(t *testing.T) {
	// Arrange
	test := testWithQuestions(3, 30, 1)

	answers := []AttemptAnswer{
		{QuestionID: 1, SelectedOptions: IntArray{1}},
		{QuestionID: 2, SelectedOptions: IntArray{}}, // очищенный ответ
	}

	// Act
	breakdown := ScoreAttempt(test, answers)

	// Assert: пустой выбор не штрафуется
	assert.Equal(t, 1, breakdown.Correct)
	assert.Equal(t, 0, breakdown.Incorrect)
	assert.Equal(t, 2, breakdown.Unanswered)
	assert.InDelta(t, 10.0, breakdown.Score, 1e-9)
}

func TestScoreAttempt_StaleAnswerIgnored(t *testing.T) {
	// Arrange: ответ на вопрос, которого в тесте больше нет
	test := testWithQuestions(2, 20, 0)

	answers := []AttemptAnswer{
		{QuestionID: 1, SelectedOptions: IntArray{1}},
		{QuestionID: 99, SelectedOptions: IntArray{1}},
	}

	// Act
	breakdown := ScoreAttempt(test, answers)

	// Assert: итерация идет по вопросам теста, осиротевший ответ не считается
	assert.Equal(t, 1, breakdown.Correct)
	assert.Equal(t, 0, breakdown.Incorrect)
	assert.Equal(t, 1, breakdown.Unanswered)
	assert.InDelta(t, 10.0, breakdown.Score, 1e-9)
}

func TestScoreAttempt_FractionalMarksNotRounded(t *testing.T) {
	// Arrange: 3 вопроса на 100 баллов - 33.333... за вопрос
	test := testWithQuestions(3, 100, 0)

	answers := []AttemptAnswer{
		{QuestionID: 1, SelectedOptions: IntArray{1}},
		{QuestionID: 2, SelectedOptions: IntArray{1}},
	}

	// Act
	breakdown := ScoreAttempt(test, answers)

	// Assert: 2 * (100/3), без округления
	assert.InDelta(t, 200.0/3.0, breakdown.Score, 1e-9, "Дробный балл хранится как есть")
}
