package dto

import (
	"time"

	"github.com/yourusername/coaching-api/internal/domain/entity"
)

// AnswerResponse представляет сохраненный ответ в формате для клиента
type AnswerResponse struct {
	QuestionID      uint  `json:"question_id"`
	SelectedOptions []int `json:"selected_options"`
}

// AttemptResponse представляет попытку в формате для клиента.
// Детали зачета включаются только для сданных попыток по тестам
// с опубликованным ключом ответов.
type AttemptResponse struct {
	PublicID        string           `json:"public_id"`
	TestID          uint             `json:"test_id"`
	Status          string           `json:"status"`
	Answers         []AnswerResponse `json:"answers"`
	CorrectCount    *int             `json:"correct_count,omitempty"`
	IncorrectCount  *int             `json:"incorrect_count,omitempty"`
	UnansweredCount *int             `json:"unanswered_count,omitempty"`
	Score           *float64         `json:"score,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty"`
}

// NewAttemptResponse создает DTO для попытки.
// includeScore управляет видимостью деталей зачета (гейт ключа ответов).
func NewAttemptResponse(attempt *entity.Attempt, includeScore bool) *AttemptResponse {
	answers := make([]AnswerResponse, 0, len(attempt.Answers))
	for i := range attempt.Answers {
		answers = append(answers, AnswerResponse{
			QuestionID:      attempt.Answers[i].QuestionID,
			SelectedOptions: attempt.Answers[i].SelectedOptions,
		})
	}

	resp := &AttemptResponse{
		PublicID:    attempt.PublicID,
		TestID:      attempt.TestID,
		Status:      attempt.Status,
		Answers:     answers,
		StartedAt:   attempt.StartedAt,
		SubmittedAt: attempt.SubmittedAt,
	}

	if includeScore && attempt.IsSubmitted() {
		correct := attempt.CorrectCount
		incorrect := attempt.IncorrectCount
		unanswered := attempt.UnansweredCount
		score := attempt.Score
		resp.CorrectCount = &correct
		resp.IncorrectCount = &incorrect
		resp.UnansweredCount = &unanswered
		resp.Score = &score
	}

	return resp
}
