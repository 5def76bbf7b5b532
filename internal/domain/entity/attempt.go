package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Константы статусов попытки
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusSubmitted  = "submitted" // терминальный статус
)

// Attempt представляет одну попытку студента пройти один тест.
// Пара (user_id, test_id) не уникальна - студент может пересдавать,
// но правило дедупликации сводит агрегаты к канонической (ранней) попытке.
// Инвариант хранилища: не более одной попытки in_progress на пару,
// обеспечивается частичным уникальным индексом (см. миграции).
type Attempt struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"public_id"`
	UserID   uint   `gorm:"not null;index:idx_attempts_user_test" json:"user_id"`
	TestID   uint   `gorm:"not null;index:idx_attempts_user_test" json:"test_id"`
	Status   string `gorm:"size:20;not null;default:'in_progress';index" json:"status"`

	Answers []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`

	// Итоговые поля фиксируются при сдаче и после неё не меняются
	CorrectCount    int     `gorm:"not null;default:0" json:"correct_count"`
	IncorrectCount  int     `gorm:"not null;default:0" json:"incorrect_count"`
	UnansweredCount int     `gorm:"not null;default:0" json:"unanswered_count"`
	Score           float64 `gorm:"not null;default:0" json:"score"`

	StartedAt   time.Time  `gorm:"not null;index" json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Attempt) TableName() string {
	return "attempts"
}

// BeforeCreate присваивает публичный идентификатор попытки
func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.PublicID == "" {
		a.PublicID = uuid.New().String()
	}
	return nil
}

// IsInProgress проверяет, идет ли попытка
func (a *Attempt) IsInProgress() bool {
	return a.Status == AttemptStatusInProgress
}

// IsSubmitted проверяет, сдана ли попытка
func (a *Attempt) IsSubmitted() bool {
	return a.Status == AttemptStatusSubmitted
}

// OwnedBy проверяет принадлежность попытки пользователю
func (a *Attempt) OwnedBy(userID uint) bool {
	return a.UserID == userID
}

// AnswerFor возвращает сохраненный ответ на вопрос или nil
func (a *Attempt) AnswerFor(questionID uint) *AttemptAnswer {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return &a.Answers[i]
		}
	}
	return nil
}

// TotalQuestionsSeen возвращает число вопросов, зачтенных в попытке
func (a *Attempt) TotalQuestionsSeen() int {
	return a.CorrectCount + a.IncorrectCount + a.UnansweredCount
}

// Accuracy возвращает точность попытки в процентах (0-100)
func (a *Attempt) Accuracy() float64 {
	total := a.TotalQuestionsSeen()
	if total == 0 {
		return 0
	}
	return float64(a.CorrectCount) / float64(total) * 100
}

// TimeTaken возвращает фактическую длительность сданной попытки
func (a *Attempt) TimeTaken() time.Duration {
	if a.SubmittedAt == nil {
		return 0
	}
	return a.SubmittedAt.Sub(a.StartedAt)
}

// AttemptAnswer представляет ответ в рамках попытки: разреженная запись,
// ключуемая вопросом и хранящая множество выбранных индексов.
// Пустое множество означает "без ответа".
type AttemptAnswer struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AttemptID       uint      `gorm:"not null;index:idx_answers_attempt_question,unique" json:"attempt_id"`
	QuestionID      uint      `gorm:"not null;index:idx_answers_attempt_question,unique" json:"question_id"`
	SelectedOptions IntArray  `gorm:"type:jsonb;not null;default:'[]'" json:"selected_options"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// IsAnswered проверяет, выбран ли хотя бы один вариант
func (ans *AttemptAnswer) IsAnswered() bool {
	return len(ans.SelectedOptions) > 0
}
