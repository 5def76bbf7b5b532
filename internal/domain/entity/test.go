package entity

import (
	"time"
)

// Константы статусов теста
const (
	TestStatusDraft     = "draft"
	TestStatusPublished = "published"
	TestStatusArchived  = "archived"
)

// Test представляет тест: упорядоченный список вопросов, длительность,
// общий балл и ставка отрицательного оценивания.
// Флаг AnswerKeyPublished закрывает любые детали зачета для аналитики,
// пока ключ ответов не опубликован.
type Test struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	OrganizationID      uint       `gorm:"not null;index" json:"organization_id"`
	Title               string     `gorm:"size:200;not null" json:"title"`
	DurationMinutes     int        `gorm:"not null;default:60" json:"duration_minutes"`
	TotalMarks          float64    `gorm:"not null;default:0" json:"total_marks"`
	NegativeMarkingRate float64    `gorm:"not null;default:0" json:"negative_marking_rate"`
	Status              string     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	AnswerKeyPublished  bool       `gorm:"not null;default:false" json:"answer_key_published"`
	BatchIDs            IntArray   `gorm:"type:jsonb;not null;default:'[]'" json:"batch_ids"`
	Questions           []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Test) TableName() string {
	return "tests"
}

// IsPublished проверяет, опубликован ли тест
func (t *Test) IsPublished() bool {
	return t.Status == TestStatusPublished
}

// QuestionCount возвращает количество вопросов теста
func (t *Test) QuestionCount() int {
	return len(t.Questions)
}

// MarksPerQuestion возвращает вес одного вопроса.
// Веса равномерные: общий балл делится на число вопросов,
// значение может быть дробным (например 150 баллов на 47 вопросов).
func (t *Test) MarksPerQuestion() float64 {
	if len(t.Questions) == 0 {
		return 0
	}
	return t.TotalMarks / float64(len(t.Questions))
}

// Duration возвращает длительность теста как time.Duration
func (t *Test) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// AssignedToBatch проверяет, привязан ли тест к указанному потоку
func (t *Test) AssignedToBatch(batchID uint) bool {
	for _, id := range t.BatchIDs {
		if uint(id) == batchID {
			return true
		}
	}
	return false
}
