package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// IntArray - пользовательский тип JSONB для множеств индексов вариантов
type IntArray []int

// Scan реализует интерфейс sql.Scanner для IntArray
func (o *IntArray) Scan(value interface{}) error {
	if value == nil {
		*o = IntArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = IntArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для IntArray
func (o IntArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Question представляет вопрос из каталога.
// Содержимое неизменяемо с точки зрения попытки: правильные варианты
// заданы множеством индексов (мультивыбор допустим).
type Question struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	TestID         uint        `gorm:"not null;index" json:"test_id"`
	Position       int         `gorm:"not null;default:0;index" json:"position"`
	Text           string      `gorm:"size:1000;not null" json:"text"`
	Options        StringArray `gorm:"type:jsonb;not null" json:"options"`
	CorrectOptions IntArray    `gorm:"type:jsonb;not null" json:"-"` // Скрыто от клиента
	Subject        string      `gorm:"size:100;not null;default:'';index" json:"subject"`
	Difficulty     string      `gorm:"size:20;not null;default:'medium'" json:"difficulty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// OptionsCount возвращает количество вариантов ответа
func (q *Question) OptionsCount() int {
	return len(q.Options)
}

// IsValidSelection проверяет, что все выбранные индексы попадают в диапазон вариантов
func (q *Question) IsValidSelection(selected []int) bool {
	for _, idx := range selected {
		if idx < 0 || idx >= len(q.Options) {
			return false
		}
	}
	return true
}

// MatchesSelection проверяет точное совпадение множеств: выбранные индексы
// должны совпасть с множеством правильных в обе стороны, порядок не важен.
// Частичный зачет мультивыбора таким образом невозможен.
func (q *Question) MatchesSelection(selected []int) bool {
	if len(selected) == 0 || len(q.CorrectOptions) == 0 {
		return false
	}

	correct := make(map[int]struct{}, len(q.CorrectOptions))
	for _, idx := range q.CorrectOptions {
		correct[idx] = struct{}{}
	}

	seen := make(map[int]struct{}, len(selected))
	for _, idx := range selected {
		if _, ok := correct[idx]; !ok {
			return false
		}
		seen[idx] = struct{}{}
	}

	return len(seen) == len(correct)
}
