package repository

import (
	"github.com/yourusername/coaching-api/internal/domain/entity"
)

// UserRepository определяет методы для чтения пользователей.
// Идентификация и управление пользователями принадлежат внешней подсистеме,
// движку нужны роль, статус блокировки и настройка видимости в лидерборде.
type UserRepository interface {
	GetByID(id uint) (*entity.User, error)
	GetByIDs(ids []uint) ([]entity.User, error)
}
